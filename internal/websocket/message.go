package websocket

import "github.com/prappser/gallery_server/internal/asset"

type MessageType string

const (
	MessageTypeEvents      MessageType = "events"
	MessageTypeConnected   MessageType = "connected"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"
)

type IncomingMessage struct {
	Type  MessageType `json:"type"`
	Owner string      `json:"owner,omitempty"`
}

type OutgoingMessage struct {
	Type     MessageType `json:"type"`
	ClientID string      `json:"clientId,omitempty"`
	Error    string      `json:"error,omitempty"`
}

type EventsMessage struct {
	Type   MessageType    `json:"type"`
	Events []*asset.Event `json:"events"`
}
