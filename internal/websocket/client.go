package websocket

import (
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/prappser/gallery_server/internal/asset"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout   = 10 * time.Second
	pongWait       = time.Minute
	pingInterval   = pongWait / 2
	maxMessageSize = 4 << 10
	sendBufferSize = 64
)

type Client struct {
	id            string
	hub           *Hub
	conn          *websocket.Conn
	send          chan any
	subscriptions map[string]bool // owner -> subscribed
	mu            sync.RWMutex
}

func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:            id,
		hub:           hub,
		conn:          conn,
		send:          make(chan any, sendBufferSize),
		subscriptions: make(map[string]bool),
	}
}

func (c *Client) Subscribe(owner string) {
	c.mu.Lock()
	c.subscriptions[owner] = true
	c.mu.Unlock()

	c.hub.Subscribe(c, owner)

	log.Debug().
		Str("clientId", c.id).
		Str("owner", owner).
		Msg("[WS] Client subscribed to owner")
}

func (c *Client) Unsubscribe(owner string) {
	c.mu.Lock()
	delete(c.subscriptions, owner)
	c.mu.Unlock()

	c.hub.Unsubscribe(c, owner)

	log.Debug().
		Str("clientId", c.id).
		Str("owner", owner).
		Msg("[WS] Client unsubscribed from owner")
}

func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]string, 0, len(c.subscriptions))
	for owner := range c.subscriptions {
		subs = append(subs, owner)
	}
	return subs
}

// ReadPump decodes client frames until the connection fails, then
// unregisters the client. Missing a pong for pongWait counts as a failure.
func (c *Client) ReadPump() {
	defer c.disconnect()

	c.conn.SetReadLimit(maxMessageSize)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	extend("")
	c.conn.SetPongHandler(extend)

	for {
		var msg IncomingMessage
		err := c.conn.ReadJSON(&msg)
		if err == nil {
			c.handleMessage(&msg)
			continue
		}

		event := log.Debug().Str("clientId", c.id)
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
			event = event.Err(err)
		}
		event.Msg("[WS] Connection closed by client")
		return
	}
}

func (c *Client) disconnect() {
	c.hub.Unregister(c)
	c.conn.Close()
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		owner := asset.Normalize(msg.Owner)
		if err := asset.ValidateSegment("owner", owner); err != nil {
			c.trySend(&OutgoingMessage{Type: MessageTypeError, Error: err.Error()})
			return
		}
		if msg.Type == MessageTypeSubscribe {
			c.Subscribe(owner)
		} else {
			c.Unsubscribe(owner)
		}

	case MessageTypePing:
		c.trySend(&OutgoingMessage{Type: MessageTypePong})

	default:
		log.Debug().
			Str("type", string(msg.Type)).
			Msg("[WS] Unknown message type")
	}
}

// trySend never blocks the read loop on a slow writer.
func (c *Client) trySend(msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

// WritePump forwards queued messages and keeps the connection alive with
// pings. It exits when the hub closes the send channel or a write fails.
func (c *Client) WritePump() {
	keepalive := time.NewTicker(pingInterval)
	defer keepalive.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case message, open := <-c.send:
			if !open {
				c.write(func() error { return c.conn.WriteMessage(websocket.CloseMessage, nil) })
				return
			}
			err = c.write(func() error { return c.conn.WriteJSON(message) })

		case <-keepalive.C:
			err = c.write(func() error { return c.conn.WriteMessage(websocket.PingMessage, nil) })
		}

		if err != nil {
			log.Debug().
				Str("clientId", c.id).
				Err(err).
				Msg("[WS] Write failed")
			return
		}
	}
}

func (c *Client) write(frame func() error) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return frame()
}
