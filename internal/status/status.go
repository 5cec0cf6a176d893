package status

import (
	"github.com/prappser/gallery_server/internal/apperr"
	"github.com/prappser/gallery_server/internal/asset"
	"github.com/prappser/gallery_server/internal/respond"
	"github.com/valyala/fasthttp"
)

// Counter is satisfied by asset.Listing.
type Counter interface {
	Count(state string) (map[string]int, error)
}

// ClientStats is satisfied by the websocket hub.
type ClientStats interface {
	GetStats() (totalClients, totalSubscriptions int)
}

type StatusEndpoints struct {
	version string
	counter Counter
	clients ClientStats
}

func NewEndpoints(version string, counter Counter, clients ClientStats) *StatusEndpoints {
	return &StatusEndpoints{
		version: version,
		counter: counter,
		clients: clients,
	}
}

type StatusResponse struct {
	Health        string         `json:"health"`
	Version       string         `json:"version"`
	Assets        map[string]int `json:"assets"`
	Clients       int            `json:"clients"`
	Subscriptions int            `json:"subscriptions"`
}

func (se *StatusEndpoints) Status(ctx *fasthttp.RequestCtx) {
	response := StatusResponse{
		Health:  "OK",
		Version: se.version,
		Assets:  make(map[string]int, len(asset.States)),
	}

	for _, state := range asset.States {
		counts, err := se.counter.Count(string(state))
		if err != nil {
			// a state directory removed out from under us reads as empty
			if apperr.Is(err, apperr.KindNotFound) {
				response.Assets[string(state)] = 0
				continue
			}
			respond.Error(ctx, err)
			return
		}
		response.Assets[string(state)] = counts[asset.AllOwners]
	}

	if se.clients != nil {
		response.Clients, response.Subscriptions = se.clients.GetStats()
	}

	respond.JSON(ctx, fasthttp.StatusOK, response)
}
