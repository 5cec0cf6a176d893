package health

import (
	"github.com/prappser/gallery_server/internal/respond"
	"github.com/valyala/fasthttp"
)

type HealthEndpoints struct {
	version string
}

func NewEndpoints(version string) *HealthEndpoints {
	return &HealthEndpoints{
		version: version,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health is the unauthenticated liveness probe.
func (h *HealthEndpoints) Health(ctx *fasthttp.RequestCtx) {
	respond.JSON(ctx, fasthttp.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}
