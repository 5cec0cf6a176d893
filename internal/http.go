package internal

import (
	"strings"

	"github.com/prappser/gallery_server/internal/archive"
	"github.com/prappser/gallery_server/internal/asset"
	"github.com/prappser/gallery_server/internal/health"
	"github.com/prappser/gallery_server/internal/middleware"
	"github.com/prappser/gallery_server/internal/status"
	"github.com/prappser/gallery_server/internal/transcode"
	"github.com/prappser/gallery_server/internal/websocket"
	"github.com/valyala/fasthttp"
)

type Endpoints struct {
	Assets   *asset.Endpoints
	Images   *transcode.Endpoints
	Archive  *archive.Endpoints
	Status   *status.StatusEndpoints
	Health   *health.HealthEndpoints
	Realtime *websocket.Handler
}

const imagesPrefix = "/images/"

func NewRequestHandler(config *Config, endpoints *Endpoints, corsMiddleware *middleware.CORSMiddleware) fasthttp.RequestHandler {
	authMiddleware := middleware.NewAuthMiddleware(config.Auth.APIKey)
	requestMiddleware := middleware.NewRequestMiddleware()
	auth := authMiddleware.RequireKey

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/health":
			onlyMethod(ctx, method, fasthttp.MethodGet, endpoints.Health.Health)
		case path == "/status":
			onlyMethod(ctx, method, fasthttp.MethodGet, auth(endpoints.Status.Status))

		case path == "/upload":
			onlyMethod(ctx, method, fasthttp.MethodPost, auth(endpoints.Assets.Upload))
		case path == "/verification":
			onlyMethod(ctx, method, fasthttp.MethodPost, auth(endpoints.Assets.Verification))
		case path == "/delete":
			onlyMethod(ctx, method, fasthttp.MethodPost, auth(endpoints.Assets.Delete))
		case path == "/get-image-count":
			onlyMethod(ctx, method, fasthttp.MethodGet, auth(endpoints.Assets.Count))
		case path == "/images":
			onlyMethod(ctx, method, fasthttp.MethodGet, auth(endpoints.Assets.List))
		case strings.HasPrefix(path, imagesPrefix):
			onlyMethod(ctx, method, fasthttp.MethodGet, auth(endpoints.Images.GetImage))

		case path == "/createzip":
			onlyMethod(ctx, method, fasthttp.MethodPost, auth(endpoints.Archive.CreateZip))
		case path == "/download":
			onlyMethod(ctx, method, fasthttp.MethodGet, auth(endpoints.Archive.Download))

		case path == "/ws":
			onlyMethod(ctx, method, fasthttp.MethodGet, auth(endpoints.Realtime.HandleFastHTTP))

		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return requestMiddleware.Handle(corsMiddleware.Handle(handler))
}

func onlyMethod(ctx *fasthttp.RequestCtx, method, allowed string, handler fasthttp.RequestHandler) {
	if method != allowed {
		ctx.Response.Header.Set("Allow", allowed)
		ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
		return
	}
	handler(ctx)
}
