package middleware

import (
	"crypto/subtle"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const (
	APIKeyHeader = "x-api-key"
	apiKeyParam  = "key"
)

type AuthMiddleware struct {
	apiKey []byte
}

func NewAuthMiddleware(apiKey string) *AuthMiddleware {
	return &AuthMiddleware{
		apiKey: []byte(apiKey),
	}
}

// RequireKey rejects requests that do not carry the shared API key, either as
// the x-api-key header or, for browser websocket clients, the key query
// parameter. With no key configured every request is rejected.
func (am *AuthMiddleware) RequireKey(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if len(am.apiKey) == 0 {
			log.Warn().
				Str("path", string(ctx.Path())).
				Msg("No API key configured, rejecting request")
			ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
			return
		}

		presented := ctx.Request.Header.Peek(APIKeyHeader)
		if len(presented) == 0 {
			presented = ctx.QueryArgs().Peek(apiKeyParam)
		}

		if subtle.ConstantTimeCompare(presented, am.apiKey) != 1 {
			log.Warn().
				Str("path", string(ctx.Path())).
				Str("remoteAddr", ctx.RemoteAddr().String()).
				Msg("Authentication failed")
			ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
			return
		}

		handler(ctx)
	}
}
