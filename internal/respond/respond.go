package respond

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/prappser/gallery_server/internal/apperr"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// Error writes err as a plain-text response whose status follows its kind.
func Error(ctx *fasthttp.RequestCtx, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= fasthttp.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("path", string(ctx.Path())).
			Msg("Request failed")
	}
	ctx.Error(string(kind)+": "+apperr.Message(err), status)
}

func Text(ctx *fasthttp.RequestCtx, status int, body string) {
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBodyString(body)
}

func JSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

// Header returns a trimmed request header value. Lookup is case-insensitive.
func Header(ctx *fasthttp.RequestCtx, name string) string {
	return strings.TrimSpace(string(ctx.Request.Header.Peek(name)))
}
