package middleware

import (
	"regexp"
	"strings"

	"github.com/valyala/fasthttp"
)

// Request headers the gallery API reads. Browsers need them listed before they
// will send them cross-origin.
var allowedHeaders = []string{
	"Content-Type",
	APIKeyHeader,
	RequestIDHeader,
	"folder-name",
	"origin-folder",
	"file-name",
	"action",
	"folder-type",
	"student-name",
	"page",
	"limit",
	"quality",
}

type CORSMiddleware struct {
	allowedOrigins []string
	localhostRegex *regexp.Regexp
	allowHeaders   string
}

func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &CORSMiddleware{
		allowedOrigins: allowedOrigins,
		localhostRegex: regexp.MustCompile(`^https?://localhost:\d+$`),
		allowHeaders:   strings.Join(allowedHeaders, ", "),
	}
}

func (cm *CORSMiddleware) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))

		if origin != "" && cm.IsOriginAllowed(origin) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Vary", "Origin")
		} else if cm.allowsAny() {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		}

		ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", cm.allowHeaders)
		ctx.Response.Header.Set("Access-Control-Expose-Headers", "Content-Type, Content-Disposition, "+RequestIDHeader)
		ctx.Response.Header.Set("Access-Control-Max-Age", "86400")

		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

// IsOriginAllowed reports whether origin may call the API. It also guards
// websocket upgrades.
func (cm *CORSMiddleware) IsOriginAllowed(origin string) bool {
	if cm.allowsAny() {
		return true
	}
	for _, allowed := range cm.allowedOrigins {
		if allowed == origin {
			return true
		}
		if allowed == "http://localhost:*" || allowed == "https://localhost:*" {
			if cm.localhostRegex.MatchString(origin) {
				return true
			}
		}
	}
	return false
}

func (cm *CORSMiddleware) allowsAny() bool {
	for _, allowed := range cm.allowedOrigins {
		if allowed == "*" {
			return true
		}
	}
	return false
}
