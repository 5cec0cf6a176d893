package transcode

import (
	"mime"
	"path"

	"github.com/prappser/gallery_server/internal/respond"
	"github.com/valyala/fasthttp"
)

const headerQuality = "quality"

type Endpoints struct {
	transcoder *Transcoder
}

func NewEndpoints(transcoder *Transcoder) *Endpoints {
	return &Endpoints{transcoder: transcoder}
}

// GetImage serves /images/{state}/{owner}/{file} at the tier named by the
// quality header.
func (e *Endpoints) GetImage(ctx *fasthttp.RequestCtx) {
	imagePath := string(ctx.Path())

	result, err := e.transcoder.Deliver(ctx, imagePath, respond.Header(ctx, headerQuality))
	if err != nil {
		respond.Error(ctx, err)
		return
	}

	ctx.SetContentType(result.MediaType)
	ctx.Response.Header.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(imagePath)}))
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(result.Data)
}
