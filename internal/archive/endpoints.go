package archive

import (
	"github.com/prappser/gallery_server/internal/respond"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type Endpoints struct {
	exporter *Exporter
}

func NewEndpoints(exporter *Exporter) *Endpoints {
	return &Endpoints{exporter: exporter}
}

func (e *Endpoints) CreateZip(ctx *fasthttp.RequestCtx) {
	artifact, err := e.exporter.Export(ctx)
	if err != nil {
		respond.Error(ctx, err)
		return
	}

	respond.JSON(ctx, fasthttp.StatusOK, artifact)
}

func (e *Endpoints) Download(ctx *fasthttp.RequestCtx) {
	reader, size, err := e.exporter.Fetch(ctx)
	if err != nil {
		respond.Error(ctx, err)
		return
	}

	ctx.SetContentType("application/zip")
	ctx.Response.Header.Set("Content-Disposition", "attachment; filename="+e.exporter.ArtifactName())
	ctx.SetStatusCode(fasthttp.StatusOK)
	// fasthttp closes the reader once the body has been sent
	ctx.SetBodyStream(reader, int(size))

	log.Debug().
		Str("artifact", e.exporter.ArtifactName()).
		Int64("sizeBytes", size).
		Msg("Streaming ZIP file")
}
