package transcode

import (
	"mime"
	"os"
	"testing"

	"github.com/prappser/gallery_server/internal/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestEndpoints_GetImage_ShouldQuoteFilenameInDisposition(t *testing.T) {
	// given
	store, stored := newDeliveryFixture(t)
	quoted := asset.Asset{State: stored.State, Owner: stored.Owner, Filename: `say "cheese".png`}
	source, err := os.ReadFile(store.Path(stored))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(quoted), source, 0644))

	endpoints := NewEndpoints(NewTranscoder(store, &sizedEncoder{size: func(int) int { return 10 }}, DefaultConfig(), nil))
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI(quoted.URL())
	ctx.Request.Header.Set("quality", "high")

	// when
	endpoints.GetImage(ctx)

	// then
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	disposition, params, err := mime.ParseMediaType(string(ctx.Response.Header.Peek("Content-Disposition")))
	require.NoError(t, err)
	assert.Equal(t, "inline", disposition)
	assert.Equal(t, `say "cheese".png`, params["filename"])
	assert.Equal(t, "image/test", string(ctx.Response.Header.ContentType()))
}
