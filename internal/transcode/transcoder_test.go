package transcode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"testing"

	"github.com/gen2brain/webp"
	"github.com/prappser/gallery_server/internal/apperr"
	"github.com/prappser/gallery_server/internal/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sizedEncoder writes size(quality) bytes and records every quality tried.
type sizedEncoder struct {
	size      func(quality int) int
	err       error
	qualities []int
}

func (e *sizedEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	e.qualities = append(e.qualities, quality)
	if e.err != nil {
		return e.err
	}
	_, err := w.Write(bytes.Repeat([]byte{'x'}, e.size(quality)))
	return err
}

func (e *sizedEncoder) MediaType() string {
	return "image/test"
}

type mapCache struct {
	entries map[string]*Result
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*Result)}
}

func (c *mapCache) Get(_ context.Context, key string) (*Result, bool, error) {
	result, ok := c.entries[key]
	return result, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, result *Result) error {
	c.sets++
	c.entries[key] = result
	return nil
}

func gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestTranscoder_Transcode_ShouldStopAtFirstQualityUnderBudget(t *testing.T) {
	// given
	encoder := &sizedEncoder{size: func(q int) int { return q * 2000 }}
	transcoder := NewTranscoder(nil, encoder, DefaultConfig(), nil)
	source := encodePNG(t, gradient(40, 30))

	// when
	result, err := transcoder.Transcode(source, "image/png", TierLow)

	// then
	require.NoError(t, err)
	assert.Equal(t, []int{80, 70, 60, 50}, encoder.qualities)
	assert.Len(t, result.Data, 100000)
	assert.Equal(t, "image/test", result.MediaType)
	assert.False(t, result.Fallback)
}

func TestTranscoder_Transcode_ShouldFallBackToSourceAfterFloor(t *testing.T) {
	// given
	encoder := &sizedEncoder{size: func(int) int { return 100001 }}
	transcoder := NewTranscoder(nil, encoder, DefaultConfig(), nil)
	source := encodePNG(t, gradient(40, 30))

	// when
	result, err := transcoder.Transcode(source, "image/png", TierLow)

	// then
	require.NoError(t, err)
	assert.Equal(t, []int{80, 70, 60, 50, 40, 30}, encoder.qualities)
	assert.True(t, result.Fallback)
	assert.Equal(t, source, result.Data)
	assert.Equal(t, "image/png", result.MediaType)
}

func TestTranscoder_Transcode_ShouldTerminateWithNonPositiveStep(t *testing.T) {
	// given
	encoder := &sizedEncoder{size: func(int) int { return 1 << 20 }}
	config := DefaultConfig()
	config.QualityStep = 0
	transcoder := NewTranscoder(nil, encoder, config, nil)

	// when
	result, err := transcoder.Transcode(encodePNG(t, gradient(8, 8)), "image/png", TierLow)

	// then
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Len(t, encoder.qualities, 6)
}

func TestTranscoder_Transcode_ShouldUseFixedHighQuality(t *testing.T) {
	// given
	encoder := &sizedEncoder{size: func(int) int { return 10 << 20 }}
	transcoder := NewTranscoder(nil, encoder, DefaultConfig(), nil)

	// when
	result, err := transcoder.Transcode(encodePNG(t, gradient(40, 30)), "image/png", TierHigh)

	// then
	require.NoError(t, err)
	assert.Equal(t, []int{95}, encoder.qualities)
	assert.Len(t, result.Data, 10<<20)
}

func TestTranscoder_Transcode_ShouldReportCodecFailures(t *testing.T) {
	// given
	encoder := &sizedEncoder{err: errors.New("codec exploded")}
	transcoder := NewTranscoder(nil, encoder, DefaultConfig(), nil)

	// when
	_, encodeErr := transcoder.Transcode(encodePNG(t, gradient(4, 4)), "image/png", TierLow)
	_, decodeErr := transcoder.Transcode([]byte("not an image"), "image/png", TierHigh)

	// then
	assert.True(t, apperr.Is(encodeErr, apperr.KindProcessingFailure))
	assert.True(t, apperr.Is(decodeErr, apperr.KindProcessingFailure))
}

func TestTranscoder_Transcode_ShouldFitLargeSourceIntoBudget(t *testing.T) {
	// given
	transcoder := NewTranscoder(nil, JPEGEncoder{}, DefaultConfig(), nil)
	source := encodeJPEG(t, gradient(4000, 3000))

	// when
	result, err := transcoder.Transcode(source, "image/jpeg", TierLow)

	// then
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.LessOrEqual(t, len(result.Data), 100000)
	config, format, err := image.DecodeConfig(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 250, config.Width)
	assert.Equal(t, 250, config.Height)
}

func TestTranscoder_Transcode_ShouldFitLargeSourceIntoBudgetAsWebP(t *testing.T) {
	// given
	encoder, err := NewEncoder("")
	require.NoError(t, err)
	transcoder := NewTranscoder(nil, encoder, DefaultConfig(), nil)
	source := encodeJPEG(t, gradient(4000, 3000))

	// when
	result, err := transcoder.Transcode(source, "image/jpeg", TierLow)

	// then
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Equal(t, "image/webp", result.MediaType)
	assert.LessOrEqual(t, len(result.Data), 100000)

	config, format, err := image.DecodeConfig(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	assert.Equal(t, 250, config.Width)
	assert.Equal(t, 250, config.Height)

	decoded, err := webp.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	alphaAt := func(x, y int) uint8 {
		return color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA).A
	}
	// 4:3 fitted into a square leaves bands above and below the picture
	assert.Equal(t, uint8(0), alphaAt(125, 3))
	assert.Equal(t, uint8(0), alphaAt(125, 246))
	assert.Equal(t, uint8(255), alphaAt(125, 125))
}

func TestTranscoder_Transcode_ShouldKeepDimensionsForHighTier(t *testing.T) {
	// given
	transcoder := NewTranscoder(nil, JPEGEncoder{}, DefaultConfig(), nil)

	// when
	result, err := transcoder.Transcode(encodePNG(t, gradient(640, 480)), "image/png", TierHigh)

	// then
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", result.MediaType)
	config, _, err := image.DecodeConfig(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, 640, config.Width)
	assert.Equal(t, 480, config.Height)
}

func TestLetterbox_ShouldPreserveAspectWithTransparentPadding(t *testing.T) {
	// when
	boxed := Letterbox(gradient(4000, 3000), 250, 250)

	// then
	assert.Equal(t, image.Rect(0, 0, 250, 250), boxed.Bounds())
	assert.Equal(t, uint8(0), boxed.NRGBAAt(125, 5).A)
	assert.Equal(t, uint8(0), boxed.NRGBAAt(125, 244).A)
	assert.Equal(t, uint8(255), boxed.NRGBAAt(125, 125).A)
	assert.Equal(t, uint8(255), boxed.NRGBAAt(2, 125).A)
}

func TestLetterbox_ShouldUpscaleSmallSources(t *testing.T) {
	boxed := Letterbox(gradient(10, 20), 250, 250)

	assert.Equal(t, image.Rect(0, 0, 250, 250), boxed.Bounds())
	assert.Equal(t, uint8(255), boxed.NRGBAAt(125, 0).A)
	assert.Equal(t, uint8(0), boxed.NRGBAAt(5, 125).A)
}

func newDeliveryFixture(t *testing.T) (*asset.Store, asset.Asset) {
	t.Helper()
	store, err := asset.NewStore(t.TempDir())
	require.NoError(t, err)
	stored := asset.Asset{State: asset.StateVerified, Owner: "alice", Filename: "a.png"}
	require.NoError(t, os.MkdirAll(store.OwnerDir(stored.State, stored.Owner), 0755))
	require.NoError(t, os.WriteFile(store.Path(stored), encodePNG(t, gradient(40, 30)), 0644))
	require.NoError(t, os.WriteFile(store.Path(asset.Asset{State: stored.State, Owner: stored.Owner, Filename: "notes.txt"}), []byte("hi"), 0644))
	return store, stored
}

func TestTranscoder_Deliver_ShouldValidateRequest(t *testing.T) {
	// given
	store, stored := newDeliveryFixture(t)
	transcoder := NewTranscoder(store, &sizedEncoder{size: func(int) int { return 10 }}, DefaultConfig(), nil)
	ctx := context.Background()

	// when
	_, missing := transcoder.Deliver(ctx, "/images/verified/alice/missing.png", "low")
	_, badTier := transcoder.Deliver(ctx, stored.URL(), "medium")
	_, notImage := transcoder.Deliver(ctx, "/images/verified/alice/notes.txt", "high")
	_, badPath := transcoder.Deliver(ctx, "/images/verified/../alice/a.png", "high")
	_, badState := transcoder.Deliver(ctx, "/images/archived/alice/a.png", "high")

	// then
	assert.True(t, apperr.Is(missing, apperr.KindNotFound))
	assert.True(t, apperr.Is(badTier, apperr.KindInvalidRequest))
	assert.True(t, apperr.Is(notImage, apperr.KindForbidden))
	assert.True(t, apperr.Is(badPath, apperr.KindInvalidRequest))
	assert.True(t, apperr.Is(badState, apperr.KindInvalidRequest))
}

func TestTranscoder_Deliver_ShouldServeRepeatRequestsFromCache(t *testing.T) {
	// given
	store, stored := newDeliveryFixture(t)
	encoder := &sizedEncoder{size: func(int) int { return 10 }}
	cache := newMapCache()
	transcoder := NewTranscoder(store, encoder, DefaultConfig(), cache)

	// when
	first, err := transcoder.Deliver(context.Background(), stored.URL(), "low")
	require.NoError(t, err)
	second, err := transcoder.Deliver(context.Background(), stored.URL(), "low")
	require.NoError(t, err)

	// then
	assert.Equal(t, first, second)
	assert.Equal(t, []int{80}, encoder.qualities)
	assert.Equal(t, 1, cache.sets)
}
