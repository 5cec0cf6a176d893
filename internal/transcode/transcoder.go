package transcode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/prappser/gallery_server/internal/apperr"
	"github.com/prappser/gallery_server/internal/asset"
	"github.com/rs/zerolog/log"
)

type Tier string

const (
	TierLow  Tier = "low"
	TierHigh Tier = "high"
)

func ParseTier(s string) (Tier, error) {
	switch tier := Tier(strings.ToLower(strings.TrimSpace(s))); tier {
	case TierLow, TierHigh:
		return tier, nil
	default:
		return "", apperr.Invalid(`missing or invalid "quality" header (must be "low" or "high")`)
	}
}

type Config struct {
	Format       string `mapstructure:"format"`
	MaxWidth     int    `mapstructure:"max_width"`
	MaxHeight    int    `mapstructure:"max_height"`
	MaxBytes     int    `mapstructure:"max_bytes"`
	StartQuality int    `mapstructure:"start_quality"`
	QualityStep  int    `mapstructure:"quality_step"`
	MinQuality   int    `mapstructure:"min_quality"`
	HighQuality  int    `mapstructure:"high_quality"`
}

func DefaultConfig() Config {
	return Config{
		Format:       FormatWebP,
		MaxWidth:     250,
		MaxHeight:    250,
		MaxBytes:     100000,
		StartQuality: 80,
		QualityStep:  10,
		MinQuality:   20,
		HighQuality:  95,
	}
}

// withDefaults fills unset fields. A non-positive step would never reach the
// floor, so it is replaced as well.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.MaxWidth <= 0 {
		c.MaxWidth = d.MaxWidth
	}
	if c.MaxHeight <= 0 {
		c.MaxHeight = d.MaxHeight
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = d.MaxBytes
	}
	if c.StartQuality <= 0 || c.StartQuality > 100 {
		c.StartQuality = d.StartQuality
	}
	if c.QualityStep <= 0 {
		c.QualityStep = d.QualityStep
	}
	if c.MinQuality < 0 {
		c.MinQuality = d.MinQuality
	}
	if c.HighQuality <= 0 || c.HighQuality > 100 {
		c.HighQuality = d.HighQuality
	}
	return c
}

type Result struct {
	Data      []byte
	MediaType string
	// Fallback is set when the low tier could not meet the byte budget and the
	// source bytes are returned unchanged.
	Fallback bool
}

type Transcoder struct {
	store   *asset.Store
	encoder Encoder
	config  Config
	cache   Cache
}

func NewTranscoder(store *asset.Store, encoder Encoder, config Config, cache Cache) *Transcoder {
	if cache == nil {
		cache = nopCache{}
	}
	return &Transcoder{
		store:   store,
		encoder: encoder,
		config:  config.withDefaults(),
		cache:   cache,
	}
}

// Deliver reads the asset at path and produces bytes for the requested tier.
func (t *Transcoder) Deliver(ctx context.Context, path, tier string) (*Result, error) {
	target, err := asset.ParsePath(path)
	if err != nil {
		return nil, err
	}
	info, err := t.store.Stat(target)
	if err != nil {
		return nil, err
	}
	parsedTier, err := ParseTier(tier)
	if err != nil {
		return nil, err
	}
	sourceType, ok := asset.MediaTypeOf(target.Filename)
	if !ok {
		return nil, apperr.Forbidden("only image files are allowed")
	}

	key := cacheKey(target, parsedTier, info.Size(), info.ModTime().UnixNano())
	if cached, hit, err := t.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Delivery cache read failed")
	} else if hit {
		return cached, nil
	}

	source, err := t.store.ReadFile(target)
	if err != nil {
		return nil, err
	}

	result, err := t.Transcode(source, sourceType, parsedTier)
	if err != nil {
		return nil, err
	}
	if result.Fallback {
		log.Warn().
			Str("state", string(target.State)).
			Str("owner", target.Owner).
			Str("file", target.Filename).
			Int("maxBytes", t.config.MaxBytes).
			Msg("Byte budget not met, serving original")
	}

	if err := t.cache.Set(ctx, key, result); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Delivery cache write failed")
	}
	return result, nil
}

// Transcode re-encodes source for the tier. It holds no shared state and may
// run concurrently.
func (t *Transcoder) Transcode(source []byte, sourceType string, tier Tier) (*Result, error) {
	img, err := imaging.Decode(bytes.NewReader(source), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.Processing(err, "failed to decode image")
	}

	if tier == TierHigh {
		var buf bytes.Buffer
		if err := t.encoder.Encode(&buf, img, t.config.HighQuality); err != nil {
			return nil, apperr.Processing(err, "failed to encode image")
		}
		return &Result{Data: buf.Bytes(), MediaType: t.encoder.MediaType()}, nil
	}

	return t.searchQuality(Letterbox(img, t.config.MaxWidth, t.config.MaxHeight), source, sourceType)
}

// searchQuality steps the quality down from StartQuality while the output is
// over budget. It makes at most ceil((Start-Min)/Step) attempts.
func (t *Transcoder) searchQuality(img image.Image, source []byte, sourceType string) (*Result, error) {
	var buf bytes.Buffer
	for quality := t.config.StartQuality; quality > t.config.MinQuality; quality -= t.config.QualityStep {
		buf.Reset()
		if err := t.encoder.Encode(&buf, img, quality); err != nil {
			return nil, apperr.Processing(err, "failed to encode image at quality %d", quality)
		}
		if buf.Len() <= t.config.MaxBytes {
			return &Result{Data: bytes.Clone(buf.Bytes()), MediaType: t.encoder.MediaType()}, nil
		}
	}
	return &Result{Data: source, MediaType: sourceType, Fallback: true}, nil
}

// Letterbox scales img to fit width x height with its aspect ratio preserved
// and centers it on a transparent canvas of exactly that size.
func Letterbox(img image.Image, width, height int) *image.NRGBA {
	bounds := img.Bounds()
	ratio := math.Min(float64(width)/float64(bounds.Dx()), float64(height)/float64(bounds.Dy()))
	w := max(1, int(math.Round(float64(bounds.Dx())*ratio)))
	h := max(1, int(math.Round(float64(bounds.Dy())*ratio)))

	resized := imaging.Resize(img, min(w, width), min(h, height), imaging.Lanczos)
	canvas := imaging.New(width, height, color.NRGBA{})
	return imaging.PasteCenter(canvas, resized)
}

func cacheKey(a asset.Asset, tier Tier, size, modTime int64) string {
	return fmt.Sprintf("%s/%s/%s:%s:%d:%d", a.State, a.Owner, a.Filename, tier, size, modTime)
}
