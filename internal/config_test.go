package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prappser/gallery_server/internal/archive"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ShouldUseDefaultsWhenFileMissing(t *testing.T) {
	// given
	viper.Reset()
	t.Cleanup(viper.Reset)

	// when
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	// then
	require.NoError(t, err)
	assert.Equal(t, ":8080", config.HTTP.Address)
	assert.Equal(t, 30*time.Second, config.HTTP.ReadTimeout)
	assert.Equal(t, "./images", config.Storage.Root)
	assert.Equal(t, 100000, config.Transcode.MaxBytes)
	assert.Equal(t, 80, config.Transcode.StartQuality)
	assert.Equal(t, time.Hour, config.Cache.TTL)
	assert.Equal(t, "verified.zip", config.Export.ArtifactName)
	assert.Equal(t, archive.BackendTypeLocal, config.Export.Backend.Type)
	assert.Equal(t, []string{"*"}, config.CORS.AllowedOrigins)
}

func TestLoadConfig_ShouldReadFileAndEnvironment(t *testing.T) {
	// given
	viper.Reset()
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
http:
  address: ":9090"
  write_timeout: 2m
storage:
  root: /srv/gallery
export:
  backend: s3
  s3_bucket: exports
cors:
  allowed_origins:
    - https://gallery.example
`), 0o644))
	t.Setenv("GALLERY_AUTH_API_KEY", "from-env")
	t.Setenv("GALLERY_TRANSCODE_MAX_BYTES", "50000")

	// when
	config, err := LoadConfig(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, ":9090", config.HTTP.Address)
	assert.Equal(t, 2*time.Minute, config.HTTP.WriteTimeout)
	assert.Equal(t, "/srv/gallery", config.Storage.Root)
	assert.Equal(t, archive.BackendTypeS3, config.Export.Backend.Type)
	assert.Equal(t, "exports", config.Export.Backend.S3Bucket)
	assert.Equal(t, "from-env", config.Auth.APIKey)
	assert.Equal(t, 50000, config.Transcode.MaxBytes)
	assert.Equal(t, []string{"https://gallery.example"}, config.CORS.AllowedOrigins)
}

func TestLoadConfig_ShouldFailOnMalformedFile(t *testing.T) {
	// given
	viper.Reset()
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unclosed"), 0o644))

	// when
	_, err := LoadConfig(path)

	// then
	assert.Error(t, err)
}

func TestSetupLogger_ShouldFallBackToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	SetupLogger("test", "chatty")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	SetupLogger("test", "debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
