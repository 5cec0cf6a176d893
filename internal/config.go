package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/prappser/gallery_server/internal/archive"
	"github.com/prappser/gallery_server/internal/transcode"
	"github.com/spf13/viper"
)

const (
	DefaultConfigPath = "files/config.yaml"
	envPrefix         = "GALLERY"
)

type HTTPConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodySize  int           `mapstructure:"max_body_size"`
}

type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type StorageConfig struct {
	Root string `mapstructure:"root"`
}

type Config struct {
	Environment string                `mapstructure:"environment"`
	LogLevel    string                `mapstructure:"log_level"`
	HTTP        HTTPConfig            `mapstructure:"http"`
	Auth        AuthConfig            `mapstructure:"auth"`
	CORS        CORSConfig            `mapstructure:"cors"`
	Storage     StorageConfig         `mapstructure:"storage"`
	Transcode   transcode.Config      `mapstructure:"transcode"`
	Cache       transcode.CacheConfig `mapstructure:"cache"`
	Export      archive.Config        `mapstructure:"export"`
}

// LoadConfig reads path (if it exists), then GALLERY_* environment variables
// and any flags bound to the global viper instance. A missing file is not an
// error; every key has a default.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	viper.SetConfigFile(path)
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil && !isMissingConfig(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func isMissingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("http.address", ":8080")
	viper.SetDefault("http.read_timeout", "30s")
	viper.SetDefault("http.write_timeout", "60s")
	viper.SetDefault("http.max_body_size", 32<<20)

	viper.SetDefault("auth.api_key", "")
	viper.SetDefault("cors.allowed_origins", []string{"*"})

	viper.SetDefault("storage.root", "./images")

	d := transcode.DefaultConfig()
	viper.SetDefault("transcode.format", d.Format)
	viper.SetDefault("transcode.max_width", d.MaxWidth)
	viper.SetDefault("transcode.max_height", d.MaxHeight)
	viper.SetDefault("transcode.max_bytes", d.MaxBytes)
	viper.SetDefault("transcode.start_quality", d.StartQuality)
	viper.SetDefault("transcode.quality_step", d.QualityStep)
	viper.SetDefault("transcode.min_quality", d.MinQuality)
	viper.SetDefault("transcode.high_quality", d.HighQuality)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.addr", "127.0.0.1:6379")
	viper.SetDefault("cache.password", "")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttl", "1h")

	viper.SetDefault("export.artifact_name", archive.DefaultArtifactName)
	viper.SetDefault("export.compression_level", 9)
	viper.SetDefault("export.schedule", "")
	viper.SetDefault("export.backend", string(archive.BackendTypeLocal))
	viper.SetDefault("export.local_path", "./files")
	viper.SetDefault("export.s3_endpoint", "")
	viper.SetDefault("export.s3_bucket", "")
	viper.SetDefault("export.s3_access_key", "")
	viper.SetDefault("export.s3_secret_key", "")
	viper.SetDefault("export.s3_region", "us-east-1")
	viper.SetDefault("export.s3_use_ssl", false)
}
