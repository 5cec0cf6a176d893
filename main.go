package main

import (
	"os"

	"github.com/prappser/gallery_server/internal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "gallery",
	Short:         "Image gallery server with review workflow, adaptive delivery and archive export",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", internal.DefaultConfigPath, "path to the YAML config file")
	flags.String("root", "", "storage root holding the uploaded, verified and deleted trees")
	bindFlag(flags, "storage.root", "root")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(countCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// loadConfig reads configuration and sets up logging for every subcommand.
func loadConfig() (*internal.Config, error) {
	config, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	internal.SetupLogger(config.Environment, config.LogLevel)
	return config, nil
}

// bindFlag lets an explicitly set flag override the config key.
func bindFlag(flags *pflag.FlagSet, key, name string) {
	if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(err)
	}
}
