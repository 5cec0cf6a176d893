package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/prappser/gallery_server/internal/asset"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Build the verified archive once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := asset.NewStore(config.Storage.Root)
		if err != nil {
			return err
		}
		exporter, err := newExporter(store, config.Export, nil)
		if err != nil {
			return err
		}

		artifact, err := exporter.Export(cmd.Context())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(artifact, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
