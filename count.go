package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/prappser/gallery_server/internal/asset"
	"github.com/spf13/cobra"
)

var countState string

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print per-owner image counts for a state",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := asset.NewStore(config.Storage.Root)
		if err != nil {
			return err
		}

		counts, err := asset.NewListing(store).Count(countState)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(counts, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	countCmd.Flags().StringVar(&countState, "state", string(asset.StateVerified), "state to count: uploaded, verified or deleted")
}
