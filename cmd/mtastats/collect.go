package main

import (
	"github.com/spf13/cobra"

	"github.com/rxtx-hosting/mtastats/pkg/collector"
)

func collectCmd(opts *rootOptions) *cobra.Command {
	var dataFile string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch the current counts once and append them to the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if dataFile != "" {
				cfg.DataFile = dataFile
			}

			c := collector.NewCollector(cfg.Endpoint, cfg.RequestTimeout, openStore(cfg))
			// Failures are logged by Run; the process still exits cleanly.
			c.Run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVar(&dataFile, "data-file", "", "Path to the history CSV (overrides config)")
	return cmd
}
