package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newHealthCmd(root *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Print the server's queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := root.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			if health.ProcessingJobs == nil {
				health.ProcessingJobs = []string{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(health)
		},
	}
}
