package main

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var ready bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server liveness, or readiness with --ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ready {
				resp, err := apiClient.Ready(cmd.Context())
				if err != nil {
					return err
				}
				output(resp, resp.Status)
				return nil
			}
			resp, err := apiClient.Health(cmd.Context())
			if err != nil {
				return err
			}
			output(resp, resp.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&ready, "ready", false, "Check readiness (database and schema) instead of liveness")
	return cmd
}
