package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/ims/internal/app"
)

func (c *CLI) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replicate the registry change feed into the local index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			once, _ := cmd.Flags().GetBool("once")
			return c.app.Sync(cmd.Context(), app.SyncOptions{
				ConfigPath: configPath(cmd),
				Once:       once,
			})
		},
	}

	cmd.Flags().Bool("once", false, "Stop after the feed ends instead of reconnecting")

	return cmd
}

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Join the swarm and answer prefetch requests from peers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			withSync, _ := cmd.Flags().GetBool("sync")
			return c.app.Serve(cmd.Context(), app.ServeOptions{
				ConfigPath: configPath(cmd),
				Sync:       withSync,
			})
		},
	}

	cmd.Flags().Bool("sync", false, "Also replicate the registry while serving")

	return cmd
}
