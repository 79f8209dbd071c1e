// Package commands implements the CLI commands for the ims index node.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/ims/internal/app"
	"go.trai.ch/ims/internal/build"
	"go.trai.ch/ims/internal/core/domain"
)

// CLI represents the command line interface for ims.
type CLI struct {
	app     Application
	output  OutputSettings
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Sync(ctx context.Context, opts app.SyncOptions) error
	Serve(ctx context.Context, opts app.ServeOptions) error
	Resolve(ctx context.Context, opts app.ResolveOptions) (*domain.Tree, error)
	Get(ctx context.Context, opts app.GetOptions) (*domain.Node, error)
}

// OutputSettings is implemented by loggers that can switch format and level.
type OutputSettings interface {
	SetJSON(enable bool)
	SetVerbose(enable bool)
}

// New creates a new CLI instance with the given app. settings may be nil.
func New(a Application, settings OutputSettings) *CLI {
	rootCmd := &cobra.Command{
		Use:           "ims",
		Short:         "A replicated package index with dependency resolution",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	c := &CLI{
		app:     a,
		output:  settings,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if c.output == nil {
			return
		}
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		verbose, _ := cmd.Flags().GetBool("verbose")
		c.output.SetJSON(jsonLogs)
		c.output.SetVerbose(verbose)
	}

	rootCmd.AddCommand(c.newSyncCmd())
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newGetCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
