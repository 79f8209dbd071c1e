package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.trai.ch/ims/internal/app"
	"go.trai.ch/ims/internal/core/domain"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <name|manifest>",
		Short: "Resolve the dependency tree of a package or a manifest file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return cmd.Help()
			}
			rng, _ := cmd.Flags().GetString("range")
			production, _ := cmd.Flags().GetBool("production")
			asJSON, _ := cmd.Flags().GetBool("json")

			tree, err := c.app.Resolve(cmd.Context(), app.ResolveOptions{
				ConfigPath: configPath(cmd),
				Target:     args[0],
				Range:      rng,
				Production: production,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), tree)
			}
			printTree(cmd.OutOrStdout(), tree)
			return nil
		},
	}

	cmd.Flags().StringP("range", "r", "", "Version range for the root package")
	cmd.Flags().BoolP("production", "p", false, "Skip dev dependencies of the root")
	cmd.Flags().Bool("json", false, "Print the tree as JSON")

	return cmd
}

func (c *CLI) newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Print the highest indexed version matching a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return cmd.Help()
			}
			rng, _ := cmd.Flags().GetString("range")

			node, err := c.app.Get(cmd.Context(), app.GetOptions{
				ConfigPath: configPath(cmd),
				Name:       args[0],
				Range:      rng,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s (position %d)\n", node.Key, node.Position)
			for _, dep := range node.Record.Dependencies {
				_, _ = fmt.Fprintf(out, "  %s %s\n", dep.Name, dep.Range)
			}
			for _, dep := range node.Record.DevDependencies {
				_, _ = fmt.Fprintf(out, "  %s %s (dev)\n", dep.Name, dep.Range)
			}
			return nil
		},
	}

	cmd.Flags().StringP("range", "r", "", "Version range to match")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printTree writes one name@version line per node, indented by depth.
// Colors are only emitted when w is a terminal.
func printTree(w io.Writer, tree *domain.Tree) {
	out := termenv.NewOutput(w, termenv.WithProfile(colorProfile(w)))
	tree.Walk(func(_ domain.NodeID, n domain.TreeNode, depth int) {
		version := out.String(n.Version).Foreground(out.Color("2"))
		_, _ = fmt.Fprintf(w, "%s%s@%s\n", strings.Repeat("  ", depth), n.Name, version)
	})
}
