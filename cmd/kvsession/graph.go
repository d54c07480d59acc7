package main

import (
	"fmt"

	"github.com/aretw0/kvsession/internal/presentation/graph"
	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the session lifecycle diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of the session states and the transitions between them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, _ := cmd.Flags().GetString("state")

		var overlay *graph.Overlay
		if current != "" {
			state := domain.State(current)
			valid := false
			for _, s := range domain.AllStates() {
				valid = valid || s == state
			}
			if !valid {
				return fmt.Errorf("unknown state %q", current)
			}
			overlay = &graph.Overlay{Current: state}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("state", "", "Highlight this state")
}
