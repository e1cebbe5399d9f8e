package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.yaml>",
	Short: "Checks a workflow document for structural errors without running it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := loadWorkflowFile(args[0])
		if err != nil {
			return err
		}
		if err := wf.Validate(); err != nil {
			return fmt.Errorf("agentgraph: invalid workflow: %w", err)
		}
		fmt.Printf("%s: %d nodes, %d edges, OK\n", args[0], len(wf.Nodes), len(wf.Edges))
		return nil
	},
}
