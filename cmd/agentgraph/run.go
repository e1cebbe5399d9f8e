package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relsen/agentgraph/dag"
)

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Executes a workflow graph to completion.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		wf, err := loadWorkflowFile(args[0])
		if err != nil {
			return err
		}
		if err := wf.Validate(); err != nil {
			return fmt.Errorf("agentgraph: invalid workflow: %w", err)
		}

		runID := dag.NewRunID()
		rt, err := buildRuntime(cfg, wf, runID)
		if err != nil {
			return err
		}
		defer rt.store.Close()

		input, _ := cmd.Flags().GetString("input")

		engine := rt.newEngine(wf, runID)
		result, err := engine.Execute(context.Background(), false, input)
		if err != nil {
			return fmt.Errorf("agentgraph: run %s failed: %w", runID, err)
		}

		fmt.Printf("run %s finished: success=%v\n", runID, result.Success)
		for id, out := range result.Outputs {
			fmt.Printf("  %s: %s\n", id, out)
		}
		if !result.Success {
			return fmt.Errorf("agentgraph: run %s did not reach completion", runID)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("input", "", "initial input fed to entry nodes")
}
