package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <workflow.yaml>",
	Short: "Resumes a previously started run from a recorded step.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		runID, _ := cmd.Flags().GetString("run-id")
		step, _ := cmd.Flags().GetInt("step")
		input, _ := cmd.Flags().GetString("input")
		if runID == "" {
			return fmt.Errorf("agentgraph: replay requires --run-id")
		}

		wf, err := loadWorkflowFile(args[0])
		if err != nil {
			return err
		}

		rt, err := buildRuntime(cfg, wf, runID)
		if err != nil {
			return err
		}
		defer rt.store.Close()

		engine := rt.newEngine(wf, runID)
		result, err := engine.ReplayFrom(context.Background(), step, input)
		if err != nil {
			return fmt.Errorf("agentgraph: replay of %s from step %d failed: %w", runID, step, err)
		}

		fmt.Printf("replay %s from step %d finished: success=%v\n", runID, step, result.Success)
		for id, out := range result.Outputs {
			fmt.Printf("  %s: %s\n", id, out)
		}
		if !result.Success {
			return fmt.Errorf("agentgraph: replay of %s did not reach completion", runID)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().String("run-id", "", "run identifier to replay (must exist in the configured store)")
	replayCmd.Flags().Int("step", 0, "step index to resume from")
	replayCmd.Flags().String("input", "", "initial input to re-supply for nodes that need it")
}
