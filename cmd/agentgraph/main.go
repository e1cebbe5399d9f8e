package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relsen/agentgraph/config"
)

var rootCmd = &cobra.Command{
	Use:   "agentgraph",
	Short: "Runs and inspects multi-agent workflow graphs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	viper.SetDefault("max-concurrent-nodes", 8)
	viper.SetDefault("store-driver", "memory")
	viper.SetDefault("tool-base-dir", "./agentgraph-data")

	rootCmd.PersistentFlags().String("store-driver", "memory", "snapshot store driver (memory, sqlite, mysql)")
	rootCmd.PersistentFlags().String("store-dsn", "", "DSN for the sqlite/mysql store driver")
	rootCmd.PersistentFlags().Int("max-concurrent-nodes", 8, "traffic controller concurrency cap")
	rootCmd.PersistentFlags().String("tool-base-dir", "./agentgraph-data", "sandbox directory for shell/file tool access")
	rootCmd.PersistentFlags().String("prometheus-addr", "", "address to serve /metrics on (empty disables it)")

	for _, name := range []string{"store-driver", "store-dsn", "max-concurrent-nodes", "tool-base-dir", "prometheus-addr"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runCmd, validateCmd, replayCmd)
}

// loadConfig resolves the same config.Config the run/replay commands need,
// with CLI flags already layered over it by viper's PersistentFlags binding.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if d := viper.GetString("store-driver"); d != "" {
		cfg.StoreDriver = d
	}
	if d := viper.GetString("store-dsn"); d != "" {
		cfg.StoreDSN = d
	}
	if n := viper.GetInt("max-concurrent-nodes"); n > 0 {
		cfg.MaxConcurrentNodes = n
	}
	if d := viper.GetString("tool-base-dir"); d != "" {
		cfg.ToolBaseDir = d
	}
	if a := viper.GetString("prometheus-addr"); a != "" {
		cfg.PrometheusAddr = a
	}
	return cfg, cfg.Validate()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
