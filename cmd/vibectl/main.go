// README: vibectl runs the planner, curation engine or full pipeline from the command line.
package main

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vibe/internal/config"
	"vibe/internal/logging"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vibectl",
		Short: "Plan, verify and curate venue recommendations",
		Long: `vibectl drives the recommendation pipeline without the HTTP server.

Configuration is read the same way as vibe-api: defaults, then the YAML file
named by VIBE_CONFIG, then VIBE_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newCurateCmd(), newPlanCmd(), newRecommendCmd())
	return root
}

// loadRuntime reads config and builds a logger; verbose forces debug output.
func loadRuntime(verbose bool) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return err
}
