// Command nexusd runs the orchestration runtime described in this
// repository: an Admin AI coordinator and its ephemeral worker agents,
// talking to one or more LLM providers under a retry -> key-rotation ->
// model-failover policy, executing tools inside per-agent sandboxes, and
// streaming events to a UI Gateway over WebSocket.
//
// Configuration is a single YAML (or JSON5) file resolved from --config,
// layered over internal/config's built-in defaults and an environment
// overlay (provider API keys, MODEL_TIER, PROXY_URL, PROJECTS_BASE_DIR).
// Graceful shutdown is handled on SIGINT/SIGTERM: the orchestrator's worker
// pool is cancelled and drained, then the model performance metrics are
// persisted before exit; the in-memory session state is not written to disk
// on shutdown.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nexusd",
		Short:         "Multi-agent LLM orchestration runtime",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(
		buildServeCmd(),
		buildSessionCmd(),
		buildDoctorCmd(),
	)

	return cmd
}

// defaultConfigPath mirrors the teacher's profile-aware resolution but
// without per-profile directories: nexusd has one config file per
// invocation, named on the command line or defaulted to ./config.yaml.
func defaultConfigPath() string {
	if v := os.Getenv("NEXUSD_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
