package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-orchestrator/core/internal/config"
)

// =============================================================================
// Doctor Command
// =============================================================================

func buildDoctorCmd() *cobra.Command {
	var configPath string
	var printSchema bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration without starting the runtime",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, configPath, printSchema)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML/JSON5 configuration file")
	cmd.Flags().BoolVar(&printSchema, "schema", false, "Print the configuration JSON schema and exit")

	return cmd
}

func runDoctor(cmd *cobra.Command, configPath string, printSchema bool) error {
	if printSchema {
		schema := config.JSONSchema()
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(schema)
	}

	if err := config.Validate(configPath); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	if _, err := config.LoadBootstrapAgents(cfg.BootstrapAgentsFile); err != nil {
		return fmt.Errorf("bootstrap agents file invalid: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "config OK: schema_version=%d server=%s:%d providers=%d\n",
		cfg.SchemaVersion, cfg.Server.Host, cfg.Server.Port, len(cfg.LLM.Providers))
	return nil
}
