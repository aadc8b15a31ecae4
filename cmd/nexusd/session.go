package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexus-orchestrator/core/internal/config"
	"github.com/nexus-orchestrator/core/internal/sessions"
)

// =============================================================================
// Session Commands
// =============================================================================

// buildSessionCmd groups offline session-snapshot inspection: a running
// nexusd instance saves/loads sessions itself in response to a
// session_command ingress event (§6), so these subcommands only ever read
// what is already on disk.
func buildSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect saved session snapshots",
	}
	cmd.AddCommand(buildSessionListCmd(), buildSessionShowCmd(), buildSessionBranchCmd())
	return cmd
}

// buildSessionBranchCmd groups the branch/fork surface over
// internal/sessions.Manager (§D "session hierarchy/branching").
func buildSessionBranchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Manage session branches",
	}
	cmd.AddCommand(buildSessionBranchListCmd(), buildSessionBranchForkCmd())
	return cmd
}

func buildSessionBranchListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List branches recorded for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionBranchList(cmd, configPath, args[0])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML/JSON5 configuration file")
	return cmd
}

func runSessionBranchList(cmd *cobra.Command, configPath, project string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mgr := sessions.NewManager(cfg.Session.ProjectsDir)
	branches, err := mgr.ListBranches(project)
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, b := range branches {
		parent := "-"
		if b.ParentBranchID != nil {
			parent = *b.ParentBranchID
		}
		fmt.Fprintf(out, "%s  session=%s  name=%s  parent=%s  point=%d  primary=%t  created_at=%s\n",
			b.ID, b.SessionID, b.Name, parent, b.BranchPoint, b.IsPrimary, b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

func buildSessionBranchForkCmd() *cobra.Command {
	var (
		configPath string
		name       string
		point      int
	)

	cmd := &cobra.Command{
		Use:   "fork <project> <parent-session>",
		Short: "Fork a saved session into a new branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionBranchFork(cmd, configPath, args[0], args[1], name, point)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML/JSON5 configuration file")
	cmd.Flags().StringVar(&name, "name", "", "Name for the new branch (required)")
	cmd.Flags().IntVar(&point, "point", 0, "Branch point as a per-agent message count; 0 forks at the current end")
	return cmd
}

func runSessionBranchFork(cmd *cobra.Command, configPath, project, parentSession, name string, point int) error {
	if name == "" {
		return fmt.Errorf("--name is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mgr := sessions.NewManager(cfg.Session.ProjectsDir)
	branch, err := mgr.Fork(project, parentSession, name, point)
	if err != nil {
		return fmt.Errorf("fork session: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created branch %s (session %s)\n", branch.ID, branch.SessionID)
	return nil
}

func buildSessionListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List saved sessions for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionList(cmd, configPath, args[0])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML/JSON5 configuration file")
	return cmd
}

func runSessionList(cmd *cobra.Command, configPath, project string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir := filepath.Join(cfg.Session.ProjectsDir, "projects", project)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read project dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func buildSessionShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <project> <session>",
		Short: "Print a saved session snapshot's team/agent summary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionShow(cmd, configPath, args[0], args[1])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML/JSON5 configuration file")
	return cmd
}

func runSessionShow(cmd *cobra.Command, configPath, project, session string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mgr := sessions.NewManager(cfg.Session.ProjectsDir)
	snap, err := mgr.Load(project, session)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s/%s  schema_version=%d  created_at=%s\n",
		snap.Project, snap.Session, snap.SchemaVersion, snap.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	for _, team := range snap.Teams {
		fmt.Fprintf(out, "  team %s  members=%v\n", team.ID, team.Members)
	}
	for _, ag := range snap.Agents {
		fmt.Fprintf(out, "  agent %s  team=%s  provider=%s  model=%s  history=%d messages\n",
			ag.ID, ag.Team, ag.Config.Provider, ag.Config.Model, len(ag.History))
	}
	return nil
}
