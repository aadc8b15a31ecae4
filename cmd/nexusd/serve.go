package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexus-orchestrator/core/internal/agent"
	"github.com/nexus-orchestrator/core/internal/agent/providers"
	"github.com/nexus-orchestrator/core/internal/config"
	"github.com/nexus-orchestrator/core/internal/gateway"
	modelreg "github.com/nexus-orchestrator/core/internal/models"
	"github.com/nexus-orchestrator/core/internal/multiagent"
	"github.com/nexus-orchestrator/core/internal/observability"
	"github.com/nexus-orchestrator/core/internal/prompt"
	"github.com/nexus-orchestrator/core/internal/retry"
	"github.com/nexus-orchestrator/core/internal/sessions"
	"github.com/nexus-orchestrator/core/internal/tools"
)

func buildServeCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestration runtime",
		Long: `Load configuration, construct the Admin AI and worker-agent runtime,
and serve the UI Gateway until interrupted.`,
		Example: "  nexusd serve --config config.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML/JSON5 configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug-level logging")

	return cmd
}

// runtime bundles the long-lived components runServe wires together, kept
// as one struct so shutdown can reach each of them in order.
type runtime struct {
	logger     *observability.Logger
	metrics    *observability.Metrics
	tracerStop func(context.Context) error

	catalog      *modelreg.Catalog
	keys         *retry.ProviderKeyManager
	tracker      *modelreg.PerformanceTracker
	states       *multiagent.StateManager
	lifecycle    *multiagent.AgentLifecycle
	interaction  *multiagent.InteractionHandler
	cycle        *agent.CycleHandler
	orchestrator *multiagent.Orchestrator
	sessionsMgr  *sessions.Manager
	gw           *gateway.Gateway

	sessionProject string
	sessionName    string
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel := cfg.Logging.Level
	if debug {
		logLevel = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  logLevel,
		Format: cfg.Logging.Format,
	})

	metrics := observability.NewMetrics()

	var tracerStop func(context.Context) error = func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		tracer, stop := observability.NewTracer(observability.TraceConfig{
			ServiceName:     cfg.Tracing.ServiceName,
			ServiceVersion:  cfg.Tracing.ServiceVersion,
			Environment:     cfg.Tracing.Environment,
			Endpoint:        cfg.Tracing.Endpoint,
			SamplingRate:    cfg.Tracing.SamplingRate,
			Attributes:      cfg.Tracing.Attributes,
			EnableInsecure:  cfg.Tracing.Insecure,
		})
		tracerStop = stop
		_ = tracer // spans are created ad hoc by components that import observability directly
	}

	rt, err := buildRuntime(cfg, logger, metrics)
	if err != nil {
		return err
	}
	rt.tracerStop = tracerStop

	bootAgents, err := config.LoadBootstrapAgents(cfg.BootstrapAgentsFile)
	if err != nil {
		return fmt.Errorf("load bootstrap agents: %w", err)
	}
	if err := seedBootstrapAgents(rt, bootAgents); err != nil {
		return fmt.Errorf("seed bootstrap agents: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt.orchestrator.Start(runCtx)

	mux := http.NewServeMux()
	mux.Handle("/ws", rt.gw)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux}
		go func() {
			logger.Info(runCtx, "metrics listening", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error(runCtx, "metrics server failed", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(runCtx, "gateway listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		logger.Info(runCtx, "shutdown signal received")
	case err := <-serveErr:
		logger.Error(runCtx, "gateway server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	cancel()
	rt.orchestrator.Shutdown()

	if rt.sessionProject != "" && rt.sessionName != "" {
		if err := rt.sessionsMgr.Save(rt.sessionProject, rt.sessionName, rt.states); err != nil {
			logger.Error(runCtx, "failed to persist session on shutdown", "error", err)
		}
	}

	if err := rt.tracker.Persist(); err != nil {
		logger.Error(runCtx, "failed to persist model performance", "error", err)
	}

	_ = rt.tracerStop(context.Background())

	return nil
}

// buildRuntime wires C1-C13 exactly once per process, in this order:
// catalog/keys/tracker (C1-C3) -> providers (C4) -> prompt assembler (C12) ->
// state/interaction/lifecycle (C6/C7/C9) -> tools (C5) -> session manager
// (C10) -> gateway (C13) -> cycle handler (C8) -> orchestrator (C11).
func buildRuntime(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (*runtime, error) {
	catalog := modelreg.NewCatalog(modelreg.Tier(cfg.LLM.ModelTier))
	keys := retry.NewProviderKeyManager(providerKeySeed(cfg), cfg.LLM.KeyQuarantineFile)
	tracker := modelreg.NewPerformanceTracker(cfg.LLM.ModelMetricsFile)

	providerInstances, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}
	for _, p := range providerInstances {
		if r, ok := p.(modelreg.Reacher); ok {
			catalog.Register(r)
		}
	}

	assembler := prompt.NewAssembler()
	if cfg.TemplatesFile != "" {
		if err := assembler.LoadFile(cfg.TemplatesFile); err != nil {
			return nil, fmt.Errorf("load prompt templates: %w", err)
		}
	}

	states := multiagent.NewStateManager()
	interaction := &multiagent.InteractionHandler{States: states}
	lifecycle := &multiagent.AgentLifecycle{
		States:        states,
		Catalog:       catalog,
		Tracker:       tracker,
		Prompts:       assembler,
		WorkspaceRoot: cfg.Tools.SandboxRoot,
	}

	executor := tools.NewExecutor(
		&tools.FileSystemTool{Roots: lifecycle},
		&tools.SendMessageTool{Directory: interaction},
		&tools.ManageTeamTool{Teams: lifecycle},
	)

	sessionsMgr := sessions.NewManager(cfg.Session.ProjectsDir)
	gw := gateway.New(nil, nil)

	providerMap := make(map[string]agent.LLMProvider, len(providerInstances))
	for _, p := range providerInstances {
		providerMap[p.Name()] = p
	}

	events := agent.NewMultiSink(gw, newMetricsSink(metrics))
	cycle := agent.NewCycleHandler(providerMap, keys, catalog, tracker, executor, events, nil)
	cycle.Options.MaxToolCallsPerTurn = cfg.Tools.MaxToolCallsPerTurn
	cycle.Options.MaxMalformedRetries = cfg.Tools.MaxMalformedRetries
	cycle.Options.MaxHistoryMessages = cfg.Tools.MaxHistoryMessages

	orchestrator := multiagent.NewOrchestrator(states, cycle, nil)
	cycle.Activator = orchestrator

	gw.Handler = gatewayHandler{
		orchestrator: orchestrator,
		states:       states,
		lifecycle:    lifecycle,
		sessionsMgr:  sessionsMgr,
		projectsDir:  cfg.Session.ProjectsDir,
	}

	return &runtime{
		logger:       logger,
		metrics:      metrics,
		catalog:      catalog,
		keys:         keys,
		tracker:      tracker,
		states:       states,
		lifecycle:    lifecycle,
		interaction:  interaction,
		cycle:        cycle,
		orchestrator: orchestrator,
		sessionsMgr:  sessionsMgr,
		gw:           gw,
	}, nil
}

func buildProviders(cfg *config.Config) ([]agent.LLMProvider, error) {
	var out []agent.LLMProvider

	for name, pc := range cfg.LLM.Providers {
		if len(pc.APIKeys) == 0 {
			continue
		}
		key := pc.APIKeys[0]
		switch name {
		case "anthropic":
			out = append(out, providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: key}))
		default:
			out = append(out, providers.NewOpenAIProvider(providers.OpenAIConfig{
				Name:    name,
				APIKey:  key,
				BaseURL: pc.BaseURL,
			}))
		}
	}

	if cfg.LLM.Bedrock.Enabled {
		bp, err := providers.NewBedrockProvider(context.Background(), providers.BedrockConfig{Region: cfg.LLM.Bedrock.Region})
		if err != nil {
			return nil, fmt.Errorf("construct bedrock provider: %w", err)
		}
		out = append(out, bp)
	}

	return out, nil
}

func providerKeySeed(cfg *config.Config) map[string][]string {
	seed := make(map[string][]string, len(cfg.LLM.Providers))
	for name, pc := range cfg.LLM.Providers {
		seed[name] = pc.APIKeys
	}
	return seed
}

func seedBootstrapAgents(rt *runtime, specs []config.BootstrapAgentConfig) error {
	for _, s := range specs {
		teamID := "default"
		if _, err := rt.states.CreateTeam(teamID); err != nil {
			return err
		}
		temp := 0.7
		if s.Temperature != nil {
			temp = *s.Temperature
		}
		_, err := rt.lifecycle.CreateAgent(teamID, tools.NewAgentSpec{
			AgentID:      s.AgentID,
			Provider:     s.Provider,
			Model:        s.Model,
			Persona:      s.Persona,
			SystemPrompt: s.SystemPrompt,
			Temperature:  &temp,
		})
		if err != nil {
			return fmt.Errorf("create bootstrap agent %s: %w", s.AgentID, err)
		}
	}
	return nil
}
