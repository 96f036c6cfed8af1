package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wander/internal/action"
	"github.com/roach88/wander/internal/agent"
	"github.com/roach88/wander/internal/apiclient"
	"github.com/roach88/wander/internal/invariant"
	"github.com/roach88/wander/internal/journey"
	"github.com/roach88/wander/internal/report"
	"github.com/roach88/wander/internal/strategy"
	"github.com/roach88/wander/internal/systems/mem"
	"github.com/roach88/wander/internal/systems/sqlstore"
	"github.com/roach88/wander/internal/world"
)

// ExploreOptions holds flags for the explore command.
type ExploreOptions struct {
	*RootOptions
	Config       string
	JUnitFile    string
	MarkdownFile string
}

// NewExploreCommand creates the explore command.
func NewExploreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExploreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Explore the SUT's state space and check invariants",
		Long: `Explore loads journeys, registers the configured backing systems,
and walks the reachable state space. Every reached state is checked
against the journey invariants; violations are captured with a minimal
reproduction path.

Example:
  wander explore --config run.yaml
  wander explore --config run.yaml --junit report.xml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to run configuration (required)")
	cmd.Flags().StringVar(&opts.JUnitFile, "junit", "", "also write a JUnit XML report to this file")
	cmd.Flags().StringVar(&opts.MarkdownFile, "markdown", "", "also write a Markdown report to this file")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runExplore(opts *ExploreOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	slog.Info("loading journeys", "dir", cfg.Journeys)
	loaded, loadErrs := journey.LoadJourneys(cfg.Journeys, journey.LoadModeFailFast)
	if len(loadErrs) > 0 {
		return WrapExitError(ExitCommandError, "failed to load journeys", loadErrs[0])
	}
	slog.Info("journeys loaded", "count", len(loaded.Journeys), "files", loaded.FileCount)

	actions, invariants, err := buildJourneys(loaded.Journeys)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build journeys", err)
	}

	clientOpts := make([]apiclient.Option, 0, len(cfg.API.Headers))
	for k, v := range cfg.API.Headers {
		clientOpts = append(clientOpts, apiclient.WithHeader(k, v))
	}
	client, err := apiclient.New(cfg.API.BaseURL, clientOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid api.base_url", err)
	}

	w := world.New(client, world.WithLogger(logger))
	cleanup, err := registerSystems(w, cfg.Systems)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up systems", err)
	}
	defer cleanup()

	strat, err := strategy.New(cfg.strategyName(), cfg.Exploration.Seed, cfg.Exploration.Weights)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid strategy", err)
	}

	agentOpts := []agent.Option{
		agent.WithShrink(cfg.shrinkEnabled()),
		agent.WithLogger(logger),
	}
	if cfg.Exploration.MaxSteps > 0 {
		agentOpts = append(agentOpts, agent.WithMaxSteps(cfg.Exploration.MaxSteps))
	}
	if cfg.Exploration.CoverageTarget > 0 {
		agentOpts = append(agentOpts, agent.WithCoverageTarget(cfg.Exploration.CoverageTarget/100))
	}

	a, err := agent.New(w, actions, invariants, strat, agentOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build agent", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("exploration starting",
		"strategy", cfg.strategyName(),
		"actions", len(actions),
		"invariants", len(invariants))

	res, runErr := a.Explore(ctx)
	if res == nil {
		return WrapExitError(ExitCommandError, "exploration failed", runErr)
	}
	if runErr != nil {
		// Partial results still get reported below.
		slog.Error("exploration ended early", "error", runErr)
	}

	if err := writeReports(opts, cmd.OutOrStdout(), res); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}

	if runErr != nil {
		return WrapExitError(ExitCommandError, "exploration ended early", runErr)
	}
	if !res.Success {
		return NewExitError(ExitFailure, fmt.Sprintf("%d unique violation(s) found", len(res.UniqueViolations)))
	}
	return nil
}

// buildJourneys merges every loaded journey into one action and
// invariant set. Duplicate action names across journeys surface when
// the agent validates its action list.
func buildJourneys(journeys []journey.Journey) ([]*action.Action, []invariant.Invariant, error) {
	var actions []*action.Action
	var invariants []invariant.Invariant
	for i := range journeys {
		a, inv, err := journey.Build(&journeys[i])
		if err != nil {
			return nil, nil, fmt.Errorf("journey %s: %w", journeys[i].Name, err)
		}
		actions = append(actions, a...)
		invariants = append(invariants, inv...)
	}
	return actions, invariants, nil
}

// registerSystems constructs and registers every configured backing
// system. The returned cleanup closes any opened databases.
func registerSystems(w *world.World, configs []SystemConfig) (func(), error) {
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, sc := range configs {
		sys, closer, err := buildSystem(sc)
		if err != nil {
			cleanup()
			return nil, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		if err := w.Register(sc.Name, sys); err != nil {
			cleanup()
			return nil, err
		}
	}
	return cleanup, nil
}

func buildSystem(sc SystemConfig) (world.Rollbackable, func(), error) {
	switch sc.Type {
	case "sqlite":
		db, err := sqlstore.Open(sc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("system %s: %w", sc.Name, err)
		}
		closer := func() { db.Close() }
		if sc.Mode == "savepoint" {
			store, err := sqlstore.NewSavepointStore(db, sc.Tables...)
			if err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("system %s: %w", sc.Name, err)
			}
			return store, closer, nil
		}
		store, err := sqlstore.NewSnapshotStore(db, sc.Tables...)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("system %s: %w", sc.Name, err)
		}
		return store, closer, nil
	case "kv":
		return mem.NewKVStore(), nil, nil
	case "queue":
		return mem.NewQueue(), nil, nil
	case "mailbox":
		return mem.NewMailbox(), nil, nil
	case "clock":
		start := time.Now().UTC()
		if sc.Start != "" {
			parsed, err := time.Parse(time.RFC3339, sc.Start)
			if err != nil {
				return nil, nil, fmt.Errorf("system %s: bad start time: %w", sc.Name, err)
			}
			start = parsed
		}
		return mem.NewClock(start), nil, nil
	default:
		return nil, nil, fmt.Errorf("system %s: unknown type %q", sc.Name, sc.Type)
	}
}

func writeReports(opts *ExploreOptions, out io.Writer, res *agent.ExplorationResult) error {
	switch opts.Format {
	case "json":
		if err := report.JSON(out, res); err != nil {
			return err
		}
	default:
		if err := report.Console(out, res); err != nil {
			return err
		}
	}

	if opts.JUnitFile != "" {
		if err := writeFileReport(opts.JUnitFile, func(w io.Writer) error {
			return report.JUnit(w, "wander", res)
		}); err != nil {
			return err
		}
	}
	if opts.MarkdownFile != "" {
		if err := writeFileReport(opts.MarkdownFile, func(w io.Writer) error {
			return report.Markdown(w, res)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFileReport(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
