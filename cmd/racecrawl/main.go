// Command racecrawl crawls a racing league's public site into a Postgres
// store, resuming from where a previous run left off.
//
// Usage:
//
//	racecrawl scrape league <league-url> --depth race
//	racecrawl scrape all --league <league-url> --league <league-url>
//	racecrawl refresh-drivers --league-id 42
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/simcrawl/racecrawl/internal/config"
	"github.com/simcrawl/racecrawl/internal/extract"
	"github.com/simcrawl/racecrawl/internal/fetch"
	"github.com/simcrawl/racecrawl/internal/orchestrator"
	"github.com/simcrawl/racecrawl/internal/statusapi"
	"github.com/simcrawl/racecrawl/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	configPath := scanConfigFlag(os.Args[1:])
	if configPath != "" {
		if err := godotenv.Load(configPath); err != nil {
			logger.Warn("could not load --config file", "path", configPath, "error", err)
		}
	} else {
		_ = godotenv.Load(".env")
	}

	root := &cobra.Command{
		Use:   "racecrawl",
		Short: "Polite, resumable crawler for a racing league's site",
	}
	root.PersistentFlags().String("config", "", "Optional configuration file (.env-style) providing defaults")
	root.PersistentFlags().String("log-level", "", "Diagnostic verbosity: DEBUG, INFO, WARNING, ERROR")
	root.PersistentFlags().String("db", "", "Override the database connection string")

	root.AddCommand(scrapeCmd())
	root.AddCommand(refreshDriversCmd())

	if err := root.Execute(); err != nil {
		var cancelErr *orchestrator.CancellationError
		if errors.As(err, &cancelErr) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// scanConfigFlag does a minimal pre-parse of argv for --config, so main can
// load the file it names into the environment before any command runs and
// config.Load reads the environment.
func scanConfigFlag(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, "--config=") {
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

// --------------------------------------------------------------------------
// scrape command
// --------------------------------------------------------------------------

func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Crawl one or more leagues",
	}
	cmd.AddCommand(scrapeLeagueCmd())
	cmd.AddCommand(scrapeAllCmd())
	return cmd
}

func scrapeLeagueCmd() *cobra.Command {
	var (
		depthFlag           string
		force               bool
		seriesIDs           []int
		seasonYear          int
		seasonLimit         int
		cacheMaxAgeDays     int
		maintenanceInterval time.Duration
		statusAddr          string
	)
	cmd := &cobra.Command{
		Use:   "league <league-url>",
		Short: "Crawl a single league",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leagueURL := args[0]
			opts, err := buildOptions(depthFlag, force, seriesIDs, seasonYear, seasonLimit, cacheMaxAgeDays)
			if err != nil {
				return err
			}
			return runCrawl(cmd, func(ctx context.Context, st *store.Store, cfg *config.Config) error {
				gate := fetch.NewGate(cfg)
				orch := orchestrator.New(st, gate, cfg, logger)
				maybeServeStatus(ctx, statusAddr, orch, cfg)
				maybeStartMaintenance(ctx, orch, []string{leagueURL}, maintenanceInterval, logger)

				progress, err := orch.ScrapeLeague(ctx, leagueURL, opts)
				gate.Close(ctx.Err() != nil)
				logger.Info("crawl finished", "summary", progress.Summary())
				return err
			})
		},
	}
	bindScrapeFlags(cmd, &depthFlag, &force, &seriesIDs, &seasonYear, &seasonLimit, &cacheMaxAgeDays, &maintenanceInterval, &statusAddr)
	return cmd
}

func scrapeAllCmd() *cobra.Command {
	var (
		leagues             []string
		depthFlag           string
		force               bool
		seriesIDs           []int
		seasonYear          int
		seasonLimit         int
		cacheMaxAgeDays     int
		workers             int
		maintenanceInterval time.Duration
		statusAddr          string
	)
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Crawl multiple leagues concurrently, one FetchGate per league",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(leagues) == 0 {
				return fmt.Errorf("at least one --league is required")
			}
			opts, err := buildOptions(depthFlag, force, seriesIDs, seasonYear, seasonLimit, cacheMaxAgeDays)
			if err != nil {
				return err
			}
			return runCrawl(cmd, func(ctx context.Context, st *store.Store, cfg *config.Config) error {
				jobs := make([]orchestrator.LeagueJob, len(leagues))
				for i, url := range leagues {
					jobs[i] = orchestrator.LeagueJob{LeagueURL: url, Opts: opts}
				}

				maintGate := fetch.NewGate(cfg)
				maintOrch := orchestrator.New(st, maintGate, cfg, logger)
				maybeServeStatus(ctx, statusAddr, maintOrch, cfg)
				maybeStartMaintenance(ctx, maintOrch, leagues, maintenanceInterval, logger)

				progress, err := orchestrator.RunMany(ctx, st, cfg, logger, jobs, workers)
				progress.Merge(maintOrch.GetProgress())
				maintGate.Close(ctx.Err() != nil)
				logger.Info("crawl finished", "summary", progress.Summary())
				return err
			})
		},
	}
	cmd.Flags().StringArrayVar(&leagues, "league", nil, "League URL to crawl (repeatable)")
	cmd.Flags().IntVar(&workers, "workers", 2, "Concurrent league workers")
	bindScrapeFlags(cmd, &depthFlag, &force, &seriesIDs, &seasonYear, &seasonLimit, &cacheMaxAgeDays, &maintenanceInterval, &statusAddr)
	return cmd
}

func bindScrapeFlags(cmd *cobra.Command, depthFlag *string, force *bool, seriesIDs *[]int, seasonYear, seasonLimit, cacheMaxAgeDays *int, maintenanceInterval *time.Duration, statusAddr *string) {
	cmd.Flags().StringVar(depthFlag, "depth", "race", "Traversal depth: league, series, season, race")
	cmd.Flags().BoolVar(force, "force", false, "Bypass the cache at every level")
	cmd.Flags().IntSliceVar(seriesIDs, "series", nil, "Restrict to these series IDs (repeatable/comma-separated)")
	cmd.Flags().IntVar(seasonYear, "season-year", 0, "Restrict to seasons whose name contains this year (0 = no filter)")
	cmd.Flags().IntVar(seasonLimit, "season-limit", 0, "Crawl at most N seasons per series (0 = no limit)")
	cmd.Flags().IntVar(cacheMaxAgeDays, "cache-max-age-days", 0, "Override the configured cache freshness window in days (0 = use config default)")
	cmd.Flags().DurationVar(maintenanceInterval, "maintenance-interval", 0, "Run the driver-refresh/schema-alert maintenance ticker at this interval (0 = disabled)")
	cmd.Flags().StringVar(statusAddr, "status-addr", "", "Address to serve the status API on (empty = disabled)")
}

func buildOptions(depthFlag string, force bool, seriesIDs []int, seasonYear, seasonLimit, cacheMaxAgeDays int) (orchestrator.Options, error) {
	depth, err := orchestrator.ParseDepth(depthFlag)
	if err != nil {
		return orchestrator.Options{}, err
	}
	filters := orchestrator.Filters{SeriesIDs: seriesIDs}
	if seasonYear != 0 {
		filters.SeasonYear = &seasonYear
	}
	if seasonLimit != 0 {
		filters.SeasonLimit = &seasonLimit
	}
	opts := orchestrator.Options{Depth: depth, Filters: filters, Force: force}
	if cacheMaxAgeDays != 0 {
		opts.CacheMaxAgeDays = &cacheMaxAgeDays
	}
	return opts, nil
}

// --------------------------------------------------------------------------
// refresh-drivers command
// --------------------------------------------------------------------------

func refreshDriversCmd() *cobra.Command {
	var (
		leagueID        int
		force           bool
		cacheMaxAgeDays int
	)
	cmd := &cobra.Command{
		Use:   "refresh-drivers",
		Short: "Re-fetch every driver's rating snapshot for a league",
		RunE: func(cmd *cobra.Command, args []string) error {
			if leagueID == 0 {
				return fmt.Errorf("--league-id is required")
			}
			return runCrawl(cmd, func(ctx context.Context, st *store.Store, cfg *config.Config) error {
				gate := fetch.NewGate(cfg)
				orch := orchestrator.New(st, gate, cfg, logger)

				var maxAge *int
				if cacheMaxAgeDays != 0 {
					maxAge = &cacheMaxAgeDays
				}
				progress, err := orch.RefreshAllDrivers(ctx, leagueID, maxAge, force)
				gate.Close(ctx.Err() != nil)
				logger.Info("driver refresh finished", "summary", progress.Summary())
				return err
			})
		},
	}
	cmd.Flags().IntVar(&leagueID, "league-id", 0, "League external id whose drivers should be refreshed")
	cmd.Flags().BoolVar(&force, "force", false, "Bypass the cache freshness window")
	cmd.Flags().IntVar(&cacheMaxAgeDays, "cache-max-age-days", 0, "Override the configured cache freshness window in days (0 = use config default)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runCrawl handles config loading, DB connection, log-level/DB overrides,
// and interrupt-aware context cancellation common to every subcommand.
func runCrawl(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store, cfg *config.Config) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DatabaseURL = db
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		applyLogLevel(level)
	} else {
		applyLogLevel(cfg.LogLevel)
	}

	st, err := store.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer st.Close()

	err = fn(ctx, st, cfg)
	var cancelErr *orchestrator.CancellationError
	if errors.As(err, &cancelErr) {
		return err
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	return nil
}

func applyLogLevel(level string) {
	var slogLevel slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		slogLevel = slog.LevelDebug
	case "WARNING", "WARN":
		slogLevel = slog.LevelWarn
	case "ERROR":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)
}

// maybeStartMaintenance resolves each league URL's external id and, when
// interval > 0, launches the background driver-refresh/schema-alert sweep
// ticker against orch for all of them. A league URL that fails to parse
// (missing league_id) is logged and skipped rather than aborting the crawl.
func maybeStartMaintenance(ctx context.Context, orch *orchestrator.Orchestrator, leagueURLs []string, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	var leagueIDs []int
	for _, u := range leagueURLs {
		id, err := extract.ParseLeagueID(u)
		if err != nil {
			logger.Warn("skipping maintenance for league with unparseable id", "url", u, "error", err)
			continue
		}
		leagueIDs = append(leagueIDs, id)
	}
	if len(leagueIDs) == 0 {
		return
	}
	go orchestrator.StartMaintenance(ctx, orch, leagueIDs, interval, logger)
}

// maybeServeStatus starts the status HTTP server in the
// background when a caller opts in via --status-addr. It shuts down
// gracefully when ctx is cancelled.
func maybeServeStatus(ctx context.Context, addr string, orch *orchestrator.Orchestrator, cfg *config.Config) {
	if addr == "" {
		return
	}
	router := statusapi.NewRouter(orch, orch.Store, cfg)
	srv := statusapi.Serve(addr, router)

	go func() {
		logger.Info("status API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("status API stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
