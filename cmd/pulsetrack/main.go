package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mkessler/pulsetrack/internal/analyze"
	"github.com/mkessler/pulsetrack/internal/config"
	"github.com/mkessler/pulsetrack/internal/database"
	"github.com/mkessler/pulsetrack/internal/extract"
	"github.com/mkessler/pulsetrack/internal/fetch"
	"github.com/mkessler/pulsetrack/internal/metrics"
	"github.com/mkessler/pulsetrack/internal/pipeline"
	"github.com/mkessler/pulsetrack/internal/report"
	"github.com/mkessler/pulsetrack/internal/retention"
	"github.com/mkessler/pulsetrack/internal/schedule"
	"github.com/mkessler/pulsetrack/internal/server"
	"github.com/mkessler/pulsetrack/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pulsetrack",
	Short:   "Per-entity social content analytics",
	Long:    "PulseTrack fetches social content for tracked entities, derives analytics rollups, and manages the resulting artifact corpus.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// API tokens can live in a local .env during development.
		godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(retentionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("pulsetrack", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/pulsetrack/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure entities, the fetch source, and schedules.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and run ledger status",
	RunE: func(cmd *cobra.Command, args []string) error {
		rm := retention.NewManager(cfg.GetDataDir())
		stats, err := rm.Statistics()
		if err != nil {
			return fmt.Errorf("summarizing corpus: %w", err)
		}

		fmt.Println("Corpus:")
		fmt.Printf("  Artifacts: %d (%.2f MB)\n", stats.TotalFiles, stats.TotalSizeMB)
		fmt.Printf("  Entities tracked: %d\n", len(stats.ByEntity))
		fmt.Printf("  Modified in last 7 days: %d\n", len(stats.RecentActivity))

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ledger, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting ledger stats: %w", err)
		}

		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", ledger.TotalRuns)
		fmt.Printf("  Entity outcomes: %d ok, %d failed\n", ledger.OKEntityRuns, ledger.ErrorEntityRuns)
		if ledger.LastRunStarted != nil {
			fmt.Printf("  Last run: %s\n", *ledger.LastRunStarted)
		}
		return nil
	},
}

// --- run command ---

var runEntities []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline: fetch -> analyze -> store",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		orch, err := buildOrchestrator(db, nil)
		if err != nil {
			return err
		}

		entities := cfg.Entities
		if len(runEntities) > 0 {
			entities = runEntities
		}
		if len(entities) == 0 {
			return fmt.Errorf("no entities configured; add them to the config or pass --entity")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result := orch.ProcessEntities(ctx, entities)

		names := make([]string, 0, len(result.Entities))
		for name := range result.Entities {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("\nRun %s:\n", result.RunID)
		for _, name := range names {
			er := result.Entities[name]
			if er.Err != nil {
				fmt.Printf("  %s: FAILED at %s: %v\n", name, er.Stage, er.Err)
			} else {
				fmt.Printf("  %s: %d items in %s\n", name, er.ItemCount, er.Duration.Round(10*time.Millisecond))
			}
		}
		fmt.Printf("\n%d ok, %d failed\n", result.OKCount(), result.ErrorCount())

		if result.ErrorCount() > 0 {
			return fmt.Errorf("%d entities failed", result.ErrorCount())
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringSliceVarP(&runEntities, "entity", "e", nil, "Process only these entities (repeatable)")
}

// --- report command ---

var (
	reportHTML bool
	reportOut  string
)

var reportCmd = &cobra.Command{
	Use:   "report [entity]",
	Short: "Print the latest report for an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}

		entity := args[0]
		var bundle analyze.Bundle
		found, err := st.RetrieveLatest(entity, store.KindAnalyzed, &bundle)
		if err != nil {
			return fmt.Errorf("retrieving analysis for %s: %w", entity, err)
		}
		if !found {
			return fmt.Errorf("no analysis found for %s; run 'pulsetrack run' first", entity)
		}

		rep := report.Build(&bundle, analyze.BuildInsights(&bundle))
		if _, err := st.Store(store.KindReports, entity, rep); err != nil {
			return fmt.Errorf("storing report: %w", err)
		}

		body := rep.Markdown
		if reportHTML {
			body, err = rep.HTML()
			if err != nil {
				return err
			}
		}

		if reportOut != "" {
			if err := os.WriteFile(reportOut, []byte(body), 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Printf("Report written to %s\n", reportOut)
			return nil
		}
		fmt.Println(body)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportHTML, "html", false, "Render the report as HTML")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Write the report to a file instead of stdout")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		// The server only reads the corpus; pipeline counters would sit
		// at zero here, so expose just the endpoint with an empty set.
		reg := prometheus.NewRegistry()

		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(st, db, reg, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline and retention sweeps on their configured schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Pipeline.Schedule == "" && cfg.Retention.Schedule == "" {
			return fmt.Errorf("no schedules configured; set pipeline.schedule or retention.schedule")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)

		orch, err := buildOrchestrator(db, m)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched := schedule.New(cfg, orch, retention.NewManager(cfg.GetDataDir()), m)
		if err := sched.Start(ctx); err != nil {
			return err
		}

		// Reload config on file changes so schedule edits do not require
		// a restart of the next run's settings.
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		go func() {
			err := schedule.WatchConfig(ctx, path, func() error {
				updated, err := config.Load(path)
				if err != nil {
					return err
				}
				sched.Reload(updated)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("Config watcher stopped: %v", err)
			}
		}()

		fmt.Println("Scheduler running. Press Ctrl+C to stop.")
		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func buildOrchestrator(db *database.DB, m *metrics.Metrics) (*pipeline.Orchestrator, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}

	var fetcher fetch.Fetcher
	switch cfg.Fetch.Source {
	case "feeds":
		urls := make(map[string]string, len(cfg.Fetch.Feeds))
		for _, f := range cfg.Fetch.Feeds {
			urls[f.Entity] = f.URL
		}
		fetcher = fetch.NewFeedFetcher(urls)
	default:
		fetcher = fetch.NewAPIClient(cfg.Fetch.APIURL, cfg.Fetch.APITokenEnv)
	}
	if !fetcher.IsConfigured() {
		return nil, fmt.Errorf("fetch source %q is not configured; check the fetch section of the config", cfg.Fetch.Source)
	}

	var opts []extract.Option
	if cfg.Analysis.ClassifierURL != "" {
		opts = append(opts, extract.WithClassifier(extract.NewModelClient(cfg.Analysis.ClassifierURL)))
	}
	extractor := extract.New(cfg.Analysis.SentimentThreshold, opts...)

	analyzer := analyze.New(extractor, analyze.Thresholds{
		TopK:               cfg.Analysis.TopK,
		MinAvgEngagement:   cfg.Analysis.MinAvgEngagement,
		MinMediaPercentage: cfg.Analysis.MinMediaPercentage,
		MaxNeutralRatio:    cfg.Analysis.MaxNeutralRatio,
	})

	return pipeline.New(cfg, st, fetcher, analyzer, db, m), nil
}

func openStore() (*store.Store, error) {
	return store.New(cfg.GetDataDir())
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "pulsetrack.db")
	return database.Open(dbPath)
}
