package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oivindhaug/resultatbank/internal/api"
	"github.com/oivindhaug/resultatbank/internal/athlete"
	"github.com/oivindhaug/resultatbank/internal/config"
	"github.com/oivindhaug/resultatbank/internal/database"
	"github.com/oivindhaug/resultatbank/internal/discipline"
	"github.com/oivindhaug/resultatbank/internal/importer"
	"github.com/oivindhaug/resultatbank/internal/logging"
	"github.com/oivindhaug/resultatbank/internal/result"
	"github.com/oivindhaug/resultatbank/internal/scrape"
	"github.com/oivindhaug/resultatbank/internal/version"
)

func main() {
	// Handle subcommands before starting the server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "scrape":
			if err := runScrape(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "merge":
			if err := runMerge(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired services shared by the server and the subcommands.
type app struct {
	cfg        *config.Config
	db         *sql.DB
	logManager *logging.Manager
	logger     *slog.Logger

	athletes    *athlete.Service
	results     *result.Service
	disciplines *discipline.Service
	importer    *importer.Service
	scrape      *scrape.Service
	merger      *athlete.Merger
}

func configPath() string {
	if p := os.Getenv("RB_CONFIG_PATH"); p != "" {
		return p
	}
	return "/data/config.yaml"
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxFiles:   cfg.Logging.FileMaxFiles,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	})
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logManager.Close() //nolint:errcheck
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()         //nolint:errcheck
		logManager.Close() //nolint:errcheck
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	athletes := athlete.NewService(db)
	results := result.NewService(db)
	disciplines := discipline.NewService(db)

	return &app{
		cfg:         cfg,
		db:          db,
		logManager:  logManager,
		logger:      logger,
		athletes:    athletes,
		results:     results,
		disciplines: disciplines,
		importer:    importer.NewService(db, athletes, results, disciplines, logger),
		scrape:      scrape.NewService(athletes, results, disciplines, scrape.NewFetcher(cfg.Scrape), cfg.Scrape, logger),
		merger:      athlete.NewMerger(athletes, results, logger),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("closing database", "error", err)
	}
	a.logManager.Close() //nolint:errcheck
}

func run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("starting resultatbank",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	router := api.NewRouter(api.RouterDeps{
		AthleteService:    a.athletes,
		ResultService:     a.results,
		DisciplineService: a.disciplines,
		ImporterService:   a.importer,
		ScrapeService:     a.scrape,
		Merger:            a.merger,
		Logger:            a.logger,
		BasePath:          a.cfg.Server.BasePath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Re-apply logging settings when the config file changes on disk.
	go func() {
		err := config.Watch(ctx, configPath(), func(cfg *config.Config) {
			a.logManager.Reconfigure(logging.Config{
				Level:          cfg.Logging.Level,
				Format:         cfg.Logging.Format,
				FilePath:       cfg.Logging.FilePath,
				FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
				FileMaxFiles:   cfg.Logging.FileMaxFiles,
				FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
			})
		}, a.logger)
		if err != nil {
			a.logger.Warn("config watch unavailable", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		a.logger.Info("server starting",
			slog.String("addr", addr), slog.String("base_path", a.cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// runScrape runs a full batch scrape in the foreground and prints the
// report.
func runScrape() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("scraping %s, years %d-%d\n",
		a.cfg.Scrape.BaseURL, a.cfg.Scrape.StartYear, a.cfg.Scrape.EndYear)

	report, err := a.scrape.RunSync(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("years fetched:  %d\n", report.YearsFetched)
	fmt.Printf("fetch failures: %d\n", report.FetchFailures)
	fmt.Printf("created:        %d\n", report.Created)
	fmt.Printf("existing:       %d\n", report.Existing)
	fmt.Printf("ambiguous:      %d\n", report.Ambiguous)
	fmt.Printf("no match:       %d\n", report.NoMatch)
	fmt.Printf("skipped:        %d\n", report.Skipped)
	return nil
}

// runMerge folds one athlete into another from the command line. The
// pre-merge summary is always shown; the merge itself is irreversible, so
// it requires confirmation unless --yes is passed.
func runMerge(args []string) error {
	var yes bool
	var ids []string
	for _, arg := range args {
		if arg == "--yes" || arg == "-y" {
			yes = true
			continue
		}
		ids = append(ids, arg)
	}
	if len(ids) != 2 {
		return fmt.Errorf("usage: resultatbank merge [--yes] <source-id> <target-id>")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	preview, err := a.merger.Preview(ctx, ids[0], ids[1])
	if err != nil {
		return err
	}

	fmt.Printf("source: %s (%s), %d results, will be deleted\n",
		preview.SourceName, preview.SourceID, preview.SourceResults)
	fmt.Printf("target: %s (%s), %d results\n",
		preview.TargetName, preview.TargetID, preview.TargetResults)

	if !yes {
		fmt.Print("merge? [y/N]: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer != "y" && answer != "yes" {
			fmt.Println("aborted")
			return nil
		}
	}

	outcome, err := a.merger.Merge(ctx, ids[0], ids[1])
	if err != nil {
		return err
	}
	fmt.Printf("moved %d results to %s (%s), now %d total\n",
		outcome.MovedResults, outcome.TargetName, outcome.TargetID, outcome.TargetTotal)
	return nil
}
