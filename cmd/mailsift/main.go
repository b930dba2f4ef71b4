package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/hostwatch/mailsift/internal/config"
	"github.com/hostwatch/mailsift/internal/database"
	"github.com/hostwatch/mailsift/internal/engine"
	"github.com/hostwatch/mailsift/internal/ingest"
	"github.com/hostwatch/mailsift/internal/review"
	"github.com/hostwatch/mailsift/internal/suggest"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.db.Close()

	switch command {
	case "run":
		err = app.handleRun()
	case "process":
		err = app.handleProcess()
	case "ingest":
		err = app.handleIngest()
	case "suggest":
		err = app.handleSuggest()
	case "seed":
		err = app.handleSeed()
	case "stats":
		err = app.handleStats()
	case "review":
		err = app.handleReview()
	case "feedback":
		err = app.handleFeedback()
	case "reassign":
		err = app.handleReassign()
	case "unlink":
		err = app.handleUnlink()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`mailsift - email categorization and duplicate detection

Usage:
  mailsift <command> [options]

Commands:
  run       Run the processing loop (poll for pending emails)
  process   Process one batch of pending emails and exit
  ingest    Ingest .eml files from the drop directory
  suggest   Generate category suggestions from uncategorized emails
  seed      Create the default marketplace categories
  stats     Print a processing summary
  review    List or resolve pending category suggestions
  feedback  Confirm or reject an assignment to tune pattern counters
  reassign  Manually move an email to a category
  unlink    Reverse a duplicate verdict
  help      Show this help message

Examples:
  mailsift seed
  mailsift ingest --dir ./data/inbox
  mailsift process
  mailsift review --list
  mailsift review --approve 3
  mailsift feedback --email 42 --category 1 --confirm

Use 'mailsift <command> --help' for more information about a command.
`)
}

// app wires the shared collaborators every subcommand needs
type app struct {
	cfg    *config.Config
	db     *database.DB
	engine *engine.Engine
	logger *slog.Logger
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	eng := engine.New(db, engine.Config{
		BatchSize: cfg.BatchSize,
		Detector: engine.DetectorConfig{
			SimilarityThreshold: cfg.SimilarityThreshold,
			Window:              cfg.DuplicateWindow,
			CandidateLimit:      cfg.CandidateLimit,
		},
	}, logger)

	return &app{cfg: cfg, db: db, engine: eng, logger: logger}, nil
}

// handleRun polls for pending emails until interrupted
func (a *app) handleRun() error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	interval := fs.Duration("interval", a.cfg.PollInterval, "Poll interval")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		a.logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	a.logger.Info("processing loop started", "interval", *interval)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		if _, err := a.engine.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("batch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			a.logger.Info("processing loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// handleProcess runs a single batch
func (a *app) handleProcess() error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	stats, err := a.engine.ProcessBatch(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Processed %d emails: %d categorized, %d duplicates, %d uncategorized, %d errors\n",
		stats.Processed, stats.Categorized, stats.Duplicates, stats.Uncategorized, stats.Errors)
	return nil
}

func (a *app) handleIngest() error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	dir := fs.String("dir", a.cfg.IngestDir, "Directory of .eml files to ingest")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	ing := ingest.New(a.db, a.logger)
	stats, err := ing.IngestDir(context.Background(), *dir)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d emails (%d already known, %d errors)\n",
		stats.Ingested, stats.Skipped, stats.Errors)
	return nil
}

// handleSuggest clusters uncategorized emails and persists new suggestions
func (a *app) handleSuggest() error {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	limit := fs.Int("limit", 500, "Maximum uncategorized emails to examine")
	minGroup := fs.Int("min-group", a.cfg.MinClusterSize, "Minimum cluster size")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	ctx := context.Background()
	emails, err := a.db.ListUncategorizedEmails(ctx, *limit)
	if err != nil {
		return err
	}

	gen := suggest.New(*minGroup, a.logger)
	created := 0
	for _, s := range gen.Generate(emails) {
		exists, err := a.db.HasPendingSuggestionFor(ctx, s.PatternAnalysis)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := a.db.CreateSuggestion(ctx, &s); err != nil {
			return err
		}
		created++
		fmt.Printf("  [%d] %s (confidence %.2f)\n", s.ID, s.SuggestedName, s.SuggestionConfidence)
	}
	fmt.Printf("Created %d suggestions from %d uncategorized emails\n", created, len(emails))
	return nil
}

func (a *app) handleSeed() error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	created, err := a.db.Seed(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d categories\n", created)
	return nil
}

func (a *app) handleStats() error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	s, err := a.db.GetSummary(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Emails:        %d total\n", s.TotalEmails)
	fmt.Printf("  pending:       %d\n", s.Pending)
	fmt.Printf("  categorized:   %d\n", s.Categorized)
	fmt.Printf("  uncategorized: %d\n", s.Uncategorized)
	fmt.Printf("  duplicates:    %d\n", s.Duplicates)
	if len(s.Categories) > 0 {
		fmt.Println("Categories:")
		for _, c := range s.Categories {
			fmt.Printf("  %-24s %5d emails  (avg confidence %.2f)\n", c.Name, c.EmailCount, c.AvgConfidence)
		}
	}
	return nil
}

// handleReview lists pending suggestions or resolves one
func (a *app) handleReview() error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	list := fs.Bool("list", false, "List pending suggestions")
	approve := fs.Int64("approve", 0, "Approve the suggestion with this ID")
	reject := fs.Int64("reject", 0, "Reject the suggestion with this ID")
	merge := fs.Int64("merge", 0, "Merge the suggestion with this ID into --into")
	into := fs.Int64("into", 0, "Target category ID for --merge")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	ctx := context.Background()
	rev := review.New(a.db, a.logger)

	switch {
	case *approve != 0:
		category, err := rev.Approve(ctx, *approve)
		if err != nil {
			return err
		}
		fmt.Printf("Approved suggestion %d -> category %q (id %d)\n", *approve, category.Name, category.ID)
		return nil
	case *reject != 0:
		if err := rev.Reject(ctx, *reject); err != nil {
			return err
		}
		fmt.Printf("Rejected suggestion %d\n", *reject)
		return nil
	case *merge != 0:
		if *into == 0 {
			fmt.Println("Error: --merge requires --into <category-id>")
			fs.Usage()
			os.Exit(1)
		}
		if err := rev.Merge(ctx, *merge, *into); err != nil {
			return err
		}
		fmt.Printf("Merged suggestion %d into category %d\n", *merge, *into)
		return nil
	case *list:
		fallthrough
	default:
		suggestions, err := a.db.ListPendingSuggestions(ctx)
		if err != nil {
			return err
		}
		if len(suggestions) == 0 {
			fmt.Println("No pending suggestions")
			return nil
		}
		for _, s := range suggestions {
			fmt.Printf("  [%d] %-28s confidence %.2f  %s\n", s.ID, s.SuggestedName, s.SuggestionConfidence, s.Description)
		}
		return nil
	}
}

// handleFeedback records a human verdict on an assignment
func (a *app) handleFeedback() error {
	fs := flag.NewFlagSet("feedback", flag.ExitOnError)
	emailID := fs.Int64("email", 0, "Email ID (required)")
	categoryID := fs.Int64("category", 0, "Category ID (required)")
	confirm := fs.Bool("confirm", false, "Mark the assignment correct")
	rejectFlag := fs.Bool("reject", false, "Mark the assignment incorrect")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}
	if *emailID == 0 || *categoryID == 0 {
		fmt.Println("Error: --email and --category are required")
		fs.Usage()
		os.Exit(1)
	}
	if *confirm == *rejectFlag {
		fmt.Println("Error: pass exactly one of --confirm or --reject")
		fs.Usage()
		os.Exit(1)
	}

	fb := engine.NewFeedback(a.db, engine.NewScorer(a.logger), a.logger)
	if err := fb.Record(context.Background(), *emailID, *categoryID, *confirm); err != nil {
		return err
	}
	fmt.Printf("Feedback recorded for email %d, category %d\n", *emailID, *categoryID)
	return nil
}

func (a *app) handleReassign() error {
	fs := flag.NewFlagSet("reassign", flag.ExitOnError)
	emailID := fs.Int64("email", 0, "Email ID (required)")
	categoryID := fs.Int64("category", 0, "Target category ID (required)")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}
	if *emailID == 0 || *categoryID == 0 {
		fmt.Println("Error: --email and --category are required")
		fs.Usage()
		os.Exit(1)
	}

	rev := review.New(a.db, a.logger)
	if err := rev.Reassign(context.Background(), *emailID, *categoryID); err != nil {
		return err
	}
	fmt.Printf("Email %d reassigned to category %d\n", *emailID, *categoryID)
	return nil
}

func (a *app) handleUnlink() error {
	fs := flag.NewFlagSet("unlink", flag.ExitOnError)
	emailID := fs.Int64("email", 0, "Duplicate email ID to unlink (required)")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}
	if *emailID == 0 {
		fmt.Println("Error: --email is required")
		fs.Usage()
		os.Exit(1)
	}

	rev := review.New(a.db, a.logger)
	if err := rev.Unlink(context.Background(), *emailID); err != nil {
		return err
	}
	fmt.Printf("Duplicate link removed for email %d\n", *emailID)
	return nil
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
