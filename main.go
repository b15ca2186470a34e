// main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gewnthar/pricediff/config"
	"github.com/gewnthar/pricediff/database"
	"github.com/gewnthar/pricediff/handlers"
	"github.com/gewnthar/pricediff/logging"
	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/scraper"
	"github.com/gewnthar/pricediff/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const usage = `usage: pricediff <command> [flags]

commands:
  serve     run the read API
  ingest    ingest one price-list export (-file or -url)
  export    write the change events of a capture date as CSV
  migrate   create the database tables

run "pricediff <command> -h" for the flags of a command`

// app holds the wired stores and services for one process.
type app struct {
	snapshots *database.SnapshotStore
	events    *database.ChangeEventStore
	runs      *database.IngestRunStore
	reporter  *services.Reporter
	ingestor  *services.Ingestor
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, args)
	case "ingest":
		err = runIngest(ctx, args)
	case "export":
		err = runExport(ctx, args)
	case "migrate":
		err = runMigrate(ctx, args)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}

	database.CloseDB()
	if err != nil {
		if scraper.IsParseError(err) {
			fmt.Fprintln(os.Stderr, "pricediff:", err)
			os.Exit(2)
		}
		log.Fatal().Err(err).Str("command", cmd).Msg("command failed")
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", config.EnvString(config.EnvConfigPath, ""), "Path to config.yaml. Env: "+config.EnvConfigPath)
	return fs, configPath
}

// bootstrap loads configuration, sets up logging, opens the database and
// makes sure the schema exists.
func bootstrap(ctx context.Context, configPath string) (*app, error) {
	if err := config.LoadConfig(configPath); err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	cfg := config.AppConfig
	logging.Setup(cfg.Logging.Level, cfg.Logging.JSON)

	if err := database.InitDB(ctx, cfg.Database); err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	if err := database.Migrate(ctx, database.DB, database.CurrentDialect); err != nil {
		return nil, err
	}

	delim, err := cfg.Ingest.DelimiterRune()
	if err != nil {
		return nil, err
	}

	a := &app{
		snapshots: database.NewSnapshotStore(database.DB, database.CurrentDialect),
		events:    database.NewChangeEventStore(database.DB, database.CurrentDialect, cfg.Ingest.BatchSize),
		runs:      database.NewIngestRunStore(database.DB, database.CurrentDialect),
	}
	a.reporter = services.NewReporter(a.events, a.snapshots, a.runs)
	a.ingestor = services.NewIngestor(a.snapshots, a.events, a.runs, services.LogNotifier{}, services.IngestOptions{
		SourceName: cfg.Ingest.SourceName,
		Delimiter:  delim,
		Location:   cfg.Ingest.Location,
	})
	return a, nil
}

func runMigrate(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("migrate")
	fs.Parse(args)

	if _, err := bootstrap(ctx, *configPath); err != nil {
		return err
	}
	log.Info().Str("driver", string(database.CurrentDialect)).Msg("Schema is up to date")
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("serve")
	port := fs.String("port", "", "Listen port, overrides server.port. Env: "+config.EnvPort)
	syncEvery := fs.Duration("sync-interval", 0, "Poll ingest.source_url at this interval (default ingest.sync_interval, 0 disables)")
	fs.Parse(args)

	a, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	if *port == "" {
		*port = config.AppConfig.Server.Port
	}
	if *syncEvery == 0 {
		*syncEvery = config.AppConfig.Ingest.SyncInterval
	}
	if *syncEvery > 0 {
		if err := startSourceSync(ctx, a, *syncEvery); err != nil {
			return err
		}
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.NewHandler(a.reporter, database.DB))

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("error starting server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("Graceful shutdown complete")
	return nil
}

func runIngest(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("ingest")
	file := fs.String("file", config.EnvString("PRICEDIFF_INGEST_FILE", ""), "Price-list export to ingest. Env: PRICEDIFF_INGEST_FILE")
	srcURL := fs.String("url", "", "Download the export from this URL instead of reading -file (default ingest.source_url)")
	date := fs.String("date", config.EnvString("PRICEDIFF_CAPTURE_DATE", ""), "Capture date, YYYY-MM-DD (default today). Env: PRICEDIFF_CAPTURE_DATE")
	inferDate := fs.Bool("infer-date", config.EnvBool("PRICEDIFF_INFER_DATE", false), "Take the capture date from the file name when -date is not set. Env: PRICEDIFF_INFER_DATE")
	archive := fs.Bool("archive", false, "Keep a copy of a downloaded export in ingest.download_dir")
	fs.Parse(args)

	a, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	if *file == "" && *srcURL == "" {
		*srcURL = config.AppConfig.Ingest.SourceURL
	}
	if *file == "" && *srcURL == "" {
		return errors.New("one of -file or -url is required")
	}

	raw, name, err := readExport(ctx, *file, *srcURL, *archive)
	if err != nil {
		return err
	}

	var capturedAt *models.Date
	switch {
	case *date != "":
		d, err := scraper.ParseCaptureDate(*date)
		if err != nil {
			return err
		}
		capturedAt = &d
	case *inferDate:
		if d, ok := scraper.CaptureDateFromFilename(name); ok {
			capturedAt = &d
		} else {
			log.Warn().Str("name", name).Msg("No date in file name, using today")
		}
	}

	summary, err := a.ingestor.Ingest(ctx, raw, capturedAt)
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	return nil
}

func startSourceSync(ctx context.Context, a *app, interval time.Duration) error {
	cfg := config.AppConfig.Ingest
	if cfg.SourceURL == "" {
		return errors.New("ingest.source_url is required when the sync interval is set")
	}
	fetch := func(ctx context.Context, u string) (string, error) {
		return scraper.FetchExport(ctx, u, cfg.HTTPTimeout)
	}
	s := services.NewSourceSync(a.ingestor, a.runs, cfg.SourceURL, fetch)
	if err := s.Init(ctx); err != nil {
		return err
	}
	go services.RunSchedule(ctx, s, interval)
	return nil
}

// readExport returns the export text and the name used for date inference.
func readExport(ctx context.Context, file, srcURL string, archive bool) (string, string, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(b), file, nil
	}

	cfg := config.AppConfig.Ingest
	name := srcURL
	if u, err := url.Parse(srcURL); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}
	if !archive {
		raw, err := scraper.FetchExport(ctx, srcURL, cfg.HTTPTimeout)
		return raw, name, err
	}

	local := filepath.Join(cfg.DownloadDir, time.Now().UTC().Format("20060102T150405")+"_"+filepath.Base(name))
	if err := scraper.DownloadFile(ctx, srcURL, local, cfg.HTTPTimeout); err != nil {
		return "", "", err
	}
	b, err := os.ReadFile(local)
	if err != nil {
		return "", "", fmt.Errorf("failed to read downloaded export %s: %w", local, err)
	}
	return string(b), name, nil
}

func runExport(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("export")
	date := fs.String("date", "", "Capture date, YYYY-MM-DD (required)")
	out := fs.String("out", "", "Output CSV path (default stdout)")
	sortBy := fs.String("sort", "name", "Order: name, increase or decrease")
	fs.Parse(args)

	if *date == "" {
		return errors.New("-date is required")
	}
	day, err := scraper.ParseCaptureDate(*date)
	if err != nil {
		return err
	}
	order, err := services.ParseSortOrder(*sortBy)
	if err != nil {
		return err
	}

	a, err := bootstrap(ctx, *configPath)
	if err != nil {
		return err
	}
	resp, err := a.reporter.Changes(ctx, day, order)
	if err != nil {
		return err
	}

	if *out == "" {
		if err := services.WriteChangesCSV(os.Stdout, resp.Changes); err != nil {
			return err
		}
	} else if err := writeCSVFile(*out, resp.Changes); err != nil {
		return err
	}
	log.Info().Str("captured_at", day.String()).Int("events", resp.Count).Msg("Export complete")
	return nil
}

// writeCSVFile writes events to path. The close error is returned since it can
// carry the failure of the final write.
func writeCSVFile(path string, events []models.ChangeEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := services.WriteChangesCSV(f, events); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
