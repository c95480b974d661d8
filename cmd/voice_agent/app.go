package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/config"
	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/db"
	"github.com/jonathan/voice-agent-builder/internal/fetch"
	"github.com/jonathan/voice-agent-builder/internal/llm"
	"github.com/jonathan/voice-agent-builder/internal/observability"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/schemas"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

// maxSpinnerMessage keeps spinner lines on one terminal row.
const maxSpinnerMessage = 70

// app holds what every command needs: the merged configuration, logging,
// output and the artifact store.
type app struct {
	cfg      config.Config
	logger   *log.Logger
	printer  *observability.Printer
	out      io.Writer
	errOut   io.Writer
	store    *session.Store
	database *db.DB
	closers  []func()
}

// loadConfig merges, in priority order, command-line flags, the environment,
// the config file and the built-in defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	cfg.ApplyEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newApp loads configuration and opens the store. With a database URL the
// store mirrors to Postgres; call close when done.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if quiet {
		logger.SetLevel(log.ErrorLevel)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		printer: printerFor(cmd),
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
	}

	var mirror session.Mirror
	if cfg.DatabaseURL != "" {
		ctx := cmd.Context()
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, database.Close)
		if err := database.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
		a.database = database
		mirror = database
	}
	a.store = session.NewStore(cfg.DataDir, mirror, logger.WithPrefix("store"))

	return a, nil
}

// printerFor returns the summary printer for cmd's output, silenced by --quiet.
func printerFor(cmd *cobra.Command) *observability.Printer {
	if quiet {
		return observability.NewPrinter(io.Discard)
	}
	return observability.NewPrinter(cmd.OutOrStdout())
}

// close releases everything opened by the app, newest first.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// fetcher returns the HTTP fetcher, cached in Postgres when a database is
// configured or in LevelDB under cache_dir otherwise.
func (a *app) fetcher() (crawling.Fetcher, error) {
	opts := fetch.DefaultOptions()
	if a.cfg.FetchTimeout > 0 {
		opts.Timeout = a.cfg.FetchTimeout.Std()
	}
	if a.cfg.UserAgent != "" {
		opts.UserAgent = a.cfg.UserAgent
	}
	var f crawling.Fetcher = fetch.NewHTTPFetcher(opts)

	ttl := a.cfg.CacheTTL.Std()
	logger := a.logger.WithPrefix("cache")
	switch {
	case a.database != nil:
		return fetch.NewCachedFetcher(f, fetch.NewPostgresCache(a.database, ttl), logger), nil
	case a.cfg.CacheDir != "":
		cache, err := fetch.OpenLevelDBCache(a.cfg.CacheDir, ttl)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = cache.Close() })
		return fetch.NewCachedFetcher(f, cache, logger), nil
	default:
		return f, nil
	}
}

// llmClient connects to the language model named by the configuration.
func (a *app) llmClient(ctx context.Context) (llm.Client, error) {
	if a.cfg.APIKey == "" {
		return nil, fmt.Errorf("%s environment variable or api_key in config is required", config.EnvAPIKey)
	}
	client, err := llm.NewClient(ctx, llm.DefaultConfig(), a.cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return client, nil
}

// runner builds a pipeline runner from the configuration. Either argument may
// be nil when the command does not need it.
func (a *app) runner(fetcher crawling.Fetcher, client llm.Client) *pipeline.Runner {
	return &pipeline.Runner{
		Fetcher:   fetcher,
		Extractor: fetch.NewExtractor(),
		LLM:       client,
		Store:     a.store,
		Logger:    a.logger,
		Workers:   a.cfg.Workers,
		MaxPages:  a.cfg.MaxPages,
		BatchSize: a.cfg.BatchSize,
	}
}

// newSession records a session for one command so mirrored artifacts have
// a parent row.
func (a *app) newSession(ctx context.Context, seedURL string) (*session.Session, error) {
	sess := session.New(seedURL)
	if _, err := a.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// saveSession writes sess again after a step filled it in.
func (a *app) saveSession(ctx context.Context, sess *session.Session) {
	if _, err := a.store.Save(ctx, sess); err != nil {
		a.logger.Warn("failed to save session", "session", sess.ID, "err", err)
	}
}

// progress shows step progress on a spinner. In verbose mode the logs carry
// progress instead, and in quiet mode nothing is shown. Call stop when the
// step finishes.
func (a *app) progress(label string) (callback pipeline.ProgressCallback, stop func()) {
	if quiet || a.cfg.Verbose {
		return func(event pipeline.ProgressEvent) {
			a.logger.Debug(event.Message, "step", event.Step)
		}, func() {}
	}

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(a.errOut))
	s.Suffix = " " + label
	s.Start()
	return func(event pipeline.ProgressEvent) {
		s.Lock()
		s.Suffix = " " + shorten(event.Message, maxSpinnerMessage)
		s.Unlock()
	}, s.Stop
}

// saved reports a written artifact.
func (a *app) saved(path string) {
	if path != "" {
		_, _ = fmt.Fprintf(a.out, "Saved: %s\n", path)
	}
}

// checkSchema validates a written artifact. Mismatches are warnings: the
// artifact is already on disk and later steps may still accept it.
func (a *app) checkSchema(name, path string) {
	if path == "" {
		return
	}
	if err := schemas.ValidateFile(name, path); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			a.logger.Warn("artifact does not match schema", "schema", name, "path", path, "err", err)
			return
		}
		a.logger.Warn("could not validate artifact", "schema", name, "path", path, "err", err)
	}
}

func shorten(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
