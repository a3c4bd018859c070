package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/config"
	"github.com/sagarc03/storehouse/database"
	"github.com/sagarc03/storehouse/filesystem"
	storehousehttp "github.com/sagarc03/storehouse/http"
	"github.com/sagarc03/storehouse/keybackend"
	"github.com/sagarc03/storehouse/metrics"
	"github.com/sagarc03/storehouse/notify"
	"github.com/sagarc03/storehouse/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the storehouse HTTP server.

Uploads are accepted on the upload path and remote fetches on the fetch
path. Both require a signature made with the shared secret.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.Bool("nooverwrite", false, "refuse to replace existing files")
	f.StringP("upload-url", "u", "", "upload path (default /upload)")
	f.String("fetch-url", "", "fetch path (default /fetch)")
	f.String("temp-dir", "", "directory for spooled uploads (default: OS temp dir)")
	f.BoolP("allow-download", "a", false, "serve committed files over GET")
	f.String("prefix", "", "URL prefix for downloads (default /)")
	f.Bool("cors", false, "enable CORS on all routes")
	f.StringSlice("cors-origin", nil, "allowed CORS origin, repeatable (default *)")
	f.IntP("port", "p", 0, "HTTP port (default 8888)")
	f.Int("ssl-port", 0, "HTTPS port (default 4443)")
	f.String("ssl-key", "", "TLS private key file")
	f.String("ssl-cert", "", "TLS certificate file")
	f.BoolP("quiet", "q", false, "do not log upload and fetch events")
	f.Int64("max-upload", 0, "maximum request body in bytes, 0 for no limit")
	f.Bool("ledger", false, "record commits in the ledger database")
	f.Bool("metrics", false, "expose Prometheus metrics")
	f.Bool("rate-limit", false, "rate limit write routes per client IP")

	rootCmd.AddCommand(serveCmd)
}

// server bundles the wired HTTP handler with what must be released on exit.
type server struct {
	handler http.Handler
	closers []func()
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	srv, err := newServer(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer srv.Close()

	plain := newHTTPServer(cfg.Server.Port, srv.handler)
	servers := []*http.Server{plain}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("starting server", "addr", plain.Addr)
		errCh <- ignoreClosed(plain.ListenAndServe())
	}()

	if cfg.TLS.Enabled() {
		secure := newHTTPServer(cfg.TLS.Port, srv.handler)
		servers = append(servers, secure)
		go func() {
			slog.Info("starting TLS server", "addr", secure.Addr)
			errCh <- ignoreClosed(secure.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile))
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down server...")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "addr", s.Addr, "err", err)
		}
	}

	return serveErr
}

func ignoreClosed(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("server error: %w", err)
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// newServer wires the committers, notifiers and middleware described by cfg.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server, error) {
	srv := &server{}

	secret, err := keybackend.ResolveSecret(cfg.Auth.SecretConfig)
	if err != nil {
		return nil, fmt.Errorf("resolve secret: %w", err)
	}

	auth, err := storehouse.NewAuthenticator(secret, cfg.Auth.SignatureAlgorithm())
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	root, err := filepath.Abs(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}

	var m *metrics.ServerMetrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	store := filesystem.NewStore(filesystem.WithLogger(logger))

	var pipelineOpts []storehouse.PipelineOption
	if m != nil {
		pipelineOpts = append(pipelineOpts, storehouse.WithFailureHook(func(stage storehouse.Stage, kind storehouse.ErrorKind) {
			m.IncPipelineFailure(stage.String(), string(kind))
		}))
	}
	pipeline := storehouse.NewPipeline(store, logger, pipelineOpts...)

	notifiers := storehouse.MultiNotifier{}
	if !cfg.Log.Quiet {
		notifiers = append(notifiers, notify.NewLogger(logger))
	}
	if m != nil {
		notifiers = append(notifiers, notify.NewMetrics(m))
	}
	if cfg.Ledger.Enabled {
		repo, closeDB, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		srv.closers = append(srv.closers, closeDB)
		logger.Info("ledger enabled", "type", cfg.Database.Type)

		async := notify.NewAsync(notify.NewLedger(repo, logger), cfg.Ledger.QueueSize, logger)
		if m != nil {
			async.OnDrop = func(storehouse.Event) { m.IncEventsDropped() }
		}
		// Closed before the database: drains queued events first.
		srv.closers = append(srv.closers, async.Close)
		notifiers = append(notifiers, async)
	}

	committerCfg := storehouse.CommitterConfig{
		Root:      root,
		Overwrite: cfg.Storage.Overwrite,
		Logger:    logger,
	}
	downloader := storehouse.NewHTTPDownloader(cfg.Fetch.TimeoutDuration(), cfg.Fetch.UserAgent)

	uploads := storehouse.NewUploadCommitter(committerCfg, auth, pipeline, store, notifiers)
	fetches := storehouse.NewFetchCommitter(committerCfg, auth, pipeline, store, downloader, notifiers)

	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		storehousehttp.RequestLogger(logger),
		middleware.Recoverer,
	}
	if m != nil {
		middlewares = append(middlewares, storehousehttp.PanicObserver(m.IncHTTPPanic), m.Middleware)
	}

	var writeMiddlewares []func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		opts := []ratelimit.Option{ratelimit.WithRate(cfg.RateLimit.RPS, cfg.RateLimit.Burst)}
		if m != nil {
			opts = append(opts, ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }))
		}
		writeMiddlewares = append(writeMiddlewares, ratelimit.New(ctx, opts...).Middleware)
	}

	handler := storehousehttp.NewHandler(&storehousehttp.HandlerConfig{
		UploadPath:    cfg.Server.UploadPath,
		FetchPath:     cfg.Server.FetchPath,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		TempDir:       cfg.Storage.TempPath,
		Download: storehousehttp.DownloadConfig{
			Enabled: cfg.Download.Enabled,
			Prefix:  cfg.Download.Prefix,
			Root:    root,
		},
		CORS:             cfg.CORS,
		Logger:           logger,
		Middlewares:      middlewares,
		WriteMiddlewares: writeMiddlewares,
	}, uploads, fetches)

	if m == nil {
		srv.handler = handler.Router()
	} else {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		mux.Handle("/", handler.Router())
		srv.handler = mux
	}

	logger.Info("server configured",
		"root", root,
		"upload_path", cfg.Server.UploadPath,
		"fetch_path", cfg.Server.FetchPath,
		"overwrite", cfg.Storage.Overwrite,
		"download", cfg.Download.Enabled,
		"auth", cfg.Auth,
	)

	return srv, nil
}
