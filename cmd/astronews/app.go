package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/Sternrassler/astronews/internal/config"
	"github.com/Sternrassler/astronews/pkg/client"
	"github.com/Sternrassler/astronews/pkg/logging"
	"github.com/Sternrassler/astronews/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app holds the resources shared by every command.
type app struct {
	cfg     *config.Config
	redis   *redis.Client
	client  *client.Client
	logFile *os.File
	server  *http.Server
}

// options are the persistent command-line overrides.
type options struct {
	configPath  string
	logLevel    string
	metricsAddr string
	noCache     bool
}

// newApp loads configuration and wires logging, the optional redis cache,
// the news client and the metrics endpoint. Interactive sessions log to the
// configured file so the terminal UI is never overwritten.
func newApp(ctx context.Context, opts options, interactive bool, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		if !logging.ValidLevel(opts.logLevel) {
			return nil, fmt.Errorf("unknown log level %q", opts.logLevel)
		}
		cfg.Log.Level = opts.logLevel
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if opts.noCache {
		cfg.Cache.Enabled = false
	}

	a := &app{cfg: cfg}

	logCfg := logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: stderr,
	}
	if interactive {
		logCfg.Output = io.Discard
		logCfg.Pretty = false
		if cfg.Log.File != "" {
			f, err := logging.OpenFile(cfg.Log.File)
			if err != nil {
				return nil, err
			}
			a.logFile = f
			logCfg.Output = f
		}
	}
	logging.Setup(logCfg)

	if redisOpts := cfg.RedisOptions(); redisOpts != nil {
		rdb := redis.NewClient(redisOpts)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", redisOpts.Addr).Msg("Redis unavailable - continuing without response cache")
			rdb.Close()
		} else {
			a.redis = rdb
		}
	}

	a.client, err = client.New(cfg.ClientOptions(a.redis))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create news client: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		if err := a.serveMetrics(cfg.Metrics.Addr); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// serveMetrics exposes /metrics and /health on addr.
func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)

	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// Close releases every resource in reverse order of acquisition.
func (a *app) Close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.server.Shutdown(ctx)
		cancel()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
