package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/modoterra/livefeed/internal/buildinfo"
	"github.com/modoterra/livefeed/pkg/config"
	"github.com/modoterra/livefeed/pkg/daemon"
	"github.com/modoterra/livefeed/pkg/publish"
)

var (
	configPath  string
	socketPath  string
	metricsAddr string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "livefeedd",
	Short: "Serve configured live data feeds over a unix socket",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := initLogger()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := options{config: configPath, socket: socketPath, metrics: metricsAddr}
		if err := run(ctx, opts, logger); err != nil {
			logger.Error("daemon error", "err", err)
			return err
		}
		return nil
	},

	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "livefeedd %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to livefeed.yaml")
	rootCmd.Flags().StringVar(&socketPath, "socket", "", "socket path (overrides the config)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides the config)")
	rootCmd.AddCommand(versionCmd)
}

type options struct {
	config  string
	socket  string
	metrics string
}

// run loads the config and serves until ctx is cancelled.
func run(ctx context.Context, opts options, logger *slog.Logger) error {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("config validation", "err", e)
		}
		return fmt.Errorf("%s: %d error(s)", opts.config, len(errs))
	}

	socket := opts.socket
	if socket == "" {
		socket = cfg.SocketPath()
	}

	var dopts []daemon.Option
	if cfg.Publish != nil && cfg.Publish.NATS != nil {
		pub, err := publish.NewNATSPublisher(cfg.Publish.NATS.URL, logger)
		if err != nil {
			return err
		}
		dopts = append(dopts, daemon.WithPublisher(pub, cfg.Publish.NATS.Prefix))
	}

	d, err := daemon.New(cfg, socket, logger, dopts...)
	if err != nil {
		return err
	}
	defer d.Shutdown()

	addr := opts.metrics
	if addr == "" && cfg.Metrics != nil {
		addr = cfg.Metrics.Listen
	}
	if addr != "" {
		srv := metricsServer(addr)
		go func() {
			logger.Info("metrics listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("starting livefeedd", "version", buildinfo.Version, "config", cfg.FilePath, "feeds", len(cfg.Feeds))
	err = d.Run(ctx)
	logger.Info("shutting down")
	return err
}

func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
