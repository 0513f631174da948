package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/omdev04/NodePilot-sub002/internal/dirlife"
	"github.com/omdev04/NodePilot-sub002/pkg/config"
	"github.com/omdev04/NodePilot-sub002/pkg/logger"
)

func newServeCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background sweeper and metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCore(cfg)
			if err != nil {
				return err
			}
			log := logger.New("nodepilotd", logger.ParseLevel(cfg.LogLevel))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sweeper := dirlife.NewSweeper(c.dirs, cfg.AppsDir, cfg.SweepInterval, log, c.metrics)
			go sweeper.Run(ctx)

			var srv *http.Server
			if cfg.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))
				srv = &http.Server{
					Addr:              cfg.MetricsAddr,
					Handler:           mux,
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					log.Info("metrics listener starting", "addr", cfg.MetricsAddr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("metrics listener failed", "error", err)
					}
				}()
			}

			log.Info("sweeper running", "apps_dir", cfg.AppsDir, "interval", cfg.SweepInterval)
			<-ctx.Done()

			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Error("metrics shutdown failed", "error", err)
				}
			}
			log.Info("nodepilotd stopped")
			return nil
		},
	}
}
