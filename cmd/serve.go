// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/config"
	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/server"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// serveCmd hosts the conversion pipeline behind an HTTP upload endpoint, the
// hosted equivalent of running convert locally. Each request is isolated; the
// service keeps no state between conversions.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the converter as an HTTP upload service",
	Long: `The serve command starts an HTTP server exposing the conversion pipeline.
POST a bundle as multipart form field "bundle" to /api/v1/convert and receive
Manifest.zip back. Configuration is read from the config file, a .env file in
the working directory, and WWCONVERT_* environment variables, in that order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC, "service", "wwconvert")

		// Optional .env in the working directory; absence is fine.
		if err := godotenv.Load(); err == nil {
			level.Info(logger).Log("msg", "loaded .env file")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cfg = config.FromEnv(cfg)

		srv := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: server.New(cfg, logger),
		}

		errc := make(chan error, 1)
		go func() {
			level.Info(logger).Log("msg", "listening", "addr", cfg.ListenAddr,
				"accelerator", cfg.AcceleratorConfig, "vela", cfg.VelaBinary)
			errc <- srv.ListenAndServe()
		}()

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errc:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case sig := <-sigc:
			level.Info(logger).Log("msg", "shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
