package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/pagedeck/internal/config"
	"github.com/local/pagedeck/internal/codec"
	"github.com/local/pagedeck/internal/export"
	"github.com/local/pagedeck/internal/server"
	"github.com/local/pagedeck/internal/statuscheck"
	"github.com/local/pagedeck/internal/workspace"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pagedeck HTTP API",
	Long: `Start the pagedeck HTTP API.

Endpoints:
  POST /session/upload            replace the session with uploaded PDFs
  GET  /session                   current pages, flags and thumbnail progress
  POST /session/toggle|move|range edit the session
  POST /session/export            export as a ZIP archive or individual files
  GET  /health, /ready, /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if servePort != "" {
			cfg.Server.Port = servePort
		}

		var cleanup closers
		defer cleanup.run()

		blobs, closeBlobs, err := newBlobStore(cfg)
		if err != nil {
			return err
		}
		cleanup.add(closeBlobs)

		statuses, closeStatuses, err := newStatusStore(cfg)
		if err != nil {
			return err
		}
		cleanup.add(closeStatuses)

		deliverer, err := newDeliverer(ctx, cfg)
		if err != nil {
			return err
		}

		mode, err := export.ParseMode(cfg.Export.Mode)
		if err != nil {
			return err
		}

		ws := workspace.New(workspace.Dependencies{
			Codec:     codec.NewPDF(),
			Blobs:     blobs,
			Status:    statuses,
			Deliverer: deliverer,
		}, workspaceOptions(cfg))
		cleanup.add(ws.Close)

		ready := readiness{}
		ready.track("thumbstore", blobs)
		ready.track("status", statuses)
		checker := statuscheck.New(statuscheck.Options{Backends: ready, S3Bucket: s3Bucket(cfg)})

		api := server.New(ws, server.Options{DefaultMode: mode, MaxUploadMB: cfg.Server.MaxUploadMB, Checker: checker})
		srv := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		log.Info().Msg("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default: $PORT or 8080)")
}

func s3Bucket(cfg cfgpkg.Config) string {
	if cfg.Export.Delivery == "s3" {
		return cfg.S3.Bucket
	}
	return ""
}
