package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/pagedeck/internal/config"
	"github.com/local/pagedeck/internal/delivery"
	"github.com/local/pagedeck/internal/export"
	"github.com/local/pagedeck/internal/status"
	"github.com/local/pagedeck/internal/statuscheck"
	"github.com/local/pagedeck/internal/thumbnail"
	"github.com/local/pagedeck/internal/thumbstore"
	"github.com/local/pagedeck/internal/workspace"
)

// readiness collects the backends whose health /ready reports.
type readiness map[string]statuscheck.Pinger

func (r readiness) track(name string, v any) {
	if p, ok := v.(statuscheck.Pinger); ok {
		r[name] = p
	}
}

func newBlobStore(cfg cfgpkg.Config) (thumbstore.Store, func(), error) {
	switch cfg.Thumbnail.Store {
	case "", "memory":
		return thumbstore.NewMemory(), func() {}, nil
	case "redis":
		rs, err := thumbstore.NewRedis(cfg.RedisURL, cfg.Thumbnail.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("thumbnail store: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown THUMB_STORE %q", cfg.Thumbnail.Store)
}

func newStatusStore(cfg cfgpkg.Config) (status.Store, func(), error) {
	switch cfg.Export.StatusStore {
	case "", "memory":
		return status.NewMemory(), func() {}, nil
	case "redis":
		rs, err := status.NewRedis(cfg.RedisURL, cfg.Thumbnail.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("status store: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown STATUS_STORE %q", cfg.Export.StatusStore)
}

func newDeliverer(ctx context.Context, cfg cfgpkg.Config) (delivery.Deliverer, error) {
	switch cfg.Export.Delivery {
	case "", "local":
		return delivery.NewLocal(cfg.Export.OutputDir)
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("DELIVERY=s3 requires AWS_S3_BUCKET")
		}
		return delivery.NewS3(ctx, cfg.S3.Bucket, cfg.S3.Prefix)
	}
	return nil, fmt.Errorf("unknown DELIVERY %q", cfg.Export.Delivery)
}

func workspaceOptions(cfg cfgpkg.Config) workspace.Options {
	color := thumbnail.ColorRGB
	if cfg.Thumbnail.Grayscale {
		color = thumbnail.ColorGray
	}
	return workspace.Options{
		Thumbnail: thumbnail.Options{Scale: cfg.Thumbnail.Scale, Quality: cfg.Thumbnail.JPEGQuality, Color: color},
		Export: export.Options{
			Timeout:          cfg.Export.Timeout,
			DeliveryAttempts: uint(cfg.Export.DeliveryAttempts),
			RetryDelay:       cfg.Export.RetryDelay,
		},
	}
}

// closers runs cleanup functions in reverse order.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
	log.Debug().Int("closed", len(c)).Msg("resources released")
}
