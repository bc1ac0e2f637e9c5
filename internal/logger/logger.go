// Package logger configures the process-wide zerolog logger and hands out
// component loggers to the rest of pagedeck.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/local/pagedeck/internal/config"
)

const serviceName = "pagedeck"

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	SendToAxiom  bool
	AxiomAPIKey  string
	AxiomOrgID   string
	AxiomDataset string
	AxiomFlush   time.Duration
}

// FromConfig maps the logging and Axiom sections of cfg to Options.
func FromConfig(cfg config.Config) Options {
	return Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	}
}

var shipper *axiomShipper

// Init replaces the global zerolog logger. Output goes to stdout (JSON or
// console), to a rotated file when File is set and to Axiom when enabled.
// Axiom setup errors are reported on stderr and do not fail Init.
func Init(opts Options) error {
	out, err := sinks(opts)
	if err != nil {
		return err
	}
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(out).Level(lvl).With().Timestamp().Str("service", serviceName).Logger()
	return nil
}

func sinks(opts Options) (io.Writer, error) {
	var ws []io.Writer
	if opts.Pretty {
		ws = append(ws, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		ws = append(ws, os.Stdout)
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		ws = append(ws, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}
	if opts.SendToAxiom {
		s, err := newAxiomShipper(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, opts.AxiomFlush)
		if err != nil {
			fmt.Fprintf(os.Stderr, "axiom logging disabled: %v\n", err)
		} else {
			shipper = s
			ws = append(ws, s)
		}
	}
	if len(ws) == 1 {
		return ws[0], nil
	}
	return zerolog.MultiLevelWriter(ws...), nil
}

// Close flushes log events still queued for Axiom.
func Close() {
	if shipper != nil {
		shipper.Close()
		shipper = nil
	}
}

// Component returns a child of the global logger tagged with a component
// name. Call it after Init; loggers taken earlier keep the old output.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
