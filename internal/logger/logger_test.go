package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/local/pagedeck/internal/config"
)

func TestInitWritesRotatingFile(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	file := filepath.Join(t.TempDir(), "logs", "pagedeck.log")
	if err := Init(Options{Level: "debug", File: file, MaxSizeMB: 1}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	log.Info().Str("session_id", "s1").Msg("hello")
	l := Component("export")
	l.Debug().Msg("from component")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"service":"pagedeck"`, `"session_id":"s1"`, `"component":"export"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	if err := Init(Options{Level: "loud"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := log.Logger.GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("level = %v", got)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Config{}
	cfg.Logging.Level = "warn"
	cfg.Axiom.Dataset = "prod_pagedeck"
	cfg.Axiom.Send = true
	opts := FromConfig(cfg)
	if opts.Level != "warn" || opts.AxiomDataset != "prod_pagedeck" {
		t.Errorf("opts = %+v", opts)
	}
	if opts.SendToAxiom {
		t.Error("axiom enabled without an API key")
	}
	cfg.Axiom.APIKey = "xaat-test"
	if !FromConfig(cfg).SendToAxiom {
		t.Error("axiom not enabled with an API key")
	}
}

func TestAxiomShipperKeepsDebugLocal(t *testing.T) {
	s := &axiomShipper{events: make(chan axiom.Event, 4)}
	_, _ = s.WriteLevel(zerolog.DebugLevel, []byte(`{"level":"debug","message":"noise"}`))
	_, _ = s.WriteLevel(zerolog.WarnLevel, []byte(`{"level":"warn","message":"page skipped"}`))
	_, _ = s.WriteLevel(zerolog.ErrorLevel, []byte("not json"))

	if len(s.events) != 2 {
		t.Fatalf("queued = %d, want 2", len(s.events))
	}
	first := <-s.events
	if first["message"] != "page skipped" {
		t.Errorf("first event = %v", first)
	}
	second := <-s.events
	if second["message"] != "not json" || second["level"] != "error" {
		t.Errorf("second event = %v", second)
	}
}
