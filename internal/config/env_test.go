package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "THUMB_SCALE", "THUMB_JPEG_QUALITY", "EXPORT_MODE", "EXPORT_TIMEOUT", "DELIVERY", "AXIOM_DATASET"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Thumbnail.Scale != 0.2 || cfg.Thumbnail.JPEGQuality != 70 {
		t.Errorf("Thumbnail = %+v", cfg.Thumbnail)
	}
	if cfg.Export.Mode != "archive" || cfg.Export.Delivery != "local" || cfg.Export.Timeout != 5*time.Minute {
		t.Errorf("Export = %+v", cfg.Export)
	}
	if cfg.Axiom.Dataset != "dev_pagedeck" {
		t.Errorf("Dataset = %q", cfg.Axiom.Dataset)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("THUMB_SCALE", "0.5")
	t.Setenv("THUMB_JPEG_QUALITY", "500")
	t.Setenv("EXPORT_MODE", "Individual")
	t.Setenv("EXPORT_TIMEOUT", "not-a-duration")
	t.Setenv("DELIVERY", "S3")
	t.Setenv("LOG_PRETTY", "yes")

	cfg := FromEnv()
	if cfg.Server.Port != "9000" || cfg.Thumbnail.Scale != 0.5 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Thumbnail.JPEGQuality != 70 {
		t.Errorf("out of range quality should fall back, got %d", cfg.Thumbnail.JPEGQuality)
	}
	if cfg.Export.Mode != "individual" || cfg.Export.Delivery != "s3" {
		t.Errorf("Export = %+v", cfg.Export)
	}
	if cfg.Export.Timeout != 5*time.Minute {
		t.Errorf("bad duration should fall back, got %v", cfg.Export.Timeout)
	}
	if !cfg.Logging.Pretty {
		t.Error("LOG_PRETTY=yes not honoured")
	}
}

func TestParseHelpers(t *testing.T) {
	if parseInt("x", 4) != 4 || parseInt("12", 4) != 12 {
		t.Error("parseInt")
	}
	for in, want := range map[string]bool{"1": true, "ON": true, " true ": true, "0": false, "": false} {
		if parseBool(in) != want {
			t.Errorf("parseBool(%q) != %v", in, want)
		}
	}
}
