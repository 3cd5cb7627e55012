package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yourorg/motor-stats/internal/types"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_TARGET_HOST", "")
	t.Setenv("TEMPORAL_ADDRESS", "temporal:7233")
	t.Setenv("COE_URL", "https://example.test/coe.zip")
	t.Setenv("MS_BATCH_SIZE", "not-a-number")
	t.Setenv("PUBLISH_CHANNELS", "discord, telegram")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://hooks.example.test/d")
	t.Setenv("TELEGRAM_WEBHOOK_URL", "")
	t.Setenv("DATASETS_FILE", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TemporalHost != "temporal:7233" || cfg.TaskQueue != "motor-stats" || cfg.BatchSize != 5000 {
		t.Fatalf("cfg %+v", cfg)
	}
	coe, err := cfg.Source(types.DatasetCOE)
	if err != nil || coe.URL != "https://example.test/coe.zip" || coe.Hint != "M11-coe_results.csv" {
		t.Fatalf("coe %+v err %v", coe, err)
	}
	if d := cfg.Sources[types.DatasetDeregistrations]; d.ChecksumKey != "deregistrations" || d.LinkSuffix != ".xlsx" {
		t.Fatalf("deregistrations %+v", d)
	}
	if len(cfg.Channels) != 2 || !cfg.Channels[0].Enabled || cfg.Channels[1].Enabled {
		t.Fatalf("channels %+v", cfg.Channels)
	}
}

func TestSourceErrors(t *testing.T) {
	cfg := Config{Sources: map[string]Source{"coe": {}}}
	if _, err := cfg.Source("coe"); err == nil {
		t.Fatalf("expected missing url error")
	}
	if _, err := cfg.Source("boats"); err == nil {
		t.Fatalf("expected unknown dataset error")
	}
}

func TestDatasetsFileMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.yaml")
	doc := `datasets:
  registrations:
    index_url: https://example.test/portal
    link_suffix: .zip
  coe:
    hint: coe.csv
channels:
  - name: discord
    url: https://hooks.example.test/d
    enabled: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATASETS_FILE", path)
	t.Setenv("PUBLISH_CHANNELS", "")
	t.Setenv("COE_URL", "https://example.test/coe.zip")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	reg := cfg.Sources[types.DatasetRegistrations]
	if reg.IndexURL != "https://example.test/portal" || reg.Hint != "M03-Car_Regn_by_make.csv" {
		t.Fatalf("registrations %+v", reg)
	}
	if coe := cfg.Sources[types.DatasetCOE]; coe.Hint != "coe.csv" || coe.URL != "https://example.test/coe.zip" {
		t.Fatalf("coe %+v", coe)
	}
	if len(cfg.Channels) != 1 || cfg.Channels[0].Name != "discord" {
		t.Fatalf("channels %+v", cfg.Channels)
	}
}

func TestDatasetsFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("datasets: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
