package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/motor-stats/internal/db"
	msmetrics "github.com/yourorg/motor-stats/internal/metrics"
	"github.com/yourorg/motor-stats/internal/publish"
	"github.com/yourorg/motor-stats/internal/types"
)

// Source says where a dataset is downloaded from.
type Source struct {
	// URL is http(s)://, file:// or s3://. When IndexURL is set, URL is only
	// a fallback used if discovery finds nothing.
	URL        string `yaml:"url"`
	IndexURL   string `yaml:"index_url"`
	LinkSuffix string `yaml:"link_suffix"`
	// Hint selects the target file inside a multi-file archive.
	Hint string `yaml:"hint"`
	// ChecksumKey overrides the gate key. Empty means the selected file name.
	ChecksumKey string `yaml:"checksum_key"`
	// Schedule is a cron expression used by `ingestctl schedule`.
	Schedule string `yaml:"schedule"`
}

// Config is the process configuration shared by the worker and ingestctl.
type Config struct {
	TemporalHost string
	Namespace    string
	TaskQueue    string

	ScratchDir  string
	BadgerPath  string
	MetricsAddr string
	LogLevel    string
	BatchSize   int
	ArchiveURI  string
	SiteURL     string

	GeneratorURL string
	GeneratorKey string

	RevalidateURL    string
	RevalidateSecret string

	DB       db.Config
	Sources  map[string]Source
	Channels []publish.Channel
}

// File is the optional YAML document named by DATASETS_FILE.
type File struct {
	Datasets map[string]Source `yaml:"datasets"`
	Channels []publish.Channel `yaml:"channels"`
}

// FromEnv reads the environment and, when DATASETS_FILE is set, merges the
// datasets file over it.
func FromEnv() (Config, error) {
	cfg := Config{
		// Support both TEMPORAL_TARGET_HOST and TEMPORAL_ADDRESS for compatibility
		TemporalHost:     getenv("TEMPORAL_TARGET_HOST", getenv("TEMPORAL_ADDRESS", "localhost:7233")),
		Namespace:        getenv("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:        getenv("TEMPORAL_TASK_QUEUE", "motor-stats"),
		ScratchDir:       getenv("MS_SCRATCH_DIR", "/var/motor-stats"),
		BadgerPath:       getenv("MS_BADGER_PATH", "/var/motor-stats/cache"),
		MetricsAddr:      msmetrics.AddrFromEnv(),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		BatchSize:        getenvInt("MS_BATCH_SIZE", db.DefaultBatchSize),
		ArchiveURI:       os.Getenv("ARCHIVE_URI"),
		SiteURL:          strings.TrimRight(os.Getenv("SITE_URL"), "/"),
		GeneratorURL:     os.Getenv("GENERATOR_URL"),
		GeneratorKey:     os.Getenv("GENERATOR_API_KEY"),
		RevalidateURL:    os.Getenv("REVALIDATE_URL"),
		RevalidateSecret: os.Getenv("REVALIDATE_SECRET"),
		DB:               db.FromEnv(),
		Sources:          map[string]Source{},
	}
	for _, ds := range []string{types.DatasetRegistrations, types.DatasetCOE, types.DatasetDeregistrations} {
		cfg.Sources[ds] = sourceFromEnv(ds)
	}
	cfg.Channels = channelsFromEnv()

	if path := os.Getenv("DATASETS_FILE"); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Merge(f)
	}
	return cfg, nil
}

var defaultHints = map[string]string{
	types.DatasetRegistrations: "M03-Car_Regn_by_make.csv",
	types.DatasetCOE:           "M11-coe_results.csv",
}

func sourceFromEnv(ds string) Source {
	p := strings.ToUpper(ds) + "_"
	s := Source{
		URL:         os.Getenv(p + "URL"),
		IndexURL:    os.Getenv(p + "INDEX_URL"),
		LinkSuffix:  getenv(p+"LINK_SUFFIX", ".zip"),
		Hint:        getenv(p+"HINT", defaultHints[ds]),
		ChecksumKey: os.Getenv(p + "CHECKSUM_KEY"),
		Schedule:    getenv(p+"SCHEDULE", "0 * * * *"),
	}
	if ds == types.DatasetDeregistrations {
		if s.ChecksumKey == "" {
			s.ChecksumKey = types.DatasetDeregistrations
		}
		if os.Getenv(p+"LINK_SUFFIX") == "" {
			s.LinkSuffix = ".xlsx"
		}
	}
	return s
}

// PUBLISH_CHANNELS is a comma separated list of channel names; each
// channel's webhook comes from <NAME>_WEBHOOK_URL.
func channelsFromEnv() []publish.Channel {
	var out []publish.Channel
	for _, name := range strings.Split(os.Getenv("PUBLISH_CHANNELS"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		url := os.Getenv(strings.ToUpper(name) + "_WEBHOOK_URL")
		out = append(out, publish.Channel{Name: name, URL: url, Enabled: url != ""})
	}
	return out
}

// LoadFile parses a datasets file.
func LoadFile(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read datasets file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("parse datasets file %s: %w", path, err)
	}
	return f, nil
}

// Merge overlays non-empty fields from f. Channels from the file replace the
// environment list entirely.
func (c *Config) Merge(f File) {
	for name, src := range f.Datasets {
		cur := c.Sources[name]
		if src.URL != "" {
			cur.URL = src.URL
		}
		if src.IndexURL != "" {
			cur.IndexURL = src.IndexURL
		}
		if src.LinkSuffix != "" {
			cur.LinkSuffix = src.LinkSuffix
		}
		if src.Hint != "" {
			cur.Hint = src.Hint
		}
		if src.ChecksumKey != "" {
			cur.ChecksumKey = src.ChecksumKey
		}
		if src.Schedule != "" {
			cur.Schedule = src.Schedule
		}
		c.Sources[name] = cur
	}
	if len(f.Channels) > 0 {
		c.Channels = f.Channels
	}
}

// Source returns the configured source of a known dataset.
func (c Config) Source(dataset string) (Source, error) {
	s, ok := c.Sources[dataset]
	if !ok {
		return Source{}, fmt.Errorf("unknown dataset %q", dataset)
	}
	if s.URL == "" && s.IndexURL == "" {
		return Source{}, fmt.Errorf("dataset %q has no source url", dataset)
	}
	return s, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
