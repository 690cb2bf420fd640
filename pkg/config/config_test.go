package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Indexer.NumShards != 4 || cfg.Search.DefaultLimit != 10 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Sections) != 3 || cfg.Sections[0].Short != "ti" {
		t.Errorf("default sections = %+v", cfg.Sections)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
indexer:
  numShards: 2
  flushInterval: 5s
search:
  maxWildcardExpansion: 8
sections:
  - id: 1
    short: hd
    full: headline
watcher:
  reloadInterval: 30s
logging:
  level: debug
  format: text
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Indexer.NumShards != 2 || cfg.Indexer.FlushInterval != 5*time.Second {
		t.Errorf("Indexer = %+v", cfg.Indexer)
	}
	if cfg.Indexer.DataDir != "data/index" {
		t.Errorf("unset DataDir lost its default: %q", cfg.Indexer.DataDir)
	}
	if cfg.Search.MaxWildcardExpansion != 8 {
		t.Errorf("MaxWildcardExpansion = %d", cfg.Search.MaxWildcardExpansion)
	}
	if len(cfg.Sections) != 1 || cfg.Sections[0].Full != "headline" {
		t.Errorf("Sections = %+v", cfg.Sections)
	}
	if cfg.Watcher.ReloadInterval != 30*time.Second || cfg.Logging.Format != "text" {
		t.Errorf("Watcher = %+v, Logging = %+v", cfg.Watcher, cfg.Logging)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SP_SERVER_PORT", "7070")
	t.Setenv("SP_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SP_INDEXER_NUM_SHARDS", "8")
	t.Setenv("SP_SEARCH_MAX_WILDCARD_EXPANSION", "3")
	t.Setenv("SP_LOGGING_LEVEL", "warn")
	t.Setenv("SP_POSTGRES_PORT", "not-a-number")

	cfg, err := Load(writeConfig(t, "server:\n  port: 1234\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("env should win over file: port = %d", cfg.Server.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Indexer.NumShards != 8 || cfg.Search.MaxWildcardExpansion != 3 || cfg.Logging.Level != "warn" {
		t.Errorf("overrides not applied: %+v %+v %+v", cfg.Indexer, cfg.Search, cfg.Logging)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("malformed override changed Postgres.Port to %d", cfg.Postgres.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "server: [unclosed"},
		{"zero shards", "indexer:\n  numShards: 0\n"},
		{"limit above max", "search:\n  defaultLimit: 500\n  maxResults: 100\n"},
		{"no sections", "sections: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=d sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
