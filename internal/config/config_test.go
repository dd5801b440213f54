package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: ./schedule.db
  busy_timeout: 2s
autosave:
  enabled: true
  schedule: "*/5 * * * *"
dispatch:
  rate_per_sec: 50
templates:
  - id: t_short
    title: Consultation
    duration_minutes: 30
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Dispatch.RatePerSec != 50 {
		t.Fatalf("rate = %v", cfg.Dispatch.RatePerSec)
	}
	if len(cfg.Templates) != 1 || cfg.Templates[0].DurationMinutes != 30 {
		t.Fatalf("templates = %+v", cfg.Templates)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: info
autosav:
  enabled: true
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("unknown top-level key accepted")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"empty", func(*Config) {}, false},
		{"bad driver", func(c *Config) { c.Storage = &StorageConfig{Driver: "redis"} }, true},
		{"bad busy timeout", func(c *Config) { c.Storage = &StorageConfig{Driver: "sqlite", BusyTimeout: "soon"} }, true},
		{"bad cron", func(c *Config) { c.Autosave.Schedule = "every day" }, true},
		{"good cron", func(c *Config) { c.Autosave.Schedule = "*/10 * * * *" }, false},
		{"negative rate", func(c *Config) { c.Dispatch.RatePerSec = -1 }, true},
		{"template without id", func(c *Config) {
			c.Templates = []TemplateConfig{{Title: "x", DurationMinutes: 30}}
		}, true},
		{"template zero duration", func(c *Config) {
			c.Templates = []TemplateConfig{{ID: "a", Title: "x"}}
		}, true},
		{"duplicate template id", func(c *Config) {
			c.Templates = []TemplateConfig{
				{ID: "a", Title: "x", DurationMinutes: 30},
				{ID: "a", Title: "y", DurationMinutes: 60},
			}
		}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var c Config
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChanged(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Logging: LoggingConfig{Level: "info"}}
	newCfg := &Config{
		Logging:  LoggingConfig{Level: "debug"},
		Dispatch: DispatchConfig{RatePerSec: 10},
	}
	got := Changed(oldCfg, newCfg)
	want := []string{"dispatch", "logging"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Changed = %v, want %v", got, want)
	}
	if n := Changed(oldCfg, oldCfg); len(n) != 0 {
		t.Fatalf("identical configs reported %v", n)
	}
}
