package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Autosave AutosaveConfig `json:"autosave"`
	Dispatch DispatchConfig `json:"dispatch"`

	// Templates overrides the built-in quick-placement catalog. Omitted or
	// empty keeps the defaults.
	Templates []TemplateConfig `json:"templates,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the snapshot persistence layer. Nil means the
// schedule lives in memory only.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./schedule.json" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// AutosaveConfig controls the periodic snapshot save.
// Schedule is a standard 5-field cron expression; empty means every minute.
type AutosaveConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

const DefaultAutosaveSchedule = "* * * * *"

// DispatchConfig tunes the request boundary.
// RatePerSec caps sustained requests per second; 0 disables the limit.
type DispatchConfig struct {
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
}

type TemplateConfig struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Validate rejects configs that would fail later at wiring time, so a bad
// edit is caught at reload instead of at the next autosave or drop.
func (c *Config) Validate() error {
	if c.Storage != nil {
		switch d := strings.ToLower(strings.TrimSpace(c.Storage.Driver)); d {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", d)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	if c.Autosave.Schedule != "" {
		if _, err := cron.ParseStandard(c.Autosave.Schedule); err != nil {
			return fmt.Errorf("autosave.schedule: %w", err)
		}
	}
	if c.Dispatch.RatePerSec < 0 {
		return fmt.Errorf("dispatch.rate_per_sec: must be >= 0")
	}

	seen := map[string]struct{}{}
	for _, t := range c.Templates {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("templates: id is required (title %q)", t.Title)
		}
		if t.DurationMinutes <= 0 {
			return fmt.Errorf("templates.%s: duration_minutes must be > 0", t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("templates: id %q appears twice", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
