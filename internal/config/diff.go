package config

import (
	"reflect"
	"sort"
)

// Changed lists the top-level sections that differ between two configs,
// for reload logging.
func Changed(oldCfg, newCfg *Config) []string {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
	}
	if oldCfg.Autosave != newCfg.Autosave {
		changed = append(changed, "autosave")
	}
	if oldCfg.Dispatch != newCfg.Dispatch {
		changed = append(changed, "dispatch")
	}
	if !reflect.DeepEqual(oldCfg.Templates, newCfg.Templates) {
		changed = append(changed, "templates")
	}
	sort.Strings(changed)
	return changed
}
