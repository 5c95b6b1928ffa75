package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// managedKeys are the top-level config keys Save owns. Anything else in
// the file (hand-edited extras, keys from newer versions) is preserved.
var managedKeys = []string{"provider", "refresh", "ui", "promptsPath"}

// Save writes cfg to the config file, merging the managed keys into
// whatever is already there so unknown keys survive round-trips.
func Save(cfg *Config) error {
	path := ConfigPath()

	raw := map[string]json.RawMessage{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &raw); err != nil {
			// A corrupt file is replaced rather than propagated.
			raw = map[string]json.RawMessage{}
		}
	}

	managed, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var managedMap map[string]json.RawMessage
	if err := json.Unmarshal(managed, &managedMap); err != nil {
		return fmt.Errorf("remarshal config: %w", err)
	}
	for _, key := range managedKeys {
		if v, ok := managedMap[key]; ok {
			raw[key] = v
		}
	}

	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
