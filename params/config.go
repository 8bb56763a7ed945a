package params

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var configJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ConfigFile is a map loaded from a configuration file, remembering its
// source path (mirrors Config.ConfigFile).
type ConfigFile struct {
	Values   map[string]any
	Filename string
}

// Config loads presets (by name, or from a directory of preset files) and
// converts a value into a ConfigFile: by preset name, inline map, a path to
// load, or a YAML/JSON literal string. Ported from parameters.py's Config.
type Config struct {
	Presets map[string]ConfigFile
	Exts    []string
}

// NewConfig builds a Config, loading every *.yml/*.yaml/*.json file in
// presetsDir (if non-empty) as a named preset keyed by filename stem.
func NewConfig(presetsDir string) (*Config, error) {
	c := &Config{Presets: map[string]ConfigFile{}, Exts: []string{".yml", ".yaml", ".json"}}
	if presetsDir == "" {
		return c, nil
	}
	entries, err := os.ReadDir(presetsDir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !contains(c.Exts, ext) {
			continue
		}
		full := filepath.Join(presetsDir, e.Name())
		cf, err := loadConfigFile(full)
		if err != nil {
			return nil, err
		}
		stem := strings.TrimSuffix(e.Name(), ext)
		c.Presets[stem] = cf
	}
	return c, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func loadConfigFile(filename string) (ConfigFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return ConfigFile{}, err
	}
	values, err := parseConfigBytes(data)
	if err != nil {
		return ConfigFile{}, fmt.Errorf("params: invalid configuration file %s: %w", filename, err)
	}
	return ConfigFile{Values: values, Filename: filename}, nil
}

// parseConfigBytes tries YAML first (a strict superset of JSON for our
// purposes), matching the original's try-YAML-then-JSON fallback.
func parseConfigBytes(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err == nil && out != nil {
		return out, nil
	}
	if err := configJSON.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Config) Convert(value any) (any, error) {
	if s, ok := value.(string); ok {
		if preset, found := c.Presets[s]; found {
			return preset, nil
		}
	}
	switch v := value.(type) {
	case map[string]any:
		return ConfigFile{Values: v}, nil
	case string:
		if pathExists(v) {
			return loadConfigFile(v)
		}
		values, err := parseConfigBytes([]byte(v))
		if err != nil {
			return nil, fmt.Errorf("invalid configuration file or value: %s", v)
		}
		return ConfigFile{Values: values}, nil
	}
	return nil, fmt.Errorf("invalid configuration file or value: %v", value)
}
