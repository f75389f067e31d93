package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapview/pkg/adapter"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "leapview.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "leapview.yml"

// FindConfigFile returns the config file in dir, or "" if there is none.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConnections reads only the connections section of the config file at
// path. The UI server uses it to pick up edits while running.
func LoadConnections(path string) (map[string]adapter.Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var conns map[string]ConnectionConfig
	if err := k.Unmarshal("connections", &conns); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}
	return Prepare(conns)
}
