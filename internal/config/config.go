// Package config loads taskgraph configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/dsl"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format of a configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Settings tune the engine itself rather than the graphs it runs.
type Settings struct {
	WalkTimeout time.Duration `mapstructure:"walkTimeout"`
	MaxParallel int           `mapstructure:"maxParallel"`
}

// Config is a loaded configuration file.
type Config struct {
	Options  domain.Options
	Settings Settings
}

// Load reads the file at path, picking the format from its extension.
// Anything but .json is read as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	format := FormatYAML
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		format = FormatJSON
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document.
func Parse(data []byte, format Format) (*Config, error) {
	raw := map[string]any{}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, format, err)
	}

	var settings Settings
	if section, ok := raw["engine"]; ok {
		delete(raw, "engine")
		if err := decodeSettings(section, &settings); err != nil {
			return nil, fmt.Errorf("%w: engine: %v", domain.ErrConfiguration, err)
		}
	}

	options, err := dsl.DecodeOptions(raw)
	if err != nil {
		return nil, err
	}
	return &Config{Options: *options, Settings: settings}, nil
}

func decodeSettings(input any, out *Settings) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
