// Package config loads the flat option map of the kvsession command from a YAML
// file, the environment and command-line overrides, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/kvsession/pkg/session"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no file is named and it exists in the working directory.
const DefaultFile = "kvsession.yaml"

// Keys are the option names. Each is also read from the environment in upper case
// (redis_url from REDIS_URL).
var Keys = []string{
	"redis_url",
	"log_level",
	"metrics_addr",
	"retry_backoff",
	"retry_multiplier",
	"retry_max_backoff",
	"retry_max_elapsed",
	"retry_max_attempts",
	"dial_timeout",
	"operation_timeout",
	"health_interval",
}

// Config is the decoded command configuration.
type Config struct {
	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	// Session is decoded with session.ConfigFromMap from the same options.
	Session session.Config
}

// Load merges the options of the YAML file at path, the environment read through
// lookupEnv and overrides. An empty path reads DefaultFile if present; a named
// file must exist. File keys are matched case-insensitively.
func Load(path string, lookupEnv func(string) (string, bool), overrides map[string]string) (map[string]any, error) {
	options := make(map[string]any)

	fromFile, err := readFile(path)
	if err != nil {
		return nil, err
	}
	for k, v := range fromFile {
		options[strings.ToLower(k)] = v
	}

	if lookupEnv != nil {
		for _, key := range Keys {
			if v, ok := lookupEnv(strings.ToUpper(key)); ok {
				options[key] = v
			}
		}
	}

	for k, v := range overrides {
		options[strings.ToLower(k)] = v
	}
	return options, nil
}

func readFile(path string) (map[string]any, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var options map[string]any
	if err := yaml.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return options, nil
}

// Decode builds the command configuration from merged options.
func Decode(options map[string]any) (Config, error) {
	cfg := Config{LogLevel: "info"}
	if err := mapstructure.WeakDecode(options, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	sess, err := session.ConfigFromMap(options)
	if err != nil {
		return cfg, err
	}
	cfg.Session = sess
	return cfg, nil
}

// ParseOverrides parses key=value pairs given on the command line.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q, want key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}
