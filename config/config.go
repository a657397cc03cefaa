package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/pkg/paths"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Format is the syntax of a config document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FileNames are searched in order inside the config directory.
var FileNames = []string{"config.yml", "config.yaml", "config.toml"}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, formatForPath(path))
	if err != nil {
		if daemonErr, ok := err.(*errors.DaemonError); ok {
			return nil, daemonErr.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads the config file from paths.ConfigDir(), falling back to
// the built-in defaults when there is none.
func LoadDefault() (*Config, error) {
	path, err := FindConfigFile(paths.ConfigDir())
	if err != nil {
		return Default(), nil
	}
	return Load(path)
}

// LoadOrDefault loads path when non-empty, otherwise behaves like LoadDefault.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	return LoadDefault()
}

// FindConfigFile returns the first config file present in dir.
func FindConfigFile(dir string) (string, error) {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.ConfigNotFound(filepath.Join(dir, FileNames[0]))
}

// LoadFromBytes parses a config document, validates it against the config
// schema and decodes it over the defaults.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	expanded := expandEnvVars(string(data))

	doc, err := parseDocument([]byte(expanded), format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config").
			WithDetail("format", string(format))
	}

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build config schema")
	}
	if err := validator.Validate(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "config does not match schema")
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create config decoder")
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks semantic constraints the schema can't express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Agent.Command) == "" {
		return errors.ConfigInvalid("agent.command cannot be empty")
	}
	if c.Terminal.Rows == 0 || c.Terminal.Cols == 0 {
		return errors.ConfigInvalid("terminal.rows and terminal.cols must be positive")
	}
	if c.Capture.BufferSize <= 0 {
		return errors.ConfigInvalid("capture.buffer_size must be positive")
	}
	if c.Capture.RetryDelayMs <= 0 {
		return errors.ConfigInvalid("capture.retry_delay_ms must be positive")
	}
	if c.Shutdown.GracePeriodMs < 0 {
		return errors.ConfigInvalid("shutdown.grace_period_ms cannot be negative")
	}
	return nil
}

// Marshal renders the config in the given format.
func (c *Config) Marshal(format Format) ([]byte, error) {
	if format == FormatTOML {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, fmt.Errorf("failed to encode toml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(c)
}

func parseDocument(data []byte, format Format) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func formatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// expandEnvVars replaces ${VAR} references with their environment values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		return os.Getenv(name)
	})
}
