package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/chartview/errors"
	"github.com/grovetools/chartview/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Format identifies the syntax of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// configNames lists the project config file names, in search order.
var configNames = []string{
	"chartview.yml",
	"chartview.yaml",
	"chartview.toml",
	".chartview.yml",
	".chartview.yaml",
}

// knownSections are the top-level keys decoded into Config fields.
var knownSections = map[string]bool{
	"version": true,
	"feed":    true,
	"viewer":  true,
	"relay":   true,
}

// FormatForPath picks the config syntax from a file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads and parses a chartview configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, FormatForPath(path))
	if err != nil {
		if groveErr, ok := err.(*errors.GroveError); ok {
			return nil, groveErr.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadDefault finds and loads the configuration starting from the working
// directory. A missing file is not an error: built-in defaults are returned.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads configuration with layered merging starting from the given directory
func LoadFrom(startDir string) (*Config, error) {
	return LoadFromWithLogger(startDir, logrus.New())
}

// LoadFromWithLogger layers the global config (~/.config/chartview/chartview.yml)
// under the nearest project config, then applies defaults and validation.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	cfg := &Config{}

	globalPath := paths.GlobalConfigPath()
	if globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			logger.WithField("path", globalPath).Debug("Loading global configuration")
			if err := decodeFileInto(globalPath, cfg); err != nil {
				logger.WithError(err).Warn("Failed to parse global configuration, continuing without it")
			}
		}
	}

	projectPath, err := FindConfigFile(startDir)
	if err == nil && projectPath != globalPath {
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		if err := decodeFileInto(projectPath, cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse project config").
				WithDetail("path", projectPath)
		}
	} else if err != nil && !errors.Is(err, errors.ErrCodeConfigNotFound) {
		return nil, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}
	return cfg, nil
}

// LoadFromBytes parses configuration from byte array
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	cfg := &Config{}
	if err := decodeInto(data, format, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration").
			WithDetail("format", string(format))
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err // Already a structured error
	}
	return cfg, nil
}

func decodeFileInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return decodeInto(data, FormatForPath(path), cfg)
}

// decodeInto overlays the document onto cfg. Fields absent from the
// document keep their current values, which is how layers merge.
func decodeInto(data []byte, format Format, cfg *Config) error {
	expanded := []byte(expandEnvVars(string(data)))

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, cfg); err != nil {
			return err
		}
		// go-toml has no inline maps, so collect the extension sections by hand.
		var raw map[string]interface{}
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return err
		}
		for key, value := range raw {
			if knownSections[key] {
				continue
			}
			if cfg.Extensions == nil {
				cfg.Extensions = make(map[string]interface{})
			}
			cfg.Extensions[key] = value
		}
		return nil
	default:
		return yaml.Unmarshal(expanded, cfg)
	}
}

// FindConfigFile searches from startDir up to the filesystem root for a
// project config, then falls back to the global config path.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if globalPath := paths.GlobalConfigPath(); globalPath != "" {
		if info, err := os.Stat(globalPath); err == nil && !info.IsDir() {
			return globalPath, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
