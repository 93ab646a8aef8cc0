package config

import (
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes as a Go duration
// string ("1s", "250ms") in YAML, TOML and JSON.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 1s or 250ms",
	}
}

// FeedConfig configures the reconnecting websocket feed.
type FeedConfig struct {
	URL            string   `yaml:"url" toml:"url" json:"url" jsonschema:"description=Websocket endpoint of the data source (ws:// or wss://)"`
	WrapperField   string   `yaml:"wrapper_field" toml:"wrapper_field" json:"wrapper_field" jsonschema:"description=Envelope field that carries a nested serialized payload"`
	BackoffFloor   Duration `yaml:"backoff_floor" toml:"backoff_floor" json:"backoff_floor" jsonschema:"description=First reconnect delay; restored after every successful open"`
	BackoffCeiling Duration `yaml:"backoff_ceiling" toml:"backoff_ceiling" json:"backoff_ceiling" jsonschema:"description=Upper bound for the doubling reconnect delay"`
	ReadTimeout    Duration `yaml:"read_timeout,omitempty" toml:"read_timeout,omitempty" json:"read_timeout,omitempty" jsonschema:"description=Drop the link when nothing is read for this long (0 disables)"`
}

// ViewerConfig configures the HTTP viewer.
type ViewerConfig struct {
	Listen      string   `yaml:"listen" toml:"listen" json:"listen" jsonschema:"description=host:port the viewer listens on"`
	Title       string   `yaml:"title,omitempty" toml:"title,omitempty" json:"title,omitempty" jsonschema:"description=Chart page title"`
	PanStep     float64  `yaml:"pan_step" toml:"pan_step" json:"pan_step" jsonschema:"description=Pan distance per tick while a pan button is held"`
	PanInterval Duration `yaml:"pan_interval" toml:"pan_interval" json:"pan_interval" jsonschema:"description=Tick interval while a pan button is held"`
}

// RelayConfig configures the broadcast relay.
type RelayConfig struct {
	Listen       string   `yaml:"listen" toml:"listen" json:"listen" jsonschema:"description=host:port the relay listens on"`
	PingInterval Duration `yaml:"ping_interval" toml:"ping_interval" json:"ping_interval" jsonschema:"description=Keepalive ping interval for relay clients"`
}

// Config is the root of chartview.yml.
type Config struct {
	Version string       `yaml:"version" toml:"version" json:"version"`
	Feed    FeedConfig   `yaml:"feed" toml:"feed" json:"feed"`
	Viewer  ViewerConfig `yaml:"viewer" toml:"viewer" json:"viewer"`
	Relay   RelayConfig  `yaml:"relay" toml:"relay" json:"relay"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

const (
	DefaultURL            = "ws://127.0.0.1:5678/"
	DefaultWrapperField   = "message"
	DefaultBackoffFloor   = Duration(time.Second)
	DefaultBackoffCeiling = Duration(30 * time.Second)
	DefaultViewerListen   = "127.0.0.1:8080"
	DefaultTitle          = "chartview"
	DefaultPanStep        = 0.01
	DefaultPanInterval    = Duration(100 * time.Millisecond)
	DefaultRelayListen    = "localhost:5678"
	DefaultPingInterval   = Duration(20 * time.Second)
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultURL
	}
	if c.Feed.WrapperField == "" {
		c.Feed.WrapperField = DefaultWrapperField
	}
	if c.Feed.BackoffFloor == 0 {
		c.Feed.BackoffFloor = DefaultBackoffFloor
	}
	if c.Feed.BackoffCeiling == 0 {
		c.Feed.BackoffCeiling = DefaultBackoffCeiling
	}
	if c.Viewer.Listen == "" {
		c.Viewer.Listen = DefaultViewerListen
	}
	if c.Viewer.Title == "" {
		c.Viewer.Title = DefaultTitle
	}
	if c.Viewer.PanStep == 0 {
		c.Viewer.PanStep = DefaultPanStep
	}
	if c.Viewer.PanInterval == 0 {
		c.Viewer.PanInterval = DefaultPanInterval
	}
	if c.Relay.Listen == "" {
		c.Relay.Listen = DefaultRelayListen
	}
	if c.Relay.PingInterval == 0 {
		c.Relay.PingInterval = DefaultPingInterval
	}
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded chartview.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// A missing key leaves the target zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
