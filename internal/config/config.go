// Package config loads the service configuration from YAML with environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mikecbrant/event-streams/internal/awssdk/cloudformation"
)

// Environment variables that override file values.
const (
	EnvEnvironment = "EVENT_STREAMS_ENVIRONMENT"
	EnvRegion      = "AWS_REGION"
	EnvTable       = "EVENT_STREAMS_TABLE"
	EnvTopicARN    = "EVENT_STREAMS_TOPIC_ARN"
	EnvLogLevel    = "EVENT_STREAMS_LOG_LEVEL"
)

// Config is the service configuration shared by the status Lambda and
// streamctl.
type Config struct {
	Environment string          `yaml:"environment"`
	Region      string          `yaml:"region"`
	Table       string          `yaml:"table"`
	Topic       TopicConfig     `yaml:"topic"`
	Lifecycle   LifecycleConfig `yaml:"lifecycle"`
	LogLevel    string          `yaml:"logLevel"`
	Catalog     CatalogConfig   `yaml:"catalog"`
	Templates   TemplateConfig  `yaml:"templates"`
}

// TopicConfig names the SNS topic that receives stack notifications. When ARN
// is empty it is derived from Name and the caller's account.
type TopicConfig struct {
	Name string `yaml:"name"`
	ARN  string `yaml:"arn"`
}

// LifecycleConfig tunes the lifecycle services and the status handler.
type LifecycleConfig struct {
	// MaxWriteAttempts bounds the re-read/retry loop on version conflicts.
	MaxWriteAttempts int `yaml:"maxWriteAttempts"`
	// ManagedStacks are doublestar globs of stack names the status handler
	// acts on. Empty means every event stream stack.
	ManagedStacks []string `yaml:"managedStacks"`
}

// CatalogConfig feeds the static dataset catalog. Datasets missing from
// AccessRights fall back to DefaultAccessRights; an empty default makes
// them unknown.
type CatalogConfig struct {
	DefaultAccessRights string            `yaml:"defaultAccessRights"`
	AccessRights        map[string]string `yaml:"accessRights"`
}

// TemplateConfig tunes the generated stack templates.
type TemplateConfig struct {
	// ShardCount per Kinesis stream.
	ShardCount int `yaml:"shardCount"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Environment: "dev",
		Table:       "event-streams",
		Topic:       TopicConfig{Name: cloudformation.DefaultTopic},
		Lifecycle: LifecycleConfig{
			MaxWriteAttempts: 3,
			ManagedStacks:    []string{"event-stream-*", "event-subscribable-*", "event-sink-*"},
		},
		LogLevel:  "info",
		Templates: TemplateConfig{ShardCount: 1},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		EnvEnvironment: &c.Environment,
		EnvRegion:      &c.Region,
		EnvTable:       &c.Table,
		EnvTopicARN:    &c.Topic.ARN,
		EnvLogLevel:    &c.LogLevel,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Environment {
	case "dev", "prod":
	default:
		errs = append(errs, fmt.Errorf("environment must be dev or prod, got %q", c.Environment))
	}
	if c.Table == "" {
		errs = append(errs, errors.New("table is required"))
	}
	if c.Topic.ARN == "" && c.Topic.Name == "" {
		errs = append(errs, errors.New("topic.name or topic.arn is required"))
	}
	if c.Lifecycle.MaxWriteAttempts < 1 {
		errs = append(errs, fmt.Errorf("lifecycle.maxWriteAttempts must be at least 1, got %d", c.Lifecycle.MaxWriteAttempts))
	}
	if c.Templates.ShardCount < 1 {
		errs = append(errs, fmt.Errorf("templates.shardCount must be at least 1, got %d", c.Templates.ShardCount))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logLevel must be debug, info, warn or error, got %q", c.LogLevel))
	}
	return errors.Join(errs...)
}
