// Package config loads service settings from defaults, an optional YAML
// file, and environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config holds all exporter settings.
type Config struct {
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	SpoolDir      string `yaml:"spool_dir"`
	ProcessedDir  string `yaml:"processed_dir"`
	OutputDir     string `yaml:"output_dir"`
	SiteTablePath string `yaml:"site_table_path"` // empty = embedded table

	MeshFormat       string    `yaml:"mesh_format"` // obj or dae
	IsosurfaceLevels []float64 `yaml:"isosurface_levels"`
	Smooth           bool      `yaml:"smooth"`
	Normalize        bool      `yaml:"normalize"`

	KafkaEnabled bool     `yaml:"kafka_enabled"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:        "info",
		LogFormat:       "json",
		HTTPAddr:        ":8080",
		ShutdownTimeout: 10 * time.Second,

		SpoolDir:     "/var/lib/radar-etl/spool",
		ProcessedDir: "/var/lib/radar-etl/processed",
		OutputDir:    "/var/lib/radar-etl/out",

		MeshFormat:       "obj",
		IsosurfaceLevels: []float64{30, 50},
		Normalize:        true,

		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "radar-export-notices",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.SpoolDir, "SPOOL_DIR")
	setString(&c.ProcessedDir, "PROCESSED_DIR")
	setString(&c.OutputDir, "OUTPUT_DIR")
	setString(&c.SiteTablePath, "SITE_TABLE_PATH")
	setString(&c.MeshFormat, "MESH_FORMAT")
	setString(&c.KafkaTopic, "KAFKA_TOPIC")

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("ISOSURFACE_LEVELS"); v != "" {
		levels, err := parseLevels(v)
		if err != nil {
			return err
		}
		c.IsosurfaceLevels = levels
	}
	for _, f := range []struct {
		env string
		dst *bool
	}{
		{"SMOOTH", &c.Smooth},
		{"NORMALIZE", &c.Normalize},
		{"KAFKA_ENABLED", &c.KafkaEnabled},
	} {
		if v := os.Getenv(f.env); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", f.env, err)
			}
			*f.dst = b
		}
	}
	return nil
}

// Validate checks field values and cross-field requirements.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.Required, validation.In("json", "text")),
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.ShutdownTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SpoolDir, validation.Required),
		validation.Field(&c.ProcessedDir, validation.Required),
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.MeshFormat, validation.Required, validation.In("obj", "dae")),
	)
	if err != nil {
		return err
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka_enabled is true but kafka_brokers is empty")
		}
		if c.KafkaTopic == "" {
			return fmt.Errorf("kafka_enabled is true but kafka_topic is empty")
		}
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevels(v string) ([]float64, error) {
	var out []float64
	for _, p := range splitList(v) {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ISOSURFACE_LEVELS entry %q: %w", p, err)
		}
		out = append(out, f)
	}
	return out, nil
}
