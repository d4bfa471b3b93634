package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"portmonitor/internal/provisioner"
	"portmonitor/internal/status"
)

type Config struct {
	HTTPAddr      string            `yaml:"http_addr"`
	LogLevel      string            `yaml:"log_level"`
	Provisioner   Provisioner       `yaml:"provisioner"`
	Colors        map[string]string `yaml:"colors"`
	ExpectedPorts []string          `yaml:"expected_ports"`
}

type Provisioner struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		HTTPAddr: ":5000",
		LogLevel: "info",
		Provisioner: Provisioner{
			URL:     provisioner.DefaultURL,
			Timeout: provisioner.DefaultTimeout,
		},
	}
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from defaults, the optional YAML file at
// path, then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := decodeYAML(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(getenv("PROVISIONER_URL")); v != "" {
		cfg.Provisioner.URL = v
	}
	if v := strings.TrimSpace(getenv("PROVISIONER_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PROVISIONER_TIMEOUT: %w", err)
		}
		cfg.Provisioner.Timeout = d
	}
	if v := strings.TrimSpace(getenv("EXPECTED_PORTS")); v != "" {
		var ports []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				ports = append(ports, p)
			}
		}
		cfg.ExpectedPorts = ports
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("http_addr must not be empty")
	}
	if strings.TrimSpace(c.Provisioner.URL) == "" {
		return errors.New("provisioner.url must not be empty")
	}
	if c.Provisioner.Timeout <= 0 {
		return fmt.Errorf("provisioner.timeout must be positive, got %s", c.Provisioner.Timeout)
	}
	if _, err := c.Palette(); err != nil {
		return err
	}
	return nil
}

// Palette applies the configured color overrides to the default palette.
func (c Config) Palette() (status.Palette, error) {
	return status.NewPalette(c.Colors)
}
