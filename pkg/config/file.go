package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFileYAML is the canonical config filename.
	DefaultConfigFileYAML = ".kubenspector.yaml"
	// DefaultConfigFileYML is a compatible alternate config filename.
	DefaultConfigFileYML = ".kubenspector.yml"
)

// FileConfig represents values loaded from a .kubenspector.yaml file.
// Flags take precedence over file values.
type FileConfig struct {
	Kubeconfig        string   `yaml:"kubeconfig"`
	Namespace         string   `yaml:"namespace"`
	ExcludeNamespaces []string `yaml:"exclude_namespaces"`
	RestartThreshold  *int32   `yaml:"restart_threshold"`
	PVCGrace          string   `yaml:"pvc_grace"`
	DeploymentGrace   string   `yaml:"deployment_grace"`
	PendingGrace      string   `yaml:"pending_grace"`
	EventLookback     string   `yaml:"event_lookback"`
	APITimeout        string   `yaml:"api_timeout"`
	Format            string   `yaml:"format"`
	Baseline          string   `yaml:"baseline"`
}

// Normalize trims and removes empty items from list fields.
func (fc *FileConfig) Normalize() {
	if fc == nil {
		return
	}
	fc.ExcludeNamespaces = normalizeList(fc.ExcludeNamespaces)
	fc.Kubeconfig = strings.TrimSpace(fc.Kubeconfig)
	fc.Namespace = strings.TrimSpace(fc.Namespace)
	fc.PVCGrace = strings.TrimSpace(fc.PVCGrace)
	fc.DeploymentGrace = strings.TrimSpace(fc.DeploymentGrace)
	fc.PendingGrace = strings.TrimSpace(fc.PendingGrace)
	fc.EventLookback = strings.TrimSpace(fc.EventLookback)
	fc.APITimeout = strings.TrimSpace(fc.APITimeout)
	fc.Format = strings.TrimSpace(fc.Format)
	fc.Baseline = strings.TrimSpace(fc.Baseline)
}

// ApplyTo merges file values into cfg for every knob the file sets.
// Duration fields accept the day-suffix syntax of ParseDuration.
func (fc *FileConfig) ApplyTo(cfg *Config) error {
	if fc == nil || cfg == nil {
		return nil
	}

	if fc.Kubeconfig != "" {
		cfg.KubeConfig = fc.Kubeconfig
	}
	if fc.Namespace != "" {
		cfg.Namespace = fc.Namespace
	}
	if len(fc.ExcludeNamespaces) > 0 {
		cfg.ExcludeNamespaces = append(cfg.ExcludeNamespaces, fc.ExcludeNamespaces...)
	}
	if fc.RestartThreshold != nil {
		cfg.RestartThreshold = *fc.RestartThreshold
	}
	if fc.Format != "" {
		cfg.Format = fc.Format
	}
	if fc.Baseline != "" {
		cfg.BaselinePath = fc.Baseline
	}

	durations := []struct {
		value string
		field string
		dst   *time.Duration
	}{
		{fc.PVCGrace, "pvc_grace", &cfg.PVCGrace},
		{fc.DeploymentGrace, "deployment_grace", &cfg.DeploymentGrace},
		{fc.PendingGrace, "pending_grace", &cfg.PendingGrace},
		{fc.EventLookback, "event_lookback", &cfg.EventLookback},
		{fc.APITimeout, "api_timeout", &cfg.APITimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s in config file: %w", d.field, err)
		}
		*d.dst = parsed
	}

	return nil
}

// AutoLoadFile discovers and loads the first available config file.
func AutoLoadFile() (*FileConfig, string, error) {
	candidates := []string{
		DefaultConfigFileYAML,
		DefaultConfigFileYML,
	}

	if homeDir, err := os.UserHomeDir(); err == nil && strings.TrimSpace(homeDir) != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, DefaultConfigFileYAML),
			filepath.Join(homeDir, DefaultConfigFileYML),
		)
	}

	return LoadFirstExistingFile(candidates)
}

// LoadFirstExistingFile loads the first config file that exists in paths.
func LoadFirstExistingFile(paths []string) (*FileConfig, string, error) {
	for _, path := range paths {
		candidate := strings.TrimSpace(path)
		if candidate == "" {
			continue
		}

		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to access config file %q: %w", candidate, err)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("config path %q is a directory, expected a file", candidate)
		}

		cfg, err := LoadFile(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}

	return nil, "", nil
}

// LoadFile loads config values from a specific YAML file path.
func LoadFile(path string) (*FileConfig, error) {
	filename := strings.TrimSpace(path)
	if filename == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filename, err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", filename, err)
	}

	cfg.Normalize()
	return cfg, nil
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
