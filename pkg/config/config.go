package config

import "time"

// Config holds all runtime configuration
type Config struct {
	// Kubernetes settings
	KubeConfig   string
	Namespace    string // empty means all namespaces
	APITimeout   time.Duration
	APIRateLimit int

	// Rule thresholds
	RestartThreshold int32
	PVCGrace         time.Duration
	DeploymentGrace  time.Duration
	PendingGrace     time.Duration
	EventLookback    time.Duration

	// Scope filters
	ExcludeNamespaces []string

	// Output settings
	OutputDir string
	Format    string

	// Baseline settings
	BaselinePath   string
	UpdateBaseline bool

	// Manifest settings
	ManifestPath string
	Apply        bool

	// Operational flags
	Verbose bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APITimeout:        30 * time.Second,
		APIRateLimit:      10,
		RestartThreshold:  5,
		PVCGrace:          5 * time.Minute,
		DeploymentGrace:   5 * time.Minute,
		PendingGrace:      1 * time.Minute,
		EventLookback:     60 * time.Minute,
		ExcludeNamespaces: []string{},
		OutputDir:         "",
		Format:            "text",
		BaselinePath:      "",
		UpdateBaseline:    false,
		Apply:             false,
		Verbose:           false,
	}
}
