package reporter

import (
	"fmt"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

// Reporter interface for generating reports
type Reporter interface {
	Generate(report *models.Report) error
}

// reporter implements the Reporter interface
type reporter struct {
	config *config.Config
}

// New creates a new reporter instance
func New(cfg *config.Config) Reporter {
	return &reporter{
		config: cfg,
	}
}

// Generate writes the report in the configured output format.
func (r *reporter) Generate(report *models.Report) error {
	switch r.config.Format {
	case "", "text":
		return WriteText(report, r.config)
	case "json":
		return WriteJSON(report, r.config)
	case "sarif":
		return WriteSARIF(report, r.config)
	default:
		return fmt.Errorf("unsupported output format: %q", r.config.Format)
	}
}
