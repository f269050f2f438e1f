// Package config reads the pipeline configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Date is a calendar date configuration value in YYYY-MM-DD form.
type Date struct {
	time.Time
}

// Decode implements envconfig.Decoder.
func (d *Date) Decode(value string) error {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return fmt.Errorf("dates must be in YYYY-MM-DD form: %w", err)
	}

	d.Time = t

	return nil
}

type Config struct {
	Input struct {
		// Dir is the root of the per-source export directories, e.g.
		// INPUT_DIR/anz/*.csv for the ANZ source.
		Dir       string `envconfig:"INPUT_DIR" default:"data/raw"`
		RulesFile string `envconfig:"RULES_FILE" default:"data/category_rules.csv"`

		// From and To bound the imported transaction dates, inclusive.
		// Unset means unbounded.
		From Date `envconfig:"RANGE_FROM"`
		To   Date `envconfig:"RANGE_TO"`
	}

	Output struct {
		DatabaseFile string `envconfig:"DATABASE_FILE" default:"data/finance.db"`

		// ExportDir is where the canonical CSV export is written. Empty
		// skips the export.
		ExportDir string `envconfig:"EXPORT_DIR"`
	}

	Report struct {
		TopMerchants int `envconfig:"TOP_MERCHANTS" default:"5"`

		// ExcludeCategories removes the named categories from spend,
		// savings and merchant figures, e.g. "Transfer".
		ExcludeCategories []string `envconfig:"EXCLUDE_CATEGORIES"`
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
