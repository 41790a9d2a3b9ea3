package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
)

// DefaultMergeFields are the externally sourced book fields copied from a duplicate onto its canonical record.
var DefaultMergeFields = []string{"externalLinks", "coverExternalUrl", "mlpId"}

// numberedSuffix matches the "-1" style suffix the store appends to colliding slugs.
var numberedSuffix = regexp.MustCompile(`-\d+$`)

// Corrections holds hand-curated fixes applied by the corrective passes.
type Corrections struct {
	Duplicates  []models.DuplicatePair `yaml:"duplicates"`
	MergeFields []string               `yaml:"merge_fields"`
	// Covers maps book slug to an external cover URL.
	Covers map[string]string `yaml:"covers"`
}

// LoadCorrections reads and normalizes the corrections file.
func LoadCorrections(path string) (*Corrections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corrections file %s: %w", path, errors.Join(apperrors.ErrSourceUnreadable, err))
	}
	return ParseCorrections(data)
}

// ParseCorrections decodes corrections YAML. A pair that names only the duplicate gets its
// canonical slug by dropping the numbered suffix ("cesta-na-sever-1" -> "cesta-na-sever").
func ParseCorrections(data []byte) (*Corrections, error) {
	var c Corrections
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse corrections: %w", err)
	}

	for i, p := range c.Duplicates {
		p.Canonical = strings.TrimSpace(p.Canonical)
		p.Duplicate = strings.TrimSpace(p.Duplicate)
		if p.Duplicate == "" {
			return nil, fmt.Errorf("duplicates[%d]: duplicate slug is required", i)
		}
		if p.Canonical == "" {
			if !numberedSuffix.MatchString(p.Duplicate) {
				return nil, fmt.Errorf("duplicates[%d]: cannot derive canonical slug from %q", i, p.Duplicate)
			}
			p.Canonical = numberedSuffix.ReplaceAllString(p.Duplicate, "")
		}
		if p.Canonical == p.Duplicate {
			return nil, fmt.Errorf("duplicates[%d]: canonical and duplicate are both %q", i, p.Duplicate)
		}
		c.Duplicates[i] = p
	}

	if len(c.MergeFields) == 0 {
		c.MergeFields = append([]string(nil), DefaultMergeFields...)
	}
	if c.Covers == nil {
		c.Covers = map[string]string{}
	}

	return &c, nil
}
