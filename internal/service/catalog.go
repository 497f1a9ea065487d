package service

import (
	"fmt"
	"os"

	"github.com/qtc-mcp-server/pkg/qtc"
)

// LoadCriteria returns the built-in criteria, extended with those in the YAML file at path when
// path is not empty.
func LoadCriteria(path string) (*qtc.CriteriaRegistry, error) {
	if path == "" {
		return qtc.DefaultCriteriaRegistry(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open criteria file: %w", err)
	}
	defer f.Close()

	registry, err := qtc.LoadCriteriaRegistryYAML(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load criteria from %s: %w", path, err)
	}
	return registry, nil
}

// ParseDefaults converts configured default names and checks them against the catalogs, so a
// misconfigured server fails at startup rather than on the first request.
func ParseDefaults(formula, criterion, units string, formulas qtc.FormulaSource, criteria qtc.CriteriaSource) (Defaults, error) {
	d := Defaults{
		Formula:   qtc.FormulaID(formula),
		Criterion: qtc.CriterionID(criterion),
	}
	if _, err := formulas.Formula(d.Formula); err != nil {
		return Defaults{}, fmt.Errorf("default formula: %w", err)
	}
	if _, err := qtc.LookupCriterion(criteria, d.Criterion); err != nil {
		return Defaults{}, fmt.Errorf("default criterion: %w", err)
	}
	u, err := qtc.ParseUnits(units)
	if err != nil {
		return Defaults{}, fmt.Errorf("default units: %w", err)
	}
	d.Units = u
	return d, nil
}
