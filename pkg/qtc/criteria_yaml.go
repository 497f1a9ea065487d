package qtc

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// criteriaFile is the YAML layout accepted by LoadCriteriaYAML:
//
//	criteria:
//	  - id: custom2020
//	    name: Custom 2020
//	    reference: ...
//	    rules:
//	      - comparison: ">="
//	        value: 450
//	        units: msec
//	        severity: abnormal
//	        sex: male
//	        age: {comparison: ">", years: 15}
type criteriaFile struct {
	Criteria []criterionYAML `yaml:"criteria"`
}

type criterionYAML struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Reference   string     `yaml:"reference"`
	Description string     `yaml:"description"`
	Rules       []ruleYAML `yaml:"rules"`
}

type ruleYAML struct {
	Comparison string        `yaml:"comparison"`
	Value      *float64      `yaml:"value"`
	Units      string        `yaml:"units"`
	Severity   string        `yaml:"severity"`
	Sex        string        `yaml:"sex"`
	Age        *ageGuardYAML `yaml:"age"`
}

type ageGuardYAML struct {
	Comparison string `yaml:"comparison"`
	Years      int    `yaml:"years"`
}

// LoadCriteriaYAML parses criteria from r. Units default to msec and severity to abnormal when
// omitted. Every returned set has been validated.
func LoadCriteriaYAML(r io.Reader) ([]RuleSet, error) {
	var file criteriaFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode criteria YAML: %w", err)
	}

	sets := make([]RuleSet, 0, len(file.Criteria))
	for i, c := range file.Criteria {
		rs := RuleSet{
			ID:          CriterionID(c.ID),
			Name:        c.Name,
			Reference:   c.Reference,
			Description: c.Description,
			Rules:       make([]ThresholdRule, 0, len(c.Rules)),
		}
		for j, ry := range c.Rules {
			rule, err := ry.toRule()
			if err != nil {
				return nil, fmt.Errorf("criterion %d (%s) rule %d: %w", i, c.ID, j, err)
			}
			rs.Rules = append(rs.Rules, rule)
		}
		if err := rs.Validate(); err != nil {
			return nil, err
		}
		sets = append(sets, rs)
	}
	return sets, nil
}

func (ry ruleYAML) toRule() (ThresholdRule, error) {
	if ry.Value == nil {
		return ThresholdRule{}, fmt.Errorf("%w: value is required", ErrInvalidRule)
	}
	rule := ThresholdRule{Value: *ry.Value, Units: Msec, Severity: SeverityAbnormal}

	cmp, err := ParseComparison(ry.Comparison)
	if err != nil {
		return rule, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	rule.Comparison = cmp

	if ry.Units != "" {
		if rule.Units, err = ParseUnits(ry.Units); err != nil {
			return rule, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
	}
	if ry.Severity != "" {
		if rule.Severity, err = ParseSeverity(ry.Severity); err != nil {
			return rule, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
	}
	if rule.Sex, err = ParseSex(ry.Sex); err != nil {
		return rule, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if ry.Age != nil {
		ageCmp, err := ParseComparison(ry.Age.Comparison)
		if err != nil {
			return rule, fmt.Errorf("%w: age: %v", ErrInvalidRule, err)
		}
		rule.Age = &AgeGuard{Years: ry.Age.Years, Comparison: ageCmp}
	}
	return rule, nil
}

// LoadCriteriaRegistryYAML builds a registry of the built-in criteria plus those read from r.
// A criterion in r may not reuse a built-in identifier.
func LoadCriteriaRegistryYAML(r io.Reader) (*CriteriaRegistry, error) {
	extra, err := LoadCriteriaYAML(r)
	if err != nil {
		return nil, err
	}
	return NewCriteriaRegistry(append(DefaultCriteria(), extra...)...)
}
