// Package domain contains the service-level records shared by the HTTP API, the MCP server and
// the history stores: requests, responses, evaluation records, configuration and error envelopes.
//
// Requests carry enums as strings so they can be bound from JSON, query parameters and MCP tool
// arguments alike; the To* methods parse them into pkg/qtc values.
package domain

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/qtc-mcp-server/pkg/qtc"
)

// CalculateRequest asks for a QTc from one QT and one RR interval or heart rate.
type CalculateRequest struct {
	Formula      string   `json:"formula,omitempty" jsonschema:"formula identifier such as qtcBzt; the server default is used when empty"`
	QT           *float64 `json:"qt,omitempty" jsonschema:"measured QT interval in the given units"`
	IntervalRate float64  `json:"interval_rate" jsonschema:"RR interval in the given units, or heart rate in beats per minute when type is rate"`
	Type         string   `json:"type,omitempty" jsonschema:"interval (default) or rate"`
	Units        string   `json:"units,omitempty" jsonschema:"sec or msec for QT, RR and the result"`
	Sex          string   `json:"sex,omitempty" jsonschema:"male, female or unspecified"`
	Age          *int     `json:"age,omitempty" jsonschema:"age in whole years"`
}

// ToInput parses the request into a calculator input. Empty units fall back to defaultUnits.
func (r *CalculateRequest) ToInput(defaultUnits qtc.Units) (qtc.Input, error) {
	units, err := parseUnitsOr(r.Units, defaultUnits)
	if err != nil {
		return qtc.Input{}, err
	}
	irt := qtc.Interval
	if strings.TrimSpace(r.Type) != "" {
		irt, err = qtc.ParseIntervalRateType(r.Type)
		if err != nil {
			return qtc.Input{}, NewValidationError("type", "must be interval or rate", r.Type)
		}
	}
	sex, age, err := parseSexAge(r.Sex, r.Age)
	if err != nil {
		return qtc.Input{}, err
	}
	return qtc.Input{
		QT:           r.QT,
		IntervalRate: r.IntervalRate,
		Type:         irt,
		Sex:          sex,
		Age:          age,
		Units:        units,
	}, nil
}

// CalculateResponse is a computed QTc. QTc is nil when the result is not a finite number, in
// which case NonFinite names it ("+Inf", "-Inf" or "NaN").
type CalculateResponse struct {
	Formula   FormulaInfo `json:"formula"`
	QTc       *float64    `json:"qtc"`
	NonFinite string      `json:"non_finite,omitempty"`
	Units     string      `json:"units"`
}

// ClassifyRequest asks for the severity of an already computed QTc under one criterion.
type ClassifyRequest struct {
	Criterion string   `json:"criterion,omitempty" jsonschema:"criterion identifier such as aha2009; the server default is used when empty"`
	QTc       *float64 `json:"qtc,omitempty" jsonschema:"corrected QT interval in the given units"`
	Units     string   `json:"units,omitempty" jsonschema:"sec or msec"`
	Sex       string   `json:"sex,omitempty" jsonschema:"male, female or unspecified"`
	Age       *int     `json:"age,omitempty" jsonschema:"age in whole years"`
}

// ToMeasurement parses the request into a measurement. A missing QTc is a validation error.
func (r *ClassifyRequest) ToMeasurement(defaultUnits qtc.Units) (qtc.Measurement, error) {
	if r.QTc == nil {
		return qtc.Measurement{}, NewValidationError("qtc", "is required", nil)
	}
	units, err := parseUnitsOr(r.Units, defaultUnits)
	if err != nil {
		return qtc.Measurement{}, err
	}
	sex, age, err := parseSexAge(r.Sex, r.Age)
	if err != nil {
		return qtc.Measurement{}, err
	}
	return qtc.Measurement{Value: *r.QTc, Units: units, Sex: sex, Age: age}, nil
}

// ClassifyResponse is a resolved verdict with the rules that produced it.
type ClassifyResponse struct {
	Criterion         string     `json:"criterion"`
	CriterionName     string     `json:"criterion_name"`
	QTc               float64    `json:"qtc"`
	Units             string     `json:"units"`
	Severity          string     `json:"severity"`
	IsAbnormal        bool       `json:"is_abnormal"`
	MatchedRules      []RuleInfo `json:"matched_rules"`
	InsufficientRules []RuleInfo `json:"insufficient_rules"`
}

// EvaluateRequest calculates a QTc and classifies it in one step.
type EvaluateRequest struct {
	Formula      string   `json:"formula,omitempty" jsonschema:"formula identifier such as qtcBzt; the server default is used when empty"`
	Criterion    string   `json:"criterion,omitempty" jsonschema:"criterion identifier such as aha2009; the server default is used when empty"`
	QT           *float64 `json:"qt,omitempty" jsonschema:"measured QT interval in the given units"`
	IntervalRate float64  `json:"interval_rate" jsonschema:"RR interval in the given units, or heart rate in beats per minute when type is rate"`
	Type         string   `json:"type,omitempty" jsonschema:"interval (default) or rate"`
	Units        string   `json:"units,omitempty" jsonschema:"sec or msec"`
	Sex          string   `json:"sex,omitempty" jsonschema:"male, female or unspecified"`
	Age          *int     `json:"age,omitempty" jsonschema:"age in whole years"`
}

// CalculateRequest returns the calculation half of the request.
func (r *EvaluateRequest) CalculateRequest() *CalculateRequest {
	return &CalculateRequest{
		Formula:      r.Formula,
		QT:           r.QT,
		IntervalRate: r.IntervalRate,
		Type:         r.Type,
		Units:        r.Units,
		Sex:          r.Sex,
		Age:          r.Age,
	}
}

// EvaluationRecord is one stored evaluation: the inputs, the QTc and its verdict.
type EvaluationRecord struct {
	ID           string    `json:"id"`
	Formula      string    `json:"formula"`
	Criterion    string    `json:"criterion"`
	QT           float64   `json:"qt"`
	IntervalRate float64   `json:"interval_rate"`
	Type         string    `json:"type"`
	Units        string    `json:"units"`
	Sex          string    `json:"sex"`
	Age          *int      `json:"age,omitempty"`
	QTc          *float64  `json:"qtc"`
	NonFinite    string    `json:"non_finite,omitempty"`
	Severity     string    `json:"severity"`
	IsAbnormal   bool      `json:"is_abnormal"`
	MatchedRules []string  `json:"matched_rules,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// EvaluationList is a page of history.
type EvaluationList struct {
	Evaluations []*EvaluationRecord `json:"evaluations"`
	Total       int64               `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// FormulaInfo is the serializable view of a formula descriptor.
type FormulaInfo struct {
	ID               string `json:"id"`
	LongName         string `json:"long_name"`
	ShortName        string `json:"short_name"`
	Reference        string `json:"reference"`
	Equation         string `json:"equation"`
	Classification   string `json:"classification"`
	Notes            string `json:"notes,omitempty"`
	PublicationYear  int    `json:"publication_year,omitempty"`
	NumberOfSubjects int    `json:"number_of_subjects,omitempty"`
}

// NewFormulaInfo copies the metadata of f.
func NewFormulaInfo(f *qtc.FormulaDescriptor) FormulaInfo {
	return FormulaInfo{
		ID:               string(f.ID),
		LongName:         f.LongName,
		ShortName:        f.ShortName,
		Reference:        f.Reference,
		Equation:         f.Equation,
		Classification:   string(f.Classification),
		Notes:            f.Notes,
		PublicationYear:  f.PublicationYear,
		NumberOfSubjects: f.NumberOfSubjects,
	}
}

// RuleInfo is the serializable view of a threshold rule.
type RuleInfo struct {
	Rule       string  `json:"rule"`
	Value      float64 `json:"value"`
	Units      string  `json:"units"`
	Comparison string  `json:"comparison"`
	Severity   string  `json:"severity"`
	Sex        string  `json:"sex,omitempty"`
	Age        string  `json:"age,omitempty"`
}

// NewRuleInfo describes rule.
func NewRuleInfo(rule qtc.ThresholdRule) RuleInfo {
	info := RuleInfo{
		Rule:       rule.String(),
		Value:      rule.Value,
		Units:      rule.Units.String(),
		Comparison: rule.Comparison.String(),
		Severity:   rule.Severity.String(),
	}
	if rule.Sex != qtc.SexUnspecified {
		info.Sex = rule.Sex.String()
	}
	if rule.Age != nil {
		info.Age = ageGuardString(rule.Age)
	}
	return info
}

// NewRuleInfos describes rules in order. The result is never nil.
func NewRuleInfos(rules []qtc.ThresholdRule) []RuleInfo {
	infos := make([]RuleInfo, 0, len(rules))
	for _, rule := range rules {
		infos = append(infos, NewRuleInfo(rule))
	}
	return infos
}

// CutoffInfo is one rule threshold in requested units.
type CutoffInfo struct {
	Value      float64 `json:"value"`
	Units      string  `json:"units"`
	Comparison string  `json:"comparison"`
	Severity   string  `json:"severity"`
	Sex        string  `json:"sex,omitempty"`
	Age        string  `json:"age,omitempty"`
}

// CriterionSummary describes a criterion without its rules.
type CriterionSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
	RuleCount   int    `json:"rule_count"`
	RequiresSex bool   `json:"requires_sex"`
	RequiresAge bool   `json:"requires_age"`
}

// NewCriterionSummary summarizes rs.
func NewCriterionSummary(rs *qtc.RuleSet) CriterionSummary {
	return CriterionSummary{
		ID:          string(rs.ID),
		Name:        rs.Name,
		Reference:   rs.Reference,
		Description: rs.Description,
		RuleCount:   len(rs.Rules),
		RequiresSex: rs.RequiresSex(),
		RequiresAge: rs.RequiresAge(),
	}
}

// CriterionDetail is a criterion with its cutoffs expressed in one unit.
type CriterionDetail struct {
	CriterionSummary
	Cutoffs []CutoffInfo `json:"cutoffs"`
}

// NewCriterionDetail describes rs with cutoffs converted to units.
func NewCriterionDetail(rs *qtc.RuleSet, units qtc.Units) *CriterionDetail {
	detail := &CriterionDetail{CriterionSummary: NewCriterionSummary(rs)}
	for _, c := range rs.Cutoffs(units) {
		info := CutoffInfo{
			Value:      c.Value,
			Units:      c.Units.String(),
			Comparison: c.Comparison.String(),
			Severity:   c.Severity.String(),
		}
		if c.Sex != qtc.SexUnspecified {
			info.Sex = c.Sex.String()
		}
		if c.Age != nil {
			info.Age = ageGuardString(c.Age)
		}
		detail.Cutoffs = append(detail.Cutoffs, info)
	}
	return detail
}

// FiniteValue returns v, or nil and the name of the non-finite value.
func FiniteValue(v float64) (*float64, string) {
	switch {
	case math.IsNaN(v):
		return nil, "NaN"
	case math.IsInf(v, 1):
		return nil, "+Inf"
	case math.IsInf(v, -1):
		return nil, "-Inf"
	default:
		return &v, ""
	}
}

func ageGuardString(g *qtc.AgeGuard) string {
	return "age " + g.Comparison.String() + " " + strconv.Itoa(g.Years)
}

func parseUnitsOr(s string, fallback qtc.Units) (qtc.Units, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	units, err := qtc.ParseUnits(s)
	if err != nil {
		return 0, NewValidationError("units", "must be sec or msec", s)
	}
	return units, nil
}

func parseSexAge(sexText string, years *int) (qtc.Sex, qtc.Age, error) {
	sex := qtc.SexUnspecified
	if strings.TrimSpace(sexText) != "" {
		parsed, err := qtc.ParseSex(sexText)
		if err != nil {
			return 0, qtc.NoAge, NewValidationError("sex", "must be male, female or unspecified", sexText)
		}
		sex = parsed
	}
	if years != nil && *years < 0 {
		return 0, qtc.NoAge, NewValidationError("age", "must not be negative", *years)
	}
	return sex, qtc.AgeFromPtr(years), nil
}
