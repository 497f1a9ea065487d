package qtc

import (
	"fmt"
	"strings"
)

// Severity is the verdict of a criterion. Normal through Severe are strictly ordered from least
// to most severe. SeverityUndefined is not part of that order: it means the criterion could not
// assess the measurement with the data supplied.
type Severity int

const (
	SeverityUndefined Severity = iota
	SeverityNormal
	SeverityBorderline
	SeverityMild
	SeverityModerate
	SeverityAbnormal
	SeveritySevere
)

var severityNames = map[Severity]string{
	SeverityUndefined:  "undefined",
	SeverityNormal:     "normal",
	SeverityBorderline: "borderline",
	SeverityMild:       "mild",
	SeverityModerate:   "moderate",
	SeverityAbnormal:   "abnormal",
	SeveritySevere:     "severe",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// IsComparable reports whether s takes part in the severity order.
func (s Severity) IsComparable() bool {
	return s >= SeverityNormal && s <= SeveritySevere
}

// IsAbnormal reports whether s is worse than borderline.
func (s Severity) IsAbnormal() bool {
	return s.IsComparable() && s > SeverityBorderline
}

// MoreSevere returns the more severe of s and other. Undefined loses to any comparable severity.
func (s Severity) MoreSevere(other Severity) Severity {
	if !s.IsComparable() {
		return other
	}
	if other.IsComparable() && other > s {
		return other
	}
	return s
}

// ParseSeverity parses the lower-case severity names.
func ParseSeverity(s string) (Severity, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for sev, name := range severityNames {
		if name == key {
			return sev, nil
		}
	}
	return SeverityUndefined, fmt.Errorf("unknown severity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Comparison decides how a measured value is compared against a cutoff.
type Comparison int

const (
	GreaterThan Comparison = iota
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

func (c Comparison) String() string {
	switch c {
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	default:
		return fmt.Sprintf("Comparison(%d)", int(c))
	}
}

// IsValid reports whether c is a defined comparison.
func (c Comparison) IsValid() bool {
	return c >= GreaterThan && c <= LessThanOrEqual
}

// Holds evaluates lhs <c> rhs.
func (c Comparison) Holds(lhs, rhs float64) bool {
	switch c {
	case GreaterThan:
		return lhs > rhs
	case GreaterThanOrEqual:
		return lhs >= rhs
	case LessThan:
		return lhs < rhs
	case LessThanOrEqual:
		return lhs <= rhs
	default:
		return false
	}
}

// ParseComparison accepts the symbols >, >=, <, <= and the names greaterThan, greaterThanOrEqual,
// lessThan, lessThanOrEqual.
func ParseComparison(s string) (Comparison, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ">", "gt", "greaterthan":
		return GreaterThan, nil
	case ">=", "gte", "greaterthanorequal":
		return GreaterThanOrEqual, nil
	case "<", "lt", "lessthan":
		return LessThan, nil
	case "<=", "lte", "lessthanorequal":
		return LessThanOrEqual, nil
	default:
		return 0, fmt.Errorf("unknown comparison %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Comparison) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid comparison %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Comparison) UnmarshalText(text []byte) error {
	parsed, err := ParseComparison(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Measurement is an already computed QTc to be judged.
type Measurement struct {
	Value float64 `json:"value"`
	Units Units   `json:"units"`
	Sex   Sex     `json:"sex"`
	Age   Age     `json:"age"`
}

// AgeGuard restricts a rule to measurements whose age satisfies Age <Comparison> Years.
type AgeGuard struct {
	Years      int        `json:"years"`
	Comparison Comparison `json:"comparison"`
}

// ThresholdRule is a single cutoff with optional sex and age guards. A rule whose Sex is
// SexUnspecified applies to any sex; a rule with a nil Age applies at any age.
type ThresholdRule struct {
	Value      float64    `json:"value"`
	Units      Units      `json:"units"`
	Comparison Comparison `json:"comparison"`
	Severity   Severity   `json:"severity"`
	Sex        Sex        `json:"sex,omitempty"`
	Age        *AgeGuard  `json:"age,omitempty"`
}

// RuleOutcome is the result of evaluating one rule against one measurement.
type RuleOutcome int

const (
	// OutcomeNoMatch: the rule applies and its comparison is false.
	OutcomeNoMatch RuleOutcome = iota
	// OutcomeMatch: the rule applies and its comparison holds.
	OutcomeMatch
	// OutcomeNotApplicable: the guards could be checked and excluded this measurement.
	OutcomeNotApplicable
	// OutcomeInsufficientData: a guard needs a sex or age the measurement does not carry.
	OutcomeInsufficientData
)

func (o RuleOutcome) String() string {
	switch o {
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeMatch:
		return "match"
	case OutcomeNotApplicable:
		return "not_applicable"
	case OutcomeInsufficientData:
		return "insufficient_data"
	default:
		return fmt.Sprintf("RuleOutcome(%d)", int(o))
	}
}

// Evaluate checks the guards, then compares m against the cutoff converted to m's units.
func (r ThresholdRule) Evaluate(m Measurement) RuleOutcome {
	if r.Sex != SexUnspecified {
		if m.Sex == SexUnspecified {
			return OutcomeInsufficientData
		}
		if m.Sex != r.Sex {
			return OutcomeNotApplicable
		}
	}
	if r.Age != nil {
		years, ok := m.Age.Years()
		if !ok {
			return OutcomeInsufficientData
		}
		if !r.Age.Comparison.Holds(float64(years), float64(r.Age.Years)) {
			return OutcomeNotApplicable
		}
	}
	if r.Comparison.Holds(m.Value, Convert(r.Value, r.Units, m.Units)) {
		return OutcomeMatch
	}
	return OutcomeNoMatch
}

// Matches reports whether the rule applies to m and its comparison holds.
func (r ThresholdRule) Matches(m Measurement) bool {
	return r.Evaluate(m) == OutcomeMatch
}

// Validate rejects rules that cannot be evaluated.
func (r ThresholdRule) Validate() error {
	if !r.Units.IsValid() {
		return fmt.Errorf("%w: units %d", ErrInvalidRule, int(r.Units))
	}
	if !r.Comparison.IsValid() {
		return fmt.Errorf("%w: comparison %d", ErrInvalidRule, int(r.Comparison))
	}
	if !r.Severity.IsComparable() {
		return fmt.Errorf("%w: severity %s", ErrInvalidRule, r.Severity)
	}
	if r.Sex != SexUnspecified && r.Sex != Male && r.Sex != Female {
		return fmt.Errorf("%w: sex %d", ErrInvalidRule, int(r.Sex))
	}
	if r.Age != nil {
		if r.Age.Years < 0 {
			return fmt.Errorf("%w: negative age guard %d", ErrInvalidRule, r.Age.Years)
		}
		if !r.Age.Comparison.IsValid() {
			return fmt.Errorf("%w: age comparison %d", ErrInvalidRule, int(r.Age.Comparison))
		}
	}
	return nil
}

func (r ThresholdRule) clone() ThresholdRule {
	if r.Age != nil {
		g := *r.Age
		r.Age = &g
	}
	return r
}

// String renders the rule as, for example, "QTc >= 450 msec [male] -> abnormal".
func (r ThresholdRule) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "QTc %s %g %s", r.Comparison, r.Value, r.Units)
	var guards []string
	if r.Sex != SexUnspecified {
		guards = append(guards, r.Sex.String())
	}
	if r.Age != nil {
		guards = append(guards, fmt.Sprintf("age %s %d", r.Age.Comparison, r.Age.Years))
	}
	if len(guards) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(guards, ", "))
	}
	fmt.Fprintf(&b, " -> %s", r.Severity)
	return b.String()
}

// CriterionID identifies a RuleSet in a CriteriaSource.
type CriterionID string

// RuleSet is one published clinical criterion. Rule order only affects diagnostics; the
// resolved severity does not depend on it.
type RuleSet struct {
	ID          CriterionID     `json:"id"`
	Name        string          `json:"name"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Rules       []ThresholdRule `json:"rules"`
}

// Clone returns a copy of rs that shares no memory with it.
func (rs *RuleSet) Clone() *RuleSet {
	c := *rs
	if rs.Rules != nil {
		c.Rules = make([]ThresholdRule, len(rs.Rules))
		for i, rule := range rs.Rules {
			c.Rules[i] = rule.clone()
		}
	}
	return &c
}

// Verdict is a resolved severity with the rules behind it.
type Verdict struct {
	Severity     Severity        `json:"severity"`
	Matched      []ThresholdRule `json:"matched"`
	Insufficient []ThresholdRule `json:"insufficient"`
}

// Evaluate resolves m against every rule. The verdict is the most severe matching rule. When
// nothing matches and some rule needed sex or age that m lacks, the verdict is undefined rather
// than normal.
func (rs *RuleSet) Evaluate(m Measurement) Verdict {
	v := Verdict{Severity: SeverityUndefined}
	for _, rule := range rs.Rules {
		switch rule.Evaluate(m) {
		case OutcomeMatch:
			v.Matched = append(v.Matched, rule.clone())
			v.Severity = v.Severity.MoreSevere(rule.Severity)
		case OutcomeInsufficientData:
			v.Insufficient = append(v.Insufficient, rule.clone())
		}
	}
	if len(v.Matched) == 0 {
		if len(v.Insufficient) > 0 {
			v.Severity = SeverityUndefined
		} else {
			v.Severity = SeverityNormal
		}
	}
	return v
}

// Severity is Evaluate(m).Severity.
func (rs *RuleSet) Severity(m Measurement) Severity {
	return rs.Evaluate(m).Severity
}

// AbnormalRules returns the rules that match m, in rule order.
func (rs *RuleSet) AbnormalRules(m Measurement) []ThresholdRule {
	return rs.Evaluate(m).Matched
}

// Cutoff is a rule's threshold expressed in a requested unit.
type Cutoff struct {
	Value      float64    `json:"value"`
	Units      Units      `json:"units"`
	Comparison Comparison `json:"comparison"`
	Severity   Severity   `json:"severity"`
	Sex        Sex        `json:"sex,omitempty"`
	Age        *AgeGuard  `json:"age,omitempty"`
}

// Cutoffs returns every rule's threshold converted to units, in rule order.
func (rs *RuleSet) Cutoffs(units Units) []Cutoff {
	cutoffs := make([]Cutoff, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		cutoffs = append(cutoffs, Cutoff{
			Value:      Convert(rule.Value, rule.Units, units),
			Units:      units,
			Comparison: rule.Comparison,
			Severity:   rule.Severity,
			Sex:        rule.Sex,
			Age:        rule.clone().Age,
		})
	}
	return cutoffs
}

// RequiresSex reports whether any rule is sex-specific.
func (rs *RuleSet) RequiresSex() bool {
	for _, rule := range rs.Rules {
		if rule.Sex != SexUnspecified {
			return true
		}
	}
	return false
}

// RequiresAge reports whether any rule is age-specific.
func (rs *RuleSet) RequiresAge() bool {
	for _, rule := range rs.Rules {
		if rule.Age != nil {
			return true
		}
	}
	return false
}

// Validate checks the identifier and every rule.
func (rs *RuleSet) Validate() error {
	if rs.ID == "" {
		return fmt.Errorf("criterion %q: empty identifier", rs.Name)
	}
	if len(rs.Rules) == 0 {
		return fmt.Errorf("criterion %s: no rules", rs.ID)
	}
	for i, rule := range rs.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("criterion %s rule %d: %w", rs.ID, i, err)
		}
	}
	return nil
}

// CriteriaSource resolves criterion identifiers. A missing criterion is reported through the
// boolean, not as an error, so callers can probe for support.
type CriteriaSource interface {
	Criterion(id CriterionID) (*RuleSet, bool)
}

// LookupCriterion resolves id and turns absence into ErrUndefinedCriterion.
func LookupCriterion(src CriteriaSource, id CriterionID) (*RuleSet, error) {
	rs, ok := src.Criterion(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedCriterion, id)
	}
	return rs, nil
}

// CriteriaRegistry is an immutable CriteriaSource backed by a map. It is safe for concurrent use.
type CriteriaRegistry struct {
	byID  map[CriterionID]*RuleSet
	order []CriterionID
}

// NewCriteriaRegistry validates and registers sets, preserving their order. Sets are copied in
// and out, so changes by callers never reach the registry.
func NewCriteriaRegistry(sets ...RuleSet) (*CriteriaRegistry, error) {
	r := &CriteriaRegistry{
		byID:  make(map[CriterionID]*RuleSet, len(sets)),
		order: make([]CriterionID, 0, len(sets)),
	}
	for i := range sets {
		rs := sets[i]
		if err := rs.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[rs.ID]; dup {
			return nil, fmt.Errorf("criterion %s: duplicate identifier", rs.ID)
		}
		r.byID[rs.ID] = rs.Clone()
		r.order = append(r.order, rs.ID)
	}
	return r, nil
}

// Criterion implements CriteriaSource. The returned set is a copy.
func (r *CriteriaRegistry) Criterion(id CriterionID) (*RuleSet, bool) {
	rs, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return rs.Clone(), true
}

// IDs returns the registered identifiers in registration order.
func (r *CriteriaRegistry) IDs() []CriterionID {
	ids := make([]CriterionID, len(r.order))
	copy(ids, r.order)
	return ids
}

// All returns copies of the registered rule sets in registration order.
func (r *CriteriaRegistry) All() []*RuleSet {
	all := make([]*RuleSet, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, r.byID[id].Clone())
	}
	return all
}

// Len returns the number of registered criteria.
func (r *CriteriaRegistry) Len() int {
	return len(r.order)
}
