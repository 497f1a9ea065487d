package qtc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Sex of the subject. The zero value means the caller did not supply it, which is not the same
// as either sex and never satisfies a sex-specific rule.
type Sex int

const (
	SexUnspecified Sex = iota
	Male
	Female
)

func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return "unspecified"
	}
}

// ParseSex accepts "male"/"m", "female"/"f" and "" or "unspecified".
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unspecified", "unknown":
		return SexUnspecified, nil
	case "male", "m":
		return Male, nil
	case "female", "f":
		return Female, nil
	default:
		return SexUnspecified, fmt.Errorf("unknown sex %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Sex) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sex) UnmarshalText(text []byte) error {
	parsed, err := ParseSex(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Age in whole years. The zero value is "not supplied", which is distinct from AgeOf(0).
type Age struct {
	years int
	known bool
}

// NoAge is the absent age.
var NoAge = Age{}

// AgeOf returns a supplied age in years. It does not check the sign; callers taking ages from
// users must reject negative values first.
func AgeOf(years int) Age {
	return Age{years: years, known: true}
}

// Years returns the age and whether it was supplied.
func (a Age) Years() (int, bool) {
	return a.years, a.known
}

// Known reports whether an age was supplied.
func (a Age) Known() bool {
	return a.known
}

func (a Age) String() string {
	if !a.known {
		return "unspecified"
	}
	return strconv.Itoa(a.years)
}

// MarshalJSON encodes an absent age as null.
func (a Age) MarshalJSON() ([]byte, error) {
	if !a.known {
		return []byte("null"), nil
	}
	return json.Marshal(a.years)
}

// UnmarshalJSON decodes null as an absent age and rejects negative years.
func (a *Age) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = NoAge
		return nil
	}
	var years int
	if err := json.Unmarshal(data, &years); err != nil {
		return fmt.Errorf("age: %w", err)
	}
	if years < 0 {
		return fmt.Errorf("age: %d is negative", years)
	}
	*a = AgeOf(years)
	return nil
}

// AgeFromPtr converts an optional integer, as decoded from JSON request bodies, into an Age.
func AgeFromPtr(years *int) Age {
	if years == nil {
		return NoAge
	}
	return AgeOf(*years)
}

// FormulaClassification is the mathematical family of a formula.
type FormulaClassification string

const (
	Linear      FormulaClassification = "linear"
	Rational    FormulaClassification = "rational"
	Power       FormulaClassification = "power"
	Logarithmic FormulaClassification = "logarithmic"
	Exponential FormulaClassification = "exponential"
	Other       FormulaClassification = "other"
)

// FormulaID identifies a formula in a FormulaSource.
type FormulaID string

// EquationFunc is a formula normalized to seconds: QT and RR in sec in, QTc in sec out.
// It must be pure and must not guard against degenerate input; division by zero and roots of
// negative numbers flow through as +Inf or NaN.
type EquationFunc func(qtSec, rrSec float64, sex Sex, age Age) float64

// FormulaDescriptor holds a formula's metadata and its canonical equation.
type FormulaDescriptor struct {
	ID               FormulaID             `json:"id"`
	LongName         string                `json:"long_name"`
	ShortName        string                `json:"short_name"`
	Reference        string                `json:"reference"`
	Equation         string                `json:"equation"`
	Classification   FormulaClassification `json:"classification"`
	Notes            string                `json:"notes,omitempty"`
	PublicationYear  int                   `json:"publication_year,omitempty"`
	NumberOfSubjects int                   `json:"number_of_subjects,omitempty"`

	Base EquationFunc `json:"-"`
}

// FormulaSource resolves formula identifiers. Calculators take a FormulaSource rather than a
// concrete table so that alternate or test formulas can be substituted.
type FormulaSource interface {
	Formula(id FormulaID) (*FormulaDescriptor, error)
}

// FormulaRegistry is an immutable FormulaSource backed by a map. It is safe for concurrent use.
type FormulaRegistry struct {
	byID  map[FormulaID]*FormulaDescriptor
	order []FormulaID
}

// NewFormulaRegistry builds a registry from descriptors, preserving their order.
func NewFormulaRegistry(descriptors ...FormulaDescriptor) (*FormulaRegistry, error) {
	r := &FormulaRegistry{
		byID:  make(map[FormulaID]*FormulaDescriptor, len(descriptors)),
		order: make([]FormulaID, 0, len(descriptors)),
	}
	for i := range descriptors {
		d := descriptors[i]
		if d.ID == "" {
			return nil, fmt.Errorf("formula %d: empty identifier", i)
		}
		if d.Base == nil {
			return nil, fmt.Errorf("formula %s: nil equation", d.ID)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("formula %s: duplicate identifier", d.ID)
		}
		r.byID[d.ID] = &d
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// Formula implements FormulaSource. The returned descriptor is a copy.
func (r *FormulaRegistry) Formula(id FormulaID) (*FormulaDescriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedFormula, id)
	}
	c := *d
	return &c, nil
}

// IDs returns the registered identifiers in registration order.
func (r *FormulaRegistry) IDs() []FormulaID {
	ids := make([]FormulaID, len(r.order))
	copy(ids, r.order)
	return ids
}

// All returns copies of the registered descriptors in registration order.
func (r *FormulaRegistry) All() []*FormulaDescriptor {
	all := make([]*FormulaDescriptor, 0, len(r.order))
	for _, id := range r.order {
		c := *r.byID[id]
		all = append(all, &c)
	}
	return all
}

// Len returns the number of registered formulas.
func (r *FormulaRegistry) Len() int {
	return len(r.order)
}
