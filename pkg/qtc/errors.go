package qtc

import "errors"

// Lookup and input failures. Numeric degeneracies (zero or negative RR) are not errors; they
// propagate as +Inf or NaN.
var (
	ErrUndefinedFormula   = errors.New("undefined formula")
	ErrUndefinedCriterion = errors.New("undefined criterion")
	ErrQTMissing          = errors.New("QT interval missing")
	ErrInvalidRule        = errors.New("invalid threshold rule")
)
