// Package qtc computes heart-rate corrected QT intervals (QTc) and classifies them against
// published clinical criteria.
//
// The package has two layers. Formulas normalize any combination of units (sec/msec) and
// RR interval or heart rate into one canonical equation call in seconds. Criteria are ordered
// sets of threshold rules, optionally guarded by sex and age, that resolve a measurement to a
// single Severity.
//
// Nomenclature follows Rabkin and Cheng, 2015 (https://www.wjgnet.com/1949-8462/full/v7/i6/315.htm).
package qtc

import (
	"fmt"
	"strings"
)

// Units is the time unit carried by every interval value.
type Units int

const (
	Sec Units = iota
	Msec
)

// IntervalRateType tells whether a value is an RR interval or a heart rate in beats per minute.
type IntervalRateType int

const (
	Interval IntervalRateType = iota
	Rate
)

func (u Units) String() string {
	switch u {
	case Sec:
		return "sec"
	case Msec:
		return "msec"
	default:
		return fmt.Sprintf("Units(%d)", int(u))
	}
}

// IsValid reports whether u is one of the defined units.
func (u Units) IsValid() bool {
	return u == Sec || u == Msec
}

// ParseUnits accepts "sec", "s", "msec" and "ms", case-insensitively.
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sec", "s", "seconds":
		return Sec, nil
	case "msec", "ms", "milliseconds":
		return Msec, nil
	default:
		return 0, fmt.Errorf("unknown units %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (u Units) MarshalText() ([]byte, error) {
	if !u.IsValid() {
		return nil, fmt.Errorf("invalid units %d", int(u))
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Units) UnmarshalText(text []byte) error {
	parsed, err := ParseUnits(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

func (t IntervalRateType) String() string {
	switch t {
	case Interval:
		return "interval"
	case Rate:
		return "rate"
	default:
		return fmt.Sprintf("IntervalRateType(%d)", int(t))
	}
}

// IsValid reports whether t is Interval or Rate.
func (t IntervalRateType) IsValid() bool {
	return t == Interval || t == Rate
}

// ParseIntervalRateType accepts "interval", "rr", "rate" and "hr".
func ParseIntervalRateType(s string) (IntervalRateType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interval", "rr":
		return Interval, nil
	case "rate", "hr", "bpm":
		return Rate, nil
	default:
		return 0, fmt.Errorf("unknown interval/rate type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t IntervalRateType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid interval/rate type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *IntervalRateType) UnmarshalText(text []byte) error {
	parsed, err := ParseIntervalRateType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SecToMsec converts seconds to milliseconds.
func SecToMsec(sec float64) float64 {
	return sec * 1000
}

// MsecToSec converts milliseconds to seconds.
func MsecToSec(msec float64) float64 {
	return msec / 1000
}

// BpmToSec converts a heart rate to an RR interval in seconds. A zero rate gives +Inf.
func BpmToSec(bpm float64) float64 {
	return 60 / bpm
}

// SecToBpm converts an RR interval in seconds to a heart rate.
func SecToBpm(sec float64) float64 {
	return 60 / sec
}

// BpmToMsec converts a heart rate to an RR interval in milliseconds.
func BpmToMsec(bpm float64) float64 {
	return 60_000 / bpm
}

// MsecToBpm converts an RR interval in milliseconds to a heart rate.
func MsecToBpm(msec float64) float64 {
	return 60_000 / msec
}

// Convert returns value expressed in the units to. Same-unit conversion returns value unchanged.
func Convert(value float64, from, to Units) float64 {
	switch {
	case from == to:
		return value
	case from == Sec && to == Msec:
		return SecToMsec(value)
	default:
		return MsecToSec(value)
	}
}
