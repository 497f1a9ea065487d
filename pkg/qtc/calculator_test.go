package qtc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sumSource serves a single formula whose equation adds QT and RR.
type sumSource struct{}

func (sumSource) Formula(id FormulaID) (*FormulaDescriptor, error) {
	return &FormulaDescriptor{
		ID:              id,
		LongName:        "TestLongName",
		ShortName:       "TestShortName",
		Reference:       "TestReference",
		Equation:        "TestEquation",
		Classification:  Other,
		PublicationYear: 1901,
		Base: func(qt, rr float64, _ Sex, _ Age) float64 {
			return qt + rr
		},
	}, nil
}

func TestCalculate_InputForms(t *testing.T) {
	r := DefaultFormulaRegistry()

	tests := []struct {
		name  string
		id    FormulaID
		in    Input
		want  float64
		delta float64
	}{
		{
			name:  "msec interval",
			id:    QTcBzt,
			in:    Input{QT: Float(369), IntervalRate: 600, Type: Interval, Units: Msec},
			want:  476.4,
			delta: roughDelta,
		},
		{
			name:  "msec rate",
			id:    QTcBzt,
			in:    Input{QT: Float(456), IntervalRate: 77, Type: Rate, Units: Msec},
			want:  516.6,
			delta: roughDelta,
		},
		{
			name:  "sec interval",
			id:    QTcFrd,
			in:    Input{QT: Float(0.369), IntervalRate: 0.6, Type: Interval, Units: Sec},
			want:  0.4375,
			delta: 0.0001,
		},
		{
			name:  "sec rate",
			id:    QTcFrd,
			in:    Input{QT: Float(0.456), IntervalRate: 77, Type: Rate, Units: Sec},
			want:  0.4955,
			delta: 0.001,
		},
		{
			name:  "sec equipoise",
			id:    QTcHdg,
			in:    Input{QT: Float(0.4), IntervalRate: 1, Type: Interval, Units: Sec},
			want:  0.4,
			delta: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(r, tt.id, tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.delta)
		})
	}
}

func TestCalculate_QTMissing(t *testing.T) {
	_, err := Calculate(DefaultFormulaRegistry(), QTcBzt, Input{IntervalRate: 800, Units: Msec})
	assert.True(t, errors.Is(err, ErrQTMissing))
}

func TestCalculate_UndefinedFormulaBeforeQTCheck(t *testing.T) {
	_, err := Calculate(DefaultFormulaRegistry(), "qtcNope", Input{IntervalRate: 800, Units: Msec})
	assert.True(t, errors.Is(err, ErrUndefinedFormula))
	assert.False(t, errors.Is(err, ErrQTMissing))
}

func TestCalculate_Degenerate(t *testing.T) {
	r := DefaultFormulaRegistry()

	got, err := Calculate(r, QTcBzt, Input{QT: Float(300), IntervalRate: 0, Units: Msec})
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1))

	got, err = Calculate(r, QTcFrd, Input{QT: Float(0), IntervalRate: 0, Units: Msec})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))

	got, err = Calculate(r, QTcBzt, Input{QT: Float(300), IntervalRate: -100, Units: Msec})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestUnitRoundTrip(t *testing.T) {
	bzt := mustFormula(t, QTcBzt)
	hdg := mustFormula(t, QTcHdg)
	frm := mustFormula(t, QTcFrm)

	assert.InDelta(t,
		bzt.QTcMsec(356.89, 891.32, SexUnspecified, NoAge),
		SecToMsec(bzt.QTcSec(0.35689, 0.89132, SexUnspecified, NoAge)),
		1e-9)
	assert.InDelta(t,
		hdg.QTcSec(0.299, 0.5, SexUnspecified, NoAge),
		MsecToSec(hdg.QTcMsecRate(299, 120, SexUnspecified, NoAge)),
		1e-12)
	assert.InDelta(t,
		frm.QTcMsec(843, 300, SexUnspecified, NoAge),
		frm.QTcMsecRate(843, 200, SexUnspecified, NoAge),
		1e-9)
}

func TestCalculate_RateIntervalEquivalence(t *testing.T) {
	r := DefaultFormulaRegistry()
	for _, id := range r.IDs() {
		byRate, err := Calculate(r, id, Input{QT: Float(400), IntervalRate: 75, Type: Rate, Units: Msec})
		require.NoError(t, err)
		byInterval, err := Calculate(r, id, Input{QT: Float(400), IntervalRate: 800, Type: Interval, Units: Msec})
		require.NoError(t, err)
		assert.InDelta(t, byInterval, byRate, 1e-9, "formula %s", id)
	}
}

func TestCalculate_SubstitutedSource(t *testing.T) {
	f, err := sumSource{}.Formula(QTcBzt)
	require.NoError(t, err)

	assert.Equal(t, QTcBzt, f.ID)
	assert.Equal(t, "TestLongName", f.LongName)
	assert.Equal(t, "TestShortName", f.ShortName)
	assert.Equal(t, "TestReference", f.Reference)
	assert.Equal(t, "TestEquation", f.Equation)
	assert.Equal(t, 1901, f.PublicationYear)

	got, err := Calculate(sumSource{}, QTcBzt, Input{QT: Float(5), IntervalRate: 7, Units: Sec})
	require.NoError(t, err)
	assert.Equal(t, 12.0, got)
}

func TestAge(t *testing.T) {
	years, ok := NoAge.Years()
	assert.False(t, ok)
	assert.Equal(t, 0, years)

	zero := AgeOf(0)
	assert.True(t, zero.Known())
	assert.NotEqual(t, NoAge, zero)

	five := 5
	assert.Equal(t, AgeOf(5), AgeFromPtr(&five))
	assert.Equal(t, NoAge, AgeFromPtr(nil))

	data, err := NoAge.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var a Age
	require.NoError(t, a.UnmarshalJSON([]byte("42")))
	assert.Equal(t, AgeOf(42), a)

	var negative Age
	assert.Error(t, negative.UnmarshalJSON([]byte("-3")))
	assert.Equal(t, NoAge, negative)
}

func TestParseSex(t *testing.T) {
	tests := []struct {
		in      string
		want    Sex
		wantErr bool
	}{
		{"male", Male, false},
		{"F", Female, false},
		{"", SexUnspecified, false},
		{"unspecified", SexUnspecified, false},
		{"other", SexUnspecified, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSex(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
