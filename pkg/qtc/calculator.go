package qtc

// Input is a raw measurement to be corrected. QT is a pointer because a missing QT is a
// failure, not a numeric degeneracy.
type Input struct {
	QT           *float64
	IntervalRate float64
	Type         IntervalRateType
	Sex          Sex
	Age          Age
	Units        Units
}

// Float returns a pointer to v, for filling Input.QT.
func Float(v float64) *float64 {
	return &v
}

// Calculate returns the QTc for in, in the units of in. The interval or rate is converted to an
// RR interval in seconds (rate to interval first, then units), the canonical equation is applied,
// and the result is converted back.
func (f *FormulaDescriptor) Calculate(in Input) (float64, error) {
	if in.QT == nil {
		return 0, ErrQTMissing
	}
	rr := in.IntervalRate
	if in.Type == Rate {
		rr = BpmToSec(rr)
	} else {
		rr = Convert(rr, in.Units, Sec)
	}
	qtc := f.Base(Convert(*in.QT, in.Units, Sec), rr, in.Sex, in.Age)
	return Convert(qtc, Sec, in.Units), nil
}

// QTcSec corrects a QT in sec with an RR interval in sec.
func (f *FormulaDescriptor) QTcSec(qtSec, rrSec float64, sex Sex, age Age) float64 {
	return f.Base(qtSec, rrSec, sex, age)
}

// QTcMsec corrects a QT in msec with an RR interval in msec.
func (f *FormulaDescriptor) QTcMsec(qtMsec, rrMsec float64, sex Sex, age Age) float64 {
	return SecToMsec(f.Base(MsecToSec(qtMsec), MsecToSec(rrMsec), sex, age))
}

// QTcSecRate corrects a QT in sec with a heart rate in bpm.
func (f *FormulaDescriptor) QTcSecRate(qtSec, bpm float64, sex Sex, age Age) float64 {
	return f.Base(qtSec, BpmToSec(bpm), sex, age)
}

// QTcMsecRate corrects a QT in msec with a heart rate in bpm.
func (f *FormulaDescriptor) QTcMsecRate(qtMsec, bpm float64, sex Sex, age Age) float64 {
	return SecToMsec(f.Base(MsecToSec(qtMsec), BpmToSec(bpm), sex, age))
}

// Calculate resolves id in src and corrects in with it. Lookup failures are returned before any
// computation happens.
func Calculate(src FormulaSource, id FormulaID, in Input) (float64, error) {
	f, err := src.Formula(id)
	if err != nil {
		return 0, err
	}
	return f.Calculate(in)
}
