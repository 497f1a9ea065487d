package qtc

import "math"

// Built-in QTc formula identifiers.
const (
	QTcBzt  FormulaID = "qtcBzt"  // Bazett
	QTcFrd  FormulaID = "qtcFrd"  // Fridericia
	QTcFrm  FormulaID = "qtcFrm"  // Framingham
	QTcHdg  FormulaID = "qtcHdg"  // Hodges
	QTcMyd  FormulaID = "qtcMyd"  // Mayeda
	QTcKwt  FormulaID = "qtcKwt"  // Kawataki
	QTcDmt  FormulaID = "qtcDmt"  // Dmitrienko
	QTcRtha FormulaID = "qtcRtha" // Rautaharju 2014
	QTcArr  FormulaID = "qtcArr"  // Arrowood
)

// powerQTc has the form QTc = QT / RR^exp.
func powerQTc(exp float64) EquationFunc {
	return func(qtSec, rrSec float64, _ Sex, _ Age) float64 {
		return qtSec / math.Pow(rrSec, exp)
	}
}

// linearQTc has the form QTc = QT + alpha * (1 - RR).
func linearQTc(alpha float64) EquationFunc {
	return func(qtSec, rrSec float64, _ Sex, _ Age) float64 {
		return qtSec + alpha*(1-rrSec)
	}
}

// DefaultFormulas returns the built-in formula table.
func DefaultFormulas() []FormulaDescriptor {
	return []FormulaDescriptor{
		{
			ID:        QTcBzt,
			LongName:  "Bazett",
			ShortName: "QTcBZT",
			Reference: "original: Bazett HC. An analysis of the time-relations of electrocardiograms. Heart 1920;7:353–370.\n" +
				"reprint: Bazett H. C. An analysis of the time‐relations of electrocardiograms. Annals of Noninvasive Electrocardiology. 2006;2(2):177-194. doi:10.1111/j.1542-474X.1997.tb00325.x",
			Equation:         "QT/√RR",
			Classification:   Power,
			Notes:            "Oldest, most commonly used formula, but inaccurate at extremes of heart rate. Healthy subjects: 20 men, age 14 - 40, 19 women, age 20 - 53. Majority of subjects in their 20s.",
			PublicationYear:  1920,
			NumberOfSubjects: 39,
			Base:             powerQTc(0.5),
		},
		{
			ID:               QTcFrd,
			LongName:         "Fridericia",
			ShortName:        "QTcFRD",
			Reference:        "Fridericia LS. Die Systolendauer im Elektrokardiogramm bei normalen Menschen und bei Herzkranken. Acta Medica Scandinavica. 1920;53(1):469-486. doi:10.1111/j.0954-6820.1920.tb18266.x",
			Equation:         "QT/∛RR",
			Classification:   Power,
			Notes:            "50 normal subjects, 28 men, 22 women, ages 2 to 81, most (35) age 20 to 40. HR range 51-135.",
			PublicationYear:  1920,
			NumberOfSubjects: 50,
			Base:             powerQTc(1 / 3.0),
		},
		{
			ID:               QTcFrm,
			LongName:         "Framingham",
			ShortName:        "QTcFRM",
			Reference:        "Sagie A, Larson MG, Goldberg RJ, Bengtson JR, Levy D. An improved method for adjusting the QT interval for heart rate (the Framingham Heart Study). American Journal of Cardiology. 1992;70(7):797-801. doi:10.1016/0002-9149(92)90562-D",
			Equation:         "QT + 0.154*(1-RR)",
			Classification:   Linear,
			Notes:            "5,018 subjects, 2,239 men and 2,779 women, from Framingham Heart Study. Mean age 44 years (28-62). CAD, subjects on AADs or tricyclics or with extremes of HR excluded.",
			PublicationYear:  1992,
			NumberOfSubjects: 5018,
			Base:             linearQTc(0.154),
		},
		{
			ID:               QTcHdg,
			LongName:         "Hodges",
			ShortName:        "QTcHDG",
			Reference:        "Hodges M, Salerno D, Erlien D. Bazett's QT correction reviewed: Evidence that a linear QT correction for heart rate is better. J Am Coll Cardiol. 1983;1:1983.",
			Equation:         "QT + 1.75*(HR-60)",
			Classification:   Rational,
			Notes:            "607 normal subjects, 303 men, 304 women, ages from 20s to 80s.",
			PublicationYear:  1983,
			NumberOfSubjects: 607,
			Base: func(qtSec, rrSec float64, _ Sex, _ Age) float64 {
				return qtSec + 0.00175*(SecToBpm(rrSec)-60)
			},
		},
		{
			ID:              QTcMyd,
			LongName:        "Mayeda",
			ShortName:       "QTcMYD",
			Reference:       "Mayeda I. On time relation between systolic duration of heart and pulse rate. Acta Sch Med Univ Imp. 1934;17:53-55.",
			Equation:        "QT/RR^0.604",
			Classification:  Power,
			PublicationYear: 1934,
			Base:            powerQTc(0.604),
		},
		{
			ID:              QTcKwt,
			LongName:        "Kawataki",
			ShortName:       "QTcKWT",
			Reference:       "Kawataki M, Kashima T, Toda H, Tanaka H. Relation between QT interval and heart rate. Applications and limitations of Bazett's formula. J Electrocardiol. 1984;17(4):371-375.",
			Equation:        "QT/RR^0.25",
			Classification:  Power,
			PublicationYear: 1984,
			Base:            powerQTc(0.25),
		},
		{
			ID:              QTcDmt,
			LongName:        "Dmitrienko",
			ShortName:       "QTcDMT",
			Reference:       "Dmitrienko AA, Sides GD, Winters KJ, et al. Electrocardiogram reference ranges derived from a standardized clinical trial population. Drug Inf J. 2005;39:395-405.",
			Equation:        "QT/RR^0.413",
			Classification:  Power,
			PublicationYear: 2005,
			Base:            powerQTc(0.413),
		},
		{
			ID:              QTcRtha,
			LongName:        "Rautaharju (2014)",
			ShortName:       "QTcRTHa",
			Reference:       "Rautaharju PM, Mason JW, Akiyama T. New age- and sex-specific criteria for QT prolongation based on rate correction formulas that minimize bias at the upper normal limits. Int J Cardiol. 2014;174(3):535-540.",
			Equation:        "QT * (120 + HR) / 180",
			Classification:  Rational,
			PublicationYear: 2014,
			Base: func(qtSec, rrSec float64, _ Sex, _ Age) float64 {
				// (120 + 60) / 180 is exactly 1, so QTc == QT at 60 bpm.
				return qtSec * ((120 + SecToBpm(rrSec)) / 180)
			},
		},
		{
			ID:              QTcArr,
			LongName:        "Arrowood",
			ShortName:       "QTcARR",
			Reference:       "Arrowood JA, Kline J, Simpson PM, et al. Modulation of the QT interval: effects of graded exercise and reflex cardiovascular stimulation. J Appl Physiol. 1993;75(5):2217-2223.",
			Equation:        "QT + 304 - 492*e^(-0.008*HR)",
			Classification:  Exponential,
			PublicationYear: 1993,
			Base: func(qtSec, rrSec float64, _ Sex, _ Age) float64 {
				return qtSec + 0.304 - 0.492*math.Exp(-0.008*SecToBpm(rrSec))
			},
		},
	}
}

// DefaultFormulaRegistry returns a registry holding DefaultFormulas.
func DefaultFormulaRegistry() *FormulaRegistry {
	r, err := NewFormulaRegistry(DefaultFormulas()...)
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(err)
	}
	return r
}
