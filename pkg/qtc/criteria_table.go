package qtc

// Built-in criterion identifiers.
const (
	Schwartz1985   CriterionID = "schwartz1985"
	FDA2005        CriterionID = "fda2005"
	ESC2005        CriterionID = "esc2005"
	AHA2009        CriterionID = "aha2009"
	Goldenberg2006 CriterionID = "goldenberg2006"
	Schwartz1993   CriterionID = "schwartz1993"
	Gollob2011     CriterionID = "gollob2011"
	Mazzanti2014   CriterionID = "mazzanti2014"
)

// Goldenberg 2006 separates children (15 and younger) from adults.
var (
	childAge = &AgeGuard{Years: 15, Comparison: LessThanOrEqual}
	adultAge = &AgeGuard{Years: 15, Comparison: GreaterThan}
)

func msecRule(cmp Comparison, value float64, severity Severity) ThresholdRule {
	return ThresholdRule{Value: value, Units: Msec, Comparison: cmp, Severity: severity}
}

func withSex(r ThresholdRule, sex Sex) ThresholdRule {
	r.Sex = sex
	return r
}

func withAge(r ThresholdRule, guard *AgeGuard) ThresholdRule {
	g := *guard
	r.Age = &g
	return r
}

// DefaultCriteria returns the built-in criteria table. Each call returns fresh values.
func DefaultCriteria() []RuleSet {
	return []RuleSet{
		{
			ID:          Schwartz1985,
			Name:        "Schwartz 1985",
			Reference:   "Schwartz PJ. Idiopathic long QT syndrome: progress and questions. Am Heart J. 1985;109(2):399-411.",
			Description: "Prolonged QTc above 440 msec.",
			Rules: []ThresholdRule{
				msecRule(GreaterThan, 440, SeverityAbnormal),
			},
		},
		{
			ID:          FDA2005,
			Name:        "FDA 2005",
			Reference:   "U.S. Food and Drug Administration. E14 Clinical Evaluation of QT/QTc Interval Prolongation and Proarrhythmic Potential for Non-Antiarrhythmic Drugs. 2005.",
			Description: "Graded prolongation used in drug trials: mild above 450, moderate above 480, severe above 500 msec.",
			Rules: []ThresholdRule{
				msecRule(GreaterThan, 450, SeverityMild),
				msecRule(GreaterThan, 480, SeverityModerate),
				msecRule(GreaterThan, 500, SeveritySevere),
			},
		},
		{
			ID:          ESC2005,
			Name:        "ESC 2005",
			Reference:   "Task Force of the European Society of Cardiology. Guidelines on the management of patients with ventricular arrhythmias. 2005.",
			Description: "Prolonged QTc above 440 msec in men and above 460 msec in women; short QTc below 300 msec.",
			Rules: []ThresholdRule{
				withSex(msecRule(GreaterThan, 440, SeverityAbnormal), Male),
				withSex(msecRule(GreaterThan, 460, SeverityAbnormal), Female),
				msecRule(LessThan, 300, SeverityAbnormal),
			},
		},
		{
			ID:          AHA2009,
			Name:        "AHA/ACCF/HRS 2009",
			Reference:   "Rautaharju PM, Surawicz B, Gettes LS. AHA/ACCF/HRS recommendations for the standardization and interpretation of the electrocardiogram: part IV. J Am Coll Cardiol. 2009;53(11):982-991.",
			Description: "Prolonged QTc of 450 msec or more in men and 460 msec or more in women; short QTc of 390 msec or less.",
			Rules: []ThresholdRule{
				withSex(msecRule(GreaterThanOrEqual, 450, SeverityAbnormal), Male),
				withSex(msecRule(GreaterThanOrEqual, 460, SeverityAbnormal), Female),
				msecRule(LessThanOrEqual, 390, SeverityAbnormal),
			},
		},
		{
			ID:          Goldenberg2006,
			Name:        "Goldenberg 2006",
			Reference:   "Goldenberg I, Moss AJ, Zareba W. QT interval: how to measure it and what is \"normal\". J Cardiovasc Electrophysiol. 2006;17(3):333-336.",
			Description: "Age and sex specific ranges. Children 15 and under: borderline 440-460, prolonged above 460 msec. Adult men: borderline 430-450, prolonged above 450 msec. Adult women: borderline 450-470, prolonged above 470 msec.",
			Rules: []ThresholdRule{
				withAge(msecRule(GreaterThan, 460, SeverityAbnormal), childAge),
				withAge(msecRule(GreaterThanOrEqual, 440, SeverityBorderline), childAge),
				withAge(withSex(msecRule(GreaterThan, 450, SeverityAbnormal), Male), adultAge),
				withAge(withSex(msecRule(GreaterThanOrEqual, 430, SeverityBorderline), Male), adultAge),
				withAge(withSex(msecRule(GreaterThan, 470, SeverityAbnormal), Female), adultAge),
				withAge(withSex(msecRule(GreaterThanOrEqual, 450, SeverityBorderline), Female), adultAge),
			},
		},
		{
			ID:          Schwartz1993,
			Name:        "Schwartz 1993",
			Reference:   "Schwartz PJ, Moss AJ, Vincent GM, Crampton RS. Diagnostic criteria for the long QT syndrome. An update. Circulation. 1993;88(2):782-784.",
			Description: "Long QT syndrome diagnostic points: 480 msec or more scores 3, 460-470 msec scores 2, 450 msec in men scores 1.",
			Rules: []ThresholdRule{
				msecRule(GreaterThanOrEqual, 480, SeveritySevere),
				msecRule(GreaterThanOrEqual, 460, SeverityModerate),
				withSex(msecRule(GreaterThanOrEqual, 450, SeverityMild), Male),
			},
		},
		{
			ID:          Gollob2011,
			Name:        "Gollob 2011",
			Reference:   "Gollob MH, Redpath CJ, Roberts JD. The short QT syndrome: proposed diagnostic criteria. J Am Coll Cardiol. 2011;57(7):802-812.",
			Description: "Short QT syndrome diagnostic points: below 370 msec scores 1, below 350 msec scores 2, below 330 msec scores 3.",
			Rules: []ThresholdRule{
				msecRule(LessThan, 370, SeverityMild),
				msecRule(LessThan, 350, SeverityModerate),
				msecRule(LessThan, 330, SeveritySevere),
			},
		},
		{
			ID:          Mazzanti2014,
			Name:        "Mazzanti 2014",
			Reference:   "Mazzanti A, Kanthan A, Monteforte N, et al. Novel insight into the natural history of short QT syndrome. J Am Coll Cardiol. 2014;63(13):1300-1308.",
			Description: "Short QTc: 360 msec or less is borderline, 340 msec or less is abnormal.",
			Rules: []ThresholdRule{
				msecRule(LessThanOrEqual, 360, SeverityBorderline),
				msecRule(LessThanOrEqual, 340, SeverityAbnormal),
			},
		},
	}
}

// DefaultCriteriaRegistry returns a registry holding DefaultCriteria.
func DefaultCriteriaRegistry() *CriteriaRegistry {
	r, err := NewCriteriaRegistry(DefaultCriteria()...)
	if err != nil {
		panic(err)
	}
	return r
}
