package ml

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of the three calendar fields.
const DateLayout = "2006-01-02"

// RawInput is one form submission as typed by the user. Numeric answers are
// free text; dates use DateLayout and default to the submission day.
type RawInput struct {
	Name          string `json:"name"`
	Age           string `json:"age"`
	BMI           string `json:"bmi"`
	Cholesterol   string `json:"cholesterol"`
	Country       string `json:"country"`
	Gender        string `json:"gender"`
	FamilyHistory string `json:"family_history"`
	SmokingStatus string `json:"smoking_status"`
	TreatmentType string `json:"treatment_type"`
	CancerStage   string `json:"cancer_stage"`

	Hypertension string `json:"hypertension"`
	Asthma       string `json:"asthma"`
	Cirrhosis    string `json:"cirrhosis"`
	OtherCancer  string `json:"other_cancer"`

	DiagnosisDate      string `json:"diagnosis_date"`
	TreatmentStartDate string `json:"treatment_start_date"`
	TreatmentEndDate   string `json:"treatment_end_date"`
}

// ValidationError names the form field that could not be used.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Encoding is the encoder's output. TreatmentDelayDays and
// TreatmentDurationDays are derived from the dates but are not part of
// Vector: the trained model has no columns for them.
type Encoding struct {
	Vector                *FeatureVector
	TreatmentDelayDays    int
	TreatmentDurationDays int
}

// Encoder turns raw answers into the model's feature vector.
type Encoder struct {
	// Now is the submission clock; it bounds the accepted dates.
	Now func() time.Time
}

func NewEncoder() *Encoder {
	return &Encoder{Now: time.Now}
}

func (e *Encoder) Encode(in RawInput) (Encoding, error) {
	now := time.Now()
	if e != nil && e.Now != nil {
		now = e.Now()
	}

	age, err := parseNumber("age", in.Age)
	if err != nil {
		return Encoding{}, err
	}
	bmi, err := parseNumber("bmi", in.BMI)
	if err != nil {
		return Encoding{}, err
	}
	cholesterol, err := parseNumber("cholesterol", in.Cholesterol)
	if err != nil {
		return Encoding{}, err
	}

	diagnosis, err := parseDate("diagnosis_date", in.DiagnosisDate, now)
	if err != nil {
		return Encoding{}, err
	}
	start, err := parseDate("treatment_start_date", in.TreatmentStartDate, now)
	if err != nil {
		return Encoding{}, err
	}
	end, err := parseDate("treatment_end_date", in.TreatmentEndDate, now)
	if err != nil {
		return Encoding{}, err
	}

	vec := NewFeatureVector()
	vec.values[featureIndex[ColAge]] = age
	vec.values[featureIndex[ColBMI]] = bmi
	vec.values[featureIndex[ColCholesterol]] = cholesterol

	setFlag(vec, ColHypertension, isYes(in.Hypertension))
	setFlag(vec, ColAsthma, isYes(in.Asthma))
	setFlag(vec, ColCirrhosis, isYes(in.Cirrhosis))
	setFlag(vec, ColOtherCancer, isYes(in.OtherCancer))
	setFlag(vec, ColFamilyHistory, isYes(in.FamilyHistory))
	setFlag(vec, ColGenderMale, in.Gender == "Male")

	// Reference categories (Stage I, Current Smoker, Chemotherapy, Female and
	// any country outside the schema) leave their group all-zero.
	switch in.CancerStage {
	case "II", "III", "IV":
		setFlag(vec, stagePrefix+in.CancerStage, true)
	}
	switch in.SmokingStatus {
	case "Former Smoker", "Never Smoked", "Passive Smoker":
		setFlag(vec, smokingPrefix+in.SmokingStatus, true)
	}
	switch in.TreatmentType {
	case "Combined", "Radiation", "Surgery":
		setFlag(vec, treatmentPrefix+in.TreatmentType, true)
	}
	if col := countryPrefix + in.Country; in.Country != "" && vec.Has(col) {
		setFlag(vec, col, true)
	}

	return Encoding{
		Vector:                vec,
		TreatmentDelayDays:    daysBetween(diagnosis, start),
		TreatmentDurationDays: daysBetween(start, end),
	}, nil
}

func parseNumber(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ValidationError{Field: field, Reason: "required"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("invalid number %q", raw)}
	}
	return v, nil
}

func parseDate(field, raw string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return truncateDay(now), nil
	}
	d, err := time.ParseInLocation(DateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw)}
	}
	// both bounds are calendar days in now's zone
	lower := time.Date(MinDate.Year(), MinDate.Month(), MinDate.Day(), 0, 0, 0, 0, now.Location())
	if d.Before(lower) || d.After(now) {
		return time.Time{}, &ValidationError{Field: field, Reason: fmt.Sprintf("date %s outside %s..%s", s, MinDate.Format(DateLayout), now.Format(DateLayout))}
	}
	return d, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days, so DST shifts do not lose a day.
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func isYes(s string) bool {
	return s == "Yes"
}

func setFlag(vec *FeatureVector, name string, on bool) {
	if on {
		vec.values[featureIndex[name]] = 1
	}
}
