package ml

import "time"

// Numeric columns carry the parsed input value unchanged.
const (
	ColAge         = "age"
	ColBMI         = "bmi"
	ColCholesterol = "cholesterol_level"
)

const (
	ColHypertension  = "hypertension"
	ColAsthma        = "asthma"
	ColCirrhosis     = "cirrhosis"
	ColOtherCancer   = "other_cancer"
	ColGenderMale    = "gender_Male"
	ColFamilyHistory = "family_history_Yes"

	countryPrefix   = "country_"
	stagePrefix     = "cancer_stage_Stage "
	smokingPrefix   = "smoking_status_"
	treatmentPrefix = "treatment_type_"
)

// schemaCountries is the country set the model was trained on. It is much
// wider than what the form offers; see FormOptions.
var schemaCountries = []string{
	"Belgium", "Bulgaria", "Croatia", "Cyprus", "Czech Republic", "Denmark",
	"Estonia", "Finland", "France", "Germany", "Greece", "Hungary", "Ireland",
	"Italy", "Latvia", "Lithuania", "Luxembourg", "Malta", "Netherlands",
	"Poland", "Portugal", "Romania", "Slovakia", "Slovenia", "Spain", "Sweden",
}

var featureNames = buildFeatureNames()

var featureIndex = func() map[string]int {
	idx := make(map[string]int, len(featureNames))
	for i, name := range featureNames {
		idx[name] = i
	}
	return idx
}()

func buildFeatureNames() []string {
	names := []string{
		ColAge, ColBMI, ColCholesterol,
		ColHypertension, ColAsthma, ColCirrhosis, ColOtherCancer,
		ColGenderMale,
	}
	for _, country := range schemaCountries {
		names = append(names, countryPrefix+country)
	}
	names = append(names,
		stagePrefix+"II", stagePrefix+"III", stagePrefix+"IV",
		ColFamilyHistory,
		smokingPrefix+"Former Smoker", smokingPrefix+"Never Smoked", smokingPrefix+"Passive Smoker",
		treatmentPrefix+"Combined", treatmentPrefix+"Radiation", treatmentPrefix+"Surgery",
	)
	return names
}

// FeatureNames returns the 44 training-time columns in order.
func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

// NumericFeature reports whether name holds a raw measurement rather than a
// 0/1 indicator.
func NumericFeature(name string) bool {
	return name == ColAge || name == ColBMI || name == ColCholesterol
}

// MinDate is the earliest date the form accepts.
var MinDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// FormOptionSet lists the selectable answers of the submission form.
type FormOptionSet struct {
	Countries      []string  `json:"countries"`
	Genders        []string  `json:"genders"`
	FamilyHistory  []string  `json:"family_history"`
	SmokingStatus  []string  `json:"smoking_status"`
	TreatmentTypes []string  `json:"treatment_types"`
	CancerStages   []string  `json:"cancer_stages"`
	YesNo          []string  `json:"yes_no"`
	MinDate        time.Time `json:"min_date"`
}

// FormOptions returns the choices the survey form offers. Only
// three countries are selectable although the schema encodes 26 of them;
// JSON clients may send any of them.
func FormOptions() FormOptionSet {
	return FormOptionSet{
		Countries:      []string{"Portugal", "Croatia", "Italy"},
		Genders:        []string{"Male", "Female"},
		FamilyHistory:  []string{"Yes", "No"},
		SmokingStatus:  []string{"Never Smoked", "Former Smoker", "Passive Smoker", "Current Smoker"},
		TreatmentTypes: []string{"Surgery", "Radiation", "Chemotherapy", "Combined"},
		CancerStages:   []string{"I", "II", "III", "IV"},
		YesNo:          []string{"No", "Yes"},
		MinDate:        MinDate,
	}
}
