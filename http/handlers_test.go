package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lungsurv/ml"
	"lungsurv/survival"
)

type fakePredictor struct {
	res   survival.Result
	err   error
	got   ml.RawInput
	calls int
}

func (f *fakePredictor) Predict(ctx context.Context, in ml.RawInput) (survival.Result, error) {
	f.calls++
	f.got = in
	return f.res, f.err
}

// constClassifier answers every row with label.
type constClassifier struct {
	label float64
	calls int
}

func (c *constClassifier) FeatureNames() []string { return ml.FeatureNames() }

func (c *constClassifier) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	c.calls++
	out := make([]float64, len(rows))
	for i := range out {
		out[i] = c.label
	}
	return out, nil
}

func newTestHandler(p Predictor) http.Handler {
	return NewHandler(DefaultServerConfig(), p, nil)
}

func TestHealthHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(handleHealth)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := `{"status":"ok"}`
	if rr.Body.String() != expected+"\n" && rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestSchemaHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestHandler(&fakePredictor{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Features []string `json:"features"`
		Numeric  []string `json:"numeric"`
		Count    int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 44, body.Count)
	assert.Equal(t, []string{"age", "bmi", "cholesterol_level"}, body.Numeric)
	assert.Equal(t, ml.FeatureNames(), body.Features)
}

func TestFormHandler(t *testing.T) {
	h := NewHandlers(&fakePredictor{}, nil)
	h.now = func() time.Time { return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) }
	mux := http.NewServeMux()
	RegisterHandlers(mux, h)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/form", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Options ml.FormOptionSet `json:"options"`
		MaxDate string           `json:"max_date"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "2025-03-10", body.MaxDate)
	assert.Equal(t, []string{"I", "II", "III", "IV"}, body.Options.CancerStages)
	assert.Len(t, body.Options.Countries, 3)
}

func TestHandlePredictJSON(t *testing.T) {
	clf := &constClassifier{label: 1}
	svc := survival.NewService(nil, func() (ml.Classifier, error) { return clf, nil }, nil)

	body := `{"age":"65","bmi":"24.5","cholesterol":"180","gender":"Male","country":"Italy",
		"family_history":"Yes","cancer_stage":"II","smoking_status":"Never Smoked","treatment_type":"Surgery"}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	newTestHandler(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res survival.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, survival.SurvivalHigh, res.Outcome)
	assert.Equal(t, survival.MessageHigh, res.Message)
	assert.Equal(t, 1, clf.calls)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestHandlePredictForm(t *testing.T) {
	fake := &fakePredictor{res: survival.Result{Outcome: survival.SurvivalLow, Message: survival.MessageLow}}
	form := url.Values{
		"name":         {"Ana"},
		"age":          {"70"},
		"bmi":          {"31"},
		"cholesterol":  {"240"},
		"country":      {"Portugal"},
		"hypertension": {"Yes"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	newTestHandler(fake).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "70", fake.got.Age)
	assert.Equal(t, "Portugal", fake.got.Country)
	assert.Equal(t, "Yes", fake.got.Hypertension)
}

func TestHandlePredictValidationError(t *testing.T) {
	clf := &constClassifier{label: 1}
	svc := survival.NewService(nil, func() (ml.Classifier, error) { return clf, nil }, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"age":"","bmi":"20","cholesterol":"150"}`))
	rr := httptest.NewRecorder()
	newTestHandler(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "age", body.Field)
	assert.Zero(t, clf.calls)
}

func TestHandlePredictFailureIsGeneric(t *testing.T) {
	fake := &fakePredictor{err: &survival.PredictionError{Err: errors.New("X has 43 features, expecting 44")}}

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	newTestHandler(fake).ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, survival.GenericFailure, body.Error)
	assert.NotContains(t, rr.Body.String(), "43 features")
}

func TestHandlePredictBadBody(t *testing.T) {
	fake := &fakePredictor{}
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"age":`))
	rr := httptest.NewRecorder()
	newTestHandler(fake).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, fake.calls)
}

func TestMetricsCountSubmissions(t *testing.T) {
	h := NewHandlers(&fakePredictor{res: survival.Result{Outcome: survival.SurvivalHigh}}, nil)
	mux := http.NewServeMux()
	RegisterHandlers(mux, h)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"age":"60"}`))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(httptest.NewRecorder(), req)
	}
	bad := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{`))
	mux.ServeHTTP(httptest.NewRecorder(), bad)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `predictions_total{result="high"} 2`)
	assert.Contains(t, rr.Body.String(), `predictions_total{result="invalid"} 1`)
}
