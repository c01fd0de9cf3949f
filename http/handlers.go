package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"lungsurv/ml"
	"lungsurv/monitoring"
	"lungsurv/survival"
)

// Predictor runs one submission through the model.
type Predictor interface {
	Predict(ctx context.Context, in ml.RawInput) (survival.Result, error)
}

type Handlers struct {
	predictor Predictor
	metrics   *monitoring.PredictionMetrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewHandlers(predictor Predictor, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		predictor: predictor,
		metrics:   monitoring.NewPredictionMetrics(monitoring.NewMetricsCollector()),
		logger:    logger,
		now:       time.Now,
	}
}

func RegisterHandlers(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/schema", handleSchema)
	mux.HandleFunc("GET /api/form", h.handleForm)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleSchema(w http.ResponseWriter, r *http.Request) {
	names := ml.FeatureNames()
	numeric := make([]string, 0, 3)
	for _, name := range names {
		if ml.NumericFeature(name) {
			numeric = append(numeric, name)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"features": names,
		"numeric":  numeric,
		"count":    len(names),
	})
}

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"options":  ml.FormOptions(),
		"max_date": h.now().Format(ml.DateLayout),
	})
}

func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, h.metrics.Collector().ExportPrometheus())
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := GetStartTime(r.Context())
	if start.IsZero() {
		start = time.Now()
	}
	in, err := decodeRawInput(r)
	if err != nil {
		h.metrics.Observe("invalid", time.Since(start))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.predictor.Predict(r.Context(), in)

	var verr *ml.ValidationError
	var perr *survival.PredictionError
	switch {
	case err == nil:
		h.metrics.Observe(string(res.Outcome), time.Since(start))
		writeJSON(w, http.StatusOK, res)
	case errors.As(err, &verr):
		h.metrics.Observe("invalid", time.Since(start))
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: validationMessage(verr), Field: verr.Field})
	case errors.As(err, &perr):
		h.metrics.Observe("error", time.Since(start))
		h.logger.Warn("prediction error",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(perr.Err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: perr.UserMessage()})
	default:
		h.metrics.Observe("error", time.Since(start))
		h.logger.Error("unexpected predict error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: survival.GenericFailure})
	}
}

func validationMessage(verr *ml.ValidationError) string {
	if verr.Reason == "required" {
		return "Please fill in all the required fields (Age, BMI, and Cholesterol)."
	}
	return "Invalid input: " + verr.Error()
}

// decodeRawInput accepts either a JSON body or an HTML form post.
func decodeRawInput(r *http.Request) (ml.RawInput, error) {
	var in ml.RawInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return in, err
		}
		return rawInputFromForm(r.PostForm), nil
	default:
		err := json.NewDecoder(r.Body).Decode(&in)
		return in, err
	}
}

func rawInputFromForm(v url.Values) ml.RawInput {
	return ml.RawInput{
		Name:               v.Get("name"),
		Age:                v.Get("age"),
		BMI:                v.Get("bmi"),
		Cholesterol:        v.Get("cholesterol"),
		Country:            v.Get("country"),
		Gender:             v.Get("gender"),
		FamilyHistory:      v.Get("family_history"),
		SmokingStatus:      v.Get("smoking_status"),
		TreatmentType:      v.Get("treatment_type"),
		CancerStage:        v.Get("cancer_stage"),
		Hypertension:       v.Get("hypertension"),
		Asthma:             v.Get("asthma"),
		Cirrhosis:          v.Get("cirrhosis"),
		OtherCancer:        v.Get("other_cancer"),
		DiagnosisDate:      v.Get("diagnosis_date"),
		TreatmentStartDate: v.Get("treatment_start_date"),
		TreatmentEndDate:   v.Get("treatment_end_date"),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
