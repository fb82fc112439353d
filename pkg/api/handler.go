package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/synaptica-ai/classifier/pkg/common/logger"
	"github.com/synaptica-ai/classifier/pkg/events"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
	"github.com/synaptica-ai/classifier/pkg/observability/metrics"
	"github.com/synaptica-ai/classifier/pkg/registry"
	"github.com/synaptica-ai/classifier/pkg/serving"
	"github.com/synaptica-ai/classifier/pkg/training"
)

type TrainingService interface {
	Create(ctx context.Context, input training.CreateJobInput) (training.Job, error)
	Get(ctx context.Context, id uuid.UUID) (training.Job, error)
	List(ctx context.Context, modelName string, limit int) ([]training.Job, error)
}

type ModelRegistry interface {
	Save(ctx context.Context, name string, model *linear.Model) (string, error)
	Load(ctx context.Context, name string) (*linear.Model, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

type Classifier interface {
	Classify(ctx context.Context, name string, features []float32) (linear.Result, error)
	Invalidate(name string)
}

type PredictionRecorder interface {
	RecordPrediction(ctx context.Context, entry serving.PredictionLog) error
	Recent(ctx context.Context, model string, limit int) ([]serving.PredictionLog, error)
}

type Handler struct {
	training  TrainingService
	models    ModelRegistry
	predictor Classifier
	recorder  PredictionRecorder
	publisher events.Publisher
	defaults  linear.Options
}

// NewHandler wires the API. recorder and publisher may be nil.
func NewHandler(trainingService TrainingService, models ModelRegistry, predictor Classifier, recorder PredictionRecorder, publisher events.Publisher, defaults linear.Options) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handler{
		training:  trainingService,
		models:    models,
		predictor: predictor,
		recorder:  recorder,
		publisher: publisher,
		defaults:  defaults,
	}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/training/jobs", h.handleCreateJob).Methods(http.MethodPost)
	api.HandleFunc("/training/jobs", h.handleListJobs).Methods(http.MethodGet)
	api.HandleFunc("/training/jobs/{id}", h.handleGetJob).Methods(http.MethodGet)

	api.HandleFunc("/models", h.handleListModels).Methods(http.MethodGet)
	api.HandleFunc("/models/{name}", h.handleDownloadModel).Methods(http.MethodGet)
	api.HandleFunc("/models/{name}", h.handleUploadModel).Methods(http.MethodPut)
	api.HandleFunc("/models/{name}", h.handleDeleteModel).Methods(http.MethodDelete)
	api.HandleFunc("/models/{name}/info", h.handleModelInfo).Methods(http.MethodGet)
	api.HandleFunc("/models/{name}/classify", h.handleClassify).Methods(http.MethodPost)
	api.HandleFunc("/models/{name}/predictions", h.handleRecentPredictions).Methods(http.MethodGet)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type classifyRequest struct {
	Features []float32 `json:"features"`
}

type classifyResponse struct {
	Model      string  `json:"model"`
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	LatencyMs  float64 `json:"latency_ms"`
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := mux.Vars(r)["name"]

	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.predictor.Classify(r.Context(), name, req.Features)
	if err != nil {
		writeError(w, err)
		return
	}
	latency := time.Since(start)

	if h.recorder != nil {
		entry := serving.NewPredictionLog(name, req.Features, result, latency)
		if err := h.recorder.RecordPrediction(r.Context(), entry); err != nil {
			logger.Log.WithError(err).Warn("Failed to record prediction")
		}
	}

	writeJSON(w, http.StatusOK, classifyResponse{
		Model:      name,
		Label:      result.Label.String(),
		Confidence: result.Confidence,
		LatencyMs:  float64(latency.Microseconds()) / 1000.0,
	})
}

func (h *Handler) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil {
		writeJSON(w, http.StatusOK, []serving.PredictionLog{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.recorder.Recent(r.Context(), mux.Vars(r)["name"], limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrModelNotFound), errors.Is(err, training.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, linear.ErrSizeMismatch),
		errors.Is(err, linear.ErrDimensionMismatch),
		errors.Is(err, linear.ErrIOFailed),
		errors.Is(err, linear.ErrEmptyTrainingSet),
		errors.Is(err, linear.ErrInvalidRegularizationStrength),
		errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, training.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).Error("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
