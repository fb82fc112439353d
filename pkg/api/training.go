package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
	"github.com/synaptica-ai/classifier/pkg/training"
)

type createJobRequest struct {
	ModelName      string          `json:"model_name"`
	Dimension      int             `json:"dimension"`
	Samples        json.RawMessage `json:"samples"`
	LearningRate   *float32        `json:"learning_rate"`
	Epochs         *int            `json:"epochs"`
	Regularization *string         `json:"regularization"`
	Strength       *float32        `json:"strength"`
	WarmStart      bool            `json:"warm_start"`
}

// handleCreateJob accepts either a JSON request or a binary training-data
// body with the parameters in the query string.
func (h *Handler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var (
		input training.CreateJobInput
		err   error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/octet-stream") {
		input, err = h.binaryJobInput(r)
	} else {
		input, err = h.jsonJobInput(r)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := h.training.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *Handler) jsonJobInput(r *http.Request) (training.CreateJobInput, error) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return training.CreateJobInput{}, fmt.Errorf("%w: %v", training.ErrInvalidInput, err)
	}
	if len(req.Samples) == 0 {
		return training.CreateJobInput{}, linear.ErrEmptyTrainingSet
	}
	samples, err := training.DecodeSamples(req.Samples, req.Dimension)
	if err != nil {
		return training.CreateJobInput{}, err
	}

	opts := h.defaults
	if req.LearningRate != nil {
		opts.LearningRate = *req.LearningRate
	}
	if req.Epochs != nil {
		opts.Epochs = *req.Epochs
	}
	if req.Regularization != nil {
		reg, err := linear.ParseRegularization(*req.Regularization)
		if err != nil {
			return training.CreateJobInput{}, fmt.Errorf("%w: %v", training.ErrInvalidInput, err)
		}
		opts.Regularization = reg
	}
	if req.Strength != nil {
		opts.Strength = *req.Strength
	}

	return training.CreateJobInput{
		ModelName: req.ModelName,
		Dimension: req.Dimension,
		Samples:   samples,
		Options:   opts,
		WarmStart: req.WarmStart,
	}, nil
}

func (h *Handler) binaryJobInput(r *http.Request) (training.CreateJobInput, error) {
	query := r.URL.Query()
	invalid := func(field string, err error) error {
		return fmt.Errorf("%w: %s: %v", training.ErrInvalidInput, field, err)
	}

	dim, err := strconv.Atoi(query.Get("dimension"))
	if err != nil {
		return training.CreateJobInput{}, invalid("dimension", err)
	}
	if dim < 0 || dim > linear.MaxDimension {
		return training.CreateJobInput{}, invalid("dimension", fmt.Errorf("%d outside [0,%d]", dim, linear.MaxDimension))
	}
	opts := h.defaults
	if v := query.Get("learning_rate"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return training.CreateJobInput{}, invalid("learning_rate", err)
		}
		opts.LearningRate = float32(f)
	}
	if v := query.Get("epochs"); v != "" {
		if opts.Epochs, err = strconv.Atoi(v); err != nil {
			return training.CreateJobInput{}, invalid("epochs", err)
		}
	}
	if v := query.Get("regularization"); v != "" {
		if opts.Regularization, err = linear.ParseRegularization(v); err != nil {
			return training.CreateJobInput{}, invalid("regularization", err)
		}
	}
	if v := query.Get("strength"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return training.CreateJobInput{}, invalid("strength", err)
		}
		opts.Strength = float32(f)
	}
	warm, _ := strconv.ParseBool(query.Get("warm_start"))

	samples, err := linear.ReadTrainingSet(r.Body, dim)
	if err != nil {
		return training.CreateJobInput{}, err
	}
	return training.CreateJobInput{
		ModelName: query.Get("model_name"),
		Dimension: dim,
		Samples:   samples,
		Options:   opts,
		WarmStart: warm,
	}, nil
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := h.training.List(r.Context(), r.URL.Query().Get("model"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	job, err := h.training.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
