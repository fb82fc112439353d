package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/classifier/pkg/common/logger"
	"github.com/synaptica-ai/classifier/pkg/events"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
)

type modelInfo struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	Weights   []float32 `json:"weights"`
	Bias      float32   `json:"bias"`
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	names, err := h.models.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": names})
}

func (h *Handler) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	model, err := h.models.Load(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelInfo{
		Name:      name,
		Dimension: model.Dim(),
		Weights:   model.Weights(),
		Bias:      model.Bias(),
	})
}

func (h *Handler) handleDownloadModel(w http.ResponseWriter, r *http.Request) {
	model, err := h.models.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := model.Serialize(&buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Model-Dimension", strconv.Itoa(model.Dim()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Log.WithError(err).Warn("Failed to stream model")
	}
}

// handleUploadModel stores a serialized model. When the dimension query
// parameter is given, the blob must match it.
func (h *Handler) handleUploadModel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var (
		model *linear.Model
		err   error
	)
	if v := r.URL.Query().Get("dimension"); v != "" {
		dim, convErr := strconv.Atoi(v)
		if convErr != nil || dim < 0 || dim > linear.MaxDimension {
			http.Error(w, "Invalid dimension", http.StatusBadRequest)
			return
		}
		model = linear.NewModel(dim)
		err = model.Deserialize(r.Body)
	} else {
		model, err = linear.ReadModel(r.Body)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	path, err := h.models.Save(r.Context(), name, model)
	if err != nil {
		writeError(w, err)
		return
	}
	h.predictor.Invalidate(name)
	h.publish(r, events.TypeModelUploaded, map[string]interface{}{
		"model":         name,
		"dimension":     model.Dim(),
		"artifact_path": path,
	})
	writeJSON(w, http.StatusCreated, modelInfo{
		Name:      name,
		Dimension: model.Dim(),
		Weights:   model.Weights(),
		Bias:      model.Bias(),
	})
}

func (h *Handler) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.models.Delete(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	h.predictor.Invalidate(name)
	h.publish(r, events.TypeModelDeleted, map[string]interface{}{"model": name})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(r *http.Request, eventType string, data map[string]interface{}) {
	if err := h.publisher.Publish(r.Context(), eventType, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Warn("Failed to publish event")
	}
}
