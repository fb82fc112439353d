package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	jobsStarted      atomic.Int64
	jobsCompleted    atomic.Int64
	jobsFailed       atomic.Int64
	epochsRun        atomic.Int64
	predictions      atomic.Int64
	predictionErrors atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
)

func JobStarted() { jobsStarted.Add(1) }
func JobFailed() { jobsFailed.Add(1) }
func PredictionFailed() { predictionErrors.Add(1) }
func PredictorCacheHit() { cacheHits.Add(1) }
func PredictorCacheMiss() { cacheMisses.Add(1) }
func PredictionServed() { predictions.Add(1) }

func JobCompleted(epochs int) {
	jobsCompleted.Add(1)
	epochsRun.Add(int64(epochs))
}

type sample struct {
	name, help, kind string
	value            int64
}

func snapshot() []sample {
	return []sample{
		{"classifier_training_jobs_started_total", "Training jobs picked up by a worker.", "counter", jobsStarted.Load()},
		{"classifier_training_jobs_completed_total", "Training jobs that produced a model.", "counter", jobsCompleted.Load()},
		{"classifier_training_jobs_failed_total", "Training jobs that ended in failure.", "counter", jobsFailed.Load()},
		{"classifier_training_epochs_total", "Gradient-descent epochs run by completed jobs.", "counter", epochsRun.Load()},
		{"classifier_predictions_total", "Classifications served.", "counter", predictions.Load()},
		{"classifier_prediction_errors_total", "Classification requests that failed.", "counter", predictionErrors.Load()},
		{"classifier_predictor_cache_hits_total", "Predictor lookups answered from memory.", "counter", cacheHits.Load()},
		{"classifier_predictor_cache_misses_total", "Predictor lookups that went to the registry.", "counter", cacheMisses.Load()},
	}
}

func write(w io.Writer) {
	for _, s := range snapshot() {
		fmt.Fprintf(w, "# HELP %s %s\n", s.name, s.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", s.name, s.kind)
		fmt.Fprintf(w, "%s %d\n", s.name, s.value)
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	write(w)
}
