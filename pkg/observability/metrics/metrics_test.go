package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWritePrometheus(t *testing.T) {
	before := jobsCompleted.Load()
	JobCompleted(50)

	rec := httptest.NewRecorder()
	WritePrometheus(rec)

	body := rec.Body.String()
	if !strings.Contains(body, "# TYPE classifier_training_jobs_completed_total counter") {
		t.Fatalf("missing type line:\n%s", body)
	}
	if jobsCompleted.Load() != before+1 {
		t.Fatalf("expected completed counter to advance")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %s", ct)
	}
}
