package training

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
	"github.com/synaptica-ai/classifier/pkg/registry"
)

type memJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*JobModel
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[uuid.UUID]*JobModel)}
}

func (m *memJobStore) Create(ctx context.Context, job *JobModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *job
	m.jobs[job.ID] = &copy
	return nil
}

func (m *memJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string, metrics map[string]interface{}, artifactPath, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = status
	job.ArtifactPath = artifactPath
	job.ErrorMessage = errorMessage
	if metrics != nil {
		job.Metrics = metrics
	}
	return nil
}

func (m *memJobStore) SetTimestamps(ctx context.Context, id uuid.UUID, startedAt, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if startedAt != nil {
		job.StartedAt = startedAt
	}
	if completedAt != nil {
		job.CompletedAt = completedAt
	}
	return nil
}

func (m *memJobStore) Get(ctx context.Context, id uuid.UUID) (*JobModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	copy := *job
	return &copy, nil
}

func (m *memJobStore) List(ctx context.Context, modelName string, limit int) ([]JobModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []JobModel
	for _, job := range m.jobs {
		if modelName == "" || job.ModelName == modelName {
			jobs = append(jobs, *job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

func clusterSamples() linear.TrainingSet {
	return linear.TrainingSet{
		{Features: []float32{1.0, 1.0}, Label: 1},
		{Features: []float32{0.8, 1.2}, Label: 1},
		{Features: []float32{1.2, 0.9}, Label: 1},
		{Features: []float32{-1.0, -1.0}, Label: 0},
		{Features: []float32{-0.8, -1.2}, Label: 0},
		{Features: []float32{-1.2, -0.9}, Label: 0},
	}
}

func newTestService(t *testing.T) (*Service, *memJobStore, *registry.Store, *recordingPublisher) {
	t.Helper()
	store, err := registry.NewStore(t.TempDir(), nil, 0)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	jobs := newMemJobStore()
	publisher := &recordingPublisher{}
	return NewService(jobs, store, publisher, 2), jobs, store, publisher
}

func TestCreateRunsJobToCompletion(t *testing.T) {
	service, _, store, publisher := newTestService(t)
	var hooked []string
	service.OnModelTrained(func(name string) { hooked = append(hooked, name) })

	ctx := context.Background()
	job, err := service.Create(ctx, CreateJobInput{
		ModelName: "clusters",
		Dimension: 2,
		Samples:   clusterSamples(),
		Options:   linear.Options{LearningRate: 0.5, Epochs: 200},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.Status != StatusQueued {
		t.Fatalf("expected queued job, got %s", job.Status)
	}
	service.Wait()

	finished, err := service.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if finished.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", finished.Status, finished.ErrorMessage)
	}
	if finished.Metrics["accuracy"] != 1.0 {
		t.Fatalf("unexpected metrics %v", finished.Metrics)
	}
	if finished.ArtifactPath != store.Path("clusters") || finished.CompletedAt == nil {
		t.Fatalf("unexpected artifact/timestamps %+v", finished)
	}

	model, err := store.Load(ctx, "clusters")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	result, _ := model.Classify([]float32{0.5, 0.5})
	if result.Label != linear.LabelPositive {
		t.Fatalf("expected positive, got %v", result.Label)
	}
	if len(hooked) != 1 || hooked[0] != "clusters" {
		t.Fatalf("unexpected hooks %v", hooked)
	}
	if len(publisher.types) != 1 || publisher.types[0] != "model.trained" {
		t.Fatalf("unexpected events %v", publisher.types)
	}
}

func TestCreateValidatesBeforeQueueing(t *testing.T) {
	service, jobs, _, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct {
		name  string
		input CreateJobInput
		want  error
	}{
		{"empty", CreateJobInput{ModelName: "m", Dimension: 2, Options: linear.DefaultOptions()}, linear.ErrEmptyTrainingSet},
		{"strength", CreateJobInput{ModelName: "m", Dimension: 2, Samples: clusterSamples(), Options: linear.Options{Strength: -1}}, linear.ErrInvalidRegularizationStrength},
		{"ragged", CreateJobInput{ModelName: "m", Dimension: 3, Samples: clusterSamples()}, linear.ErrSizeMismatch},
		{"name", CreateJobInput{ModelName: "../m", Dimension: 2, Samples: clusterSamples()}, registry.ErrInvalidName},
		{"dimension", CreateJobInput{ModelName: "m", Dimension: -1, Samples: clusterSamples()}, ErrInvalidInput},
		{"huge dimension", CreateJobInput{ModelName: "m", Dimension: linear.MaxDimension + 1, Samples: clusterSamples()}, ErrInvalidInput},
		{"nan strength", CreateJobInput{ModelName: "m", Dimension: 2, Samples: clusterSamples(), Options: linear.Options{Strength: math32.NaN()}}, linear.ErrInvalidRegularizationStrength},
	}
	for _, tc := range cases {
		if _, err := service.Create(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(jobs.jobs) != 0 {
		t.Fatalf("rejected inputs were persisted")
	}
}

func TestWarmStartDimensionMismatchFailsJob(t *testing.T) {
	service, _, store, publisher := newTestService(t)
	ctx := context.Background()
	if _, err := store.Save(ctx, "clusters", linear.NewModel(3)); err != nil {
		t.Fatalf("save: %v", err)
	}

	job, err := service.Create(ctx, CreateJobInput{
		ModelName: "clusters",
		Dimension: 2,
		Samples:   clusterSamples(),
		Options:   linear.DefaultOptions(),
		WarmStart: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	service.Wait()

	failed, _ := service.Get(ctx, job.ID)
	if failed.Status != StatusFailed || failed.ErrorMessage == "" {
		t.Fatalf("expected failed job, got %+v", failed)
	}
	if len(publisher.types) != 1 || publisher.types[0] != "model.training_failed" {
		t.Fatalf("unexpected events %v", publisher.types)
	}
}

func TestWarmStartContinuesFromStoredModel(t *testing.T) {
	service, _, store, _ := newTestService(t)
	ctx := context.Background()
	seed := linear.NewModel(2)
	seed.SetWeight(0, 5)
	if _, err := store.Save(ctx, "clusters", seed); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := service.Create(ctx, CreateJobInput{
		ModelName: "clusters",
		Dimension: 2,
		Samples:   clusterSamples(),
		Options:   linear.Options{LearningRate: 0.1},
		WarmStart: true,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	service.Wait()

	model, err := store.Load(ctx, "clusters")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if model.Weight(0) != 5 {
		t.Fatalf("zero-epoch warm start should keep the stored weight, got %v", model.Weight(0))
	}
}

func TestListFiltersByModel(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "a"} {
		if _, err := service.Create(ctx, CreateJobInput{ModelName: name, Dimension: 2, Samples: clusterSamples(), Options: linear.DefaultOptions()}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	service.Wait()
	jobs, err := service.List(ctx, "a", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs for a, got %d", len(jobs))
	}
}

func TestDecodeSamples(t *testing.T) {
	raw := json.RawMessage(`[[1, 0.5, 1], {"features": [-1, -0.5], "label": 0}]`)
	data, err := DecodeSamples(raw, 2)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data) != 2 || data[0].Label != 1 || data[1].Features[1] != -0.5 {
		t.Fatalf("unexpected samples %+v", data)
	}

	if _, err := DecodeSamples(json.RawMessage(`[[1, 2]]`), 2); !errors.Is(err, linear.ErrSizeMismatch) {
		t.Fatalf("expected size mismatch, got %v", err)
	}
	if _, err := DecodeSamples(json.RawMessage(`{"x": 1}`), 2); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := DecodeSamples(json.RawMessage(`[3]`), 2); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
