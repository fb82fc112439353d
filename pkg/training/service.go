package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/synaptica-ai/classifier/pkg/common/logger"
	"github.com/synaptica-ai/classifier/pkg/events"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
	"github.com/synaptica-ai/classifier/pkg/observability/metrics"
	"github.com/synaptica-ai/classifier/pkg/registry"
	"gorm.io/datatypes"
)

var ErrInvalidInput = errors.New("invalid training input")

type JobStore interface {
	Create(ctx context.Context, job *JobModel) error
	UpdateStatus(ctx context.Context, jobID uuid.UUID, status string, metrics map[string]interface{}, artifactPath, errorMessage string) error
	SetTimestamps(ctx context.Context, jobID uuid.UUID, startedAt, completedAt *time.Time) error
	Get(ctx context.Context, jobID uuid.UUID) (*JobModel, error)
	List(ctx context.Context, modelName string, limit int) ([]JobModel, error)
}

type ModelStore interface {
	Save(ctx context.Context, name string, model *linear.Model) (string, error)
	Load(ctx context.Context, name string) (*linear.Model, error)
}

// Service queues training jobs and runs them on a bounded pool of goroutines.
// Every job trains a model no other goroutine can see; it becomes visible
// only once the registry has stored it.
type Service struct {
	repo      JobStore
	models    ModelStore
	publisher events.Publisher
	workerSem chan struct{}
	hooks     []func(modelName string)
	wg        sync.WaitGroup
}

func NewService(repo JobStore, models ModelStore, publisher events.Publisher, maxWorkers int) *Service {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		models:    models,
		publisher: publisher,
		workerSem: make(chan struct{}, maxWorkers),
	}
}

// OnModelTrained registers a hook run after each successful job. Register
// hooks before the first Create.
func (s *Service) OnModelTrained(hook func(modelName string)) {
	s.hooks = append(s.hooks, hook)
}

// Validate applies the checks Create runs before queueing.
func Validate(input CreateJobInput) error {
	if err := registry.ValidateName(input.ModelName); err != nil {
		return err
	}
	if input.Dimension < 0 || input.Dimension > linear.MaxDimension {
		return fmt.Errorf("%w: dimension %d outside [0,%d]", ErrInvalidInput, input.Dimension, linear.MaxDimension)
	}
	if input.Options.Epochs < 0 {
		return fmt.Errorf("%w: negative epochs %d", ErrInvalidInput, input.Options.Epochs)
	}
	if len(input.Samples) == 0 {
		return linear.ErrEmptyTrainingSet
	}
	if input.Options.Strength < 0 || math32.IsNaN(input.Options.Strength) {
		return fmt.Errorf("strength %v: %w", input.Options.Strength, linear.ErrInvalidRegularizationStrength)
	}
	for i, sample := range input.Samples {
		if len(sample.Features) != input.Dimension {
			return fmt.Errorf("sample %d has %d features, want %d: %w", i, len(sample.Features), input.Dimension, linear.ErrSizeMismatch)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, input CreateJobInput) (Job, error) {
	if err := Validate(input); err != nil {
		return Job{}, err
	}
	now := time.Now().UTC()
	job := &JobModel{
		ID:        uuid.New(),
		ModelName: input.ModelName,
		Dimension: input.Dimension,
		Config:    datatypes.JSONMap(optionsConfig(input)),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return Job{}, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(job.ID, input)
	}()
	return toDomain(job), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	return toDomain(job), nil
}

func (s *Service) List(ctx context.Context, modelName string, limit int) ([]Job, error) {
	jobs, err := s.repo.List(ctx, modelName, limit)
	if err != nil {
		return nil, err
	}
	results := make([]Job, 0, len(jobs))
	for i := range jobs {
		results = append(results, toDomain(&jobs[i]))
	}
	return results, nil
}

// Wait blocks until every queued job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(jobID uuid.UUID, input CreateJobInput) {
	s.workerSem <- struct{}{}
	defer func() { <-s.workerSem }()

	ctx := context.Background()
	log := logger.Log.WithFields(map[string]interface{}{
		"job_id": jobID,
		"model":  input.ModelName,
	})
	metrics.JobStarted()

	start := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, jobID, StatusRunning, nil, "", ""); err != nil {
		log.WithError(err).Error("failed to mark job running")
	}
	if err := s.repo.SetTimestamps(ctx, jobID, &start, nil); err != nil {
		log.WithError(err).Error("failed to set start timestamp")
	}

	model, err := s.initialModel(ctx, input)
	if err != nil {
		s.failJob(ctx, jobID, input.ModelName, err)
		return
	}

	if err := linear.NewTrainer(model).Train(input.Samples, input.Options); err != nil {
		s.failJob(ctx, jobID, input.ModelName, fmt.Errorf("train: %w", err))
		return
	}
	evaluation, err := linear.Evaluate(model, input.Samples)
	if err != nil {
		s.failJob(ctx, jobID, input.ModelName, fmt.Errorf("evaluate: %w", err))
		return
	}

	artifactPath, err := s.models.Save(ctx, input.ModelName, model)
	if err != nil {
		s.failJob(ctx, jobID, input.ModelName, fmt.Errorf("artifact write failed: %w", err))
		return
	}

	result := map[string]interface{}{
		"loss":             evaluation.Loss,
		"accuracy":         evaluation.Accuracy,
		"samples":          len(input.Samples),
		"epochs":           input.Options.Epochs,
		"bias":             model.Bias(),
		"duration_seconds": time.Since(start).Seconds(),
	}
	if err := s.repo.UpdateStatus(ctx, jobID, StatusCompleted, result, artifactPath, ""); err != nil {
		log.WithError(err).Error("failed to mark job complete")
	}
	completed := time.Now().UTC()
	if err := s.repo.SetTimestamps(ctx, jobID, nil, &completed); err != nil {
		log.WithError(err).Error("failed to set completion timestamp")
	}
	metrics.JobCompleted(input.Options.Epochs)
	log.WithFields(map[string]interface{}{
		"loss":     evaluation.Loss,
		"accuracy": evaluation.Accuracy,
	}).Info("Model training completed")

	if err := s.publisher.Publish(ctx, events.TypeModelTrained, map[string]interface{}{
		"job_id":        jobID.String(),
		"model":         input.ModelName,
		"dimension":     model.Dim(),
		"artifact_path": artifactPath,
		"metrics":       result,
	}); err != nil {
		log.WithError(err).Warn("failed to publish training event")
	}
	for _, hook := range s.hooks {
		hook(input.ModelName)
	}
}

func (s *Service) initialModel(ctx context.Context, input CreateJobInput) (*linear.Model, error) {
	if !input.WarmStart {
		return linear.NewModel(input.Dimension), nil
	}
	model, err := s.models.Load(ctx, input.ModelName)
	if errors.Is(err, registry.ErrModelNotFound) {
		return linear.NewModel(input.Dimension), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load warm-start model: %w", err)
	}
	if model.Dim() != input.Dimension {
		return nil, fmt.Errorf("stored model has dimension %d, job has %d: %w", model.Dim(), input.Dimension, linear.ErrDimensionMismatch)
	}
	return model, nil
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, modelName string, err error) {
	logger.Log.WithError(err).WithField("job_id", jobID).Error("training job failed")
	metrics.JobFailed()
	_ = s.repo.UpdateStatus(ctx, jobID, StatusFailed, nil, "", err.Error())
	completed := time.Now().UTC()
	_ = s.repo.SetTimestamps(ctx, jobID, nil, &completed)
	if pubErr := s.publisher.Publish(ctx, events.TypeTrainingFailed, map[string]interface{}{
		"job_id": jobID.String(),
		"model":  modelName,
		"error":  err.Error(),
	}); pubErr != nil {
		logger.Log.WithError(pubErr).Warn("failed to publish failure event")
	}
}
