package training

import (
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
	"gorm.io/datatypes"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type JobModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	ModelName    string            `gorm:"column:model_name;index"`
	Dimension    int               `gorm:"column:dimension"`
	Config       datatypes.JSONMap `gorm:"column:config"`
	Status       string            `gorm:"column:status"`
	Metrics      datatypes.JSONMap `gorm:"column:metrics"`
	ArtifactPath string            `gorm:"column:artifact_path"`
	ErrorMessage string            `gorm:"column:error_message"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at"`
	StartedAt    *time.Time        `gorm:"column:started_at"`
	CompletedAt  *time.Time        `gorm:"column:completed_at"`
}

func (JobModel) TableName() string {
	return "training_jobs"
}

type CreateJobInput struct {
	ModelName string
	Dimension int
	Samples   linear.TrainingSet
	Options   linear.Options
	// WarmStart continues from the stored model of the same name, if any.
	WarmStart bool
}

// Job is the API view of a training job.
type Job struct {
	ID           uuid.UUID              `json:"id"`
	ModelName    string                 `json:"model_name"`
	Dimension    int                    `json:"dimension"`
	Config       map[string]interface{} `json:"config,omitempty"`
	Status       string                 `json:"status"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
	ArtifactPath string                 `json:"artifact_path,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

func toDomain(job *JobModel) Job {
	result := Job{
		ID:           job.ID,
		ModelName:    job.ModelName,
		Dimension:    job.Dimension,
		Status:       job.Status,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		ArtifactPath: job.ArtifactPath,
		ErrorMessage: job.ErrorMessage,
	}
	if job.Config != nil {
		result.Config = map[string]interface{}(job.Config)
	}
	if job.Metrics != nil {
		result.Metrics = map[string]interface{}(job.Metrics)
	}
	return result
}

func optionsConfig(input CreateJobInput) map[string]interface{} {
	return map[string]interface{}{
		"learning_rate":  input.Options.LearningRate,
		"epochs":         input.Options.Epochs,
		"regularization": input.Options.Regularization.String(),
		"strength":       input.Options.Strength,
		"samples":        len(input.Samples),
		"warm_start":     input.WarmStart,
	}
}
