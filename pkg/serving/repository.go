package serving

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persistence model for serving analytics.
type PredictionLog struct {
	ID         uuid.UUID                     `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ModelName  string                        `gorm:"column:model_name;index" json:"model_name"`
	Features   datatypes.JSONType[[]float32] `gorm:"column:features" json:"features"`
	Label      string                        `gorm:"column:label" json:"label"`
	Confidence float64                       `gorm:"column:confidence" json:"confidence"`
	LatencyMs  float64                       `gorm:"column:latency_ms" json:"latency_ms"`
	CreatedAt  time.Time                     `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Repository handles prediction log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func NewPredictionLog(model string, features []float32, result linear.Result, latency time.Duration) PredictionLog {
	return PredictionLog{
		ID:         uuid.New(),
		ModelName:  model,
		Features:   datatypes.NewJSONType(features),
		Label:      result.Label.String(),
		Confidence: float64(result.Confidence),
		LatencyMs:  float64(latency.Microseconds()) / 1000.0,
		CreatedAt:  time.Now().UTC(),
	}
}

func (r *Repository) RecordPrediction(ctx context.Context, entry PredictionLog) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

// Recent returns the most recent prediction logs for model, newest first.
func (r *Repository) Recent(ctx context.Context, model string, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if model != "" {
		query = query.Where("model_name = ?", model)
	}
	var logs []PredictionLog
	err := query.Find(&logs).Error
	return logs, err
}
