package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/synaptica-ai/classifier/pkg/ml/linear"
	"gopkg.in/yaml.v3"
)

// TrainingProfile holds default hyperparameters. It is read from YAML:
//
//	learning_rate: 0.5
//	epochs: 200
//	regularization: l2
//	strength: 0.01
type TrainingProfile struct {
	LearningRate   float64 `yaml:"learning_rate" json:"learning_rate"`
	Epochs         int     `yaml:"epochs" json:"epochs"`
	Regularization string  `yaml:"regularization" json:"regularization"`
	Strength       float64 `yaml:"strength" json:"strength"`
}

// DefaultTrainingProfile mirrors linear.DefaultOptions, overridable through
// TRAIN_LEARNING_RATE, TRAIN_EPOCHS, TRAIN_REGULARIZATION and TRAIN_STRENGTH.
func DefaultTrainingProfile() TrainingProfile {
	defaults := linear.DefaultOptions()
	return TrainingProfile{
		LearningRate:   getFloatEnv("TRAIN_LEARNING_RATE", float64(defaults.LearningRate)),
		Epochs:         getIntEnv("TRAIN_EPOCHS", defaults.Epochs),
		Regularization: getEnv("TRAIN_REGULARIZATION", defaults.Regularization.String()),
		Strength:       getFloatEnv("TRAIN_STRENGTH", float64(defaults.Strength)),
	}
}

// LoadTrainingProfile reads path over the defaults. Fields missing from the
// file keep their default values. An empty path returns the defaults.
func LoadTrainingProfile(path string) (TrainingProfile, error) {
	profile := DefaultTrainingProfile()
	if path == "" {
		return profile, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return profile, err
	}
	if err := yaml.Unmarshal(content, &profile); err != nil {
		return TrainingProfile{}, fmt.Errorf("parse training profile %s: %w", path, err)
	}
	if _, err := profile.Options(); err != nil {
		return TrainingProfile{}, fmt.Errorf("training profile %s: %w", path, err)
	}
	return profile, nil
}

// Options converts the profile into trainer options.
func (p TrainingProfile) Options() (linear.Options, error) {
	reg, err := linear.ParseRegularization(p.Regularization)
	if err != nil {
		return linear.Options{}, err
	}
	if p.Strength < 0 {
		return linear.Options{}, linear.ErrInvalidRegularizationStrength
	}
	return linear.Options{
		LearningRate:   float32(p.LearningRate),
		Epochs:         p.Epochs,
		Regularization: reg,
		Strength:       float32(p.Strength),
	}, nil
}
