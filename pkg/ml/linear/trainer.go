package linear

import (
	"fmt"
	"math"
	"strings"

	"github.com/chewxy/math32"
)

type Regularization int

const (
	RegularizationNone Regularization = iota
	RegularizationL1
	RegularizationL2
)

func (r Regularization) String() string {
	switch r {
	case RegularizationL1:
		return "l1"
	case RegularizationL2:
		return "l2"
	default:
		return "none"
	}
}

// ParseRegularization accepts "none", "l1" and "l2" in any case. An empty
// string means none.
func ParseRegularization(s string) (Regularization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RegularizationNone, nil
	case "l1":
		return RegularizationL1, nil
	case "l2":
		return RegularizationL2, nil
	}
	return RegularizationNone, fmt.Errorf("unknown regularization %q", s)
}

type Options struct {
	LearningRate   float32
	Epochs         int
	Regularization Regularization
	// Strength is ignored under RegularizationNone but must still be >= 0.
	Strength float32
}

func DefaultOptions() Options {
	return Options{LearningRate: 0.1, Epochs: 100}
}

type Metrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// Trainer runs full-batch gradient descent on a borrowed model. The caller
// must not read or write the model from elsewhere while Train runs.
type Trainer struct {
	model *Model
}

func NewTrainer(model *Model) *Trainer {
	return &Trainer{model: model}
}

// Train runs exactly opts.Epochs epochs of batch gradient descent on the
// averaged cross-entropy gradient. Inputs are validated before the model is
// touched, so a rejected call leaves it unchanged.
func (t *Trainer) Train(data TrainingSet, opts Options) error {
	if len(data) == 0 {
		return ErrEmptyTrainingSet
	}
	if opts.Strength < 0 || math32.IsNaN(opts.Strength) {
		return fmt.Errorf("strength %v: %w", opts.Strength, ErrInvalidRegularizationStrength)
	}
	n := t.model.Dim()
	for i, sample := range data {
		if len(sample.Features) != n {
			return fmt.Errorf("sample %d has %d features, model has %d: %w", i, len(sample.Features), n, ErrSizeMismatch)
		}
	}

	weights := t.model.weights
	grad := make([]float32, n)
	m := float32(len(data))

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for i := range grad {
			grad[i] = 0
		}
		var biasGrad float32

		for _, sample := range data {
			prediction := Sigmoid(dot(weights, sample.Features) + t.model.bias)
			err := prediction - sample.Label
			for i, x := range sample.Features {
				grad[i] += err * x
			}
			biasGrad += err
		}

		for i := range weights {
			g := grad[i] / m
			switch opts.Regularization {
			case RegularizationL2:
				g += opts.Strength * weights[i]
			case RegularizationL1:
				if weights[i] > 0 {
					g += opts.Strength
				} else if weights[i] < 0 {
					g -= opts.Strength
				}
			}
			weights[i] -= opts.LearningRate * g
		}
		t.model.bias -= opts.LearningRate * (biasGrad / m)
	}
	return nil
}

// Evaluate reports the mean cross-entropy loss and the thresholded accuracy
// of m over data.
func Evaluate(m *Model, data TrainingSet) (Metrics, error) {
	if len(data) == 0 {
		return Metrics{}, ErrEmptyTrainingSet
	}
	var loss float64
	var correct int
	for i, sample := range data {
		p, err := m.Score(sample.Features)
		if err != nil {
			return Metrics{}, fmt.Errorf("sample %d: %w", i, err)
		}
		prediction := float64(p)
		label := float64(sample.Label)
		loss += -label*math.Log(prediction+1e-9) - (1-label)*math.Log(1-prediction+1e-9)
		if (prediction >= 0.5 && label == 1) || (prediction < 0.5 && label == 0) {
			correct++
		}
	}
	n := float64(len(data))
	return Metrics{Loss: loss / n, Accuracy: float64(correct) / n}, nil
}
