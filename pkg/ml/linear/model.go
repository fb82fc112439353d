package linear

import (
	"encoding/json"
	"fmt"
)

type Label int

const (
	LabelUnknown Label = iota
	LabelPositive
	LabelNegative
)

func (l Label) String() string {
	switch l {
	case LabelPositive:
		return "positive"
	case LabelNegative:
		return "negative"
	default:
		return "unknown"
	}
}

func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Result is the outcome of a single classification. Confidence is the
// probability assigned to Label.
type Result struct {
	Label      Label   `json:"label"`
	Confidence float32 `json:"confidence"`
}

// Model is a fixed-dimension logistic-regression model. It is not safe for
// concurrent use while being trained or deserialized into.
type Model struct {
	weights []float32
	bias    float32
}

// NewModel returns a zero-initialized model of dimension n.
func NewModel(n int) *Model {
	if n < 0 {
		panic(fmt.Sprintf("linear: negative model dimension %d", n))
	}
	return &Model{weights: make([]float32, n)}
}

// Dim returns the number of weights.
func (m *Model) Dim() int {
	return len(m.weights)
}

func (m *Model) Weight(i int) float32 {
	m.checkIndex(i)
	return m.weights[i]
}

func (m *Model) SetWeight(i int, value float32) {
	m.checkIndex(i)
	m.weights[i] = value
}

// Weights returns a copy of the weight vector.
func (m *Model) Weights() []float32 {
	out := make([]float32, len(m.weights))
	copy(out, m.weights)
	return out
}

func (m *Model) Bias() float32 {
	return m.bias
}

func (m *Model) SetBias(value float32) {
	m.bias = value
}

// Score returns sigmoid(w·x + b).
func (m *Model) Score(features []float32) (float32, error) {
	z, err := Dot(m.weights, features)
	if err != nil {
		return 0, err
	}
	return Sigmoid(z + m.bias), nil
}

// Classify thresholds the score at 0.5. A zero-dimension model always
// answers LabelUnknown with zero confidence.
func (m *Model) Classify(features []float32) (Result, error) {
	if len(m.weights) == 0 {
		return Result{Label: LabelUnknown}, nil
	}
	score, err := m.Score(features)
	if err != nil {
		return Result{}, err
	}
	if score >= 0.5 {
		return Result{Label: LabelPositive, Confidence: score}, nil
	}
	return Result{Label: LabelNegative, Confidence: 1 - score}, nil
}

func (m *Model) checkIndex(i int) {
	if i < 0 || i >= len(m.weights) {
		panic(fmt.Sprintf("linear: weight index %d out of range [0,%d)", i, len(m.weights)))
	}
}
