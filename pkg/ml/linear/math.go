package linear

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Sigmoid is the logistic function 1 / (1 + e^-x).
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// Dot returns the sum of the element-wise products of a and b.
func Dot(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dot %d x %d: %w", len(a), len(b), ErrSizeMismatch)
	}
	return dot(a, b), nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
