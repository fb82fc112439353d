package training

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/synaptica-ai/classifier/pkg/ml/linear"
)

// DecodeSamples accepts a JSON array whose elements are either rows
// [x1, ..., xn, label] or objects {"features": [...], "label": y}.
func DecodeSamples(raw json.RawMessage, dim int) (linear.TrainingSet, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: samples must be a JSON array: %v", ErrInvalidInput, err)
	}
	data := make(linear.TrainingSet, 0, len(items))
	for i, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 {
			return nil, fmt.Errorf("%w: sample %d is empty", ErrInvalidInput, i)
		}
		var sample linear.Sample
		switch trimmed[0] {
		case '[':
			var row []float32
			if err := json.Unmarshal(trimmed, &row); err != nil {
				return nil, fmt.Errorf("%w: sample %d: %v", ErrInvalidInput, i, err)
			}
			if len(row) != dim+1 {
				return nil, fmt.Errorf("sample %d has %d columns, want %d: %w", i, len(row), dim+1, linear.ErrSizeMismatch)
			}
			sample = linear.Sample{Features: row[:dim:dim], Label: row[dim]}
		case '{':
			if err := json.Unmarshal(trimmed, &sample); err != nil {
				return nil, fmt.Errorf("%w: sample %d: %v", ErrInvalidInput, i, err)
			}
		default:
			return nil, fmt.Errorf("%w: sample %d must be an array or object", ErrInvalidInput, i)
		}
		data = append(data, sample)
	}
	return data, nil
}
