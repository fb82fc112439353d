package linear

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Sample is one labeled feature vector. Label is 0 or 1.
type Sample struct {
	Features []float32 `json:"features"`
	Label    float32   `json:"label"`
}

// TrainingSet is iterated in slice order, which keeps training reproducible.
type TrainingSet []Sample

const preallocRows = 4096

// ReadTrainingSet decodes
// [uint64 cols][uint64 rows][rows x cols float32, row-major], little-endian,
// where cols must be dim+1 and the label is the last column of each row.
func ReadTrainingSet(r io.Reader, dim int) (TrainingSet, error) {
	if dim < 0 || dim > MaxDimension {
		return nil, fmt.Errorf("training data dimension %d outside [0,%d]: %w", dim, MaxDimension, ErrDimensionMismatch)
	}
	cols, err := readUint64(r, "training data column count")
	if err != nil {
		return nil, err
	}
	if cols != uint64(dim)+1 {
		return nil, fmt.Errorf("training data has %d columns, want %d: %w", cols, dim+1, ErrDimensionMismatch)
	}
	rows, err := readUint64(r, "training data row count")
	if err != nil {
		return nil, err
	}

	data := make(TrainingSet, 0, int(min(rows, preallocRows)))
	row := make([]byte, 4*cols)
	for i := uint64(0); i < rows; i++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, fmt.Errorf("read training data row %d: %w: %w", i, ErrIOFailed, err)
		}
		values := decodeFloats(row, int(cols))
		data = append(data, Sample{Features: values[:dim:dim], Label: values[dim]})
	}
	return data, nil
}

// WriteTrainingSet encodes data in the layout read by ReadTrainingSet.
func WriteTrainingSet(w io.Writer, data TrainingSet) error {
	dim := 0
	if len(data) > 0 {
		dim = len(data[0].Features)
	}
	cols := dim + 1
	buf := make([]byte, 16, 16+4*cols*len(data))
	binary.LittleEndian.PutUint64(buf, uint64(cols))
	binary.LittleEndian.PutUint64(buf[8:], uint64(len(data)))
	for i, s := range data {
		if len(s.Features) != dim {
			return fmt.Errorf("row %d has %d features, want %d: %w", i, len(s.Features), dim, ErrSizeMismatch)
		}
		for _, v := range s.Features {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(s.Label))
	}
	n, err := w.Write(buf)
	if err == nil && n < len(buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("write training data: %w: %w", ErrIOFailed, err)
	}
	return nil
}
