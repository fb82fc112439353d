package linear

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MaxDimension bounds the dimension ReadModel and ReadTrainingSet will
// allocate for.
const MaxDimension = 1 << 24

// Serialize writes the model as
// [uint64 dimension][dimension x float32 weights][float32 bias], little-endian.
func (m *Model) Serialize(w io.Writer) error {
	buf := m.encode()
	n, err := w.Write(buf)
	if err == nil && n < len(buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("write model: %w: %w", ErrIOFailed, err)
	}
	return nil
}

// Deserialize replaces the weights and bias with a record read from r. The
// stored dimension must equal Dim(); on any error the model is unchanged.
func (m *Model) Deserialize(r io.Reader) error {
	n, err := readUint64(r, "model dimension")
	if err != nil {
		return err
	}
	if n != uint64(len(m.weights)) {
		return fmt.Errorf("model has dimension %d, stream has %d: %w", len(m.weights), n, ErrDimensionMismatch)
	}
	weights, bias, err := readBody(r, len(m.weights))
	if err != nil {
		return err
	}
	copy(m.weights, weights)
	m.bias = bias
	return nil
}

func (m *Model) MarshalBinary() ([]byte, error) {
	return m.encode(), nil
}

func (m *Model) UnmarshalBinary(data []byte) error {
	return m.Deserialize(bytes.NewReader(data))
}

// ReadModel decodes a serialized model of whatever dimension it declares.
func ReadModel(r io.Reader) (*Model, error) {
	n, err := readUint64(r, "model dimension")
	if err != nil {
		return nil, err
	}
	if n > MaxDimension {
		return nil, fmt.Errorf("model dimension %d exceeds %d: %w", n, MaxDimension, ErrDimensionMismatch)
	}
	weights, bias, err := readBody(r, int(n))
	if err != nil {
		return nil, err
	}
	return &Model{weights: weights, bias: bias}, nil
}

func (m *Model) encode() []byte {
	buf := make([]byte, 8+4*len(m.weights)+4)
	binary.LittleEndian.PutUint64(buf, uint64(len(m.weights)))
	off := 8
	for _, w := range m.weights {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(w))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(m.bias))
	return buf
}

func readBody(r io.Reader, n int) ([]float32, float32, error) {
	buf := make([]byte, 4*n+4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, 0, fmt.Errorf("read model body: %w: %w", ErrIOFailed, err)
	}
	weights := decodeFloats(buf[:4*n], n)
	bias := math.Float32frombits(binary.LittleEndian.Uint32(buf[4*n:]))
	return weights, bias, nil
}

func readUint64(r io.Reader, what string) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read %s: %w: %w", what, ErrIOFailed, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func decodeFloats(buf []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return out
}
