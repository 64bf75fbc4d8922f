// Package tensor defines the weight representation exchanged between agents
// and the coordinator. A model is a map of named layers, each layer one of
// three shapes: a scalar, a vector or a matrix. Keeping the variant closed
// makes flatten, hash and aggregation total functions.
package tensor

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"github.com/absmach/colearn/pkg/errors"
)

type Kind uint8

const (
	Scalar Kind = iota
	Vector
	Matrix
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	case Matrix:
		return "matrix"
	default:
		return "unknown"
	}
}

type Tensor struct {
	Kind   Kind        `json:"kind"`
	Scalar float64     `json:"scalar,omitempty"`
	Vector []float64   `json:"vector,omitempty"`
	Matrix [][]float64 `json:"matrix,omitempty"`
}

func FromScalar(v float64) Tensor {
	return Tensor{Kind: Scalar, Scalar: v}
}

func FromVector(v []float64) Tensor {
	return Tensor{Kind: Vector, Vector: v}
}

func FromMatrix(m [][]float64) Tensor {
	return Tensor{Kind: Matrix, Matrix: m}
}

// Size returns the number of scalar leaves in the tensor.
func (t Tensor) Size() int {
	switch t.Kind {
	case Scalar:
		return 1
	case Vector:
		return len(t.Vector)
	case Matrix:
		n := 0
		for _, row := range t.Matrix {
			n += len(row)
		}

		return n
	default:
		return 0
	}
}

// Map returns a copy of the tensor with fn applied to every leaf.
func (t Tensor) Map(fn func(float64) float64) Tensor {
	switch t.Kind {
	case Scalar:
		return FromScalar(fn(t.Scalar))
	case Vector:
		out := make([]float64, len(t.Vector))
		for i, v := range t.Vector {
			out[i] = fn(v)
		}

		return FromVector(out)
	case Matrix:
		out := make([][]float64, len(t.Matrix))
		for i, row := range t.Matrix {
			out[i] = make([]float64, len(row))
			for j, v := range row {
				out[i][j] = fn(v)
			}
		}

		return FromMatrix(out)
	default:
		return t
	}
}

func (t Tensor) sameShape(o Tensor) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Vector:
		return len(t.Vector) == len(o.Vector)
	case Matrix:
		if len(t.Matrix) != len(o.Matrix) {
			return false
		}
		for i := range t.Matrix {
			if len(t.Matrix[i]) != len(o.Matrix[i]) {
				return false
			}
		}
	}

	return true
}

// Weights is a named collection of layers keyed by layer name.
type Weights map[string]Tensor

// Layers returns the layer names in lexical order. Every operation that walks
// a weight structure iterates in this order so hashes and flattened vectors
// are reproducible.
func (w Weights) Layers() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Flatten concatenates every scalar leaf into a single vector, layers in
// lexical order, matrices row-major.
func (w Weights) Flatten() []float64 {
	var out []float64
	for _, name := range w.Layers() {
		t := w[name]
		switch t.Kind {
		case Scalar:
			out = append(out, t.Scalar)
		case Vector:
			out = append(out, t.Vector...)
		case Matrix:
			for _, row := range t.Matrix {
				out = append(out, row...)
			}
		}
	}

	return out
}

// Hash returns the hex-encoded SHA-256 digest of the canonical serialization:
// layer names in lexical order, each followed by its kind tag and the IEEE 754
// bit patterns of its leaves.
func (w Weights) Hash() string {
	h := sha256.New()
	var buf [8]byte
	for _, name := range w.Layers() {
		h.Write([]byte(name))
		t := w[name]
		h.Write([]byte{byte(t.Kind)})
		switch t.Kind {
		case Scalar:
			binary.BigEndian.PutUint64(buf[:], math.Float64bits(t.Scalar))
			h.Write(buf[:])
		case Vector:
			for _, v := range t.Vector {
				binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
				h.Write(buf[:])
			}
		case Matrix:
			for _, row := range t.Matrix {
				for _, v := range row {
					binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
					h.Write(buf[:])
				}
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Map applies fn to every leaf of every layer and returns the new structure.
func (w Weights) Map(fn func(float64) float64) Weights {
	out := make(Weights, len(w))
	for name, t := range w {
		out[name] = t.Map(fn)
	}

	return out
}

// Clone returns a deep copy.
func (w Weights) Clone() Weights {
	return w.Map(func(v float64) float64 { return v })
}

func sameShape(ws []Weights) error {
	if len(ws) == 0 {
		return errors.ErrInvalidData
	}
	first := ws[0]
	for _, w := range ws[1:] {
		if len(w) != len(first) {
			return errors.ErrInvalidData
		}
		for name, t := range first {
			o, ok := w[name]
			if !ok || !t.sameShape(o) {
				return errors.ErrInvalidData
			}
		}
	}

	return nil
}

// WeightedSum combines weight structures leaf by leaf using the given
// coefficients. All structures must share the same shape.
func WeightedSum(ws []Weights, coefs []float64) (Weights, error) {
	if len(ws) != len(coefs) {
		return nil, errors.ErrInvalidData
	}
	if err := sameShape(ws); err != nil {
		return nil, err
	}

	out := ws[0].Map(func(v float64) float64 { return v * coefs[0] })
	for i := 1; i < len(ws); i++ {
		c := coefs[i]
		for name, t := range ws[i] {
			acc := out[name]
			switch t.Kind {
			case Scalar:
				acc.Scalar += t.Scalar * c
			case Vector:
				for j, v := range t.Vector {
					acc.Vector[j] += v * c
				}
			case Matrix:
				for r, row := range t.Matrix {
					for j, v := range row {
						acc.Matrix[r][j] += v * c
					}
				}
			}
			out[name] = acc
		}
	}

	return out, nil
}

// Median combines weight structures by taking the element-wise median across
// all of them. All structures must share the same shape.
func Median(ws []Weights) (Weights, error) {
	if err := sameShape(ws); err != nil {
		return nil, err
	}

	out := make(Weights, len(ws[0]))
	for name, t := range ws[0] {
		switch t.Kind {
		case Scalar:
			col := make([]float64, len(ws))
			for i, w := range ws {
				col[i] = w[name].Scalar
			}
			out[name] = FromScalar(median(col))
		case Vector:
			vec := make([]float64, len(t.Vector))
			col := make([]float64, len(ws))
			for j := range t.Vector {
				for i, w := range ws {
					col[i] = w[name].Vector[j]
				}
				vec[j] = median(col)
			}
			out[name] = FromVector(vec)
		case Matrix:
			mat := make([][]float64, len(t.Matrix))
			col := make([]float64, len(ws))
			for r, row := range t.Matrix {
				mat[r] = make([]float64, len(row))
				for j := range row {
					for i, w := range ws {
						col[i] = w[name].Matrix[r][j]
					}
					mat[r][j] = median(col)
				}
			}
			out[name] = FromMatrix(mat)
		}
	}

	return out, nil
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// L2Norm returns the Euclidean norm of the vector.
func L2Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}

	return math.Sqrt(sum)
}

// EuclideanDistance returns the L2 distance between two equal-length vectors.
// Vectors of mismatched length are treated as maximally distant.
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between two equal-length
// vectors, or 0 when either has zero norm or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	dot, na, nb := 0.0, 0.0, 0.0
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Mean returns the arithmetic mean of the values, or def when empty.
func Mean(vals []float64, def float64) float64 {
	if len(vals) == 0 {
		return def
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}

	return sum / float64(len(vals))
}

// StdDev returns the population standard deviation of the values.
func StdDev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := Mean(vals, 0)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(vals)))
}
