package models

import (
	"fmt"
)

// FieldError is the advisory diagnostic attached to a ScalarField after its
// values have been scanned. It never stops processing.
type FieldError int

const (
	// ErrorNone means the field crosses zero and contains no NaN.
	ErrorNone FieldError = iota

	// ErrorNaN means at least one voxel value was NaN.
	ErrorNaN

	// ErrorMaxMin means the field never crosses zero (min >= 0 or max <= 0),
	// so it has no usable zero level set.
	ErrorMaxMin
)

// String returns the tag used in reports: "none", "nan" or "maxmin".
func (e FieldError) String() string {
	switch e {
	case ErrorNone:
		return "none"
	case ErrorNaN:
		return "nan"
	case ErrorMaxMin:
		return "maxmin"
	default:
		return fmt.Sprintf("FieldError(%d)", int(e))
	}
}

// ScalarField is a dense 3D grid of float32 samples handed to the mesher.
// Data is stored x-fastest, then y, then z.
type ScalarField struct {
	// Data holds X*Y*Z samples, linear index i + X*(j + Y*k)
	Data []float32

	// X, Y, Z are the grid dimensions in voxels
	X, Y, Z int

	// Scale is the physical voxel size along each axis
	Scale [3]float64

	// Name identifies the field, usually derived from the source file name
	Name string

	// Warning is set when the smoothing width was large relative to the
	// smallest physical extent of the source volume
	Warning bool

	// Error is the diagnostic computed while filling Data
	Error FieldError
}

// NewScalarField allocates a zero-filled field with unit scale.
func NewScalarField(name string, x, y, z int) *ScalarField {
	return &ScalarField{
		Data:  make([]float32, x*y*z),
		X:     x,
		Y:     y,
		Z:     z,
		Scale: [3]float64{1, 1, 1},
		Name:  name,
	}
}

// Index returns the linear offset of voxel (i, j, k).
func (f *ScalarField) Index(i, j, k int) int {
	return i + f.X*(j+f.Y*k)
}

// At returns the value at voxel (i, j, k).
func (f *ScalarField) At(i, j, k int) float32 {
	return f.Data[f.Index(i, j, k)]
}

// Set stores v at voxel (i, j, k).
func (f *ScalarField) Set(i, j, k int, v float32) {
	f.Data[f.Index(i, j, k)] = v
}

// Dims returns the grid dimensions.
func (f *ScalarField) Dims() (int, int, int) {
	return f.X, f.Y, f.Z
}

// Len returns the number of voxels.
func (f *ScalarField) Len() int {
	return f.X * f.Y * f.Z
}

// Valid reports whether the data buffer matches the recorded dimensions.
func (f *ScalarField) Valid() bool {
	return f.X >= 0 && f.Y >= 0 && f.Z >= 0 && len(f.Data) == f.Len()
}
