package filter

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"volfields/internal/models"
)

const (
	// DefaultMaxError is the Gaussian tail mass allowed outside the kernel
	DefaultMaxError = 0.01

	// DefaultMaxKernelWidth caps the kernel length along one axis
	DefaultMaxKernelWidth = 32
)

// GaussianOptions tunes kernel truncation. Zero values select the defaults.
type GaussianOptions struct {
	MaxError       float64
	MaxKernelWidth int
}

func (o GaussianOptions) withDefaults() GaussianOptions {
	if o.MaxError <= 0 || o.MaxError >= 1 {
		o.MaxError = DefaultMaxError
	}
	if o.MaxKernelWidth <= 0 {
		o.MaxKernelWidth = DefaultMaxKernelWidth
	}
	return o
}

// GaussianKernel returns a normalised, symmetric kernel of length 2r+1 for
// the given variance in voxel units. The radius grows until the captured
// mass reaches 1-maxError or the kernel would exceed maxWidth+1 taps.
func GaussianKernel(variance float64, opts GaussianOptions) []float64 {
	opts = opts.withDefaults()
	if !(variance > 0) {
		return []float64{1}
	}

	dist := distuv.Normal{Mu: 0, Sigma: math.Sqrt(variance)}
	maxRadius := opts.MaxKernelWidth / 2

	half := []float64{dist.Prob(0)}
	mass := half[0]
	for r := 1; r <= maxRadius && mass < 1-opts.MaxError; r++ {
		w := dist.Prob(float64(r))
		half = append(half, w)
		mass += 2 * w
	}

	radius := len(half) - 1
	kernel := make([]float64, 2*radius+1)
	for r, w := range half {
		kernel[radius+r] = w
		kernel[radius-r] = w
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// GaussianBlur smooths vol with an isotropic Gaussian of the given variance,
// expressed in physical units. Each axis uses variance/spacing² in voxels.
// Borders replicate the edge voxel.
func GaussianBlur(vol *models.Volume, variance float64, opts GaussianOptions) *models.Volume {
	out := vol.Clone()
	if !(variance > 0) {
		return out
	}

	for axis := 0; axis < 3; axis++ {
		h := vol.Spacing[axis]
		kernel := GaussianKernel(variance/(h*h), opts)
		if len(kernel) == 1 {
			continue
		}
		convolveAxis(out, axis, kernel)
	}
	return out
}

// convolveAxis applies kernel along one axis in place.
func convolveAxis(vol *models.Volume, axis int, kernel []float64) {
	n := vol.Size[axis]
	stride := axisStride(vol.Size, axis)
	radius := len(kernel) / 2

	line := make([]float64, n)
	forEachLine(vol.Size, axis, func(base int) {
		for q := 0; q < n; q++ {
			line[q] = float64(vol.Data[base+q*stride])
		}
		for q := 0; q < n; q++ {
			var sum float64
			for t, w := range kernel {
				src := q + t - radius
				if src < 0 {
					src = 0
				} else if src >= n {
					src = n - 1
				}
				sum += w * line[src]
			}
			vol.Data[base+q*stride] = float32(sum)
		}
	})
}

// axisStride is the linear distance between neighbours along axis.
func axisStride(size [3]int, axis int) int {
	switch axis {
	case 0:
		return 1
	case 1:
		return size[0]
	default:
		return size[0] * size[1]
	}
}

// forEachLine calls fn with the linear offset of the first voxel of every
// line running along axis.
func forEachLine(size [3]int, axis int, fn func(base int)) {
	a, b := (axis+1)%3, (axis+2)%3
	sa, sb := axisStride(size, a), axisStride(size, b)
	for j := 0; j < size[b]; j++ {
		for i := 0; i < size[a]; i++ {
			fn(i*sa + j*sb)
		}
	}
}
