package filter

import (
	"math"

	"volfields/internal/models"
)

// MinMax returns the smallest and largest voxel values. NaN samples are
// skipped unless every sample is NaN.
func MinMax(vol *models.Volume) (min, max float32) {
	if len(vol.Data) == 0 {
		return 0, 0
	}

	min = vol.Data[0]
	max = vol.Data[0]
	for _, v := range vol.Data[1:] {
		if v < min || math.IsNaN(float64(min)) {
			min = v
		}
		if v > max || math.IsNaN(float64(max)) {
			max = v
		}
	}
	return min, max
}

// Indicator isolates one label: voxels within tol of label become 1, all
// others 0. Label 0 is handled like any other label.
func Indicator(vol *models.Volume, label, tol float64) *models.Volume {
	lo := label - tol
	hi := label + tol

	out := make([]float32, len(vol.Data))
	for i, v := range vol.Data {
		if f := float64(v); f >= lo && f <= hi {
			out[i] = 1
		}
	}
	return vol.WithData(out)
}
