package fields

import (
	"math"

	"volfields/internal/models"
)

// SmoothingWarningRatio is the sigma/extent ratio at which a field is flagged.
const SmoothingWarningRatio = 0.1

// CheckSize reports whether the smoothing width sigma is large compared with
// the smallest physical extent of vol. The result is advisory only.
func CheckSize(vol *models.Volume, sigma float64) bool {
	extent := vol.Extent()
	minExtent := math.Min(extent[0], math.Min(extent[1], extent[2]))
	return sigma/minExtent >= SmoothingWarningRatio
}

// Diagnostics tracks the value range of a field while it is filled and
// derives its FieldError. The zero value is ready to use.
type Diagnostics struct {
	min, max float32
	started  bool
	err      models.FieldError
}

// Observe feeds the next voxel value. The first value seeds min and max.
// The checks are exclusive: a sample that records the NaN error, or is
// below min, is not compared against max.
func (d *Diagnostics) Observe(v float32) {
	if !d.started {
		d.min, d.max = v, v
		d.started = true
	}

	if math.IsNaN(float64(v)) && d.err == models.ErrorNone {
		d.err = models.ErrorNaN
	} else if v < d.min {
		d.min = v
	} else if v > d.max {
		d.max = v
	}
}

// Range returns the min and max seen so far.
func (d *Diagnostics) Range() (float32, float32) {
	return d.min, d.max
}

// Result returns the field error. A field without NaN whose values never
// cross zero is tagged ErrorMaxMin.
func (d *Diagnostics) Result() models.FieldError {
	if d.err == models.ErrorNone && (d.min >= 0 || d.max <= 0) {
		return models.ErrorMaxMin
	}
	return d.err
}

// Diagnose scans values in order and returns their FieldError.
func Diagnose(values []float32) models.FieldError {
	var d Diagnostics
	for _, v := range values {
		d.Observe(v)
	}
	return d.Result()
}
