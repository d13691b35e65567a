package fields

import (
	"math"
	"testing"

	"volfields/internal/models"
)

func TestCheckSize(t *testing.T) {
	vol := models.NewVolume(10, 10, 10)

	tests := []struct {
		name    string
		spacing [3]float64
		sigma   float64
		want    bool
	}{
		{"small sigma", [3]float64{1, 1, 1}, 0.5, false},
		{"large sigma", [3]float64{1, 1, 1}, 2.0, true},
		{"exactly at ratio", [3]float64{1, 1, 1}, 1.0, true},
		{"thin axis", [3]float64{1, 1, 0.1}, 0.5, true},
		{"zero sigma", [3]float64{1, 1, 1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vol.Spacing = tt.spacing
			if got := CheckSize(vol, tt.sigma); got != tt.want {
				t.Errorf("CheckSize(sigma=%g, spacing=%v) = %v, want %v", tt.sigma, tt.spacing, got, tt.want)
			}
		})
	}
}

func TestDiagnose(t *testing.T) {
	nan := float32(math.NaN())

	tests := []struct {
		name   string
		values []float32
		want   models.FieldError
	}{
		{"nan takes precedence", []float32{1, 2, nan, 3}, models.ErrorNaN},
		{"leading nan", []float32{nan, 1, 2}, models.ErrorNaN},
		{"all non-negative", []float32{0, 1, 2, 3}, models.ErrorMaxMin},
		{"all non-positive", []float32{-3, -2, 0}, models.ErrorMaxMin},
		{"crosses zero", []float32{-1, 0.5, 2}, models.ErrorNone},
		{"empty", nil, models.ErrorMaxMin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diagnose(tt.values); got != tt.want {
				t.Errorf("Diagnose(%v) = %s, want %s", tt.values, got, tt.want)
			}
		})
	}
}

// A sample that lowers min is never compared against max.
func TestDiagnosticsBranchOrder(t *testing.T) {
	var d Diagnostics
	for _, v := range []float32{0, -5, 4} {
		d.Observe(v)
	}
	if min, max := d.Range(); min != -5 || max != 4 {
		t.Errorf("Range() = (%g, %g), want (-5, 4)", min, max)
	}

	// the sample that flags NaN skips min/max tracking for that iteration
	d = Diagnostics{}
	for _, v := range []float32{1, float32(math.NaN()), -2} {
		d.Observe(v)
	}
	if d.Result() != models.ErrorNaN {
		t.Errorf("Result() = %s, want nan", d.Result())
	}
	if min, _ := d.Range(); min != -2 {
		t.Errorf("min = %g, want -2", min)
	}
}
