// Package fields converts label and intensity volumes into the smoothed
// scalar fields consumed by the mesher, and writes fields back to disk.
package fields

import (
	"fmt"
	"log"
	"math"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"volfields/internal/models"
	"volfields/pkg/filter"
	"volfields/pkg/volumeio"
)

const (
	// DefaultLabelTolerance is the half width of the window that isolates a label
	DefaultLabelTolerance = 0.001

	// levelBand offsets the inside/outside values around the isosurface level
	levelBand = 0.1
)

// Params controls field extraction.
type Params struct {
	// Sigma is the Gaussian smoothing width in physical units; the blur
	// variance is Sigma².
	Sigma float64

	// NumCores bounds how many labels or files are processed at once.
	NumCores int

	// LabelTolerance is the half width of the window around each label value.
	LabelTolerance float64

	// SkipBackground drops label 0 from indicator extraction.
	SkipBackground bool

	// MaxLabels rejects segmentations whose label range is wider than this.
	// Zero means no limit.
	MaxLabels int

	// Verbose prints progress for every field.
	Verbose bool

	// Gaussian tunes kernel truncation.
	Gaussian filter.GaussianOptions
}

// Extractor runs the indicator and raw field pipelines.
type Extractor struct {
	params Params
}

// NewExtractor creates an extractor, filling unset parameters with defaults.
func NewExtractor(params Params) *Extractor {
	if params.NumCores < 1 {
		params.NumCores = runtime.NumCPU()
	}
	if params.LabelTolerance <= 0 {
		params.LabelTolerance = DefaultLabelTolerance
	}
	return &Extractor{params: params}
}

// Params returns the effective parameters.
func (e *Extractor) Params() Params {
	return e.params
}

// IndicatorFields builds one signed distance field per label found in the
// segmentation at path. Every integer between the smallest and largest
// label is processed, present or not. Fields are returned in label order,
// named "<file base name><label>", negative inside the label.
func (e *Extractor) IndicatorFields(path string) ([]*models.ScalarField, error) {
	e.logf("Loading segmentation %s...\n", path)
	vol, err := volumeio.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read segmentation: %w", err)
	}

	minLabel, maxLabel := filter.MinMax(vol)
	lo, hi, err := e.labelBounds(float64(minLabel), float64(maxLabel))
	if err != nil {
		return nil, fmt.Errorf("segmentation %s: %w", path, err)
	}
	labels := e.labelRange(lo, hi)
	e.logf("Found labels %d..%d in %dx%dx%d volume\n",
		lo, hi, vol.Size[0], vol.Size[1], vol.Size[2])

	base := FieldName(path)
	fields := make([]*models.ScalarField, len(labels))

	var g errgroup.Group
	g.SetLimit(e.params.NumCores)
	for i, label := range labels {
		i, label := i, label
		g.Go(func() error {
			fields[i] = e.indicatorField(vol, base, label)
			e.report(fields[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fields, nil
}

// labelBounds truncates the label extremes to integers. The label count is
// checked against MaxLabels in floating point so that nothing is allocated
// for a range that will be rejected.
func (e *Extractor) labelBounds(minLabel, maxLabel float64) (int, int, error) {
	if math.IsNaN(minLabel) || math.IsNaN(maxLabel) {
		return 0, 0, fmt.Errorf("no finite labels")
	}
	if math.IsInf(minLabel, 0) || math.IsInf(maxLabel, 0) {
		return 0, 0, fmt.Errorf("non-finite label value (min %v, max %v)", minLabel, maxLabel)
	}
	lo, hi := math.Trunc(minLabel), math.Trunc(maxLabel)
	if lo < math.MinInt32 || hi > math.MaxInt32 {
		return 0, 0, fmt.Errorf("labels %g..%g outside the supported integer range", lo, hi)
	}

	count := hi - lo + 1
	if e.params.SkipBackground && lo <= 0 && hi >= 0 {
		count--
	}
	if e.params.MaxLabels > 0 && count > float64(e.params.MaxLabels) {
		return 0, 0, fmt.Errorf("spans %.0f labels (%.0f..%.0f), limit is %d",
			count, lo, hi, e.params.MaxLabels)
	}
	return int(lo), int(hi), nil
}

func (e *Extractor) labelRange(lo, hi int) []int {
	var labels []int
	for l := lo; l <= hi; l++ {
		if l == 0 && e.params.SkipBackground {
			continue
		}
		labels = append(labels, l)
	}
	return labels
}

// indicatorField isolates label, smooths it and converts it to a signed
// distance field around the halfway level of the smoothed mask.
func (e *Extractor) indicatorField(vol *models.Volume, base string, label int) *models.ScalarField {
	sigma := e.params.Sigma

	mask := filter.Indicator(vol, float64(label), e.params.LabelTolerance)
	warning := CheckSize(mask, sigma)

	blurred := filter.GaussianBlur(mask, sigma*sigma, e.params.Gaussian)
	mn, mx := filter.MinMax(blurred)
	md := (mx + mn) / 2

	dist := filter.SignedDistance(blurred, md+levelBand, md-levelBand)

	field := models.NewScalarField(fmt.Sprintf("%s%d", base, label), dist.Size[0], dist.Size[1], dist.Size[2])
	field.Warning = warning
	field.Scale = dist.Spacing

	var diag Diagnostics
	for i, v := range dist.Data {
		field.Data[i] = -v
		diag.Observe(v)
	}
	field.Error = diag.Result()
	return field
}

// RawFields smooths each volume in paths into a field named after the file.
// Values keep their sign. The first file that fails to decode aborts the load.
func (e *Extractor) RawFields(paths []string) ([]*models.ScalarField, error) {
	fields := make([]*models.ScalarField, len(paths))

	var g errgroup.Group
	g.SetLimit(e.params.NumCores)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			field, err := e.rawField(path)
			if err != nil {
				return fmt.Errorf("failed to load field %s: %w", path, err)
			}
			fields[i] = field
			e.report(field)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fields, nil
}

func (e *Extractor) rawField(path string) (*models.ScalarField, error) {
	e.logf("Loading field %s...\n", path)
	vol, err := volumeio.Read(path)
	if err != nil {
		return nil, err
	}

	sigma := e.params.Sigma
	warning := CheckSize(vol, sigma)
	blurred := filter.GaussianBlur(vol, sigma*sigma, e.params.Gaussian)

	field := models.NewScalarField(FieldName(path), blurred.Size[0], blurred.Size[1], blurred.Size[2])
	field.Warning = warning
	field.Scale = blurred.Spacing

	var diag Diagnostics
	for i, v := range blurred.Data {
		field.Data[i] = v
		diag.Observe(v)
	}
	field.Error = diag.Result()
	return field, nil
}

// FieldName strips the directory and the last extension from path.
func FieldName(path string) string {
	name := filepath.Base(path)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}

func (e *Extractor) logf(format string, args ...interface{}) {
	if e.params.Verbose {
		fmt.Printf(format, args...)
	}
}

func (e *Extractor) report(f *models.ScalarField) {
	e.logf("Built field %s (%dx%dx%d)\n", f.Name, f.X, f.Y, f.Z)
	if f.Warning {
		log.Printf("Warning: field %s: sigma %.3g is large relative to the volume extent", f.Name, e.params.Sigma)
	}
	if f.Error != models.ErrorNone {
		log.Printf("Warning: field %s: degenerate values (%s)", f.Name, f.Error)
	}
}
