package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"volfields/internal/models"
)

// Viewer renders axis-aligned slices of a scalar field as grayscale images
// so a field can be inspected before it is handed to the mesher.
type Viewer struct {
	// field is the field being rendered
	field *models.ScalarField

	// lo and hi are the finite value range mapped to black and white
	lo, hi float64
}

// NewViewer creates a viewer normalised over the finite values of field.
// Non-finite voxels render black.
func NewViewer(field *models.ScalarField) *Viewer {
	v := &Viewer{field: field, lo: math.Inf(1), hi: math.Inf(-1)}
	for _, s := range field.Data {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxFloat32 {
			continue
		}
		v.lo = math.Min(v.lo, f)
		v.hi = math.Max(v.hi, f)
	}
	if v.lo > v.hi {
		v.lo, v.hi = 0, 0
	}
	return v
}

// Range returns the values mapped to black and white.
func (v *Viewer) Range() (float64, float64) {
	return v.lo, v.hi
}

func (v *Viewer) gray(i, j, k int) color.Gray16 {
	f := float64(v.field.At(i, j, k))
	if math.IsNaN(f) || math.IsInf(f, 0) || v.hi <= v.lo {
		return color.Gray16{}
	}
	t := math.Max(0, math.Min(1, (f-v.lo)/(v.hi-v.lo)))
	return color.Gray16{Y: uint16(t * 65535)}
}

// ExtractSlice extracts a 2D slice of the field perpendicular to axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	f := v.field
	var img *image.Gray16

	switch axis {
	case "x", "X":
		// YZ plane
		if position >= f.X {
			return nil, fmt.Errorf("position %d exceeds width %d", position, f.X)
		}
		img = image.NewGray16(image.Rect(0, 0, f.Z, f.Y))
		for j := 0; j < f.Y; j++ {
			for k := 0; k < f.Z; k++ {
				img.SetGray16(k, j, v.gray(position, j, k))
			}
		}

	case "y", "Y":
		// XZ plane
		if position >= f.Y {
			return nil, fmt.Errorf("position %d exceeds height %d", position, f.Y)
		}
		img = image.NewGray16(image.Rect(0, 0, f.X, f.Z))
		for k := 0; k < f.Z; k++ {
			for i := 0; i < f.X; i++ {
				img.SetGray16(i, k, v.gray(i, position, k))
			}
		}

	case "z", "Z":
		// XY plane
		if position >= f.Z {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, f.Z)
		}
		img = image.NewGray16(image.Rect(0, 0, f.X, f.Y))
		for j := 0; j < f.Y; j++ {
			for i := 0; i < f.X; i++ {
				img.SetGray16(i, j, v.gray(i, j, position))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice, choosing PNG or JPEG from the extension
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	case ".png":
		return png.Encode(file, img)
	default:
		return fmt.Errorf("unsupported preview extension %q", filepath.Ext(filename))
	}
}

// SaveMidSlices writes the centre slice along x, y and z to outputDir as
// <field>_<axis>.<format> and returns the written paths.
func (v *Viewer) SaveMidSlices(outputDir, format string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	if format == "jpg" {
		format = "jpeg"
	}

	f := v.field
	centres := map[string]int{"x": f.X / 2, "y": f.Y / 2, "z": f.Z / 2}

	var paths []string
	for _, axis := range []string{"x", "y", "z"} {
		img, err := v.ExtractSlice(axis, centres[axis])
		if err != nil {
			return paths, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.%s", f.Name, axis, format))
		if err := v.SaveSlice(img, filename); err != nil {
			return paths, err
		}
		paths = append(paths, filename)
	}

	return paths, nil
}
