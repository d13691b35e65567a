// Package volumeio reads and writes the 3D scalar volumes consumed and
// produced by the field pipeline. Only what the pipeline needs is supported:
// single-channel 3D grids with spacing metadata, stored in NRRD (.nrrd) or
// MetaImage (.mha) files, raw or compressed.
package volumeio

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"volfields/internal/models"
)

var (
	// ErrUnsupportedFormat is returned when a file name selects no decoder.
	ErrUnsupportedFormat = errors.New("unsupported volume format")

	// ErrInvalidHeader is returned when a header cannot describe a 3D scalar volume.
	ErrInvalidHeader = errors.New("invalid volume header")
)

// Format identifies an on-disk volume encoding.
type Format int

const (
	FormatUnknown Format = iota
	FormatNRRD
	FormatMetaImage
)

func (f Format) String() string {
	switch f {
	case FormatNRRD:
		return "nrrd"
	case FormatMetaImage:
		return "metaimage"
	default:
		return "unknown"
	}
}

// DetectFormat picks the decoder for path. Selection is a substring match on
// ".nrrd" first, then ".mha", so "scan.nrrd.bak" still decodes as NRRD.
func DetectFormat(path string) Format {
	switch {
	case strings.Contains(path, ".nrrd"):
		return FormatNRRD
	case strings.Contains(path, ".mha"):
		return FormatMetaImage
	default:
		return FormatUnknown
	}
}

// Read decodes the volume stored at path.
func Read(path string) (*models.Volume, error) {
	switch DetectFormat(path) {
	case FormatNRRD:
		return ReadNRRD(path)
	case FormatMetaImage:
		return ReadMetaImage(path)
	default:
		return nil, fmt.Errorf("%w: %s (expected .nrrd or .mha)", ErrUnsupportedFormat, path)
	}
}

// MaxVoxels caps the number of samples a header may declare.
const MaxVoxels = 1 << 31

// checkGeometry validates the declared grid before any payload buffer is
// allocated for it. sampleSize is the on-disk byte width of one sample.
func checkGeometry(vol *models.Volume, sampleSize int) error {
	n := int64(1)
	for a := 0; a < 3; a++ {
		if vol.Size[a] <= 0 {
			return fmt.Errorf("%w: non-positive size %v", ErrInvalidHeader, vol.Size)
		}
		if int64(vol.Size[a]) > MaxVoxels/n {
			return fmt.Errorf("%w: size %v exceeds %d voxels", ErrInvalidHeader, vol.Size, int64(MaxVoxels))
		}
		n *= int64(vol.Size[a])
		if !(vol.Spacing[a] > 0) {
			return fmt.Errorf("%w: non-positive spacing %v", ErrInvalidHeader, vol.Spacing)
		}
	}
	if n*int64(sampleSize) > math.MaxInt {
		return fmt.Errorf("%w: size %v too large for this platform", ErrInvalidHeader, vol.Size)
	}
	return nil
}
