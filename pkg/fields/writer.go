package fields

import (
	"fmt"
	"strings"

	"volfields/internal/models"
	"volfields/pkg/volumeio"
)

// OutputPath appends ".nrrd" to name unless ".nrrd" already appears
// anywhere in it.
func OutputPath(name string) string {
	if strings.Contains(name, ".nrrd") {
		return name
	}
	return name + ".nrrd"
}

// CheckOutputNames reports an error when two fields would be written to the
// same file, such as indicator field "seg1" and a raw field loaded from
// "seg1.nrrd".
func CheckOutputNames(fields []*models.ScalarField) error {
	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		path := OutputPath(f.Name)
		if j, ok := seen[path]; ok {
			return fmt.Errorf("fields %d and %d both write %s", j, i, path)
		}
		seen[path] = i
	}
	return nil
}

// WriteField writes field as a NRRD volume and returns the path written.
// The field is only read.
func WriteField(field *models.ScalarField, name string, opts volumeio.WriteOptions) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("field %s has %d samples, dimensions %dx%dx%d need %d",
			field.Name, len(field.Data), field.X, field.Y, field.Z, field.Len())
	}

	x, y, z := field.Dims()
	vol := models.NewVolume(x, y, z)
	for a, s := range field.Scale {
		if s > 0 {
			vol.Spacing[a] = s
		}
	}

	for i := 0; i < x; i++ {
		for j := 0; j < y; j++ {
			for k := 0; k < z; k++ {
				vol.Data[vol.Index(i, j, k)] = field.Data[i+x*j+x*y*k]
			}
		}
	}

	path := OutputPath(name)
	if err := volumeio.WriteNRRD(path, vol, opts); err != nil {
		return "", err
	}
	return path, nil
}
