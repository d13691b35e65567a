package volumeio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volfields/internal/models"
)

func rampVolume(x, y, z int) *models.Volume {
	vol := models.NewVolume(x, y, z)
	for i := range vol.Data {
		vol.Data[i] = float32(i) - 10
	}
	return vol
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"brain.nrrd", FormatNRRD},
		{"/data/labels.nrrd.gz", FormatNRRD},
		{"head.mha", FormatMetaImage},
		{"head.nii", FormatUnknown},
		{"noext", FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.path))
		})
	}
}

func TestReadUnsupportedFormat(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "volume.nii"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestNRRDRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "raw"
		if compress {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			vol := rampVolume(4, 3, 2)
			vol.Spacing = [3]float64{0.5, 1.25, 2}

			path := filepath.Join(t.TempDir(), "ramp.nrrd")
			require.NoError(t, WriteNRRD(path, vol, WriteOptions{Compress: compress}))

			got, err := Read(path)
			require.NoError(t, err)
			assert.Equal(t, vol.Size, got.Size)
			assert.Equal(t, vol.Spacing, got.Spacing)
			if diff := cmp.Diff(vol.Data, got.Data); diff != "" {
				t.Errorf("voxel data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeNRRDSpaceDirections(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NRRD0005\n")
	buf.WriteString("# written by hand\n")
	buf.WriteString("type: unsigned short\n")
	buf.WriteString("dimension: 3\n")
	buf.WriteString("space: left-posterior-superior\n")
	buf.WriteString("sizes: 2 1 1\n")
	buf.WriteString("space directions: (0,0,3) (0,2,0) (1,0,0)\n")
	buf.WriteString("space origin: (1.5,-2,10)\n")
	buf.WriteString("endian: big\n")
	buf.WriteString("encoding: raw\n")
	buf.WriteString("modality:=MR\n")
	buf.WriteString("\n")
	binary.Write(&buf, binary.BigEndian, []uint16{7, 65535})

	vol, err := DecodeNRRD(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 1, 1}, vol.Size)
	assert.Equal(t, [3]float64{3, 2, 1}, vol.Spacing)
	assert.Equal(t, [3]float64{1.5, -2, 10}, vol.Origin)
	assert.Equal(t, []float32{7, 65535}, vol.Data)
}

func TestDecodeNRRDErrors(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"bad magic", "PNG\n\n"},
		{"two dimensions", "NRRD0004\ntype: float\ndimension: 2\nsizes: 2 2\nencoding: raw\n\n"},
		{"unknown type", "NRRD0004\ntype: quaternion\ndimension: 3\nsizes: 1 1 1\nencoding: raw\n\n"},
		{"unknown encoding", "NRRD0004\ntype: float\ndimension: 3\nsizes: 1 1 1\nencoding: bzip2\n\n"},
		{"detached", "NRRD0004\ntype: float\ndimension: 3\nsizes: 1 1 1\nencoding: raw\ndata file: x.raw\n\n"},
		{"zero size", "NRRD0004\ntype: float\ndimension: 3\nsizes: 0 1 1\nencoding: raw\n\n"},
		{"size product overflows", "NRRD0004\ntype: float\ndimension: 3\nsizes: 4611686018427387904 2 1\nencoding: raw\n\n"},
		{"too many voxels", "NRRD0004\ntype: double\ndimension: 3\nsizes: 65536 65536 2\nencoding: raw\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNRRD(bufio.NewReader(strings.NewReader(tt.header)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidHeader), "got %v", err)
		})
	}
}

func TestDecodeNRRDTruncated(t *testing.T) {
	src := "NRRD0004\ntype: float\ndimension: 3\nsizes: 2 2 2\nencoding: raw\n\n\x00\x00"
	_, err := DecodeNRRD(bufio.NewReader(strings.NewReader(src)))
	require.Error(t, err)
}

func metaImageBytes(t *testing.T, compressed bool, samples []float32) []byte {
	t.Helper()

	var payload bytes.Buffer
	if compressed {
		zw := zlib.NewWriter(&payload)
		require.NoError(t, binary.Write(zw, binary.LittleEndian, samples))
		require.NoError(t, zw.Close())
	} else {
		require.NoError(t, binary.Write(&payload, binary.LittleEndian, samples))
	}

	var buf bytes.Buffer
	buf.WriteString("ObjectType = Image\n")
	buf.WriteString("NDims = 3\n")
	buf.WriteString("BinaryData = True\n")
	buf.WriteString("BinaryDataByteOrderMSB = False\n")
	if compressed {
		buf.WriteString("CompressedData = True\n")
	} else {
		buf.WriteString("CompressedData = False\n")
	}
	buf.WriteString("Offset = 0 0 -5\n")
	buf.WriteString("ElementSpacing = 0.8 0.8 1.5\n")
	buf.WriteString("DimSize = 2 2 1\n")
	buf.WriteString("ElementType = MET_FLOAT\n")
	buf.WriteString("ElementDataFile = LOCAL\n")
	buf.Write(payload.Bytes())
	return buf.Bytes()
}

func TestReadMetaImage(t *testing.T) {
	samples := []float32{-1, 0.5, 2, float32(math.Inf(1))}
	for _, compressed := range []bool{false, true} {
		name := "raw"
		if compressed {
			name = "zlib"
		}
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scan.mha")
			require.NoError(t, os.WriteFile(path, metaImageBytes(t, compressed, samples), 0644))

			vol, err := Read(path)
			require.NoError(t, err)
			assert.Equal(t, [3]int{2, 2, 1}, vol.Size)
			assert.Equal(t, [3]float64{0.8, 0.8, 1.5}, vol.Spacing)
			assert.Equal(t, [3]float64{0, 0, -5}, vol.Origin)
			assert.Equal(t, samples, vol.Data)
		})
	}
}

func TestReadMetaImageDetachedData(t *testing.T) {
	dir := t.TempDir()
	hdr := "ObjectType = Image\nNDims = 3\nDimSize = 1 1 3\nElementType = MET_SHORT\nElementDataFile = scan.raw\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.mha"), []byte(hdr), 0644))

	var raw bytes.Buffer
	binary.Write(&raw, binary.LittleEndian, []int16{-3, 0, 12})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.raw"), raw.Bytes(), 0644))

	vol, err := ReadMetaImage(filepath.Join(dir, "scan.mha"))
	require.NoError(t, err)
	assert.Equal(t, []float32{-3, 0, 12}, vol.Data)
	assert.Equal(t, [3]float64{1, 1, 1}, vol.Spacing)
}

func TestDecodeMetaImageRejectsHugeDimSize(t *testing.T) {
	src := "ObjectType = Image\nNDims = 3\nDimSize = 4611686018427387904 4 1\nElementType = MET_FLOAT\nElementDataFile = LOCAL\n"
	_, err := DecodeMetaImage(bufio.NewReader(strings.NewReader(src)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidHeader), "got %v", err)
}

func TestDecodeMetaImageRejectsVectors(t *testing.T) {
	src := "ObjectType = Image\nNDims = 3\nDimSize = 1 1 1\nElementNumberOfChannels = 3\nElementType = MET_FLOAT\nElementDataFile = LOCAL\n"
	_, err := DecodeMetaImage(bufio.NewReader(strings.NewReader(src)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidHeader))
}
