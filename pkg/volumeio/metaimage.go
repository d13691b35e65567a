package volumeio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"volfields/internal/models"
)

var metaTypes = map[string]sampleType{
	"MET_CHAR":       sampleInt8,
	"MET_UCHAR":      sampleUint8,
	"MET_SHORT":      sampleInt16,
	"MET_USHORT":     sampleUint16,
	"MET_INT":        sampleInt32,
	"MET_UINT":       sampleUint32,
	"MET_LONG":       sampleInt32,
	"MET_ULONG":      sampleUint32,
	"MET_LONG_LONG":  sampleInt64,
	"MET_ULONG_LONG": sampleUint64,
	"MET_FLOAT":      sampleFloat32,
	"MET_DOUBLE":     sampleFloat64,
}

// ReadMetaImage decodes a MetaImage file. The payload is either LOCAL
// (following the header) or a file next to the header.
func ReadMetaImage(path string) (*models.Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	hdr, err := readMetaHeader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	payload := io.Reader(r)
	if name := hdr["ElementDataFile"]; name != "LOCAL" {
		data, err := os.Open(filepath.Join(filepath.Dir(path), name))
		if err != nil {
			return nil, fmt.Errorf("failed to open data file for %s: %w", path, err)
		}
		defer data.Close()
		payload = bufio.NewReader(data)
	}

	vol, err := decodeMetaImage(hdr, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return vol, nil
}

// DecodeMetaImage decodes a MetaImage stream with a LOCAL payload.
func DecodeMetaImage(r *bufio.Reader) (*models.Volume, error) {
	hdr, err := readMetaHeader(r)
	if err != nil {
		return nil, err
	}
	if hdr["ElementDataFile"] != "LOCAL" {
		return nil, fmt.Errorf("%w: stream decoding needs ElementDataFile = LOCAL", ErrInvalidHeader)
	}
	return decodeMetaImage(hdr, r)
}

// readMetaHeader reads "Key = Value" lines up to and including ElementDataFile,
// which is always the last header entry.
func readMetaHeader(r *bufio.Reader) (map[string]string, error) {
	hdr := make(map[string]string)
	for {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("%w: missing ElementDataFile", ErrInvalidHeader)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed line %q", ErrInvalidHeader, line)
		}
		key = strings.TrimSpace(key)
		hdr[key] = strings.TrimSpace(value)
		if key == "ElementDataFile" {
			return hdr, nil
		}
	}
}

func decodeMetaImage(hdr map[string]string, payload io.Reader) (*models.Volume, error) {
	if obj, ok := hdr["ObjectType"]; ok && !strings.EqualFold(obj, "Image") {
		return nil, fmt.Errorf("%w: ObjectType %q", ErrInvalidHeader, obj)
	}
	if ndims := hdr["NDims"]; ndims != "3" {
		return nil, fmt.Errorf("%w: NDims %q, need 3", ErrInvalidHeader, ndims)
	}
	if ch, ok := hdr["ElementNumberOfChannels"]; ok && ch != "1" {
		return nil, fmt.Errorf("%w: %s channels, need 1", ErrInvalidHeader, ch)
	}

	sizes, err := parseInts(hdr["DimSize"])
	if err != nil || len(sizes) != 3 {
		return nil, fmt.Errorf("%w: DimSize %q", ErrInvalidHeader, hdr["DimSize"])
	}

	st, ok := metaTypes[hdr["ElementType"]]
	if !ok {
		return nil, fmt.Errorf("%w: ElementType %q", ErrInvalidHeader, hdr["ElementType"])
	}

	vol := &models.Volume{
		Size:    [3]int{sizes[0], sizes[1], sizes[2]},
		Spacing: [3]float64{1, 1, 1},
	}
	for _, key := range []string{"ElementSpacing", "ElementSize"} {
		if s, ok := hdr[key]; ok {
			vals, err := parseFloats(s)
			if err != nil || len(vals) != 3 {
				return nil, fmt.Errorf("%w: %s %q", ErrInvalidHeader, key, s)
			}
			copy(vol.Spacing[:], vals)
			break
		}
	}
	for _, key := range []string{"Offset", "Position", "Origin"} {
		if s, ok := hdr[key]; ok {
			vals, err := parseFloats(s)
			if err != nil || len(vals) != 3 {
				return nil, fmt.Errorf("%w: %s %q", ErrInvalidHeader, key, s)
			}
			copy(vol.Origin[:], vals)
			break
		}
	}
	if err := checkGeometry(vol, st.size()); err != nil {
		return nil, err
	}

	var order binary.ByteOrder = binary.LittleEndian
	if isTrue(hdr["BinaryDataByteOrderMSB"]) || isTrue(hdr["ElementByteOrderMSB"]) {
		order = binary.BigEndian
	}

	if isTrue(hdr["CompressedData"]) {
		zr, err := zlib.NewReader(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed payload: %w", err)
		}
		defer zr.Close()
		payload = zr
	}

	n := vol.NumVoxels()
	buf := make([]byte, n*st.size())
	if _, err := io.ReadFull(payload, buf); err != nil {
		return nil, fmt.Errorf("failed to read voxel data: %w", err)
	}

	vol.Data, err = decodeSamples(buf, st, order, n)
	if err != nil {
		return nil, err
	}
	return vol, nil
}

func isTrue(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(s))
	return err == nil && b
}
