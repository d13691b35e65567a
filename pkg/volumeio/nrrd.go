package volumeio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/floats"

	"volfields/internal/models"
)

var nrrdTypes = map[string]sampleType{
	"signed char": sampleInt8, "int8": sampleInt8, "int8_t": sampleInt8,
	"uchar": sampleUint8, "unsigned char": sampleUint8, "uint8": sampleUint8, "uint8_t": sampleUint8,
	"short": sampleInt16, "short int": sampleInt16, "signed short": sampleInt16,
	"signed short int": sampleInt16, "int16": sampleInt16, "int16_t": sampleInt16,
	"ushort": sampleUint16, "unsigned short": sampleUint16, "unsigned short int": sampleUint16,
	"uint16": sampleUint16, "uint16_t": sampleUint16,
	"int": sampleInt32, "signed int": sampleInt32, "int32": sampleInt32, "int32_t": sampleInt32,
	"uint": sampleUint32, "unsigned int": sampleUint32, "uint32": sampleUint32, "uint32_t": sampleUint32,
	"longlong": sampleInt64, "long long": sampleInt64, "long long int": sampleInt64,
	"signed long long": sampleInt64, "signed long long int": sampleInt64,
	"int64": sampleInt64, "int64_t": sampleInt64,
	"ulonglong": sampleUint64, "unsigned long long": sampleUint64,
	"unsigned long long int": sampleUint64, "uint64": sampleUint64, "uint64_t": sampleUint64,
	"float": sampleFloat32, "double": sampleFloat64,
}

// nrrdHeader holds the header fields the reader understands.
type nrrdHeader struct {
	fields map[string]string
}

// ReadNRRD decodes a NRRD file with an attached payload.
func ReadNRRD(path string) (*models.Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	vol, err := DecodeNRRD(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return vol, nil
}

// DecodeNRRD decodes a NRRD stream. The header must be followed by the
// payload in the same stream ("data file" is not supported).
func DecodeNRRD(r *bufio.Reader) (*models.Volume, error) {
	hdr, err := readNRRDHeader(r)
	if err != nil {
		return nil, err
	}

	if _, ok := hdr.fields["data file"]; ok {
		return nil, fmt.Errorf("%w: detached data files are not supported", ErrInvalidHeader)
	}

	dim, err := strconv.Atoi(hdr.get("dimension"))
	if err != nil || dim != 3 {
		return nil, fmt.Errorf("%w: dimension %q, need 3", ErrInvalidHeader, hdr.get("dimension"))
	}

	sizes, err := parseInts(hdr.get("sizes"))
	if err != nil || len(sizes) != 3 {
		return nil, fmt.Errorf("%w: sizes %q", ErrInvalidHeader, hdr.get("sizes"))
	}

	st, ok := nrrdTypes[hdr.get("type")]
	if !ok {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidHeader, hdr.get("type"))
	}

	vol := &models.Volume{
		Size:    [3]int{sizes[0], sizes[1], sizes[2]},
		Spacing: [3]float64{1, 1, 1},
	}
	if err := hdr.spacing(vol); err != nil {
		return nil, err
	}
	if err := hdr.origin(vol); err != nil {
		return nil, err
	}
	if err := checkGeometry(vol, st.size()); err != nil {
		return nil, err
	}

	var order binary.ByteOrder = binary.LittleEndian
	if hdr.get("endian") == "big" {
		order = binary.BigEndian
	}

	var payload io.Reader = r
	switch enc := hdr.get("encoding"); enc {
	case "raw":
	case "gzip", "gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip payload: %w", err)
		}
		defer zr.Close()
		payload = zr
	default:
		return nil, fmt.Errorf("%w: encoding %q", ErrInvalidHeader, enc)
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

func readNRRDHeader(r *bufio.Reader) (*nrrdHeader, error) {
	magic, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: missing magic line", ErrInvalidHeader)
	}
	if !strings.HasPrefix(magic, "NRRD000") {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, strings.TrimSpace(magic))
	}

	hdr := &nrrdHeader{fields: make(map[string]string)}
	for {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("%w: header not terminated by a blank line", ErrInvalidHeader)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return hdr, nil
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		// key/value pairs ("key:=value") carry no geometry
		if strings.Contains(line, ":=") {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("%w: malformed line %q", ErrInvalidHeader, line)
		}
		hdr.fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
}

func (h *nrrdHeader) get(key string) string {
	return strings.ToLower(h.fields[key])
}

func (h *nrrdHeader) spacing(vol *models.Volume) error {
	if s, ok := h.fields["spacings"]; ok {
		vals, err := parseFloats(s)
		if err != nil || len(vals) != 3 {
			return fmt.Errorf("%w: spacings %q", ErrInvalidHeader, s)
		}
		copy(vol.Spacing[:], vals)
		return nil
	}

	dirs, ok := h.fields["space directions"]
	if !ok {
		return nil
	}
	vectors, err := parseVectors(dirs)
	if err != nil {
		return err
	}
	if len(vectors) != 3 {
		return fmt.Errorf("%w: space directions %q", ErrInvalidHeader, dirs)
	}
	for a, v := range vectors {
		if v == nil {
			continue
		}
		vol.Spacing[a] = floats.Norm(v, 2)
	}
	return nil
}

func (h *nrrdHeader) origin(vol *models.Volume) error {
	s, ok := h.fields["space origin"]
	if !ok {
		return nil
	}
	vectors, err := parseVectors(s)
	if err != nil {
		return err
	}
	if len(vectors) != 1 || len(vectors[0]) != 3 {
		return fmt.Errorf("%w: space origin %q", ErrInvalidHeader, s)
	}
	copy(vol.Origin[:], vectors[0])
	return nil
}

// parseVectors parses "(a,b,c) none (d,e,f)". A "none" entry yields nil.
func parseVectors(s string) ([][]float64, error) {
	var out [][]float64
	for _, tok := range strings.Fields(s) {
		if tok == "none" {
			out = append(out, nil)
			continue
		}
		if !strings.HasPrefix(tok, "(") || !strings.HasSuffix(tok, ")") {
			return nil, fmt.Errorf("%w: vector %q", ErrInvalidHeader, tok)
		}
		vals, err := parseFloats(strings.ReplaceAll(tok[1:len(tok)-1], ",", " "))
		if err != nil {
			return nil, fmt.Errorf("%w: vector %q", ErrInvalidHeader, tok)
		}
		out = append(out, vals)
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, tok := range strings.Fields(s) {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, tok := range strings.Fields(s) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteOptions controls how volumes are encoded.
type WriteOptions struct {
	// Compress selects gzip encoding instead of raw
	Compress bool
}

// WriteNRRD writes vol to path as float32 little-endian NRRD.
func WriteNRRD(path string, vol *models.Volume, opts WriteOptions) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := EncodeNRRD(file, vol, opts); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}

// EncodeNRRD writes vol as a NRRD stream.
func EncodeNRRD(w io.Writer, vol *models.Volume, opts WriteOptions) error {
	if len(vol.Data) != vol.NumVoxels() {
		return fmt.Errorf("volume has %d samples, size %v needs %d", len(vol.Data), vol.Size, vol.NumVoxels())
	}

	encoding := "raw"
	if opts.Compress {
		encoding = "gzip"
	}

	var hdr bytes.Buffer
	hdr.WriteString("NRRD0004\n")
	hdr.WriteString("# Complete NRRD file format specification at:\n")
	hdr.WriteString("# http://teem.sourceforge.net/nrrd/format.html\n")
	hdr.WriteString("type: float\n")
	hdr.WriteString("dimension: 3\n")
	fmt.Fprintf(&hdr, "sizes: %d %d %d\n", vol.Size[0], vol.Size[1], vol.Size[2])
	fmt.Fprintf(&hdr, "spacings: %s %s %s\n",
		formatFloat(vol.Spacing[0]), formatFloat(vol.Spacing[1]), formatFloat(vol.Spacing[2]))
	hdr.WriteString("kinds: domain domain domain\n")
	hdr.WriteString("endian: little\n")
	fmt.Fprintf(&hdr, "encoding: %s\n\n", encoding)

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}

	payload := encodeFloat32(vol.Data)
	if !opts.Compress {
		_, err := w.Write(payload)
		return err
	}

	zw := gzip.NewWriter(w)
	if _, err := zw.Write(payload); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
