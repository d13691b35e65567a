package volumeio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// sampleType is the on-disk voxel representation.
type sampleType int

const (
	sampleInvalid sampleType = iota
	sampleInt8
	sampleUint8
	sampleInt16
	sampleUint16
	sampleInt32
	sampleUint32
	sampleInt64
	sampleUint64
	sampleFloat32
	sampleFloat64
)

func (t sampleType) size() int {
	switch t {
	case sampleInt8, sampleUint8:
		return 1
	case sampleInt16, sampleUint16:
		return 2
	case sampleInt32, sampleUint32, sampleFloat32:
		return 4
	case sampleInt64, sampleUint64, sampleFloat64:
		return 8
	default:
		return 0
	}
}

// decodeSamples converts n packed samples to float32.
func decodeSamples(buf []byte, t sampleType, order binary.ByteOrder, n int) ([]float32, error) {
	size := t.size()
	if size == 0 {
		return nil, fmt.Errorf("%w: unknown sample type", ErrInvalidHeader)
	}
	if len(buf) < n*size {
		return nil, fmt.Errorf("truncated voxel data: got %d bytes, need %d", len(buf), n*size)
	}

	out := make([]float32, n)
	for i := 0; i < n; i++ {
		b := buf[i*size : (i+1)*size]
		switch t {
		case sampleInt8:
			out[i] = float32(int8(b[0]))
		case sampleUint8:
			out[i] = float32(b[0])
		case sampleInt16:
			out[i] = float32(int16(order.Uint16(b)))
		case sampleUint16:
			out[i] = float32(order.Uint16(b))
		case sampleInt32:
			out[i] = float32(int32(order.Uint32(b)))
		case sampleUint32:
			out[i] = float32(order.Uint32(b))
		case sampleInt64:
			out[i] = float32(int64(order.Uint64(b)))
		case sampleUint64:
			out[i] = float32(order.Uint64(b))
		case sampleFloat32:
			out[i] = math.Float32frombits(order.Uint32(b))
		case sampleFloat64:
			out[i] = float32(math.Float64frombits(order.Uint64(b)))
		}
	}
	return out, nil
}

// encodeFloat32 packs samples little-endian.
func encodeFloat32(data []float32) []byte {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}
