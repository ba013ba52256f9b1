package pixels

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ByteOrder is the byte order of every multi-byte value in the raw store and
// of every region returned through a PixelBuffer.
var ByteOrder binary.ByteOrder = binary.BigEndian

// PixelData is a typed view over a byte region. It holds no state beyond the
// region it wraps: build one per fetched plane and drop it afterwards.
//
// Byte-aligned values are big-endian. Bit values are packed eight to a byte
// with index 0 in the most significant bit.
//
// Integer writes truncate toward zero and then wrap to the type width;
// values are never rescaled.
type PixelData struct {
	typ      PixelsType
	data     []byte
	bpp      int64
	elements int64
}

// NewPixelData wraps data as values of type t. For Bit every bit of data is
// addressable.
func NewPixelData(t PixelsType, data []byte) (*PixelData, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPixelsType, t)
	}
	if t.IsPacked() {
		return NewBitPixelData(data, int64(len(data))*8)
	}
	bpp := int64(t.BytesPerPixel())
	return &PixelData{
		typ:      t,
		data:     data,
		bpp:      bpp,
		elements: int64(len(data)) / bpp,
	}, nil
}

// NewBitPixelData wraps data as bitCount packed bit values.
func NewBitPixelData(data []byte, bitCount int64) (*PixelData, error) {
	if bitCount < 0 || bitCount > int64(len(data))*8 {
		return nil, &IndexError{Index: bitCount, Len: int64(len(data)) * 8}
	}
	return &PixelData{
		typ:      Bit,
		data:     data,
		elements: bitCount,
	}, nil
}

// Type returns the pixel type of the view.
func (d *PixelData) Type() PixelsType {
	return d.typ
}

// ByteOrder returns the order of multi-byte values in the region.
func (d *PixelData) ByteOrder() binary.ByteOrder {
	return ByteOrder
}

// Bytes returns the wrapped region without copying.
func (d *PixelData) Bytes() []byte {
	return d.data
}

// Len returns the number of addressable values.
func (d *PixelData) Len() int64 {
	return d.elements
}

// Size returns the byte length of the region; for Bit, ceil(bitCount/8).
func (d *PixelData) Size() int64 {
	if d.typ.IsPacked() {
		return (d.elements + 7) / 8
	}
	return int64(len(d.data))
}

func (d *PixelData) checkIndex(i int64) error {
	if i < 0 || i >= d.elements {
		return &IndexError{Index: i, Len: d.elements}
	}
	return nil
}

// PixelValue decodes the value at index i.
func (d *PixelData) PixelValue(i int64) (float64, error) {
	if err := d.checkIndex(i); err != nil {
		return 0, err
	}
	if d.typ.IsPacked() {
		if d.data[i/8]&bitMask(i) != 0 {
			return 1, nil
		}
		return 0, nil
	}

	b := d.data[i*d.bpp : (i+1)*d.bpp]
	switch d.typ {
	case Int8:
		return float64(int8(b[0])), nil
	case Uint8:
		return float64(b[0]), nil
	case Int16:
		return float64(int16(ByteOrder.Uint16(b))), nil
	case Uint16:
		return float64(ByteOrder.Uint16(b)), nil
	case Int32:
		return float64(int32(ByteOrder.Uint32(b))), nil
	case Uint32:
		return float64(ByteOrder.Uint32(b)), nil
	case Float:
		return float64(math.Float32frombits(ByteOrder.Uint32(b))), nil
	case Double:
		return math.Float64frombits(ByteOrder.Uint64(b)), nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnsupportedPixelsType, d.typ)
}

// SetPixelValue encodes v at index i. For Bit any non-zero v sets the bit
// and zero clears it; the other seven bits of the byte are untouched.
func (d *PixelData) SetPixelValue(i int64, v float64) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	if d.typ.IsPacked() {
		if v != 0 {
			d.data[i/8] |= bitMask(i)
		} else {
			d.data[i/8] &^= bitMask(i)
		}
		return nil
	}

	b := d.data[i*d.bpp : (i+1)*d.bpp]
	switch d.typ {
	case Int8, Uint8:
		b[0] = byte(truncate(v))
	case Int16, Uint16:
		ByteOrder.PutUint16(b, uint16(truncate(v)))
	case Int32, Uint32:
		ByteOrder.PutUint32(b, uint32(truncate(v)))
	case Float:
		ByteOrder.PutUint32(b, math.Float32bits(float32(v)))
	case Double:
		ByteOrder.PutUint64(b, math.Float64bits(v))
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedPixelsType, d.typ)
	}
	return nil
}

// bitMask selects bit i%8 of its byte, counting from the most significant bit.
func bitMask(i int64) byte {
	return 0x80 >> uint(i%8)
}

// truncate converts v to an integer, saturating NaN and infinities so the
// conversion is well defined on every platform.
func truncate(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}
