package pixels

import (
	"fmt"
	"strings"
)

// PixelsType identifies the numeric encoding of one pixel value.
type PixelsType int

// Supported pixel types.
const (
	Unknown PixelsType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float
	Double
	Bit
)

type pixelsTypeInfo struct {
	name     string
	bitDepth int
	signed   bool
	float    bool
}

var pixelsTypes = map[PixelsType]pixelsTypeInfo{
	Int8:   {name: "int8", bitDepth: 8, signed: true},
	Uint8:  {name: "uint8", bitDepth: 8},
	Int16:  {name: "int16", bitDepth: 16, signed: true},
	Uint16: {name: "uint16", bitDepth: 16},
	Int32:  {name: "int32", bitDepth: 32, signed: true},
	Uint32: {name: "uint32", bitDepth: 32},
	Float:  {name: "float", bitDepth: 32, signed: true, float: true},
	Double: {name: "double", bitDepth: 64, signed: true, float: true},
	Bit:    {name: "bit", bitDepth: 1},
}

var pixelsTypeAliases = map[string]PixelsType{
	"float32": Float,
	"float64": Double,
}

// ParsePixelsType maps a pixel type name to its PixelsType.
func ParsePixelsType(name string) (PixelsType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, info := range pixelsTypes {
		if info.name == name {
			return t, nil
		}
	}
	if t, ok := pixelsTypeAliases[name]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnsupportedPixelsType, name)
}

// String returns the canonical name of the type.
func (t PixelsType) String() string {
	if info, ok := pixelsTypes[t]; ok {
		return info.name
	}
	return fmt.Sprintf("PixelsType(%d)", int(t))
}

// Valid reports whether t is present in the bit-depth table.
func (t PixelsType) Valid() bool {
	_, ok := pixelsTypes[t]
	return ok
}

// BitDepth returns the width of a single pixel value in bits.
func BitDepth(t PixelsType) (int, error) {
	info, ok := pixelsTypes[t]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedPixelsType, t)
	}
	return info.bitDepth, nil
}

// MustBitDepth is like BitDepth but panics on an unknown type.
func MustBitDepth(t PixelsType) int {
	depth, err := BitDepth(t)
	if err != nil {
		panic(err)
	}
	return depth
}

// BytesPerPixel returns bitDepth/8 for byte-aligned types and 0 for Bit,
// whose values are packed eight to a byte.
func (t PixelsType) BytesPerPixel() int {
	info, ok := pixelsTypes[t]
	if !ok || info.bitDepth%8 != 0 {
		return 0
	}
	return info.bitDepth / 8
}

// IsPacked reports whether values are stored below byte granularity.
func (t PixelsType) IsPacked() bool {
	return t == Bit
}

// IsSigned reports whether t holds signed values.
func (t PixelsType) IsSigned() bool {
	return pixelsTypes[t].signed
}

// IsFloat reports whether t is a floating-point type.
func (t PixelsType) IsFloat() bool {
	return pixelsTypes[t].float
}
