// Package deltavision reads the header of DeltaVision (.dv) image files and
// maps (z, c, t) coordinates onto the file's plane sequence.
package deltavision

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/scigolib/pixels/internal/utils"
)

// HeaderSize is the size of the fixed DeltaVision header.
const HeaderSize = 1024

// Magic identifies a DeltaVision file. Its byte order on disk gives the
// byte order of the whole file.
const Magic uint16 = 0xC0A0

const swappedMagic uint16 = 0xA0C0

// Field offsets within the fixed header.
const (
	offSizeX     = 0
	offSizeY     = 4
	offSections  = 8
	offMode      = 12
	offExtHeader = 92
	offMagic     = 96
	offNumTimes  = 180
	offSequence  = 182
	offNumWaves  = 196
)

// Mode is the DeltaVision pixel storage mode.
type Mode int32

// Known pixel modes.
const (
	ModeUint8          Mode = 0
	ModeInt16          Mode = 1
	ModeFloat32        Mode = 2
	ModeComplexInt16   Mode = 3
	ModeComplexFloat32 Mode = 4
	ModeUint16         Mode = 6
	ModeInt32          Mode = 7
)

// BytesPerPixel returns the width of one value, or 0 for modes this package
// cannot address plane by plane.
func (m Mode) BytesPerPixel() int {
	switch m {
	case ModeUint8:
		return 1
	case ModeInt16, ModeUint16:
		return 2
	case ModeFloat32, ModeInt32:
		return 4
	}
	return 0
}

// Sequence is the order in which planes are stored.
type Sequence int16

// Plane orderings, fastest-varying dimension first.
const (
	SequenceZTW Sequence = 0
	SequenceWZT Sequence = 1
	SequenceZWT Sequence = 2
)

// String returns the sequence name.
func (s Sequence) String() string {
	switch s {
	case SequenceZTW:
		return "ZTW"
	case SequenceWZT:
		return "WZT"
	case SequenceZWT:
		return "ZWT"
	}
	return fmt.Sprintf("Sequence(%d)", int16(s))
}

// Header holds the fields of the fixed header this package uses.
type Header struct {
	SizeX         int32
	SizeY         int32
	Sections      int32 // SizeZ * NumWaves * NumTimes
	Mode          Mode
	ExtHeaderSize int32
	NumTimes      int16
	Sequence      Sequence
	NumWaves      int16
	ByteOrder     binary.ByteOrder
}

// ReadHeader reads and validates the fixed header at the start of r.
func ReadHeader(r io.ReaderAt) (*Header, error) {
	buf := utils.GetBuffer(HeaderSize)
	defer utils.ReleaseBuffer(buf)

	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, utils.WrapError("header read failed", err)
	}
	if n < HeaderSize {
		return nil, errors.New("file too small to contain a DeltaVision header")
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint16(buf[offMagic:]) == Magic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint16(buf[offMagic:]) == Magic:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("invalid DeltaVision magic 0x%04X", binary.LittleEndian.Uint16(buf[offMagic:]))
	}

	//nolint:gosec // G115: header fields are signed on disk
	h := &Header{
		SizeX:         int32(order.Uint32(buf[offSizeX:])),
		SizeY:         int32(order.Uint32(buf[offSizeY:])),
		Sections:      int32(order.Uint32(buf[offSections:])),
		Mode:          Mode(int32(order.Uint32(buf[offMode:]))),
		ExtHeaderSize: int32(order.Uint32(buf[offExtHeader:])),
		NumTimes:      int16(order.Uint16(buf[offNumTimes:])),
		Sequence:      Sequence(int16(order.Uint16(buf[offSequence:]))),
		NumWaves:      int16(order.Uint16(buf[offNumWaves:])),
		ByteOrder:     order,
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Validate checks the header for values that would make plane addressing
// meaningless.
func (h *Header) Validate() error {
	if h.SizeX < 1 || h.SizeY < 1 || h.Sections < 1 {
		return fmt.Errorf("invalid DeltaVision dimensions %dx%d with %d sections", h.SizeX, h.SizeY, h.Sections)
	}
	if h.ExtHeaderSize < 0 {
		return fmt.Errorf("negative extended header size %d", h.ExtHeaderSize)
	}
	if h.Mode.BytesPerPixel() == 0 {
		return fmt.Errorf("unsupported DeltaVision pixel mode %d", h.Mode)
	}
	switch h.Sequence {
	case SequenceZTW, SequenceWZT, SequenceZWT:
	default:
		return fmt.Errorf("unsupported DeltaVision image sequence %d", h.Sequence)
	}
	if int64(h.Sections)%(int64(h.Waves())*int64(h.Times())) != 0 {
		return fmt.Errorf("%d sections do not divide into %d waves x %d timepoints",
			h.Sections, h.Waves(), h.Times())
	}
	return nil
}

// Waves returns the channel count; a zero field means one channel.
func (h *Header) Waves() int {
	if h.NumWaves < 1 {
		return 1
	}
	return int(h.NumWaves)
}

// Times returns the timepoint count; a zero field means one timepoint.
func (h *Header) Times() int {
	if h.NumTimes < 1 {
		return 1
	}
	return int(h.NumTimes)
}

// SizeZ returns the number of focal planes per (wave, time).
func (h *Header) SizeZ() int {
	return int(h.Sections) / (h.Waves() * h.Times())
}

// PlaneSize returns the size of one plane in bytes.
func (h *Header) PlaneSize() int64 {
	return int64(h.SizeX) * int64(h.SizeY) * int64(h.Mode.BytesPerPixel())
}

// DataOffset returns the file offset of the first plane.
func (h *Header) DataOffset() int64 {
	return HeaderSize + int64(h.ExtHeaderSize)
}

// PlaneIndex returns the position of plane (z, c, t) in the file's sequence.
func (h *Header) PlaneIndex(z, c, t int) int64 {
	sz, sc, st := int64(h.SizeZ()), int64(h.Waves()), int64(h.Times())
	zz, cc, tt := int64(z), int64(c), int64(t)
	switch h.Sequence {
	case SequenceWZT:
		return cc + zz*sc + tt*sc*sz
	case SequenceZWT:
		return zz + cc*sz + tt*sz*sc
	default: // SequenceZTW
		return zz + tt*sz + cc*sz*st
	}
}

// PlaneOffset returns the file offset of plane (z, c, t).
func (h *Header) PlaneOffset(z, c, t int) int64 {
	return h.DataOffset() + h.PlaneIndex(z, c, t)*h.PlaneSize()
}

// MarshalBinary encodes the header in h.ByteOrder (big-endian when unset)
// followed by ExtHeaderSize zero bytes.
func (h *Header) MarshalBinary() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	order := h.ByteOrder
	if order == nil {
		order = binary.BigEndian
	}

	buf := make([]byte, h.DataOffset())
	order.PutUint32(buf[offSizeX:], uint32(h.SizeX))
	order.PutUint32(buf[offSizeY:], uint32(h.SizeY))
	order.PutUint32(buf[offSections:], uint32(h.Sections))
	order.PutUint32(buf[offMode:], uint32(h.Mode))
	order.PutUint32(buf[offExtHeader:], uint32(h.ExtHeaderSize))
	order.PutUint16(buf[offMagic:], Magic)
	order.PutUint16(buf[offNumTimes:], uint16(h.NumTimes))
	order.PutUint16(buf[offSequence:], uint16(h.Sequence))
	order.PutUint16(buf[offNumWaves:], uint16(h.NumWaves))
	return buf, nil
}

// Sniff reports whether r carries the DeltaVision magic in either byte order.
func Sniff(r utils.ReaderAt) bool {
	v, err := utils.ReadUint16(r, offMagic, binary.LittleEndian)
	if err != nil {
		return false
	}
	return v == Magic || v == swappedMagic
}
