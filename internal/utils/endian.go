package utils

import "encoding/binary"

// ReaderAt is a simplified interface for io.ReaderAt.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}

// ReadUint16 reads a 16-bit value at specified offset.
func ReadUint16(r ReaderAt, offset int64, order binary.ByteOrder) (uint16, error) {
	buf := GetBuffer(2)
	defer ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, err
	}
	return order.Uint16(buf), nil
}

// SwapBytes reverses the byte order of every width-byte word in data, in
// place. Widths of 0 or 1 and trailing partial words are left untouched.
func SwapBytes(data []byte, width int) {
	if width < 2 {
		return
	}
	for off := 0; off+width <= len(data); off += width {
		word := data[off : off+width]
		for i, j := 0, width-1; i < j; i, j = i+1, j-1 {
			word[i], word[j] = word[j], word[i]
		}
	}
}
