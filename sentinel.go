package pixels

// NullPlaneSize is the length of the sentinel template.
const NullPlaneSize = 64

// nullPlane alternates the two extreme signed byte values so a never-written
// pixel is distinguishable from a zero pixel.
var nullPlane = func() [NullPlaneSize]byte {
	var b [NullPlaneSize]byte
	for i := range b {
		if i%2 == 0 {
			b[i] = 0x80 // -128
		} else {
			b[i] = 0x7F // 127
		}
	}
	return b
}()

// NullPlane returns a copy of the 64-byte sentinel template.
func NullPlane() []byte {
	b := nullPlane
	return b[:]
}

// NullPlaneFill returns n bytes of the sentinel template repeated end to end.
// A request shorter than the template takes its first n bytes.
func NullPlaneFill(n int64) []byte {
	if n <= 0 {
		return []byte{}
	}
	out := make([]byte, n)
	filled := int64(copy(out, nullPlane[:]))
	for filled < n {
		filled += int64(copy(out[filled:], out[:filled]))
	}
	return out
}
