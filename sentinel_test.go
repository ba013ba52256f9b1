package pixels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullPlane(t *testing.T) {
	plane := NullPlane()
	require.Len(t, plane, NullPlaneSize)
	for i, b := range plane {
		if i%2 == 0 {
			assert.Equal(t, byte(0x80), b, "byte %d", i)
		} else {
			assert.Equal(t, byte(0x7F), b, "byte %d", i)
		}
	}

	// Callers get a copy.
	plane[0] = 0
	assert.Equal(t, byte(0x80), NullPlane()[0])
}

func TestNullPlaneFill(t *testing.T) {
	for _, n := range []int64{0, 1, 63, 64, 65, 200, 4096} {
		fill := NullPlaneFill(n)
		require.Len(t, fill, int(n))
		for i := range fill {
			if fill[i] != nullPlane[i%NullPlaneSize] {
				t.Fatalf("n=%d: byte %d is 0x%02X", n, i, fill[i])
			}
		}
	}
	assert.Empty(t, NullPlaneFill(-5))
}
