package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scigolib/pixels"
)

// descriptorFlags describe the pixel set a command operates on. The store
// keeps no metadata, so every command that addresses pixels needs them.
type descriptorFlags struct {
	dims string
	typ  string
}

func (f *descriptorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dims, "dims", "", "sizes as XxYxZxCxT, e.g. 512x512x64x3x50")
	cmd.Flags().StringVar(&f.typ, "type", "uint16", "pixel type (int8, uint8, int16, uint16, int32, uint32, float, double, bit)")
	_ = cmd.MarkFlagRequired("dims")
}

func (f *descriptorFlags) pixels(id int64) (*pixels.Pixels, error) {
	sizes, err := parseDims(f.dims)
	if err != nil {
		return nil, err
	}
	typ, err := pixels.ParsePixelsType(f.typ)
	if err != nil {
		return nil, err
	}
	p := &pixels.Pixels{
		ID:    id,
		SizeX: sizes[0],
		SizeY: sizes[1],
		SizeZ: sizes[2],
		SizeC: sizes[3],
		SizeT: sizes[4],
		Type:  typ,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseDims parses "XxYxZxCxT". Trailing dimensions may be omitted and
// default to 1, so "512x512" is a single plane.
func parseDims(s string) ([5]int, error) {
	sizes := [5]int{1, 1, 1, 1, 1}
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) < 2 || len(parts) > 5 {
		return sizes, fmt.Errorf("invalid dims %q: want XxY[xZ[xC[xT]]]", s)
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return sizes, fmt.Errorf("invalid dims %q: size %q must be a positive integer", s, part)
		}
		sizes[i] = n
	}
	return sizes, nil
}

// planeFlags select one (z, c, t) plane.
type planeFlags struct {
	z, c, t int
}

func (f *planeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.z, "z", 0, "focal plane")
	cmd.Flags().IntVar(&f.c, "c", 0, "channel")
	cmd.Flags().IntVar(&f.t, "t", 0, "timepoint")
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
