package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scigolib/pixels"
	"github.com/scigolib/pixels/internal/registry"
)

func newCreateCmd(cfg *config) *cobra.Command {
	var desc descriptorFlags
	cmd := &cobra.Command{
		Use:   "create <pixels-id>",
		Short: "Allocate a raw pixel file filled with the sentinel pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := desc.pixels(id)
			if err != nil {
				return err
			}
			svc, err := cfg.service(cmd)
			if err != nil {
				return err
			}
			buf, err := svc.CreatePixelBuffer(p)
			if err != nil {
				return fmt.Errorf("failed to create pixel buffer: %w", err)
			}
			defer buf.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Pixel buffer %d created at %s (%d bytes)\n", id, buf.Path(), buf.TotalSize())
			return nil
		},
	}
	desc.register(cmd)
	return cmd
}

func newInfoCmd(cfg *config) *cobra.Command {
	var desc descriptorFlags
	var bypass bool
	cmd := &cobra.Command{
		Use:   "info <pixels-id>",
		Short: "Show the backing file and sizes of a pixel set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := desc.pixels(id)
			if err != nil {
				return err
			}
			buf, release, err := cfg.openBuffer(cmd, p, bypass)
			if err != nil {
				return err
			}
			defer release()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pixels:     %v\n", p)
			switch b := buf.(type) {
			case *pixels.DeltaVision:
				fmt.Fprintf(out, "Backing:    DeltaVision original file (%v, read-only)\n", b.Sequence())
			default:
				state := "present"
				if _, err := os.Stat(buf.Path()); err != nil {
					state = "not yet written"
				}
				fmt.Fprintf(out, "Backing:    raw pixel file (%s)\n", state)
			}
			fmt.Fprintf(out, "Path:       %s\n", buf.Path())
			if rowSize, err := buf.RowSize(); err == nil {
				fmt.Fprintf(out, "Row:        %d bytes\n", rowSize)
			}
			fmt.Fprintf(out, "Plane:      %d bytes\n", buf.PlaneSize())
			fmt.Fprintf(out, "Stack:      %d bytes\n", buf.StackSize())
			fmt.Fprintf(out, "Timepoint:  %d bytes\n", buf.TimepointSize())
			fmt.Fprintf(out, "Total:      %d bytes\n", buf.TotalSize())
			return nil
		},
	}
	desc.register(cmd)
	cmd.Flags().BoolVar(&bypass, "bypass-original", false, "ignore registered original files")
	return cmd
}

func newGetPlaneCmd(cfg *config) *cobra.Command {
	var desc descriptorFlags
	var plane planeFlags
	var outPath string
	cmd := &cobra.Command{
		Use:   "get-plane <pixels-id>",
		Short: "Write the raw bytes of one plane to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := desc.pixels(id)
			if err != nil {
				return err
			}
			buf, release, err := cfg.openBuffer(cmd, p, false)
			if err != nil {
				return err
			}
			defer release()

			data, err := buf.Plane(plane.z, plane.c, plane.t)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(outPath, data, pixels.DefaultFileMode)
		},
	}
	desc.register(cmd)
	plane.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newSetPlaneCmd(cfg *config) *cobra.Command {
	var desc descriptorFlags
	var plane planeFlags
	var inPath string
	cmd := &cobra.Command{
		Use:   "set-plane <pixels-id>",
		Short: "Replace one plane with the raw bytes of a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := desc.pixels(id)
			if err != nil {
				return err
			}

			var data []byte
			if inPath == "" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(inPath)
			}
			if err != nil {
				return fmt.Errorf("failed to read plane data: %w", err)
			}

			buf, release, err := cfg.openBuffer(cmd, p, true)
			if err != nil {
				return err
			}
			defer release()

			if err := buf.SetPlane(plane.z, plane.c, plane.t, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plane z=%d c=%d t=%d of pixels %d written (%d bytes)\n",
				plane.z, plane.c, plane.t, id, len(data))
			return nil
		},
	}
	desc.register(cmd)
	plane.register(cmd)
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input file (default stdin)")
	return cmd
}

func newValueCmd(cfg *config) *cobra.Command {
	var desc descriptorFlags
	var plane planeFlags
	var index int64
	var set string
	cmd := &cobra.Command{
		Use:   "value <pixels-id>",
		Short: "Print, or with --set change, one pixel value of a plane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := desc.pixels(id)
			if err != nil {
				return err
			}
			buf, release, err := cfg.openBuffer(cmd, p, set != "")
			if err != nil {
				return err
			}
			defer release()

			data, err := buf.PlaneData(plane.z, plane.c, plane.t)
			if err != nil {
				return err
			}
			if set != "" {
				v, err := strconv.ParseFloat(set, 64)
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", set, err)
				}
				if err := data.SetPixelValue(index, v); err != nil {
					return err
				}
				if err := buf.SetPlane(plane.z, plane.c, plane.t, data.Bytes()); err != nil {
					return err
				}
			}

			v, err := data.PixelValue(index)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(v, 'g', -1, 64))
			return nil
		},
	}
	desc.register(cmd)
	plane.register(cmd)
	cmd.Flags().Int64Var(&index, "index", 0, "pixel index within the plane (y*sizeX + x)")
	cmd.Flags().StringVar(&set, "set", "", "new value to store before printing")
	return cmd
}

func newDigestCmd(cfg *config) *cobra.Command {
	var desc descriptorFlags
	cmd := &cobra.Command{
		Use:   "digest <pixels-id>",
		Short: "Print the SHA-1 of a pixel set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := desc.pixels(id)
			if err != nil {
				return err
			}
			buf, release, err := cfg.openBuffer(cmd, p, false)
			if err != nil {
				return err
			}
			defer release()

			sum, err := buf.Digest()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(sum))
			return nil
		},
	}
	desc.register(cmd)
	return cmd
}

func newDumpCmd(cfg *config) *cobra.Command {
	var desc descriptorFlags
	var offset, length int64
	cmd := &cobra.Command{
		Use:   "dump <pixels-id>",
		Short: "Hex dump a byte range of a pixel set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := desc.pixels(id)
			if err != nil {
				return err
			}
			if length < 1 {
				return fmt.Errorf("invalid length: %d", length)
			}
			buf, release, err := cfg.openBuffer(cmd, p, false)
			if err != nil {
				return err
			}
			defer release()

			if offset < 0 || offset >= buf.TotalSize() {
				return fmt.Errorf("invalid offset: %d (pixel set size: %d)", offset, buf.TotalSize())
			}
			out := cmd.OutOrStdout()
			if remaining := buf.TotalSize() - offset; length > remaining {
				fmt.Fprintf(out, "Warning: requested length %d exceeds available bytes (%d). Dumping %d bytes.\n",
					length, remaining, remaining)
				length = remaining
			}

			data, err := buf.Region(length, offset)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Dumping %d bytes at offset 0x%x (%d) of %s (size: %d bytes):\n",
				len(data), offset, offset, buf.Path(), buf.TotalSize())
			hexDump(out, data, offset)
			return nil
		},
	}
	desc.register(cmd)
	cmd.Flags().Int64Var(&offset, "offset", 0, "offset in the pixel set to start dumping from")
	cmd.Flags().Int64Var(&length, "length", 128, "number of bytes to dump")
	return cmd
}

func newRemoveCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <pixels-id>...",
		Short: "Delete raw pixel files; missing files are ignored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			svc, err := cfg.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.RemovePixels(ids); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d pixel set(s)\n", len(ids))
			return nil
		},
	}
}

func newRegisterCmd(cfg *config) *cobra.Command {
	var file pixels.OriginalFile
	var list bool
	cmd := &cobra.Command{
		Use:   "register <pixels-id>",
		Short: "Record an original file for a pixel set in the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pixelsID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if cfg.registry == "" {
				return errors.New("register needs --registry")
			}
			ctx := commandContext(cmd)
			store, err := registry.Open(ctx, cfg.registry)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if list {
				files, err := store.List(ctx, pixelsID)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintf(out, "%d\t%s\t%s\n", f.ID, f.Format, f.Path)
				}
				return nil
			}

			if err := store.Register(ctx, pixelsID, &file); err != nil {
				return err
			}
			fmt.Fprintf(out, "Original file %d (%s) registered for pixels %d\n", file.ID, file.Format, pixelsID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&file.ID, "file-id", 0, "original file id (default: assigned)")
	cmd.Flags().StringVar(&file.Format, "format", pixels.DeltaVisionFormat, "format tag")
	cmd.Flags().StringVar(&file.Path, "path", "", "file path (default: resolved from the file id)")
	cmd.Flags().BoolVar(&list, "list", false, "list the registered files instead")
	return cmd
}
