// Package main provides pixelsctl, a command-line tool for inspecting and
// editing a pixel store: allocating raw pixel files, reading and writing
// planes, dumping raw bytes and registering DeltaVision original files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scigolib/pixels"
	"github.com/scigolib/pixels/internal/registry"
)

// rootEnv names the environment variable consulted when --root is unset.
const rootEnv = "PIXELS_ROOT"

type config struct {
	root     string
	registry string
	verbose  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	rootCmd := &cobra.Command{
		Use:          "pixelsctl",
		Short:        "CLI tool for the raw pixel store",
		Long:         `A command-line interface for allocating, reading and writing 5-D pixel sets in a raw pixel store.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.root, "root", "", "pixel store root (default $"+rootEnv+")")
	rootCmd.PersistentFlags().StringVar(&cfg.registry, "registry", "", "original file registry database")
	rootCmd.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "log service events to stderr")

	rootCmd.AddCommand(
		newCreateCmd(cfg),
		newInfoCmd(cfg),
		newGetPlaneCmd(cfg),
		newSetPlaneCmd(cfg),
		newValueCmd(cfg),
		newDigestCmd(cfg),
		newDumpCmd(cfg),
		newRemoveCmd(cfg),
		newRegisterCmd(cfg),
	)
	return rootCmd
}

// service builds a PixelsService from the persistent flags.
func (cfg *config) service(cmd *cobra.Command) (*pixels.PixelsService, error) {
	root := cfg.root
	if root == "" {
		root = os.Getenv(rootEnv)
	}
	if root == "" {
		return nil, fmt.Errorf("no store root: pass --root or set %s", rootEnv)
	}

	var opts []pixels.ServiceOption
	if cfg.verbose {
		opts = append(opts, pixels.WithLogger(pixels.NewLogger(cmd.ErrOrStderr(), pixels.LevelDebug)))
	}
	return pixels.NewPixelsService(root, opts...)
}

// openRegistry opens the registry named by --registry, or returns nil when
// none is configured.
func (cfg *config) openRegistry(ctx context.Context) (*registry.Store, error) {
	if cfg.registry == "" {
		return nil, nil
	}
	return registry.Open(ctx, cfg.registry)
}

// openBuffer resolves the buffer of p, consulting the registry for an
// original file when one is configured.
func (cfg *config) openBuffer(cmd *cobra.Command, p *pixels.Pixels, bypass bool) (pixels.PixelBuffer, func(), error) {
	ctx := commandContext(cmd)

	svc, err := cfg.service(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := cfg.openRegistry(ctx)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if store != nil {
			_ = store.Close()
		}
	}

	var provider pixels.OriginalFileMetadataProvider
	if store != nil {
		provider = store
	}
	buf, err := svc.GetPixelBuffer(ctx, p, provider, bypass)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	release := func() {
		_ = buf.Close()
		closeStore()
	}
	return buf, release, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
