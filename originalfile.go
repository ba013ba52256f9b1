package pixels

import "context"

// DeltaVisionFormat is the format tag prefix of DeltaVision original files.
const DeltaVisionFormat = "DV"

// OriginalFile describes an imported vendor file. Path may be empty, in
// which case the service resolves it from ID.
type OriginalFile struct {
	ID     int64
	Format string
	Path   string
}

// OriginalFileMetadataProvider looks up original files for a pixel set.
type OriginalFileMetadataProvider interface {
	// OriginalFileWhereFormatStartsWith returns the original file of p whose
	// format tag starts with prefix, or nil when there is none.
	OriginalFileWhereFormatStartsWith(ctx context.Context, p *Pixels, prefix string) (*OriginalFile, error)
}
