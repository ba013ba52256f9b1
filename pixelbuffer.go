package pixels

// PixelBuffer addresses and moves the bytes of one pixel set. Offsets are
// canonical raw-store offsets: T is the outermost stride, then C, then Z.
//
// Reads return freshly allocated slices in ByteOrder. A PixelBuffer is not
// safe for concurrent use; distinct instances may read the same file
// concurrently because all I/O is positioned.
type PixelBuffer interface {
	ID() int64
	Path() string
	Pixels() Pixels

	PlaneSize() int64
	StackSize() int64
	TimepointSize() int64
	TotalSize() int64
	RowSize() (int64, error)

	CheckBounds(z, c, t int) error
	PlaneOffset(z, c, t int) (int64, error)
	StackOffset(c, t int) (int64, error)
	TimepointOffset(t int) (int64, error)
	RowOffset(y, z, c, t int) (int64, error)

	Region(size, offset int64) ([]byte, error)
	Row(y, z, c, t int) ([]byte, error)
	Plane(z, c, t int) ([]byte, error)
	Stack(c, t int) ([]byte, error)
	Timepoint(t int) ([]byte, error)
	PlaneData(z, c, t int) (*PixelData, error)

	SetRegion(offset int64, data []byte) error
	SetRow(y, z, c, t int, data []byte) error
	SetPlane(z, c, t int, data []byte) error
	SetStack(c, t int, data []byte) error
	SetTimepoint(t int, data []byte) error

	// Digest returns the SHA-1 of the whole pixel set.
	Digest() ([]byte, error)

	// Close releases the backing file. After Close every method that returns
	// an error fails with ErrIllegalState, except Close itself. ID, Path,
	// Pixels and the size accessors keep answering from the descriptor.
	Close() error
}

var (
	_ PixelBuffer = (*RomioPixelBuffer)(nil)
	_ PixelBuffer = (*DeltaVision)(nil)
)
