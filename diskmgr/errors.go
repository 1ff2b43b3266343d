package diskmgr

import "errors"

// Local sentinel errors, mirroring pool's and cache's avoidance of an
// import on the root package's Error type (diskmgr sits below the root
// coordinator in the dependency graph, not above it).
var (
	// ErrCorrupt is returned by Open when the header magic doesn't match.
	ErrCorrupt = errors.New("diskmgr: corrupt header")

	// ErrVersion is returned by Open when the file's version exceeds
	// SupportedVersion.
	ErrVersion = errors.New("diskmgr: unsupported file version")

	// ErrNotOpen is returned by any operation that requires an open file
	// when none is open.
	ErrNotOpen = errors.New("diskmgr: not open")

	// ErrAlreadyOpen is returned by Create/Open when a file is already
	// open on this manager.
	ErrAlreadyOpen = errors.New("diskmgr: already open")

	// ErrNoCapacity is returned when alloc_page cannot find or create a
	// track with room, after the pool itself reports allocation failure.
	ErrNoCapacity = errors.New("diskmgr: no track capacity available")
)
