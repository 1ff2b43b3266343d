package cache

import "errors"

// ErrNotFound is returned by Get/Pin/Unpin/MarkDirty when the pool has no
// such page.
var ErrNotFound = errors.New("cache: not found")

// ErrFull is returned by Get when the cache is at capacity and every
// resident entry is pinned, so no room can be made.
var ErrFull = errors.New("cache: full, all entries pinned")
