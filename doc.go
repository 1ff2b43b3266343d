// Package urbis implements a disk-aware 2-D spatial index for city-scale
// GIS data: points, polylines, and polygons bulk-loaded or incrementally
// inserted into a kd-tree for nearest/range queries and a page-level
// quadtree for adjacency queries, backed by a fixed-capacity page/track
// pool and an LRU page cache over a single data file.
//
// Index coordinates the pieces: pool owns page and track storage, cache
// tracks a bounded most-recently-used set of pages (pinned only on
// request), kdtree and quadtree hold index structure over object and page
// ids respectively, and diskmgr owns the on-disk file format, allocation,
// and file I/O (with an optional mapping of the data region). No package other
// than pool ever holds a live *page.Page pointer across a call boundary;
// everything else addresses pages and objects by id, so a cache eviction
// or tree rebuild never leaves a stale pointer behind.
package urbis
