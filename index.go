package urbis

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/urbis/urbis/config"
	"github.com/urbis/urbis/diskmgr"
	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/kdtree"
	"github.com/urbis/urbis/metrics"
	"github.com/urbis/urbis/object"
	"github.com/urbis/urbis/page"
	"github.com/urbis/urbis/quadtree"
)

// SpatialBlock is one entry of the coordinator's block directory built by
// Build: a group of objects whose centroids fell into the same KD-tree
// partition, materialized onto a dedicated track.
type SpatialBlock struct {
	ID          uint64
	Bounds      geom.MBR
	Centroid    geom.Point
	TrackID     page.TrackID
	ObjectCount int
}

// PageRef identifies a page by id plus the track it lives on, the shape
// find_adjacent_pages returns per spec.md §6.
type PageRef struct {
	PageID  page.ID
	TrackID page.TrackID
}

// Stats summarizes an index's current size and activity.
type Stats struct {
	ObjectCount    int
	PageCount      int
	TrackCount     int
	BlockCount     int
	CacheHits      uint64
	CacheMisses    uint64
	PagesAllocated uint64
	SeeksEstimated uint64
	IsBuilt        bool
}

// Index is the spatial index coordinator: it owns a block KD-tree over
// object centroids, an optional page-level quadtree, and a disk manager
// (which in turn owns the page pool, page cache, and allocation tree).
// Index never holds a *page.Page across a call boundary itself; every
// method resolves pages through idx.disk.Pool() for the duration of that
// call only.
type Index struct {
	cfg  config.Config
	disk *diskmgr.Manager

	blockTree *kdtree.Tree
	pageTree  *quadtree.Tree
	blocks    []SpatialBlock

	nextObjectID object.ID
	nextBlockID  uint64
	bounds       geom.MBR
	isBuilt      bool

	metrics *metrics.Collector
	logger  *zap.Logger
}

// New creates an index from cfg. When cfg.Persist is set, it opens
// cfg.DataPath if it already exists (reconstructing in-memory structure
// via Build) or creates it fresh otherwise.
func New(cfg config.Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, WrapError(InvalidArg, "invalid configuration", err)
	}

	idx := &Index{
		cfg:          cfg,
		disk:         diskmgr.New(cfg.DiskManagerConfig()),
		blockTree:    kdtree.New(),
		nextObjectID: 1,
		nextBlockID:  1,
		bounds:       geom.EmptyMBR(),
		logger:       cfg.Logger(),
	}

	if cfg.Persist {
		if _, err := os.Stat(cfg.DataPath); err == nil {
			if err := idx.Load(cfg.DataPath); err != nil {
				return nil, err
			}
		} else if err := idx.disk.Create(cfg.DataPath); err != nil {
			return nil, WrapError(IO, "creating data file", err)
		}
	}
	return idx, nil
}

// SetMetrics wires a Prometheus collector into the index and its
// subordinate disk manager and cache. Left uncalled, nothing in the
// index takes a dependency on Prometheus.
func (idx *Index) SetMetrics(m *metrics.Collector) {
	idx.metrics = m
	idx.disk.Metrics = m
	idx.disk.Cache().Metrics = m
}

// Close syncs and releases the backing file, if one is open.
func (idx *Index) Close() error {
	if !idx.disk.IsOpen() {
		return nil
	}
	if err := idx.disk.Close(); err != nil {
		return WrapError(IO, "closing data file", err)
	}
	return nil
}

// Bounds returns the union MBR of every object ever inserted (objects
// removed since do not shrink it back; it tracks high-water extent, per
// the running-bounds contract of spec.md §4.I).
func (idx *Index) Bounds() geom.MBR { return idx.bounds }

// Count returns the total number of objects currently stored.
func (idx *Index) Count() int {
	return idx.disk.Pool().Stats().ObjectCount
}

// Stats reports the index's current size and cumulative IO activity.
func (idx *Index) Stats() Stats {
	ps := idx.disk.Pool().Stats()
	hits, misses := idx.disk.Cache().Stats()
	ds := idx.disk.Stats()
	return Stats{
		ObjectCount:    ps.ObjectCount,
		PageCount:      ps.PageCount,
		TrackCount:     ps.TrackCount,
		BlockCount:     len(idx.blocks),
		CacheHits:      hits,
		CacheMisses:    misses,
		PagesAllocated: ds.PagesAllocated,
		SeeksEstimated: ds.SeeksEstimated,
		IsBuilt:        idx.isBuilt,
	}
}

// InsertPoint builds and inserts a Point object.
func (idx *Index) InsertPoint(x, y float64, props []byte) (object.ID, error) {
	return idx.Insert(object.NewPoint(geom.Point{X: x, Y: y}, props))
}

// InsertPolyline builds and inserts a Polyline object.
func (idx *Index) InsertPolyline(points []geom.Point, props []byte) (object.ID, error) {
	o, err := object.NewPolyline(points, props)
	if err != nil {
		return 0, WrapError(InvalidGeometry, "invalid polyline", err)
	}
	return idx.Insert(o)
}

// InsertPolygon builds and inserts a Polygon object.
func (idx *Index) InsertPolygon(exterior []geom.Point, holes [][]geom.Point, props []byte) (object.ID, error) {
	o, err := object.NewPolygon(exterior, holes, props)
	if err != nil {
		return 0, WrapError(InvalidGeometry, "invalid polygon", err)
	}
	return idx.Insert(o)
}

// Insert adds obj to the index, per spec.md §4.I's five-step contract:
// mint an id if unset, recompute derived fields, choose a target page
// (the allocation tree's nearest non-full page, or a freshly allocated
// one), add with one retry on a full page, then fold the object into the
// running bounds and invalidate the block structure.
func (idx *Index) Insert(obj object.Object) (object.ID, error) {
	if obj.ID == 0 {
		obj.ID = idx.nextObjectID
		idx.nextObjectID++
	} else if obj.ID >= idx.nextObjectID {
		idx.nextObjectID = obj.ID + 1
	}
	obj.UpdateDerived()

	pg, err := idx.targetPage(obj.Centroid)
	if err != nil {
		return 0, WrapError(Alloc, "choosing target page", err)
	}
	if err := pg.Add(obj); err != nil {
		pg, err = idx.disk.AllocPage(obj.Centroid)
		if err != nil {
			return 0, WrapError(Alloc, "allocating replacement page", err)
		}
		if err := pg.Add(obj); err != nil {
			return 0, WrapError(Full, "object does not fit a fresh page", err)
		}
	}
	pg.UpdateDerived()
	idx.disk.RebuildAllocationTree()
	idx.bounds = geom.Expand(idx.bounds, obj.MBR)
	idx.isBuilt = false
	idx.metrics.SetObjectsIndexed(idx.Count())
	return obj.ID, nil
}

// targetPage implements Insert's step 3: the allocation tree's nearest
// page to centroid if it still has room, else a freshly allocated one.
func (idx *Index) targetPage(centroid geom.Point) (*page.Page, error) {
	if it, ok := idx.disk.AllocationTree().Nearest(centroid); ok {
		if pg, ok := idx.disk.Pool().GetPage(page.ID(it.ID)); ok && !pg.IsFull() {
			return pg, nil
		}
	}
	return idx.disk.AllocPage(centroid)
}

// Remove deletes the object with id by linear scan of every pool page,
// per spec.md §4.I. Returns ErrNotFound if no page holds id.
func (idx *Index) Remove(id object.ID) error {
	for _, pg := range idx.disk.Pool().Pages() {
		if !pg.Remove(id) {
			continue
		}
		pg.UpdateDerived()
		idx.disk.RebuildAllocationTree()
		idx.isBuilt = false
		idx.metrics.SetObjectsIndexed(idx.Count())
		return nil
	}
	return ErrNotFound
}

// Get returns the object with id by linear scan of every pool page.
func (idx *Index) Get(id object.ID) (object.Object, bool) {
	for _, pg := range idx.disk.Pool().Pages() {
		if o, ok := pg.Find(id); ok {
			return o, true
		}
	}
	return object.Object{}, false
}

// Build regenerates the index's spatial structure from the objects
// currently stored, per spec.md §4.I: bulk-load the block KD-tree over
// object centroids, partition it by block_size, materialize each
// resulting group onto a fresh track of fresh pages, rebuild the
// allocation tree over the new pages, and (if enabled) the page
// quadtree over them. Empty indexes build trivially.
func (idx *Index) Build() error {
	start := time.Now()
	defer func() { idx.metrics.ObserveBuildDuration(time.Since(start)) }()

	objByID := make(map[object.ID]object.Object)
	for _, pg := range idx.disk.Pool().Pages() {
		for _, o := range pg.Objects {
			objByID[o.ID] = o
		}
	}

	items := make([]kdtree.Item, 0, len(objByID))
	for id, o := range objByID {
		items = append(items, kdtree.Item{Point: o.Centroid, ID: uint64(id), Kind: kdtree.RefObject})
	}
	blockTree := kdtree.New()
	blockTree.BulkLoad(items)

	idx.disk.Pool().Reset()

	var blocks []SpatialBlock
	for _, group := range blockTree.PartitionItems(idx.cfg.BlockSize) {
		track := idx.disk.Pool().CreateTrack(idx.disk.PagesPerTrack())

		blockBounds := geom.EmptyMBR()
		var sx, sy float64
		var cur *page.Page
		for _, item := range group {
			obj, ok := objByID[object.ID(item.ID)]
			if !ok {
				continue
			}
			if cur == nil || cur.IsFull() {
				var err error
				cur, err = idx.disk.Pool().AllocatePage(track)
				if err != nil {
					return WrapError(Alloc, "materializing block page", err)
				}
			}
			if err := cur.Add(obj); err != nil {
				cur, err = idx.disk.Pool().AllocatePage(track)
				if err != nil {
					return WrapError(Alloc, "materializing block page", err)
				}
				if err := cur.Add(obj); err != nil {
					return WrapError(Full, "object does not fit a fresh page", err)
				}
			}
			blockBounds = geom.ExpandPoint(blockBounds, item.Point)
			sx += item.Point.X
			sy += item.Point.Y
		}
		for _, pid := range track.PageIDs {
			if pg, ok := idx.disk.Pool().GetPage(pid); ok {
				pg.UpdateDerived()
			}
		}
		track.Recompute(idx.disk.Pool().GetPage)

		id := idx.nextBlockID
		idx.nextBlockID++
		n := len(group)
		blocks = append(blocks, SpatialBlock{
			ID:          id,
			Bounds:      blockBounds,
			Centroid:    geom.Point{X: sx / float64(n), Y: sy / float64(n)},
			TrackID:     track.ID,
			ObjectCount: n,
		})
	}

	idx.blockTree = blockTree
	idx.blocks = blocks
	idx.disk.RebuildAllocationTree()

	if idx.cfg.EnableQuadtree {
		idx.pageTree = idx.buildPageTree()
	} else {
		idx.pageTree = nil
	}
	idx.isBuilt = true

	idx.logger.Info("build complete",
		zap.Int("objects", len(objByID)),
		zap.Int("blocks", len(blocks)))
	return nil
}

func (idx *Index) buildPageTree() *quadtree.Tree {
	qt := quadtree.New(idx.bounds, quadtree.DefaultNodeCapacity, quadtree.DefaultMaxDepth)
	for _, pg := range idx.disk.Pool().Pages() {
		if pg.Count() > 0 {
			qt.Insert(uint64(pg.ID), pg.Extent, pg.Centroid, pg.TrackID)
		}
	}
	return qt
}

// ensurePageTree builds the page quadtree on demand if it doesn't exist
// yet, per spec.md §7's "adjacency queries ... build it lazily" contract.
func (idx *Index) ensurePageTree() {
	if idx.pageTree == nil {
		idx.pageTree = idx.buildPageTree()
	}
}

// QueryRange returns every object whose MBR intersects mbr: the pool's
// page-extent scan, refined per page by per-object MBR intersection.
func (idx *Index) QueryRange(mbr geom.MBR) []object.Object {
	var out []object.Object
	for _, pg := range idx.disk.Pool().QueryRegion(mbr) {
		for _, o := range pg.Objects {
			if geom.Intersects(o.MBR, mbr) {
				out = append(out, o)
			}
		}
	}
	return out
}

// QueryPoint returns every object whose MBR contains (x, y): a range
// query against the degenerate MBR at that point.
func (idx *Index) QueryPoint(x, y float64) []object.Object {
	return idx.QueryRange(geom.PointMBR(geom.Point{X: x, Y: y}))
}

// QueryKNN returns the k objects whose centroids are nearest (x, y),
// ordered by non-decreasing distance, using the block KD-tree built by
// the last Build call. Results are only as fresh as that last Build.
func (idx *Index) QueryKNN(x, y float64, k int) ([]object.Object, error) {
	if k <= 0 {
		return nil, NewError(InvalidArg, "k must be positive")
	}
	items := idx.blockTree.KNearest(geom.Point{X: x, Y: y}, k)
	out := make([]object.Object, 0, len(items))
	for _, it := range items {
		if o, ok := idx.Get(object.ID(it.ID)); ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// FindAdjacentPages ensures the page quadtree exists, finds pages
// adjacent to (or overlapping) mbr, and estimates the seeks a read of
// those pages would cost.
func (idx *Index) FindAdjacentPages(mbr geom.MBR) ([]PageRef, uint64, error) {
	idx.ensurePageTree()
	items := idx.pageTree.FindAdjacentToRegion(mbr)

	refs := make([]PageRef, len(items))
	ids := make([]page.ID, len(items))
	for i, it := range items {
		trackID, _ := it.Data.(page.TrackID)
		refs[i] = PageRef{PageID: page.ID(it.ID), TrackID: trackID}
		ids[i] = page.ID(it.ID)
	}
	seeks := idx.disk.EstimateSeeks(ids)
	idx.metrics.ObserveSeeksEstimated("adjacent", seeks)
	return refs, seeks, nil
}

// QueryAdjacent returns the union of objects on pages adjacent to mbr,
// filtered to those whose MBR intersects mbr.
func (idx *Index) QueryAdjacent(mbr geom.MBR) ([]object.Object, error) {
	refs, _, err := idx.FindAdjacentPages(mbr)
	if err != nil {
		return nil, err
	}
	seen := make(map[object.ID]bool)
	var out []object.Object
	for _, r := range refs {
		pg, ok := idx.disk.Pool().GetPage(r.PageID)
		if !ok {
			continue
		}
		for _, o := range pg.Objects {
			if seen[o.ID] || !geom.Intersects(o.MBR, mbr) {
				continue
			}
			seen[o.ID] = true
			out = append(out, o)
		}
	}
	return out, nil
}

// Optimize re-runs Build.
func (idx *Index) Optimize() error {
	return idx.Build()
}

// Save writes the index to path, creating the backing file first if none
// is open yet.
func (idx *Index) Save(path string) error {
	if !idx.disk.IsOpen() {
		if err := idx.disk.Create(path); err != nil {
			return WrapError(IO, "creating data file", err)
		}
	}
	if err := idx.disk.Sync(); err != nil {
		return WrapError(IO, "syncing data file", err)
	}
	return nil
}

// Load replaces the index's contents with what's stored at path, then
// reconstructs the block KD-tree and page quadtree via Build, per
// spec.md §4.I's save/load contract.
func (idx *Index) Load(path string) error {
	if idx.disk.IsOpen() {
		if err := idx.disk.Close(); err != nil {
			return WrapError(IO, "closing current data file", err)
		}
	}
	disk := diskmgr.New(idx.cfg.DiskManagerConfig())
	disk.Metrics = idx.metrics
	disk.Cache().Metrics = idx.metrics
	if err := disk.Open(path); err != nil {
		return WrapError(IO, "opening data file", err)
	}
	idx.disk = disk
	idx.bounds = disk.Header().Bounds
	idx.logger.Info("loaded data file", zap.String("path", path))
	return idx.Build()
}

// Sync flushes dirty pages and the header to the open backing file.
func (idx *Index) Sync() error {
	if err := idx.disk.Sync(); err != nil {
		return WrapError(IO, "syncing data file", err)
	}
	return nil
}
