// Package diskmgr implements the disk manager spec.md §4.H describes: page
// allocation strategy, the fixed on-disk file layout, sync, and seek
// estimation. It owns a page pool and page cache (spec.md §4.D/§4.E), an
// allocation KD-tree over non-empty pages' centroids (reusing kdtree.Tree,
// the same structure the coordinator's block tree uses, per kdtree's own
// package doc), and the open file handle.
//
// Lifecycle follows an Open/Close/Sync shape over a fixed meta-page-style
// header with a magic number and version field. Page slots and geometry
// blobs are always read and written with ReadAt/WriteAt; with UseMmap set,
// Open additionally maps the data region (internal/mmap, backed by
// golang.org/x/sys), and Sync resizes that mapping and, with SyncOnWrite,
// msyncs it.
package diskmgr

import (
	"encoding/binary"
	"io"
	"os"

	"time"

	"github.com/urbis/urbis/cache"
	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/internal/mmap"
	"github.com/urbis/urbis/kdtree"
	"github.com/urbis/urbis/metrics"
	"github.com/urbis/urbis/page"
	"github.com/urbis/urbis/pool"
)

// Config configures a Manager's allocation and I/O behavior.
type Config struct {
	PageCapacity  int      // objects per page (page.DefaultObjectCapacity if <= 0)
	PagesPerTrack int      // pages per track (page.DefaultPagesPerTrack if <= 0)
	CacheSize     int      // cache.New capacity (cache default if <= 0)
	Strategy      Strategy // allocation strategy
	SyncOnWrite   bool     // fsync the file after every Sync
	UseMmap       bool     // also map the data region on Open; slot I/O still uses ReadAt/WriteAt
}

// Manager is the disk-backed allocation and persistence layer: a pool, a
// cache over it, an allocation KD-tree, and (once Create/Open has been
// called) an open file.
type Manager struct {
	cfg       Config
	pool      *pool.Pool
	cache     *cache.Cache
	allocTree *kdtree.Tree

	file    *os.File
	path    string
	header  Header
	dataMap *mmap.Map

	seeksEstimated uint64
	pagesAllocated uint64

	// freedSinceSync tracks pages freed since the last Sync whose on-disk
	// slot still needs zeroing, so a freed-and-not-reallocated page
	// doesn't reappear as a ghost on the next Open.
	freedSinceSync []page.ID

	// Metrics mirrors allocation/sync activity into a Prometheus
	// collector when set. Left nil, the manager has no metrics
	// dependency at all.
	Metrics *metrics.Collector
}

// New creates a Manager with no file open yet.
func New(cfg Config) *Manager {
	if cfg.PageCapacity <= 0 {
		cfg.PageCapacity = page.DefaultObjectCapacity
	}
	if cfg.PagesPerTrack <= 0 {
		cfg.PagesPerTrack = page.DefaultPagesPerTrack
	}
	p := pool.New(cfg.PageCapacity)
	return &Manager{
		cfg:       cfg,
		pool:      p,
		cache:     cache.New(p, cfg.CacheSize),
		allocTree: kdtree.New(),
	}
}

// Pool returns the manager's page pool.
func (m *Manager) Pool() *pool.Pool { return m.pool }

// Cache returns the manager's page cache.
func (m *Manager) Cache() *cache.Cache { return m.cache }

// IsOpen reports whether a file is currently open.
func (m *Manager) IsOpen() bool { return m.file != nil }

// Create opens a brand-new file at path, writing a zeroed, freshly
// initialized header, per spec.md §4.H's Create operation.
func (m *Manager) Create(path string) error {
	if m.file != nil {
		return ErrAlreadyOpen
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	m.file = f
	m.path = path
	m.header = Header{
		Magic:         Magic,
		Version:       SupportedVersion,
		PageSize:      uint32(page.SlotSize(m.cfg.PageCapacity)),
		PagesPerTrack: uint32(m.cfg.PagesPerTrack),
		IndexOffset:   HeaderSize,
		Bounds:        geom.EmptyMBR(),
	}
	// Round data_offset up to a 4 KiB boundary: the index region is at
	// least one page slot but is padded further here so the data region
	// mmap's offset stays page-aligned, a requirement internal/mmap
	// inherits from the underlying unix.Mmap/Windows CreateFileMapping
	// call regardless of whether UseMmap ends up set for this run.
	rawDataOffset := m.header.IndexOffset + uint64(m.header.PageSize)
	m.header.DataOffset = alignUp(rawDataOffset, HeaderSize)
	m.header.OverflowOffset = m.header.DataOffset
	if err := m.writeHeader(); err != nil {
		m.closeFile()
		return err
	}
	if err := m.file.Truncate(int64(m.header.DataOffset)); err != nil {
		m.closeFile()
		return err
	}
	return nil
}

// Open reads an existing file's header, loads every page slot in
// [1, page_count] into the pool, and rebuilds the allocation tree from
// non-empty pages, per spec.md §4.H's Open operation.
func (m *Manager) Open(path string) error {
	if m.file != nil {
		return ErrAlreadyOpen
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		f.Close()
		return err
	}
	h, err := decodeHeader(buf)
	if err != nil {
		f.Close()
		return err
	}
	capacity := int((h.PageSize - uint32(page.HeaderSize)) / uint32(page.ObjectRecordSize))

	m.file = f
	m.path = path
	m.header = h
	m.pool = pool.New(capacity)
	m.cache = cache.New(m.pool, m.cfg.CacheSize)

	slotBuf := make([]byte, h.PageSize)
	for id := uint32(1); id <= h.PageCount; id++ {
		off := int64(h.DataOffset) + int64(id-1)*int64(h.PageSize)
		if _, err := m.file.ReadAt(slotBuf, off); err != nil && err != io.EOF {
			m.closeFile()
			return err
		}
		var blob []byte
		geomOffset, geomLen := readGeomFields(slotBuf)
		if geomLen > 0 {
			blob = make([]byte, geomLen)
			if _, err := m.file.ReadAt(blob, int64(geomOffset)); err != nil {
				m.closeFile()
				return err
			}
		}
		pg, _, err := page.Deserialize(slotBuf, capacity, blob)
		if err != nil || pg.ID == 0 {
			continue // skip a corrupt slot, or one Sync zeroed after FreePage
		}
		m.installPage(pg)
	}

	if m.cfg.UseMmap {
		if err := m.mapData(); err != nil {
			m.closeFile()
			return err
		}
	}

	m.RebuildAllocationTree()
	return nil
}

// installPage re-homes a deserialized page into the pool at its original
// id and track, growing the pool's backing arrays as needed without going
// through AllocatePage's slot-bitmap assignment (Open is restoring ids the
// file already assigned, not minting new ones).
func (m *Manager) installPage(pg *page.Page) {
	m.pool.Install(pg)
	if pg.TrackID != 0 {
		t, ok := m.pool.GetTrack(pg.TrackID)
		if !ok {
			t = m.pool.InstallTrack(pg.TrackID, m.cfg.PagesPerTrack)
		}
		t.AddPage(pg, m.pool.GetPage)
	}
}

func readGeomFields(slot []byte) (uint64, uint32) {
	if len(slot) < page.HeaderSize {
		return 0, 0
	}
	// offsets 72/80 per page/serialize.go's layout comment.
	geomOffset := binary.LittleEndian.Uint64(slot[72:80])
	geomLen := binary.LittleEndian.Uint32(slot[80:84])
	return geomOffset, geomLen
}

// Close syncs, releases the file, and clears open-file state, per
// spec.md §4.H's Close operation.
func (m *Manager) Close() error {
	if m.file == nil {
		return ErrNotOpen
	}
	if err := m.Sync(); err != nil {
		return err
	}
	m.closeFile()
	return nil
}

func (m *Manager) closeFile() {
	if m.dataMap != nil {
		m.dataMap.Close()
		m.dataMap = nil
	}
	if m.file != nil {
		m.file.Close()
		m.file = nil
	}
}

// AllocPage chooses a track for centroid per the configured Strategy
// (creating a new one if none qualifies or has room), allocates a fresh
// page in the pool assigned to it, stamps the page's centroid, updates
// the manager's running bounds, inserts the page into the allocation
// tree, and marks the page dirty, per spec.md §4.H's alloc_page.
func (m *Manager) AllocPage(centroid geom.Point) (*page.Page, error) {
	candidates := candidateTracks(m.pool)
	if m.cfg.Strategy == Sequential {
		// Only the most recently created track qualifies; if it is full,
		// force a new track rather than falling back to an older one.
		if all := m.pool.Tracks(); len(all) > 0 && all[len(all)-1].IsFull() {
			candidates = nil
		}
	}
	t := chooseTrack(m.cfg.Strategy, candidates, centroid)
	if t == nil {
		t = m.pool.CreateTrack(m.cfg.PagesPerTrack)
	}
	pg, err := m.pool.AllocatePage(t)
	if err != nil {
		return nil, err
	}
	pg.Centroid = centroid
	pg.Flags |= page.Dirty
	m.header.Bounds = geom.ExpandPoint(m.header.Bounds, centroid)
	m.allocTree.Insert(kdtree.Item{Point: centroid, ID: uint64(pg.ID), Kind: kdtree.RefPage})
	m.pagesAllocated++
	m.Metrics.IncPagesAllocated(1)
	return pg, nil
}

// FreePage releases id back to the pool and schedules its on-disk slot to
// be zeroed on the next Sync, so a freed page doesn't resurface as a
// ghost object if its array slot isn't reallocated before the next Open.
func (m *Manager) FreePage(id page.ID) error {
	if err := m.pool.FreePage(id); err != nil {
		return err
	}
	m.freedSinceSync = append(m.freedSinceSync, id)
	m.Metrics.IncPagesFreed(1)
	return nil
}

// Sync rebuilds the geometry overflow region from scratch (see
// page/geometry.go's doc comment), writes every live page's slot (dirty or
// not, since each slot's geom_offset moves with the rebuilt region) and
// clears its DIRTY flag, zeroes the slots of pages freed since the last
// Sync, recomputes header aggregates, and writes the header, per spec.md
// §4.H's Sync operation.
func (m *Manager) Sync() error {
	if m.file == nil {
		return ErrNotOpen
	}
	start := time.Now()
	defer func() { m.Metrics.ObserveSyncDuration(time.Since(start)) }()

	pages := m.pool.Pages()
	maxID := uint32(0)
	for _, pg := range pages {
		if uint32(pg.ID) > maxID {
			maxID = uint32(pg.ID)
		}
	}
	m.header.PageCount = maxID
	m.header.TrackCount = uint32(len(m.pool.Tracks()))

	dataEnd := m.header.DataOffset + uint64(maxID)*uint64(m.header.PageSize)
	overflowStart := dataEnd
	offset := overflowStart

	var objectCount uint64
	bounds := geom.EmptyMBR()
	blobOffsets := make(map[page.ID]struct {
		off uint64
		n   uint32
	}, len(pages))

	for _, pg := range pages {
		objectCount += uint64(pg.Count())
		bounds = geom.Expand(bounds, pg.Extent)
		if pg.Count() == 0 {
			continue
		}
		blob := page.EncodeGeometryBlob(pg.Objects)
		if _, err := m.file.WriteAt(blob, int64(offset)); err != nil {
			return err
		}
		blobOffsets[pg.ID] = struct {
			off uint64
			n   uint32
		}{offset, uint32(len(blob))}
		offset += uint64(len(blob))
	}
	m.header.OverflowOffset = overflowStart
	m.header.ObjectCount = objectCount
	if !bounds.IsEmpty() {
		m.header.Bounds = bounds
	}

	for _, pg := range pages {
		bo := blobOffsets[pg.ID]
		checksum := pg.Checksum()
		slot, err := pg.Serialize(int(m.header.PageSize), checksum, bo.off, bo.n)
		if err != nil {
			return err
		}
		slotOffset := int64(m.header.DataOffset) + int64(pg.ID-1)*int64(m.header.PageSize)
		if _, err := m.file.WriteAt(slot, slotOffset); err != nil {
			return err
		}
		pg.Flags &^= page.Dirty
	}

	zero := make([]byte, m.header.PageSize)
	for _, id := range m.freedSinceSync {
		if _, ok := m.pool.GetPage(id); ok {
			continue // reallocated onto this slot since being freed
		}
		slotOffset := int64(m.header.DataOffset) + int64(id-1)*int64(m.header.PageSize)
		if _, err := m.file.WriteAt(zero, slotOffset); err != nil {
			return err
		}
	}
	m.freedSinceSync = m.freedSinceSync[:0]

	if err := m.file.Truncate(int64(offset)); err != nil {
		return err
	}

	if err := m.writeHeader(); err != nil {
		return err
	}

	if m.dataMap != nil {
		newSize := int64(maxID) * int64(m.header.PageSize)
		if newSize > 0 && newSize != m.dataMap.Size() {
			if err := m.dataMap.Remap(newSize); err != nil {
				return err
			}
		}
	}

	if m.cfg.SyncOnWrite {
		if m.dataMap != nil {
			if err := m.dataMap.Sync(); err != nil {
				return err
			}
		}
		if err := m.file.Sync(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) writeHeader() error {
	_, err := m.file.WriteAt(m.header.encode(), 0)
	return err
}

func (m *Manager) mapData() error {
	size := int(uint64(m.header.PageCount) * uint64(m.header.PageSize))
	if size == 0 {
		return nil
	}
	dm, err := mmap.New(int(m.file.Fd()), int64(m.header.DataOffset), size, true)
	if err != nil {
		return err
	}
	m.dataMap = dm
	return nil
}

// EstimateSeeks counts transitions where consecutive requested pages have
// different non-zero track ids; the transition from the initial sentinel
// (no previous track) is never counted, per spec.md §4.H.
func (m *Manager) EstimateSeeks(pageIDs []page.ID) uint64 {
	var seeks uint64
	var prevTrack page.TrackID
	first := true
	for _, id := range pageIDs {
		pg, ok := m.pool.GetPage(id)
		if !ok || pg.TrackID == 0 {
			continue
		}
		if !first && pg.TrackID != prevTrack {
			seeks++
		}
		prevTrack = pg.TrackID
		first = false
	}
	m.seeksEstimated += seeks
	return seeks
}

// RebuildAllocationTree clears and bulk-loads the allocation KD-tree from
// every non-empty page in the pool, per spec.md §4.H.
func (m *Manager) RebuildAllocationTree() {
	pages := m.pool.Pages()
	items := make([]kdtree.Item, 0, len(pages))
	for _, pg := range pages {
		if pg.Count() == 0 {
			continue
		}
		items = append(items, kdtree.Item{Point: pg.Centroid, ID: uint64(pg.ID), Kind: kdtree.RefPage})
	}
	m.allocTree.BulkLoad(items)
}

// AllocationTree returns the manager's KD-tree over non-empty page
// centroids.
func (m *Manager) AllocationTree() *kdtree.Tree { return m.allocTree }

// PagesPerTrack returns the configured (or defaulted) page-per-track
// capacity new tracks are created with.
func (m *Manager) PagesPerTrack() int { return m.cfg.PagesPerTrack }

// Header returns a copy of the manager's current in-memory header.
func (m *Manager) Header() Header { return m.header }

// Stats summarizes cumulative allocation and seek-estimation activity.
type Stats struct {
	PagesAllocated uint64
	SeeksEstimated uint64
}

// Stats returns the manager's running IO counters.
func (m *Manager) Stats() Stats {
	return Stats{PagesAllocated: m.pagesAllocated, SeeksEstimated: m.seeksEstimated}
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) / align * align
}

