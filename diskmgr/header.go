package diskmgr

import (
	"encoding/binary"
	"math"

	"github.com/urbis/urbis/geom"
)

// On-disk header layout (little-endian), per spec.md §4.H, 4 KiB aligned:
//
//	offset  size  field
//	0       4     magic              (u32, Magic)
//	4       4     version            (u32, =1)
//	8       4     page_count         (u32)
//	12      4     track_count        (u32)
//	16      8     object_count       (u64)
//	24      32    bounds             (4 x f64: minx,miny,maxx,maxy)
//	56      8     created_time       (u64, unix nanos)
//	64      8     modified_time      (u64, unix nanos)
//	72      4     page_size          (u32)
//	76      4     pages_per_track    (u32)
//	80      8     index_offset       (u64)
//	88      8     data_offset        (u64)
//	96      64    reserved
//	              first 8 bytes of reserved carry overflow_offset (u64):
//	              the byte offset, from file start, where the geometry
//	              overflow region begins. Not named in spec.md's reserved
//	              field, but rebuilt fresh from page_count*page_size+
//	              data_offset on every Sync, so a reader that ignores it
//	              (treating all 64 bytes as opaque reserved space, as
//	              spec.md describes) still recovers it deterministically.
//	160     ...   padding to HeaderSize
const (
	Magic            uint32 = 0x55524249
	SupportedVersion uint32 = 1
	HeaderSize              = 4096

	magicOff       = 0
	versionOff     = 4
	pageCountOff   = 8
	trackCountOff  = 12
	objectCountOff = 16
	boundsOff      = 24
	createdOff     = 56
	modifiedOff    = 64
	pageSizeOff    = 72
	pagesPerTrkOff = 76
	indexOffOff    = 80
	dataOffOff     = 88
	reservedOff    = 96
)

// Header mirrors the on-disk fixed header, spec.md §4.H field-for-field.
type Header struct {
	Magic          uint32
	Version        uint32
	PageCount      uint32
	TrackCount     uint32
	ObjectCount    uint64
	Bounds         geom.MBR
	CreatedTime    uint64
	ModifiedTime   uint64
	PageSize       uint32
	PagesPerTrack  uint32
	IndexOffset    uint64
	DataOffset     uint64
	OverflowOffset uint64
}

func (h *Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	le := binary.LittleEndian
	le.PutUint32(buf[magicOff:], h.Magic)
	le.PutUint32(buf[versionOff:], h.Version)
	le.PutUint32(buf[pageCountOff:], h.PageCount)
	le.PutUint32(buf[trackCountOff:], h.TrackCount)
	le.PutUint64(buf[objectCountOff:], h.ObjectCount)
	le.PutUint64(buf[boundsOff:], math.Float64bits(h.Bounds.MinX))
	le.PutUint64(buf[boundsOff+8:], math.Float64bits(h.Bounds.MinY))
	le.PutUint64(buf[boundsOff+16:], math.Float64bits(h.Bounds.MaxX))
	le.PutUint64(buf[boundsOff+24:], math.Float64bits(h.Bounds.MaxY))
	le.PutUint64(buf[createdOff:], h.CreatedTime)
	le.PutUint64(buf[modifiedOff:], h.ModifiedTime)
	le.PutUint32(buf[pageSizeOff:], h.PageSize)
	le.PutUint32(buf[pagesPerTrkOff:], h.PagesPerTrack)
	le.PutUint64(buf[indexOffOff:], h.IndexOffset)
	le.PutUint64(buf[dataOffOff:], h.DataOffset)
	le.PutUint64(buf[reservedOff:], h.OverflowOffset)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrCorrupt
	}
	le := binary.LittleEndian
	h := Header{
		Magic:      le.Uint32(buf[magicOff:]),
		Version:    le.Uint32(buf[versionOff:]),
		PageCount:  le.Uint32(buf[pageCountOff:]),
		TrackCount: le.Uint32(buf[trackCountOff:]),
	}
	if h.Magic != Magic {
		return Header{}, ErrCorrupt
	}
	if h.Version > SupportedVersion {
		return Header{}, ErrVersion
	}
	h.ObjectCount = le.Uint64(buf[objectCountOff:])
	h.Bounds = geom.MBR{
		MinX: math.Float64frombits(le.Uint64(buf[boundsOff:])),
		MinY: math.Float64frombits(le.Uint64(buf[boundsOff+8:])),
		MaxX: math.Float64frombits(le.Uint64(buf[boundsOff+16:])),
		MaxY: math.Float64frombits(le.Uint64(buf[boundsOff+24:])),
	}
	h.CreatedTime = le.Uint64(buf[createdOff:])
	h.ModifiedTime = le.Uint64(buf[modifiedOff:])
	h.PageSize = le.Uint32(buf[pageSizeOff:])
	h.PagesPerTrack = le.Uint32(buf[pagesPerTrkOff:])
	h.IndexOffset = le.Uint64(buf[indexOffOff:])
	h.DataOffset = le.Uint64(buf[dataOffOff:])
	h.OverflowOffset = le.Uint64(buf[reservedOff:])
	return h, nil
}
