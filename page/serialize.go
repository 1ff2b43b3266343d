package page

import (
	"math"

	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/object"
)

// On-disk layout (little-endian), per spec.md §4.C, extended per the
// page-serialization open question in spec.md §9: this implementation
// takes option (a), extending the payload with a variable-length geometry
// blob, rather than persisting only indexing tuples. The blob itself is
// NOT inlined in the fixed-size slot (which stays sized for header +
// C_page compact records, so seeking to slot k is still an O(1)
// page_size multiply); it lives in the disk manager's overflow region,
// addressed by the two extension fields below, the same large/overflow
// page split MDBX-derived pagers use for values that don't fit a slot.
//
//	offset  size  field
//	0       4     page_id            (u32)
//	4       4     track_id           (u32)
//	8       4     object_count       (u32)
//	12      4     flags              (u32)
//	16      32    extent             (4 x f64: minx,miny,maxx,maxy)
//	48      16    centroid           (2 x f64: x,y)
//	64      8     checksum           (u64)
//	72      8     geom_offset        (u64, extension: overflow region byte offset)
//	80      4     geom_len           (u32, extension: overflow blob length)
//	84      4     reserved           (u32, zero)
//	88      ...   object records[C_page], 60 bytes each:
//	                id u64, type u8 + 3 pad, centroid 2xf64, mbr 4xf64
//	trailing        zero-padded to the slot size
const (
	HeaderSize       = 88
	ObjectRecordSize = 60
)

// SlotSize returns the fixed on-disk size needed for a page holding up to
// capacity objects.
func SlotSize(capacity int) int {
	return HeaderSize + capacity*ObjectRecordSize
}

func putF64(b []byte, v float64) {
	putUint64LE(b, math.Float64bits(v))
}

func getF64(b []byte) float64 {
	return math.Float64frombits(getUint64LE(b))
}

// Serialize encodes the page's fixed-size slot into a freshly allocated
// buffer of exactly slotSize bytes (trailing bytes zero). checksum is
// typically p.Checksum(), passed explicitly so callers that verify before
// writing can reuse one computation. geomOffset/geomLen describe where
// this page's geometry blob (see EncodeGeometryBlob) lives in the disk
// manager's overflow region; pass (0, 0) if none has been written yet.
func (p *Page) Serialize(slotSize int, checksum uint64, geomOffset uint64, geomLen uint32) ([]byte, error) {
	need := HeaderSize + p.Capacity*ObjectRecordSize
	if slotSize < need {
		return nil, errSlotTooSmall(need, slotSize)
	}
	if len(p.Objects) > p.Capacity {
		return nil, ErrCorrupt
	}

	buf := make([]byte, slotSize)
	putUint32LE(buf[0:4], uint32(p.ID))
	putUint32LE(buf[4:8], uint32(p.TrackID))
	putUint32LE(buf[8:12], uint32(len(p.Objects)))
	putUint32LE(buf[12:16], uint32(p.Flags))
	putF64(buf[16:24], p.Extent.MinX)
	putF64(buf[24:32], p.Extent.MinY)
	putF64(buf[32:40], p.Extent.MaxX)
	putF64(buf[40:48], p.Extent.MaxY)
	putF64(buf[48:56], p.Centroid.X)
	putF64(buf[56:64], p.Centroid.Y)
	putUint64LE(buf[64:72], checksum)
	putUint64LE(buf[72:80], geomOffset)
	putUint32LE(buf[80:84], geomLen)

	for i, o := range p.Objects {
		off := HeaderSize + i*ObjectRecordSize
		rec := buf[off : off+ObjectRecordSize]
		putUint64LE(rec[0:8], uint64(o.ID))
		rec[8] = byte(o.Kind)
		putF64(rec[12:20], o.Centroid.X)
		putF64(rec[20:28], o.Centroid.Y)
		putF64(rec[28:36], o.MBR.MinX)
		putF64(rec[36:44], o.MBR.MinY)
		putF64(rec[44:52], o.MBR.MaxX)
		putF64(rec[52:60], o.MBR.MaxY)
	}
	return buf, nil
}

// Deserialize decodes a fixed-size page slot. capacity is the page
// capacity this index is configured for (from the file header, per
// spec.md §9's instruction that readers honor header values over their
// own compile-time constants). If geomBlob is non-nil, full per-object
// geometry and properties are restored via DecodeGeometryBlob; otherwise
// objects carry only the compact (id, kind, centroid, MBR) tuple, which
// still answers bounds/centroid queries (spec.md §9 option (b) fallback).
func Deserialize(data []byte, capacity int, geomBlob []byte) (*Page, uint64, error) {
	if len(data) < HeaderSize {
		return nil, 0, ErrCorrupt
	}
	id := ID(getUint32LE(data[0:4]))
	trackID := TrackID(getUint32LE(data[4:8]))
	count := int(getUint32LE(data[8:12]))
	flags := Flags(getUint32LE(data[12:16]))
	if count > capacity {
		return nil, 0, ErrCorrupt
	}
	if len(data) < HeaderSize+count*ObjectRecordSize {
		return nil, 0, ErrCorrupt
	}

	p := New(id, capacity)
	p.TrackID = trackID
	p.Flags = flags
	p.Extent = geom.MBR{
		MinX: getF64(data[16:24]), MinY: getF64(data[24:32]),
		MaxX: getF64(data[32:40]), MaxY: getF64(data[40:48]),
	}
	p.Centroid = geom.Point{X: getF64(data[48:56]), Y: getF64(data[56:64])}
	checksum := getUint64LE(data[64:72])

	var geomByID map[object.ID]object.Object
	if geomBlob != nil {
		decoded, err := DecodeGeometryBlob(geomBlob)
		if err == nil {
			geomByID = make(map[object.ID]object.Object, len(decoded))
			for _, o := range decoded {
				geomByID[o.ID] = o
			}
		}
	}

	for i := 0; i < count; i++ {
		off := HeaderSize + i*ObjectRecordSize
		rec := data[off : off+ObjectRecordSize]
		compact := object.Object{
			ID:   object.ID(getUint64LE(rec[0:8])),
			Kind: object.Kind(rec[8]),
			Centroid: geom.Point{
				X: getF64(rec[12:20]),
				Y: getF64(rec[20:28]),
			},
			MBR: geom.MBR{
				MinX: getF64(rec[28:36]), MinY: getF64(rec[36:44]),
				MaxX: getF64(rec[44:52]), MaxY: getF64(rec[52:60]),
			},
		}
		if full, ok := geomByID[compact.ID]; ok {
			p.Objects = append(p.Objects, full)
		} else {
			p.Objects = append(p.Objects, compact)
		}
	}
	return p, checksum, nil
}
