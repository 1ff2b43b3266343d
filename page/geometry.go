package page

import (
	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/object"
)

// EncodeGeometryBlob and DecodeGeometryBlob implement the overflow-region
// geometry blob described in serialize.go's layout comment: the full,
// self-contained representation of a page's objects (exact vertices,
// properties) that the fixed-size slot has no room for. A page's blob is
// rebuilt in full into the disk manager's overflow region on every Sync;
// the slot's geom_offset/geom_len fields point back into it.
//
// Per-object record:
//
//	id          u64
//	kind        u8 (+3 pad)
//	prop_len    u32
//	prop_bytes  [prop_len]byte
//	kind-specific payload (see appendGeometry/decodeGeometry)
func EncodeGeometryBlob(objs []object.Object) []byte {
	var head [4]byte
	putUint32LE(head[:], uint32(len(objs)))
	buf := append([]byte(nil), head[:]...)

	for _, o := range objs {
		var rec [16]byte
		putUint64LE(rec[0:8], uint64(o.ID))
		rec[8] = byte(o.Kind)
		putUint32LE(rec[12:16], uint32(len(o.Properties)))
		buf = append(buf, rec[:]...)
		buf = append(buf, o.Properties...)
		buf = appendGeometry(buf, o)
	}
	return buf
}

// DecodeGeometryBlob is the inverse of EncodeGeometryBlob.
func DecodeGeometryBlob(blob []byte) ([]object.Object, error) {
	if len(blob) < 4 {
		return nil, ErrCorrupt
	}
	count := int(getUint32LE(blob[0:4]))
	pos := 4
	objs := make([]object.Object, 0, count)

	for i := 0; i < count; i++ {
		if pos+16 > len(blob) {
			return nil, ErrCorrupt
		}
		id := getUint64LE(blob[pos : pos+8])
		kind := object.Kind(blob[pos+8])
		propLen := int(getUint32LE(blob[pos+12 : pos+16]))
		pos += 16
		if pos+propLen > len(blob) {
			return nil, ErrCorrupt
		}
		var props []byte
		if propLen > 0 {
			props = append([]byte(nil), blob[pos:pos+propLen]...)
		}
		pos += propLen

		o := object.Object{ID: object.ID(id), Kind: kind, Properties: props}
		var err error
		pos, err = decodeGeometry(blob, pos, &o)
		if err != nil {
			return nil, err
		}
		o.UpdateDerived()
		objs = append(objs, o)
	}
	return objs, nil
}

func appendGeometry(buf []byte, o object.Object) []byte {
	switch o.Kind {
	case object.KindPoint:
		return appendPoint(buf, o.Point)
	case object.KindPolyline:
		return appendPoints(buf, o.Polyline.Points)
	case object.KindPolygon:
		buf = appendPoints(buf, o.Polygon.Exterior)
		var holeCount [4]byte
		putUint32LE(holeCount[:], uint32(len(o.Polygon.Holes)))
		buf = append(buf, holeCount[:]...)
		for _, h := range o.Polygon.Holes {
			buf = appendPoints(buf, h)
		}
		return buf
	default:
		return buf
	}
}

func appendPoint(buf []byte, p geom.Point) []byte {
	var rec [16]byte
	putF64(rec[0:8], p.X)
	putF64(rec[8:16], p.Y)
	return append(buf, rec[:]...)
}

func appendPoints(buf []byte, pts []geom.Point) []byte {
	var cnt [4]byte
	putUint32LE(cnt[:], uint32(len(pts)))
	buf = append(buf, cnt[:]...)
	for _, p := range pts {
		buf = appendPoint(buf, p)
	}
	return buf
}

func decodeGeometry(blob []byte, pos int, o *object.Object) (int, error) {
	switch o.Kind {
	case object.KindPoint:
		if pos+16 > len(blob) {
			return 0, ErrCorrupt
		}
		o.Point = geom.Point{X: getF64(blob[pos : pos+8]), Y: getF64(blob[pos+8 : pos+16])}
		return pos + 16, nil
	case object.KindPolyline:
		pts, next, err := decodePoints(blob, pos)
		if err != nil {
			return 0, err
		}
		o.Polyline = geom.Polyline{Points: pts}
		return next, nil
	case object.KindPolygon:
		ext, next, err := decodePoints(blob, pos)
		if err != nil {
			return 0, err
		}
		if next+4 > len(blob) {
			return 0, ErrCorrupt
		}
		holeCount := int(getUint32LE(blob[next : next+4]))
		next += 4
		holes := make([][]geom.Point, 0, holeCount)
		for i := 0; i < holeCount; i++ {
			var hole []geom.Point
			hole, next, err = decodePoints(blob, next)
			if err != nil {
				return 0, err
			}
			holes = append(holes, hole)
		}
		o.Polygon = geom.Polygon{Exterior: ext, Holes: holes}
		return next, nil
	default:
		return pos, nil
	}
}

func decodePoints(blob []byte, pos int) ([]geom.Point, int, error) {
	if pos+4 > len(blob) {
		return nil, 0, ErrCorrupt
	}
	count := int(getUint32LE(blob[pos : pos+4]))
	pos += 4
	pts := make([]geom.Point, 0, count)
	for i := 0; i < count; i++ {
		if pos+16 > len(blob) {
			return nil, 0, ErrCorrupt
		}
		pts = append(pts, geom.Point{X: getF64(blob[pos : pos+8]), Y: getF64(blob[pos+8 : pos+16])})
		pos += 16
	}
	return pts, pos, nil
}
