// Package geojson converts between GeoJSON documents (bare geometries,
// Features and FeatureCollections) and object.Object, covering the Point, LineString, and
// Polygon geometry types Urbis indexes.
//
// The coordinate/type-tag dispatch here follows the same shape as the
// retrieved S-57 parser's Geometry{Type, Coordinates} type switch: decode
// into a small tagged intermediate, then dispatch on its Type field to
// build the domain object.
package geojson

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/object"
)

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   geometry        `json:"geometry"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// Parse decodes a GeoJSON document (a bare Point/LineString/Polygon
// geometry, a single Feature, or a FeatureCollection) into one
// object.Object per feature, treating a bare geometry as one feature
// without properties. Each feature's
// "properties" member, if present, is kept verbatim as the object's
// opaque Properties blob. Object ids are not assigned by Parse; callers
// insert the returned objects through an index, which mints ids.
func Parse(data []byte) ([]object.Object, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}

	var features []feature
	switch probe.Type {
	case "FeatureCollection":
		var fc featureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		features = fc.Features
	case "Feature":
		var f feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		features = []feature{f}
	case "Point", "LineString", "Polygon":
		var g geometry
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		features = []feature{{Type: "Feature", Geometry: g}}
	default:
		return nil, fmt.Errorf("geojson: unsupported top-level type %q", probe.Type)
	}

	objs := make([]object.Object, 0, len(features))
	for i, f := range features {
		o, err := decodeFeature(f)
		if err != nil {
			return nil, fmt.Errorf("geojson: feature %d: %w", i, err)
		}
		objs = append(objs, o)
	}
	return objs, nil
}

func decodeFeature(f feature) (object.Object, error) {
	var props []byte
	if len(f.Properties) > 0 {
		props = append([]byte(nil), f.Properties...)
	}

	switch f.Geometry.Type {
	case "Point":
		var c [2]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &c); err != nil {
			return object.Object{}, err
		}
		return object.NewPoint(geom.Point{X: c[0], Y: c[1]}, props), nil

	case "LineString":
		var coords [][2]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
			return object.Object{}, err
		}
		return object.NewPolyline(toPoints(coords), props)

	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &rings); err != nil {
			return object.Object{}, err
		}
		if len(rings) == 0 {
			return object.Object{}, fmt.Errorf("polygon has no rings")
		}
		exterior := toPoints(rings[0])
		holes := make([][]geom.Point, 0, len(rings)-1)
		for _, r := range rings[1:] {
			holes = append(holes, toPoints(r))
		}
		return object.NewPolygon(exterior, holes, props)

	default:
		return object.Object{}, fmt.Errorf("unsupported geometry type %q", f.Geometry.Type)
	}
}

func toPoints(coords [][2]float64) []geom.Point {
	pts := make([]geom.Point, len(coords))
	for i, c := range coords {
		pts[i] = geom.Point{X: c[0], Y: c[1]}
	}
	return pts
}

// Encode renders o as a single GeoJSON Feature. Properties, if set, is
// embedded verbatim as the "properties" member; it must already be valid
// JSON or omitted.
func Encode(o object.Object) ([]byte, error) {
	g, err := encodeGeometry(o)
	if err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}

	var props json.RawMessage
	if len(o.Properties) > 0 {
		props = o.Properties
	} else {
		props = json.RawMessage("null")
	}

	return json.Marshal(feature{
		Type:       "Feature",
		Geometry:   g,
		Properties: props,
	})
}

// encodeGeometry builds the "coordinates" member with each ordinate
// formatted to six fractional digits, per spec.md §6's export contract.
// encoding/json's default float formatting (shortest round-trip
// representation) can't express a fixed digit count, so coordinates are
// rendered by hand into a raw JSON array string instead of being handed
// to json.Marshal.
func encodeGeometry(o object.Object) (geometry, error) {
	switch o.Kind {
	case object.KindPoint:
		return geometry{Type: "Point", Coordinates: json.RawMessage(coordPair(o.Point))}, nil

	case object.KindPolyline:
		return geometry{Type: "LineString", Coordinates: json.RawMessage(coordList(o.Polyline.Points))}, nil

	case object.KindPolygon:
		var b strings.Builder
		b.WriteByte('[')
		b.WriteString(coordList(o.Polygon.Exterior))
		for _, h := range o.Polygon.Holes {
			b.WriteByte(',')
			b.WriteString(coordList(h))
		}
		b.WriteByte(']')
		return geometry{Type: "Polygon", Coordinates: json.RawMessage(b.String())}, nil

	default:
		return geometry{}, fmt.Errorf("unknown object kind %v", o.Kind)
	}
}

func coordPair(p geom.Point) string {
	return fmt.Sprintf("[%s,%s]", formatOrdinate(p.X), formatOrdinate(p.Y))
}

func coordList(pts []geom.Point) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(coordPair(p))
	}
	b.WriteByte(']')
	return b.String()
}

func formatOrdinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
