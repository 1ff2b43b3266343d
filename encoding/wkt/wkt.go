// Package wkt converts between Well-Known Text strings and object.Object,
// covering the POINT, LINESTRING, and POLYGON variants Urbis indexes.
//
// There is no third-party WKT library anywhere in the retrieved pack, and
// the grammar needed is a small, fixed subset (three geometry keywords, a
// flat coordinate-pair list), so this is a hand-rolled tokenizer in the
// same type-tag-then-dispatch style geojson.Parse uses, rather than a
// general-purpose parser.
package wkt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/object"
)

// Parse decodes a single WKT geometry string into an object.Object.
func Parse(s string) (object.Object, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)

	switch {
	case strings.HasPrefix(upper, "POINT"):
		return parsePoint(s)
	case strings.HasPrefix(upper, "LINESTRING"):
		return parseLineString(s)
	case strings.HasPrefix(upper, "POLYGON"):
		return parsePolygon(s)
	default:
		return object.Object{}, fmt.Errorf("wkt: unrecognized geometry keyword in %q", s)
	}
}

func parsePoint(s string) (object.Object, error) {
	body, err := body(s, "POINT")
	if err != nil {
		return object.Object{}, err
	}
	p, err := parseCoordPair(body)
	if err != nil {
		return object.Object{}, fmt.Errorf("wkt: point: %w", err)
	}
	return object.NewPoint(p, nil), nil
}

func parseLineString(s string) (object.Object, error) {
	body, err := body(s, "LINESTRING")
	if err != nil {
		return object.Object{}, err
	}
	pts, err := parseCoordList(body)
	if err != nil {
		return object.Object{}, fmt.Errorf("wkt: linestring: %w", err)
	}
	return object.NewPolyline(pts, nil)
}

func parsePolygon(s string) (object.Object, error) {
	body, err := body(s, "POLYGON")
	if err != nil {
		return object.Object{}, err
	}
	rings, err := splitRings(body)
	if err != nil {
		return object.Object{}, fmt.Errorf("wkt: polygon: %w", err)
	}
	if len(rings) == 0 {
		return object.Object{}, fmt.Errorf("wkt: polygon has no rings")
	}
	exterior, err := parseCoordList(rings[0])
	if err != nil {
		return object.Object{}, fmt.Errorf("wkt: polygon exterior: %w", err)
	}
	holes := make([][]geom.Point, 0, len(rings)-1)
	for i, r := range rings[1:] {
		hole, err := parseCoordList(r)
		if err != nil {
			return object.Object{}, fmt.Errorf("wkt: polygon hole %d: %w", i, err)
		}
		holes = append(holes, hole)
	}
	return object.NewPolygon(exterior, holes, nil)
}

// body strips the leading keyword and the outermost matching parens,
// returning the content in between.
func body(s, keyword string) (string, error) {
	rest := strings.TrimSpace(s[len(keyword):])
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", fmt.Errorf("wkt: %s: missing enclosing parentheses", keyword)
	}
	return rest[1 : len(rest)-1], nil
}

// splitRings splits a POLYGON body ("(x y, x y, ...), (x y, ...)") into
// its comma-separated, paren-wrapped ring substrings, respecting nesting.
func splitRings(s string) ([]string, error) {
	var rings []string
	depth := 0
	start := -1
	for i, r := range s {
		switch r {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				if start < 0 {
					return nil, fmt.Errorf("unbalanced parentheses")
				}
				rings = append(rings, s[start:i])
				start = -1
			} else if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses")
	}
	return rings, nil
}

func parseCoordList(s string) ([]geom.Point, error) {
	parts := strings.Split(s, ",")
	pts := make([]geom.Point, 0, len(parts))
	for _, p := range parts {
		pt, err := parseCoordPair(p)
		if err != nil {
			return nil, err
		}
		pts = append(pts, pt)
	}
	return pts, nil
}

func parseCoordPair(s string) (geom.Point, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 2 {
		return geom.Point{}, fmt.Errorf("expected \"x y\", got %q", s)
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid x coordinate %q: %w", fields[0], err)
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid y coordinate %q: %w", fields[1], err)
	}
	return geom.Point{X: x, Y: y}, nil
}

// Encode renders o as a WKT string.
func Encode(o object.Object) string {
	switch o.Kind {
	case object.KindPoint:
		return fmt.Sprintf("POINT (%s)", formatCoord(o.Point))
	case object.KindPolyline:
		return fmt.Sprintf("LINESTRING (%s)", formatCoordList(o.Polyline.Points))
	case object.KindPolygon:
		rings := make([]string, 0, 1+len(o.Polygon.Holes))
		rings = append(rings, "("+formatCoordList(o.Polygon.Exterior)+")")
		for _, h := range o.Polygon.Holes {
			rings = append(rings, "("+formatCoordList(h)+")")
		}
		return fmt.Sprintf("POLYGON (%s)", strings.Join(rings, ", "))
	default:
		return ""
	}
}

// formatCoord renders an ordinate pair with six fractional digits, per
// spec.md §6's "%.6f" WKT export contract.
func formatCoord(p geom.Point) string {
	return strconv.FormatFloat(p.X, 'f', 6, 64) + " " + strconv.FormatFloat(p.Y, 'f', 6, 64)
}

func formatCoordList(pts []geom.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = formatCoord(p)
	}
	return strings.Join(parts, ", ")
}
