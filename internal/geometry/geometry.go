// Package geometry provides the polygon primitives used to describe thermal
// event instances on infrared images: the compact string encoding stored in
// the database, bounding rectangles and rectangle detection, and polygon
// simplification for the bounded polygon column.
package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is a pixel coordinate on an infrared image.
type Point struct {
	X int
	Y int
}

// Polygon is an ordered list of vertices. Polygons are stored open; a
// rectangle is its four corners without the closing vertex repeated.
type Polygon []Point

// Rect is an axis-aligned rectangle in pixel coordinates. Width and Height
// are inclusive pixel counts: a rectangle covering a single pixel has
// Width == Height == 1.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// PolygonToString encodes a polygon as "x0 y0 x1 y1 " with a trailing
// space, the format stored in the polygon database column. An empty
// polygon encodes to the empty string.
func PolygonToString(polygon Polygon) string {
	if len(polygon) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range polygon {
		sb.WriteString(strconv.Itoa(p.X))
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(p.Y))
		sb.WriteByte(' ')
	}
	return sb.String()
}

// StringToPolygon decodes the "x0 y0 x1 y1 " encoding. An empty string
// decodes to an empty polygon. Odd coordinate counts and non-integer
// fields are reported as errors.
func StringToPolygon(s string) (Polygon, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Polygon{}, nil
	}
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("polygon string has an odd number of coordinates: %d", len(fields))
	}

	polygon := make(Polygon, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, fmt.Errorf("invalid x coordinate %q: %w", fields[i], err)
		}
		y, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return nil, fmt.Errorf("invalid y coordinate %q: %w", fields[i+1], err)
		}
		polygon = append(polygon, Point{X: x, Y: y})
	}
	return polygon, nil
}

// BoundingRect returns the inclusive bounding rectangle of the polygon.
// The zero Rect is returned for an empty polygon.
func BoundingRect(polygon Polygon) Rect {
	if len(polygon) == 0 {
		return Rect{}
	}
	xmin, xmax := polygon[0].X, polygon[0].X
	ymin, ymax := polygon[0].Y, polygon[0].Y
	for _, p := range polygon[1:] {
		xmin = min(xmin, p.X)
		xmax = max(xmax, p.X)
		ymin = min(ymin, p.Y)
		ymax = max(ymax, p.Y)
	}
	return Rect{X: xmin, Y: ymin, Width: xmax - xmin + 1, Height: ymax - ymin + 1}
}

// AsRectangle reports whether the polygon is an axis-aligned rectangle and
// returns it if so. A rectangle has 4 vertices (5 when closed) spanning
// exactly two distinct x and two distinct y values.
func AsRectangle(polygon Polygon) (Rect, bool) {
	if len(polygon) < 4 || len(polygon) > 5 {
		return Rect{}, false
	}
	var xs, ys []int
	for _, p := range polygon {
		if !contains(xs, p.X) {
			xs = append(xs, p.X)
		}
		if !contains(ys, p.Y) {
			ys = append(ys, p.Y)
		}
	}
	if len(xs) != 2 || len(ys) != 2 {
		return Rect{}, false
	}
	left := min(xs[0], xs[1])
	top := min(ys[0], ys[1])
	return Rect{
		X:      left,
		Y:      top,
		Width:  max(xs[0], xs[1]) - left + 1,
		Height: max(ys[0], ys[1]) - top + 1,
	}, true
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// RectOutline returns the four corners of the rectangle as a polygon,
// walked clockwise from the top-left pixel. Inclusive pixel coordinates:
// Rect{5, 3, 10, 2} yields (5,3) (14,3) (14,4) (5,4).
func RectOutline(rect Rect) Polygon {
	right := rect.X + rect.Width - 1
	bottom := rect.Y + rect.Height - 1
	return Polygon{
		{X: rect.X, Y: rect.Y},
		{X: right, Y: rect.Y},
		{X: right, Y: bottom},
		{X: rect.X, Y: bottom},
	}
}

// UniqueVertices removes duplicate vertices, keeping the first occurrence
// of each and preserving order.
func UniqueVertices(polygon Polygon) Polygon {
	if len(polygon) == 0 {
		return polygon
	}
	seen := make(map[Point]struct{}, len(polygon))
	out := make(Polygon, 0, len(polygon))
	for _, p := range polygon {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
