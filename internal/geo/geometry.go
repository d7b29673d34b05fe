package geo

import (
	"math"

	"github.com/groundlink/missionmap/pkg/core"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PathGeometry returns the WKT of the path through points, in lng/lat order.
// A single point yields a POINT, no points an empty LINESTRING.
func PathGeometry(points []core.GeoPoint) string {
	switch len(points) {
	case 0:
		return geom.LineString{}.AsText()
	case 1:
		return geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: points[0].Lng, Y: points[0].Lat},
			Type: geom.DimXY,
		}).AsText()
	}

	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lng, p.Lat)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)).AsText()
}

// RegionGeometry returns the WKT of the closed outline of the axis-aligned
// rectangle spanned by two opposite corners.
func RegionGeometry(a, b core.GeoPoint) string {
	ring := regionRing(a, b)
	flat := make([]float64, 0, len(ring)*2)
	for _, p := range ring {
		flat = append(flat, p[0], p[1])
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)).AsText()
}

// PathLength returns the geodesic length of the path in meters.
func PathLength(points []core.GeoPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = toOrb(p)
	}
	return orbgeo.Length(ls)
}

// RegionArea returns the area in square meters of the rectangle spanned by a and b.
func RegionArea(a, b core.GeoPoint) float64 {
	return math.Abs(orbgeo.Area(orb.Polygon{regionRing(a, b)}))
}

// Bearing returns the initial bearing from one point to another in degrees
// clockwise from north, normalized to [0,360).
func Bearing(from, to core.GeoPoint) float64 {
	b := orbgeo.Bearing(toOrb(from), toOrb(to))
	if b < 0 {
		b += 360
	}
	return b
}

// Distance returns the geodesic distance between two points in meters.
func Distance(a, b core.GeoPoint) float64 {
	return orbgeo.Distance(toOrb(a), toOrb(b))
}

func toOrb(p core.GeoPoint) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func regionRing(a, b core.GeoPoint) orb.Ring {
	return orb.Ring{
		{a.Lng, a.Lat},
		{b.Lng, a.Lat},
		{b.Lng, b.Lat},
		{a.Lng, b.Lat},
		{a.Lng, a.Lat},
	}
}
