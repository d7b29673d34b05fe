package mapview

import (
	"sync"

	"github.com/groundlink/missionmap/internal/geo"
	"github.com/groundlink/missionmap/internal/queue"
	"github.com/groundlink/missionmap/pkg/core"
)

// Kind names a layer type on the Canvas.
type Kind string

const (
	KindMarker    Kind = "marker"
	KindPolyline  Kind = "polyline"
	KindRectangle Kind = "rectangle"
)

// OpType names a recorded render operation.
type OpType string

const (
	OpAdd    OpType = "add"
	OpMove   OpType = "move"
	OpRotate OpType = "rotate"
	OpRemove OpType = "remove"
	OpFlyTo  OpType = "flyTo"
)

// maxPendingOps bounds the render queue when nothing drains it.
const maxPendingOps = 4096

// Style holds the stroke settings used for lines and rectangles.
type Style struct {
	LineColor       string `json:"lineColor"`
	RectangleColor  string `json:"rectangleColor"`
	RectangleWeight int    `json:"rectangleWeight"`
}

// DefaultStyle matches the colors the ground station has always used.
var DefaultStyle = Style{
	LineColor:       "red",
	RectangleColor:  "#00aaff",
	RectangleWeight: 1,
}

// Op is one render operation for the embedding UI to apply.
// Mercator holds the same points projected to EPSG:3857.
type Op struct {
	Type     OpType          `json:"op"`
	Layer    uint            `json:"layer,omitempty"`
	Kind     Kind            `json:"kind,omitempty"`
	Icon     Icon            `json:"icon,omitempty"`
	Color    string          `json:"color,omitempty"`
	Weight   int             `json:"weight,omitempty"`
	Points   []core.GeoPoint `json:"points,omitempty"`
	Mercator [][2]float64    `json:"mercator,omitempty"`
	Rotation *float64        `json:"rotation,omitempty"`
}

// LayerInfo is a snapshot of a live layer.
type LayerInfo struct {
	ID       uint
	Kind     Kind
	Icon     Icon
	Points   []core.GeoPoint
	Rotation float64
}

// Canvas is an in-process Map. It keeps the set of live layers and queues
// every operation so a UI bridge can replay them in order.
type Canvas struct {
	mu      sync.Mutex
	style   Style
	nextID  uint
	layers  map[uint]*canvasLayer
	center  core.GeoPoint
	flights int

	ops *queue.Queue[Op]
}

// NewCanvas creates an empty canvas centered on center.
func NewCanvas(center core.GeoPoint, style Style) *Canvas {
	return &Canvas{
		style:  style,
		layers: make(map[uint]*canvasLayer),
		center: center,
		ops:    queue.NewBounded[Op](maxPendingOps),
	}
}

// AddMarker implements Map.
func (c *Canvas) AddMarker(pos core.GeoPoint, icon Icon) Marker {
	l := c.add(KindMarker, icon, pos)
	c.ops.Push(Op{Type: OpAdd, Layer: l.id, Kind: KindMarker, Icon: icon, Points: l.points, Mercator: project(l.points)})
	return l
}

// AddPolyline implements Map.
func (c *Canvas) AddPolyline(from, to core.GeoPoint) Layer {
	l := c.add(KindPolyline, "", from, to)
	c.ops.Push(Op{Type: OpAdd, Layer: l.id, Kind: KindPolyline, Color: c.style.LineColor, Points: l.points, Mercator: project(l.points)})
	return l
}

// AddRectangle implements Map.
func (c *Canvas) AddRectangle(a, b core.GeoPoint) Layer {
	l := c.add(KindRectangle, "", a, b)
	c.ops.Push(Op{
		Type:     OpAdd,
		Layer:    l.id,
		Kind:     KindRectangle,
		Color:    c.style.RectangleColor,
		Weight:   c.style.RectangleWeight,
		Points:   l.points,
		Mercator: project(l.points),
	})
	return l
}

// FlyTo implements Map.
func (c *Canvas) FlyTo(pos core.GeoPoint) {
	c.mu.Lock()
	c.center = pos
	c.flights++
	c.mu.Unlock()

	pts := []core.GeoPoint{pos}
	c.ops.Push(Op{Type: OpFlyTo, Points: pts, Mercator: project(pts)})
}

// Center returns the current view center.
func (c *Canvas) Center() core.GeoPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.center
}

// Flights returns how many times the view has been recentered.
func (c *Canvas) Flights() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flights
}

// Count returns the number of live layers of the given kind.
func (c *Canvas) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.layers {
		if l.kind == kind {
			n++
		}
	}
	return n
}

// Layers returns a snapshot of every live layer ordered by creation.
func (c *Canvas) Layers() []LayerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LayerInfo, 0, len(c.layers))
	for id := uint(1); id <= c.nextID; id++ {
		l, ok := c.layers[id]
		if !ok {
			continue
		}
		out = append(out, LayerInfo{
			ID:       l.id,
			Kind:     l.kind,
			Icon:     l.icon,
			Points:   append([]core.GeoPoint(nil), l.points...),
			Rotation: l.rotation,
		})
	}
	return out
}

// Pending returns the number of operations not yet drained.
func (c *Canvas) Pending() int {
	return c.ops.Len()
}

// Dropped returns how many operations were discarded because the queue was full.
func (c *Canvas) Dropped() int {
	return c.ops.Dropped()
}

// Drain returns every queued operation in order and empties the queue.
func (c *Canvas) Drain() []Op {
	return c.ops.GetAndEmpty()
}

func (c *Canvas) add(kind Kind, icon Icon, points ...core.GeoPoint) *canvasLayer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	l := &canvasLayer{
		canvas: c,
		id:     c.nextID,
		kind:   kind,
		icon:   icon,
		points: points,
	}
	c.layers[l.id] = l
	return l
}

func project(points []core.GeoPoint) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		x, y := geo.ToWebMercator(p)
		out[i] = [2]float64{x, y}
	}
	return out
}

// canvasLayer is a layer drawn on a Canvas. Every kind satisfies Marker and
// Rotatable; the overlay only relies on that for markers.
type canvasLayer struct {
	canvas   *Canvas
	id       uint
	kind     Kind
	icon     Icon
	points   []core.GeoPoint
	rotation float64
	removed  bool
}

func (l *canvasLayer) Remove() {
	c := l.canvas
	c.mu.Lock()
	if l.removed {
		c.mu.Unlock()
		return
	}
	l.removed = true
	delete(c.layers, l.id)
	c.mu.Unlock()

	c.ops.Push(Op{Type: OpRemove, Layer: l.id, Kind: l.kind})
}

func (l *canvasLayer) LatLng() core.GeoPoint {
	l.canvas.mu.Lock()
	defer l.canvas.mu.Unlock()
	return l.points[0]
}

func (l *canvasLayer) SetLatLng(p core.GeoPoint) {
	c := l.canvas
	c.mu.Lock()
	if l.removed {
		c.mu.Unlock()
		return
	}
	l.points = []core.GeoPoint{p}
	c.mu.Unlock()

	pts := []core.GeoPoint{p}
	c.ops.Push(Op{Type: OpMove, Layer: l.id, Kind: l.kind, Points: pts, Mercator: project(pts)})
}

func (l *canvasLayer) SetRotation(deg float64) {
	c := l.canvas
	c.mu.Lock()
	if l.removed {
		c.mu.Unlock()
		return
	}
	l.rotation = deg
	c.mu.Unlock()

	c.ops.Push(Op{Type: OpRotate, Layer: l.id, Kind: l.kind, Rotation: &deg})
}
