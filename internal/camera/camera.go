// Package camera declares the camera/projection interface the engine
// consumes from the host map library (spec.md §6): a small surface the
// core drives but never implements.
package camera

// LngLat is a geographic coordinate.
type LngLat struct {
	Lng float64
	Lat float64
}

// Bounds is a geographic bounding box.
type Bounds struct {
	SW, NE LngLat
}

// Point is a screen-space pixel coordinate.
type Point struct {
	X, Y float64
}

// EventKind enumerates the camera events the engine subscribes to.
type EventKind string

const (
	EventMove   EventKind = "move"
	EventRender EventKind = "render"
	EventResize EventKind = "resize"
	EventRemove EventKind = "remove"
)

// Camera is the consumed interface (spec.md §6): project/unproject plus
// camera state accessors and the event subscription surface.
type Camera interface {
	Project(coord LngLat, referencePoint *LngLat) Point
	Unproject(p Point) LngLat
	GetCenter() LngLat
	GetZoom() float64
	GetBounds() Bounds
	On(kind EventKind, cb func())
	Off(kind EventKind, cb func())
	TriggerRepaint()
}
