// Package scene is the render-side scene graph the try-on pipeline drives.
//
// The server does not rasterize anything. A Graph keeps the authoritative
// object list and every Render call publishes a Snapshot to a Surface, which a
// client renderer draws over its own video or photo.
package scene

import (
	"TryOnGolang/internal/tryon/geom"
	"github.com/golang/geo/r3"
)

// Scene is the scene graph contract used by the asset manager and pipeline.
type Scene interface {
	CreateObject(name, source string) *Object
	Attach(obj *Object)
	Detach(obj *Object)
	SetTransform(obj *Object, position r3.Vector, scale float64, rotation geom.Euler)
	Render() error
	Resize(width, height int)
	FindByName(name string) *Object
	Children() []*Object
}

// Object is a node of the graph. Fields are owned by the Graph that created
// the object and must only be changed through it.
type Object struct {
	ID       uint64
	Name     string
	Source   string
	Position r3.Vector
	Scale    float64
	Rotation geom.Euler
}

// Surface receives render snapshots.
type Surface interface {
	Present(snapshot Snapshot) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(snapshot Snapshot) error

func (f SurfaceFunc) Present(snapshot Snapshot) error {
	return f(snapshot)
}

type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type ObjectState struct {
	ID       uint64     `json:"id"`
	Name     string     `json:"name"`
	Source   string     `json:"source"`
	Position Vector     `json:"position"`
	Scale    float64    `json:"scale"`
	Rotation geom.Euler `json:"rotation"`
}

// Snapshot is one rendered frame of the graph.
type Snapshot struct {
	Seq     uint64        `json:"seq"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Objects []ObjectState `json:"objects"`
}
