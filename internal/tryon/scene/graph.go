package scene

import (
	"TryOnGolang/internal/tryon/geom"
	"github.com/golang/geo/r3"
	"github.com/sirupsen/logrus"
	"sync"
)

// Graph is an in-memory Scene. It is safe for concurrent use.
type Graph struct {
	mu       sync.Mutex
	nextID   uint64
	children []*Object
	width    int
	height   int

	renderMu sync.Mutex
	seq      uint64
	surface  Surface
	log      *logrus.Logger
}

func NewGraph(surface Surface, log *logrus.Logger) *Graph {
	return &Graph{
		surface: surface,
		log:     log,
	}
}

// CreateObject makes a detached object with an identity transform.
func (g *Graph) CreateObject(name, source string) *Object {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	return &Object{
		ID:     g.nextID,
		Name:   name,
		Source: source,
		Scale:  1,
	}
}

// Attach adds obj as a child. Attaching an attached object is a no-op.
func (g *Graph) Attach(obj *Object) {
	if obj == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.indexOf(obj) >= 0 {
		return
	}
	g.children = append(g.children, obj)
}

func (g *Graph) Detach(obj *Object) {
	if obj == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if i := g.indexOf(obj); i >= 0 {
		g.children = append(g.children[:i], g.children[i+1:]...)
	}
}

func (g *Graph) SetTransform(obj *Object, position r3.Vector, scale float64, rotation geom.Euler) {
	if obj == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	obj.Position = position
	obj.Scale = scale
	obj.Rotation = rotation
}

func (g *Graph) Resize(width, height int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.width = width
	g.height = height
}

// FindByName returns the first attached object with the given name.
func (g *Graph) FindByName(name string) *Object {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, c := range g.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (g *Graph) Children() []*Object {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*Object, len(g.children))
	copy(out, g.children)
	return out
}

// Render presents the current graph. Snapshots reach the surface in
// sequence order.
func (g *Graph) Render() error {
	g.renderMu.Lock()
	defer g.renderMu.Unlock()

	g.seq++
	snapshot := g.snapshot(g.seq)

	if g.surface == nil {
		return nil
	}

	if err := g.surface.Present(snapshot); err != nil {
		if g.log != nil {
			g.log.WithFields(logrus.Fields{
				"seq":   snapshot.Seq,
				"error": err.Error(),
			}).Warn("Failed to present render snapshot")
		}
		return err
	}
	return nil
}

func (g *Graph) snapshot(seq uint64) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	objects := make([]ObjectState, 0, len(g.children))
	for _, c := range g.children {
		objects = append(objects, ObjectState{
			ID:       c.ID,
			Name:     c.Name,
			Source:   c.Source,
			Position: Vector{X: c.Position.X, Y: c.Position.Y, Z: c.Position.Z},
			Scale:    c.Scale,
			Rotation: c.Rotation,
		})
	}

	return Snapshot{
		Seq:     seq,
		Width:   g.width,
		Height:  g.height,
		Objects: objects,
	}
}

func (g *Graph) indexOf(obj *Object) int {
	for i, c := range g.children {
		if c == obj {
			return i
		}
	}
	return -1
}
