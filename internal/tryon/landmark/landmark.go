// Package landmark holds face-mesh landmark sets and the detector result type.
//
// Indices follow the canonical 468 point face mesh numbering. A detector that
// uses a different numbering cannot be used with the pose estimator.
package landmark

import (
	"github.com/golang/geo/r3"
)

// Canonical face mesh indices used for pose estimation.
const (
	MidEyes             = 168
	LeftEyeInnerCorner  = 463
	RightEyeInnerCorner = 243
	NoseBottom          = 2
	LeftEyeUpper        = 264
	RightEyeUpper       = 34
)

// MinPoints is the size of the canonical mesh without iris refinement.
const MinPoints = 468

// Set is an ordered, immutable sequence of landmark points.
type Set []r3.Vector

// Scale converts one normalized landmark into pixel space. Depth is expressed
// in horizontal pixels because detectors report z relative to image width.
func Scale(p r3.Vector, width, height float64) r3.Vector {
	return r3.Vector{
		X: p.X * width,
		Y: p.Y * height,
		Z: p.Z * width,
	}
}

// Scaled returns a pixel space copy of the set.
func (s Set) Scaled(width, height float64) Set {
	out := make(Set, len(s))
	for i, p := range s {
		out[i] = Scale(p, width, height)
	}
	return out
}

// Complete reports whether every canonical index is addressable.
func (s Set) Complete() bool {
	return len(s) >= MinPoints
}

// Result is what a detector reports for one frame: either Detected or NoFace.
type Result interface {
	isResult()
}

// Detected carries the landmarks of the single tracked face.
type Detected struct {
	Points Set
}

// NoFace means the frame was processed and no face was found.
type NoFace struct{}

func (Detected) isResult() {}
func (NoFace) isResult()   {}

// FromPoints builds a Result, mapping an empty set to NoFace.
func FromPoints(points Set) Result {
	if len(points) == 0 {
		return NoFace{}
	}
	return Detected{Points: points}
}

// Points returns the landmarks of r, or false for NoFace and nil results.
func Points(r Result) (Set, bool) {
	d, ok := r.(Detected)
	if !ok || len(d.Points) == 0 {
		return nil, false
	}
	return d.Points, true
}
