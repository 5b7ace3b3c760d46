package geom

import (
	"math"

	"github.com/golang/geo/r3"
)

var (
	AxisX = r3.Vector{X: 1}
	AxisY = r3.Vector{Y: 1}
	AxisZ = r3.Vector{Z: 1}
)

// Euler is an XYZ-ordered rotation in radians.
type Euler struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ProjectOnPlane removes the component of v along the plane normal n.
func ProjectOnPlane(v, n r3.Vector) r3.Vector {
	den := n.Norm2()
	if den == 0 {
		return v
	}
	return v.Sub(n.Mul(v.Dot(n) / den))
}

// AngleTo returns the unsigned angle between a and b. A zero length operand
// yields pi/2, matching the renderer's vector math.
func AngleTo(a, b r3.Vector) float64 {
	den := math.Sqrt(a.Norm2() * b.Norm2())
	if den == 0 {
		return math.Pi / 2
	}
	cos := a.Dot(b) / den
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}
