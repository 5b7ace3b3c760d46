// Package pose derives the transform that lays an eyewear model over a face.
package pose

import (
	"TryOnGolang/internal/tryon/geom"
	"TryOnGolang/internal/tryon/landmark"
	"errors"
	"github.com/golang/geo/r3"
	"math"
)

var (
	ErrIncompleteLandmarks = errors.New("pose: landmark set does not cover the canonical mesh")
	ErrInvalidReference    = errors.New("pose: reference width must be positive")
	ErrDegenerateLandmarks = errors.New("pose: eye landmarks coincide")
)

// Pose is the rigid body transform applied to the model.
type Pose struct {
	Position r3.Vector
	Scale    float64
	Rotation geom.Euler
}

// Estimate computes the pose for a pixel space landmark set and the model's
// intrinsic width along its local x axis.
//
// The three rotation angles come from independent vector projections and are
// only accurate for roughly frontal faces.
func Estimate(points landmark.Set, referenceWidth float64) (Pose, error) {
	if !points.Complete() {
		return Pose{}, ErrIncompleteLandmarks
	}
	if referenceWidth <= 0 || math.IsNaN(referenceWidth) || math.IsInf(referenceWidth, 0) {
		return Pose{}, ErrInvalidReference
	}

	midEyes := points[landmark.MidEyes]
	leftInner := points[landmark.LeftEyeInnerCorner]
	rightInner := points[landmark.RightEyeInnerCorner]
	noseBottom := points[landmark.NoseBottom]

	eyeDist := points[landmark.LeftEyeUpper].Distance(points[landmark.RightEyeUpper])
	if eyeDist == 0 {
		return Pose{}, ErrDegenerateLandmarks
	}

	up := midEyes.Sub(noseBottom).Normalize()
	side := leftInner.Sub(rightInner).Normalize()

	return Pose{
		Position: midEyes,
		Scale:    eyeDist / referenceWidth,
		Rotation: geom.Euler{
			X: math.Pi/2 - geom.AngleTo(geom.AxisZ, geom.ProjectOnPlane(up, geom.AxisX)),
			Y: geom.AngleTo(r3.Vector{X: side.X, Z: side.Z}, geom.AxisZ) - math.Pi/2,
			Z: geom.AngleTo(geom.AxisX, geom.ProjectOnPlane(up, geom.AxisZ)) - math.Pi/2,
		},
	}, nil
}
