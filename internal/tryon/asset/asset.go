// Package asset loads eyewear models and owns the one attached to a scene.
package asset

import (
	"context"
	"errors"
)

// ReservedName is the scene object name of the managed model.
const ReservedName = "glasses"

var (
	ErrNotFound     = errors.New("asset: model not found")
	ErrInvalidModel = errors.New("asset: invalid model")
	ErrNoGeometry   = errors.New("asset: model has no measurable geometry")
	ErrInvalidPath  = errors.New("asset: invalid model path")
)

// Asset is a loaded model. Width is the x extent of its bounding box in model
// units and is the scale reference for pose estimation.
type Asset struct {
	Path   string  `json:"path"`
	Source string  `json:"source"`
	Width  float64 `json:"width"`
}

// Loader fetches and measures a model.
type Loader interface {
	Load(ctx context.Context, path string) (Asset, error)
}

type LoaderFunc func(ctx context.Context, path string) (Asset, error)

func (f LoaderFunc) Load(ctx context.Context, path string) (Asset, error) {
	return f(ctx, path)
}
