// Package session runs one try-on session at a time and mediates model
// selection between the client and the asset manager.
package session

import (
	"TryOnGolang/internal/tryon/asset"
	"TryOnGolang/internal/tryon/frame"
	"TryOnGolang/internal/tryon/pipeline"
	"TryOnGolang/internal/tryon/pose"
	"TryOnGolang/internal/tryon/scene"
	"context"
	"errors"
	"fmt"
	"time"
)

type Mode string

const (
	ModeVideo Mode = "video"
	ModeStill Mode = "still"
)

var (
	ErrUnknownMode  = errors.New("unknown session mode")
	ErrNoSession    = errors.New("no active session")
	ErrDetectorInit = errors.New("landmark detector initialization failed")
	ErrAcquisition  = errors.New("frame acquisition failed")
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeVideo, ModeStill:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Detector is a landmark detector owned by a single session.
type Detector interface {
	pipeline.Detector
	Close() error
}

type DetectorFactory func() Detector

// Session is one running pipeline bound to one input mode. It owns every
// component it was built with and releases them when stopped.
type Session struct {
	ID        string
	Mode      Mode
	StartedAt time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	detector Detector
	scene    *scene.Graph
	assets   *asset.Manager
	pipeline *pipeline.Pipeline
	source   frame.Source

	done chan struct{}
	err  error
}

type Status struct {
	ID        string         `json:"id"`
	Mode      Mode           `json:"mode"`
	StartedAt time.Time      `json:"started_at"`
	Asset     AssetStatus    `json:"asset"`
	Pipeline  pipeline.Stats `json:"pipeline"`
}

type AssetStatus struct {
	State    string `json:"state"`
	Path     string `json:"path"`
	Attached bool   `json:"attached"`
}

func (s *Session) Status() Status {
	st := s.assets.Status()
	return Status{
		ID:        s.ID,
		Mode:      s.Mode,
		StartedAt: s.StartedAt,
		Asset: AssetStatus{
			State:    st.State.String(),
			Path:     st.Path,
			Attached: st.Attached,
		},
		Pipeline: s.pipeline.Stats(),
	}
}

// Pose returns the transform of the visible model, if any.
func (s *Session) Pose() (pose.Pose, bool) {
	return s.assets.Pose()
}

// Done is closed once the session's pipeline has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err reports why the pipeline stopped. It is nil for a normal stop and only
// meaningful after Done is closed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
