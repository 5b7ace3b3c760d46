package asset

import (
	"TryOnGolang/internal/tryon/landmark"
	"TryOnGolang/internal/tryon/pose"
	"TryOnGolang/internal/tryon/scene"
	"context"
	"github.com/sirupsen/logrus"
	"sync"
	"time"
)

type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateAttached
	StateTracking
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateAttached:
		return "attached"
	case StateTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// LoadResult describes one settled load request.
type LoadResult struct {
	Token uint64
	Path  string
	Asset Asset
	Err   error
	// Stale is set when a newer request superseded this one and the result
	// was discarded.
	Stale bool
}

type Status struct {
	State    State
	Path     string
	Token    uint64
	Attached bool
}

type Option func(*Manager)

// WithLoadHook registers fn to run after every load settles, outside the
// manager's lock.
func WithLoadHook(fn func(LoadResult)) Option {
	return func(m *Manager) {
		m.onLoad = fn
	}
}

func WithLoadTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.loadTimeout = d
	}
}

// Manager owns the model attached to a scene. Load completions and frame
// updates may arrive from different goroutines; all state changes are
// serialized by mu.
type Manager struct {
	mu          sync.Mutex
	log         *logrus.Logger
	scene       scene.Scene
	loader      Loader
	loadTimeout time.Duration
	onLoad      func(LoadResult)

	latest  uint64
	pending bool

	asset    *Asset
	object   *scene.Object
	attached bool
	pose     pose.Pose

	frame frameContext
}

type frameContext struct {
	width     float64
	height    float64
	landmarks landmark.Set
	dirty     bool
}

func NewManager(log *logrus.Logger, sc scene.Scene, loader Loader, opts ...Option) *Manager {
	m := &Manager{
		log:         log,
		scene:       sc,
		loader:      loader,
		loadTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequestLoad starts loading path and returns its request token. Only the
// completion of the most recent request is applied; older completions are
// discarded when they arrive. A failed load leaves the current model in place.
func (m *Manager) RequestLoad(ctx context.Context, path string) uint64 {
	m.mu.Lock()
	m.latest++
	token := m.latest
	m.pending = true
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"token": token,
		"path":  path,
	}).Debug("Requesting model load")

	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, m.loadTimeout)
		defer cancel()

		a, err := m.loader.Load(loadCtx, path)
		m.complete(token, path, a, err)
	}()

	return token
}

func (m *Manager) complete(token uint64, path string, a Asset, err error) {
	result := LoadResult{Token: token, Path: path, Asset: a, Err: err}

	m.mu.Lock()
	switch {
	case token != m.latest:
		result.Stale = true
		m.log.WithFields(logrus.Fields{
			"token":  token,
			"latest": m.latest,
			"path":   path,
		}).Debug("Discarding superseded model load")
	case err != nil:
		m.pending = false
		m.log.WithFields(logrus.Fields{
			"token": token,
			"path":  path,
			"error": err.Error(),
		}).Error("Failed to load model, keeping current one")
	default:
		m.pending = false
		m.replace(a)
		m.log.WithFields(logrus.Fields{
			"token": token,
			"path":  path,
			"width": a.Width,
		}).Info("Model loaded")
	}
	m.mu.Unlock()

	if m.onLoad != nil {
		m.onLoad(result)
	}
}

// replace swaps the owned model for a. Callers hold mu.
func (m *Manager) replace(a Asset) {
	if m.object != nil {
		m.scene.Detach(m.object)
	}
	m.object = nil
	m.attached = false
	m.evictStrays()

	m.asset = &a
	m.object = m.scene.CreateObject(ReservedName, a.Source)
	m.frame.dirty = true
	m.refresh()
}

// evictStrays enforces that the owned object is the only one carrying the
// reserved name. Nothing else should attach one, so finding any is logged.
func (m *Manager) evictStrays() {
	for _, c := range m.scene.Children() {
		if c.Name != ReservedName || c == m.object {
			continue
		}
		m.log.WithFields(logrus.Fields{
			"object_id": c.ID,
			"source":    c.Source,
		}).Warn("Removing stray model from scene")
		m.scene.Detach(c)
	}
}

// UpdateFrameContext records new frame dimensions. The pose is recomputed on
// the next ApplyFrame.
func (m *Manager) UpdateFrameContext(width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frame.width = float64(width)
	m.frame.height = float64(height)
	m.frame.dirty = true
}

// ApplyFrame stores the detector result for the current frame and updates
// the model: posed while a face is present, detached (but kept) while not.
// Applying the same result twice yields the same pose.
func (m *Manager) ApplyFrame(result landmark.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	points, _ := landmark.Points(result)
	m.frame.landmarks = points
	m.frame.dirty = true
	m.refresh()
}

// refresh reconciles the scene with the frame context. Callers hold mu.
func (m *Manager) refresh() {
	if m.object == nil {
		return
	}

	if m.frame.landmarks == nil {
		m.hide()
		return
	}
	if !m.frame.dirty {
		return
	}

	p, err := pose.Estimate(m.frame.landmarks.Scaled(m.frame.width, m.frame.height), m.asset.Width)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"path":  m.asset.Path,
			"error": err.Error(),
		}).Warn("Cannot pose model for this frame, hiding it")
		m.hide()
		return
	}

	m.scene.SetTransform(m.object, p.Position, p.Scale, p.Rotation)
	m.pose = p
	if !m.attached {
		m.evictStrays()
		m.scene.Attach(m.object)
		m.attached = true
	}
	m.frame.dirty = false
}

func (m *Manager) hide() {
	if m.attached {
		m.scene.Detach(m.object)
		m.attached = false
	}
}

// Pose returns the transform currently applied to the attached model.
func (m *Manager) Pose() (pose.Pose, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.attached {
		return pose.Pose{}, false
	}
	return m.pose, true
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		Token:    m.latest,
		Attached: m.attached,
	}
	if m.asset != nil {
		st.Path = m.asset.Path
	}

	switch {
	case m.pending:
		st.State = StateLoading
	case m.object == nil:
		st.State = StateEmpty
	case !m.attached:
		st.State = StateReady
	case m.frame.dirty:
		st.State = StateAttached
	default:
		st.State = StateTracking
	}
	return st
}

// Close detaches and discards the model. Loads still in flight are
// discarded when they complete.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latest++
	m.pending = false
	if m.object != nil {
		m.scene.Detach(m.object)
	}
	m.object = nil
	m.asset = nil
	m.attached = false
	m.pose = pose.Pose{}
	m.frame = frameContext{}
}
