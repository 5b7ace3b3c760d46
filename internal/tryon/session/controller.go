package session

import (
	"TryOnGolang/internal/tryon/asset"
	"TryOnGolang/internal/tryon/frame"
	"TryOnGolang/internal/tryon/landmark"
	"TryOnGolang/internal/tryon/pipeline"
	"TryOnGolang/internal/tryon/scene"
	"context"
	"fmt"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"sync"
	"time"
)

const DefaultAssetPath = "/3d/Models/glasses/grey/grey.gltf"

type EventKind string

const (
	EventStarted     EventKind = "started"
	EventStopped     EventKind = "stopped"
	EventFailed      EventKind = "failed"
	EventAssetLoaded EventKind = "asset_loaded"
	EventAssetFailed EventKind = "asset_failed"
	EventNoFace      EventKind = "no_face"
)

type Event struct {
	Kind      EventKind
	SessionID string
	Mode      Mode
	Path      string
	Err       error
}

// Catalog resolves a catalog entry to the model it displays.
type Catalog interface {
	AssetPath(ctx context.Context, glassesID string) (string, error)
}

type Option func(*Controller)

// WithEventHandler registers fn for session and model events. fn may be
// called from several goroutines, sometimes while the controller is locked,
// so it must not call back into the Controller.
func WithEventHandler(fn func(Event)) Option {
	return func(c *Controller) {
		c.onEvent = fn
	}
}

func WithDefaultAssetPath(path string) Option {
	return func(c *Controller) {
		c.defaultPath = path
	}
}

func WithLoadTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.loadTimeout = d
	}
}

// Controller starts and stops sessions. At most one session is active; the
// model selection survives across sessions.
type Controller struct {
	mu          sync.Mutex
	log         *logrus.Logger
	loader      asset.Loader
	catalog     Catalog
	newDetector DetectorFactory
	surface     scene.Surface
	onEvent     func(Event)
	defaultPath string
	loadTimeout time.Duration

	active   *Session
	selected string
}

func NewController(
	log *logrus.Logger,
	loader asset.Loader,
	catalog Catalog,
	newDetector DetectorFactory,
	surface scene.Surface,
	opts ...Option,
) *Controller {
	c := &Controller{
		log:         log,
		loader:      loader,
		catalog:     catalog,
		newDetector: newDetector,
		surface:     surface,
		defaultPath: DefaultAssetPath,
		loadTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartSession tears down the active session, if any, and starts a new one
// reading frames from source.
func (c *Controller) StartSession(ctx context.Context, mode Mode, source frame.Source) (*Session, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		c.stopLocked(c.active)
	}

	detector := c.newDetector()
	if err := detector.Initialize(ctx); err != nil {
		c.closeDetector(detector)
		c.log.WithFields(logrus.Fields{
			"mode":  mode,
			"error": err.Error(),
		}).Error("Failed to initialize landmark detector")
		return nil, fmt.Errorf("%w: %v", ErrDetectorInit, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		ID:        ulid.Make().String(),
		Mode:      mode,
		StartedAt: time.Now(),
		ctx:       runCtx,
		cancel:    cancel,
		detector:  detector,
		source:    source,
		done:      make(chan struct{}),
	}

	s.scene = scene.NewGraph(c.surface, c.log)
	s.assets = asset.NewManager(c.log, s.scene, c.loader,
		asset.WithLoadTimeout(c.loadTimeout),
		asset.WithLoadHook(func(r asset.LoadResult) { c.loadSettled(s, r) }),
	)
	s.pipeline = pipeline.New(c.log, detector, s.assets, s.scene,
		pipeline.WithResultHook(func(_ frame.Frame, r landmark.Result) { c.frameApplied(s, r) }),
	)

	path := c.selected
	if path == "" {
		path = c.defaultPath
	}
	s.assets.RequestLoad(runCtx, path)

	go c.run(s)

	if err := source.Start(runCtx, s.pipeline.Submit); err != nil {
		c.release(s)
		c.log.WithFields(logrus.Fields{
			"session_id": s.ID,
			"mode":       mode,
			"error":      err.Error(),
		}).Error("Failed to start frame acquisition")
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	c.active = s
	c.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"mode":       mode,
		"path":       path,
	}).Info("Try-on session started")
	c.emit(Event{Kind: EventStarted, SessionID: s.ID, Mode: mode, Path: path})

	return s, nil
}

func (c *Controller) run(s *Session) {
	err := s.pipeline.Run(s.ctx)
	s.err = err
	close(s.done)

	if err != nil {
		c.fail(s, err)
	}
}

// fail tears s down after a fatal pipeline error, unless it was already
// replaced or stopped.
func (c *Controller) fail(s *Session, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != s {
		return
	}
	c.release(s)
	c.active = nil

	c.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"mode":       s.Mode,
		"error":      err.Error(),
	}).Error("Try-on session failed")
	c.emit(Event{Kind: EventFailed, SessionID: s.ID, Mode: s.Mode, Err: err})
}

// StopSession stops acquisition and releases the active session.
func (c *Controller) StopSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNoSession
	}
	c.stopLocked(c.active)
	return nil
}

func (c *Controller) stopLocked(s *Session) {
	c.release(s)
	c.active = nil

	c.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"mode":       s.Mode,
	}).Info("Try-on session stopped")
	c.emit(Event{Kind: EventStopped, SessionID: s.ID, Mode: s.Mode})
}

func (c *Controller) release(s *Session) {
	if err := s.source.Stop(); err != nil {
		c.log.WithFields(logrus.Fields{
			"session_id": s.ID,
			"error":      err.Error(),
		}).Warn("Failed to stop frame source")
	}

	s.cancel()
	<-s.done

	s.assets.Close()
	// clears the client's overlay
	s.scene.Render()

	c.closeDetector(s.detector)
}

func (c *Controller) closeDetector(d Detector) {
	if err := d.Close(); err != nil {
		c.log.WithField("error", err.Error()).Warn("Failed to close landmark detector")
	}
}

// SelectAsset shows the model of a catalog entry. The choice is kept for
// sessions started later.
func (c *Controller) SelectAsset(ctx context.Context, glassesID string) error {
	path, err := c.catalog.AssetPath(ctx, glassesID)
	if err != nil {
		return err
	}
	return c.SelectAssetPath(ctx, path)
}

func (c *Controller) SelectAssetPath(_ context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selected = path
	if c.active == nil {
		return nil
	}

	token := c.active.assets.RequestLoad(c.active.ctx, path)
	c.log.WithFields(logrus.Fields{
		"session_id": c.active.ID,
		"path":       path,
		"token":      token,
	}).Debug("Model selected")
	return nil
}

// Selected returns the path that the next session will load.
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == "" {
		return c.defaultPath
	}
	return c.selected
}

func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Close stops the active session, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		c.stopLocked(c.active)
	}
}

func (c *Controller) loadSettled(s *Session, r asset.LoadResult) {
	if r.Stale {
		return
	}
	if r.Err != nil {
		c.emit(Event{Kind: EventAssetFailed, SessionID: s.ID, Mode: s.Mode, Path: r.Path, Err: r.Err})
		return
	}
	// a still session gets no further frames, so publish the new model now
	if err := s.scene.Render(); err != nil {
		c.log.WithFields(logrus.Fields{
			"session_id": s.ID,
			"error":      err.Error(),
		}).Debug("Render after model load failed")
	}
	c.emit(Event{Kind: EventAssetLoaded, SessionID: s.ID, Mode: s.Mode, Path: r.Path})
}

func (c *Controller) frameApplied(s *Session, r landmark.Result) {
	if s.Mode != ModeStill {
		return
	}
	if _, ok := r.(landmark.NoFace); ok {
		c.emit(Event{Kind: EventNoFace, SessionID: s.ID, Mode: s.Mode})
	}
}

func (c *Controller) emit(e Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}
