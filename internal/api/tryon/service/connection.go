package tryonService

import (
	"TryOnGolang/internal/api/tryon"
	"TryOnGolang/internal/tryon/framesource"
	"TryOnGolang/internal/tryon/scene"
	"TryOnGolang/internal/tryon/session"
	contextPkg "TryOnGolang/pkg/context"
	logPkg "TryOnGolang/pkg/log"
	"TryOnGolang/pkg/utils"
	"context"
	"errors"
	"github.com/sirupsen/logrus"
	"sort"
	"sync"
	"time"
)

// Connection is one try-on client. It owns a session controller, so the
// model selection outlives the sessions the client starts and stops.
type Connection struct {
	ID       string
	OpenedAt time.Time

	log        *logrus.Logger
	utils      utils.IUtils
	cfg        Config
	controller *session.Controller

	mu   sync.Mutex
	mode session.Mode
	push *framesource.Push
}

func (s *tryonService) Connect(ctx context.Context, send func(tryon.ServerMessage)) (*Connection, error) {
	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	if s.cfg.MaxConnections > 0 && s.connections.Count() >= s.cfg.MaxConnections {
		s.log.WithField("connections", s.connections.Count()).Warn("Rejecting try-on connection")
		return nil, tryon.ErrTooManyConnections
	}

	now := time.Now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return nil, err
	}

	conn := &Connection{
		ID:       id,
		OpenedAt: now,
		log:      s.log,
		utils:    s.utils,
		cfg:      s.cfg,
	}
	conn.controller = session.NewController(s.log, s.loader, s.catalog, s.newDetector,
		scene.SurfaceFunc(func(snapshot scene.Snapshot) error {
			send(tryon.RenderMessage(snapshot))
			return nil
		}),
		session.WithEventHandler(func(e session.Event) {
			send(tryon.EventMessage(e))
		}),
		session.WithDefaultAssetPath(s.cfg.DefaultAssetPath),
		session.WithLoadTimeout(s.cfg.LoadTimeout),
	)

	s.connections.Set(id, conn)

	s.log.WithFields(logrus.Fields{
		"request_id":    contextPkg.GetRequestID(ctx),
		"connection_id": id,
	}).Info("Try-on client connected")

	return conn, nil
}

func (s *tryonService) Disconnect(id string) {
	conn, ok := s.connections.Pop(id)
	if !ok {
		return
	}
	conn.Close()

	s.log.WithField("connection_id", id).Info("Try-on client disconnected")
}

func (s *tryonService) GetConnection(id string) (*Connection, error) {
	conn, ok := s.connections.Get(id)
	if !ok {
		return nil, tryon.ErrConnectionNotFound
	}
	return conn, nil
}

func (s *tryonService) GetConnections() tryon.ConnectionListResponse {
	res := tryon.ConnectionListResponse{
		Connections: make([]tryon.ConnectionResponse, 0, s.connections.Count()),
	}
	for _, conn := range s.connections.Items() {
		res.Connections = append(res.Connections, conn.Info())
	}
	sort.Slice(res.Connections, func(i, j int) bool {
		return res.Connections[i].ID < res.Connections[j].ID
	})
	res.Total = len(res.Connections)
	return res
}

func (s *tryonService) Shutdown() {
	for _, id := range s.connections.Keys() {
		s.Disconnect(id)
	}
}

// Start begins a session in mode. A video session takes frames from
// HandleFrame right away; a still session starts when the photo arrives.
func (c *Connection) Start(ctx context.Context, mode session.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.mode = mode

	if mode != session.ModeVideo {
		return nil
	}

	push := framesource.NewPush(c.utils)
	sess, err := c.controller.StartSession(ctx, session.ModeVideo, push)
	if err != nil {
		return err
	}
	c.push = push

	logPkg.WithSession(logPkg.WithRequestID(ctx), c.ID, sess.ID).Info("Video session started")
	return nil
}

// HandleFrame routes binary client data: a frame in video mode, a photo in
// still mode.
func (c *Connection) HandleFrame(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case session.ModeVideo:
		if c.push == nil {
			return tryon.ErrSessionNotStarted
		}
		err := c.push.Push(data)
		if errors.Is(err, framesource.ErrStopped) {
			c.push = nil
			return tryon.ErrSessionNotStarted
		}
		return err
	case session.ModeStill:
		still := framesource.NewStill(data, c.cfg.StillMaxWidth, c.cfg.StillMaxHeight, c.utils)
		sess, err := c.controller.StartSession(ctx, session.ModeStill, still)
		if err != nil {
			return err
		}
		logPkg.WithSession(c.log.WithField("bytes", len(data)), c.ID, sess.ID).Info("Still session started")
		return nil
	default:
		return tryon.ErrSessionNotStarted
	}
}

func (c *Connection) Select(ctx context.Context, glassesID string) error {
	return c.controller.SelectAsset(ctx, glassesID)
}

func (c *Connection) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = ""
	if c.controller.Active() == nil {
		c.push = nil
		return tryon.ErrSessionNotStarted
	}
	c.stopLocked()
	return nil
}

func (c *Connection) stopLocked() {
	c.push = nil
	if err := c.controller.StopSession(); err != nil && !errors.Is(err, session.ErrNoSession) {
		c.log.WithFields(logrus.Fields{
			"connection_id": c.ID,
			"error":         err.Error(),
		}).Warn("Failed to stop try-on session")
	}
}

func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = ""
	c.push = nil
	c.controller.Close()
}

func (c *Connection) Info() tryon.ConnectionResponse {
	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()

	res := tryon.ConnectionResponse{
		ID:       c.ID,
		OpenedAt: c.OpenedAt,
		Mode:     string(mode),
		Selected: c.controller.Selected(),
	}
	if s := c.controller.Active(); s != nil {
		status := s.Status()
		res.Session = &status
	}
	return res
}
