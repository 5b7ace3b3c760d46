package detector

import (
	"TryOnGolang/internal/tryon/frame"
	"TryOnGolang/internal/tryon/landmark"
	"context"
	"errors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// meshServer answers "face" with a full mesh, "none" with no faces and
// "bad" with an error status. "drop" closes the connection without replying.
type meshServer struct {
	mu          sync.Mutex
	connections int
	configs     []configureMessage
	rejectSetup bool
}

func (s *meshServer) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		s.mu.Lock()
		s.connections++
		reject := s.rejectSetup
		s.mu.Unlock()

		var cfg configureMessage
		if err := conn.ReadJSON(&cfg); err != nil {
			return
		}
		s.mu.Lock()
		s.configs = append(s.configs, cfg)
		s.mu.Unlock()

		if reject {
			conn.WriteJSON(response{Status: "error", Error: "unsupported options"})
			return
		}
		conn.WriteJSON(response{Status: "configured"})

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch string(msg) {
			case "face":
				face := make([]point, landmark.MinPoints)
				face[landmark.MidEyes] = point{X: 0.5, Y: 0.4, Z: -0.01}
				conn.WriteJSON(response{Status: "ok", MultiFaceLandmarks: [][]point{face}})
			case "none":
				conn.WriteJSON(response{Status: "ok"})
			case "bad":
				conn.WriteJSON(response{Status: "error", Error: "unsupported image"})
			case "drop":
				return
			}
		}
	}
}

func (s *meshServer) connectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

func (s *meshServer) firstConfig() configureMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.configs) == 0 {
		return configureMessage{}
	}
	return s.configs[0]
}

func newClient(t *testing.T, srv *meshServer) *Client {
	t.Helper()
	ts := httptest.NewServer(srv.handler(t))
	t.Cleanup(ts.Close)

	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(ts.URL, "http")
	cfg.ReadTimeout = 2 * time.Second
	c := New(cfg, testLogger())
	t.Cleanup(func() { c.Close() })
	return c
}

func detect(t *testing.T, c *Client, payload string) (landmark.Result, error) {
	t.Helper()
	return c.Detect(context.Background(), frame.Frame{Seq: 1, Data: []byte(payload)})
}

func TestClientRequiresInitialize(t *testing.T) {
	c := newClient(t, &meshServer{})
	if _, err := detect(t, c, "face"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Detect() before Initialize error = %v, want %v", err, ErrNotInitialized)
	}
}

func TestClientDetect(t *testing.T) {
	srv := &meshServer{}
	c := newClient(t, srv)

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	if n := srv.connectionCount(); n != 1 {
		t.Errorf("connections = %d, want 1", n)
	}
	if cfg := srv.firstConfig(); cfg.MaxNumFaces != 1 || !cfg.RefineLandmarks || cfg.MinDetectionConfidence != 0.3 {
		t.Errorf("detector options = %+v", cfg)
	}

	result, err := detect(t, c, "face")
	if err != nil {
		t.Fatalf("Detect(face) error = %v", err)
	}
	points, ok := landmark.Points(result)
	if !ok || !points.Complete() {
		t.Fatalf("Detect(face) = %T, want a complete landmark set", result)
	}
	if p := points[landmark.MidEyes]; p.X != 0.5 || p.Y != 0.4 || p.Z != -0.01 {
		t.Errorf("mid eyes = %+v", p)
	}

	result, err = detect(t, c, "none")
	if err != nil {
		t.Fatalf("Detect(none) error = %v", err)
	}
	if _, ok := result.(landmark.NoFace); !ok {
		t.Errorf("Detect(none) = %T, want landmark.NoFace", result)
	}

	_, err = detect(t, c, "bad")
	if !errors.Is(err, ErrFrameRejected) || !errors.Is(err, frame.ErrUnusable) {
		t.Errorf("Detect(bad) error = %v, want %v", err, ErrFrameRejected)
	}

	// the connection survives a rejected frame
	if _, err := detect(t, c, "face"); err != nil {
		t.Errorf("Detect(face) after rejection error = %v", err)
	}
	if n := srv.connectionCount(); n != 1 {
		t.Errorf("connections after rejection = %d, want 1", n)
	}
}

func TestClientReconnectsOnce(t *testing.T) {
	srv := &meshServer{}
	c := newClient(t, srv)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// the server hangs up; the retry on a fresh connection gets "drop" again
	if _, err := detect(t, c, "drop"); err == nil {
		t.Fatal("Detect(drop) succeeded")
	}
	if _, err := detect(t, c, "face"); err != nil {
		t.Fatalf("Detect() after reconnect error = %v", err)
	}
	if n := srv.connectionCount(); n != 3 {
		t.Errorf("connections = %d, want 3", n)
	}
}

func TestClientInitializeFailure(t *testing.T) {
	c := newClient(t, &meshServer{rejectSetup: true})
	if err := c.Initialize(context.Background()); !errors.Is(err, ErrRejected) {
		t.Fatalf("Initialize() error = %v, want %v", err, ErrRejected)
	}
	if _, err := detect(t, c, "face"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Detect() after failed Initialize error = %v, want %v", err, ErrNotInitialized)
	}

	unreachable := New(Config{URL: "ws://127.0.0.1:1/none", HandshakeTimeout: time.Second}, testLogger())
	if err := unreachable.Initialize(context.Background()); err == nil {
		t.Error("Initialize() against a closed port succeeded")
	}
}

func TestClientClose(t *testing.T) {
	c := newClient(t, &meshServer{})
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := detect(t, c, "face"); !errors.Is(err, ErrClosed) {
		t.Errorf("Detect() after Close error = %v, want %v", err, ErrClosed)
	}
}
