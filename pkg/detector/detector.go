package detector

import (
	"TryOnGolang/internal/tryon/frame"
	"TryOnGolang/internal/tryon/landmark"
	"context"
	"errors"
	"fmt"
	"github.com/golang/geo/r3"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"os"
	"strconv"
	"sync"
	"time"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNotInitialized = errors.New("face mesh detector not initialized")
	ErrClosed         = errors.New("face mesh detector closed")
	ErrRejected       = errors.New("face mesh service rejected the detector options")
	ErrBadResponse    = errors.New("malformed face mesh response")
	ErrFrameRejected  = fmt.Errorf("face mesh service rejected the frame: %w", frame.ErrUnusable)
)

type Config struct {
	URL                    string
	MaxNumFaces            int
	RefineLandmarks        bool
	MinDetectionConfidence float64
	MinTrackingConfidence  float64
	HandshakeTimeout       time.Duration
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:                    "ws://localhost:8000/api/v1/face-mesh/ws",
		MaxNumFaces:            1,
		RefineLandmarks:        true,
		MinDetectionConfidence: 0.3,
		MinTrackingConfidence:  0.3,
		HandshakeTimeout:       10 * time.Second,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           5 * time.Second,
	}
}

// ConfigFromEnv overlays the FACE_MESH_* and AI_FACE_MESH_URL variables on
// the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if url := os.Getenv("AI_FACE_MESH_URL"); url != "" {
		cfg.URL = url
	}
	if v, err := strconv.Atoi(os.Getenv("FACE_MESH_MAX_NUM_FACES")); err == nil && v > 0 {
		cfg.MaxNumFaces = v
	}
	if v, err := strconv.ParseBool(os.Getenv("FACE_MESH_REFINE_LANDMARKS")); err == nil {
		cfg.RefineLandmarks = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("FACE_MESH_MIN_DETECTION_CONFIDENCE"), 64); err == nil {
		cfg.MinDetectionConfidence = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("FACE_MESH_MIN_TRACKING_CONFIDENCE"), 64); err == nil {
		cfg.MinTrackingConfidence = v
	}

	return cfg
}

type configureMessage struct {
	Type                   string  `json:"type"`
	MaxNumFaces            int     `json:"max_num_faces"`
	RefineLandmarks        bool    `json:"refine_landmarks"`
	MinDetectionConfidence float64 `json:"min_detection_confidence"`
	MinTrackingConfidence  float64 `json:"min_tracking_confidence"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type response struct {
	Status             string    `json:"status"`
	Error              string    `json:"error,omitempty"`
	MultiFaceLandmarks [][]point `json:"multi_face_landmarks"`
}

// Client talks to a remote face mesh service over a WebSocket. One client
// serves one session and handles one frame at a time.
type Client struct {
	cfg    Config
	log    *logrus.Logger
	dialer *websocket.Dialer

	initOnce sync.Once
	initErr  error

	mu     sync.Mutex
	conn   *websocket.Conn
	ready  bool
	closed bool
}

func New(cfg Config, log *logrus.Logger) *Client {
	return &Client{
		cfg: cfg,
		log: log,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// Initialize connects and sends the detector options. Only the first call
// does any work; later calls return its result.
func (c *Client) Initialize(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed {
			c.initErr = ErrClosed
			return
		}
		if err := c.connectLocked(ctx); err != nil {
			c.initErr = err
			return
		}
		c.ready = true
	})
	return c.initErr
}

func (c *Client) connectLocked(ctx context.Context) error {
	c.dropLocked()

	c.log.WithField("url", c.cfg.URL).Debug("Connecting to face mesh service")

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.cfg.URL, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.cfg.WriteTimeout))
		if err != nil {
			c.log.WithField("error", err.Error()).Warn("Error sending pong")
		}
		return nil
	})

	msg, err := json.Marshal(configureMessage{
		Type:                   "configure",
		MaxNumFaces:            c.cfg.MaxNumFaces,
		RefineLandmarks:        c.cfg.RefineLandmarks,
		MinDetectionConfidence: c.cfg.MinDetectionConfidence,
		MinTrackingConfidence:  c.cfg.MinTrackingConfidence,
	})
	if err != nil {
		conn.Close()
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		conn.Close()
		return fmt.Errorf("error sending detector options: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	_, ack, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return fmt.Errorf("error reading detector options ack: %w", err)
	}

	var resp response
	if err := json.Unmarshal(ack, &resp); err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if resp.Status == "error" {
		conn.Close()
		return fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	c.conn = conn

	c.log.WithFields(logrus.Fields{
		"url":       c.cfg.URL,
		"max_faces": c.cfg.MaxNumFaces,
		"refine":    c.cfg.RefineLandmarks,
	}).Info("Connected to face mesh service")
	return nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Detect sends one encoded frame and returns the landmarks of the first face.
// A broken connection is redialed once before giving up.
func (c *Client) Detect(ctx context.Context, f frame.Frame) (landmark.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return nil, ErrClosed
	case !c.ready:
		return nil, ErrNotInitialized
	}

	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.roundTripLocked(ctx, f.Data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.WithFields(logrus.Fields{
			"seq":   f.Seq,
			"error": err.Error(),
		}).Warn("Face mesh connection lost, reconnecting")

		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
		if resp, err = c.roundTripLocked(ctx, f.Data); err != nil {
			return nil, err
		}
	}

	return toResult(resp)
}

func (c *Client) roundTripLocked(ctx context.Context, data []byte) (*response, error) {
	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("error reading landmarks: %w", err)
	}

	var resp response
	if err := json.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &resp, nil
}

func toResult(resp *response) (landmark.Result, error) {
	if resp.Status == "error" {
		return nil, fmt.Errorf("%w: %s", ErrFrameRejected, resp.Error)
	}
	if len(resp.MultiFaceLandmarks) == 0 {
		return landmark.NoFace{}, nil
	}

	face := resp.MultiFaceLandmarks[0]
	points := make(landmark.Set, len(face))
	for i, p := range face {
		points[i] = r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
	}
	return landmark.FromPoints(points), nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn == nil {
		return nil
	}
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.cfg.WriteTimeout),
	)
	err := c.conn.Close()
	c.conn = nil
	return err
}
