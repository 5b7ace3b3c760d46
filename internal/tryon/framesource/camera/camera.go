// Package camera reads frames from a local webcam through OpenCV.
package camera

import (
	"TryOnGolang/internal/tryon/frame"
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"sync"
	"time"
)

var ErrAlreadyStarted = errors.New("camera already started")

type Config struct {
	DeviceID  int
	TargetFPS int
	Width     int
	Height    int
}

func DefaultConfig() Config {
	return Config{
		DeviceID:  0,
		TargetFPS: 30,
		Width:     1280,
		Height:    720,
	}
}

// Capture is a frame.Source backed by a webcam. The device is opened on
// Start and released on Stop.
type Capture struct {
	cfg Config
	log *logrus.Logger

	mu      sync.Mutex
	webcam  *gocv.VideoCapture
	cancel  context.CancelFunc
	done    chan struct{}
	width   int
	height  int
	started bool
}

func New(cfg Config, log *logrus.Logger) *Capture {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = DefaultConfig().TargetFPS
	}
	return &Capture{cfg: cfg, log: log}
}

func (c *Capture) Start(ctx context.Context, deliver func(frame.Frame)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	webcam, err := gocv.OpenVideoCapture(c.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to open camera %d: %w", c.cfg.DeviceID, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return fmt.Errorf("camera %d is not available", c.cfg.DeviceID)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	webcam.Set(gocv.VideoCaptureFPS, float64(c.cfg.TargetFPS))

	// the device may not support the requested resolution
	c.width = int(webcam.Get(gocv.VideoCaptureFrameWidth))
	c.height = int(webcam.Get(gocv.VideoCaptureFrameHeight))
	c.webcam = webcam
	c.started = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	c.log.WithFields(logrus.Fields{
		"device": c.cfg.DeviceID,
		"width":  c.width,
		"height": c.height,
		"fps":    c.cfg.TargetFPS,
	}).Info("Camera opened")

	go c.loop(runCtx, deliver)
	return nil
}

func (c *Capture) loop(ctx context.Context, deliver func(frame.Frame)) {
	defer close(c.done)

	mat := gocv.NewMat()
	defer mat.Close()

	ticker := time.NewTicker(time.Second / time.Duration(c.cfg.TargetFPS))
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if ok := c.webcam.Read(&mat); !ok || mat.Empty() {
			c.log.Debug("Camera returned an empty frame")
			continue
		}

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
		if err != nil {
			c.log.WithField("error", err.Error()).Warn("Failed to encode camera frame")
			continue
		}
		data := bytes.Clone(buf.GetBytes())
		buf.Close()

		seq++
		deliver(frame.Frame{
			Seq:        seq,
			Width:      mat.Cols(),
			Height:     mat.Rows(),
			Data:       data,
			CapturedAt: time.Now(),
		})
	}
}

// Size returns the resolution the device actually delivers.
func (c *Capture) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return nil
	}

	c.cancel()
	<-c.done

	err := c.webcam.Close()
	c.webcam = nil
	return err
}
