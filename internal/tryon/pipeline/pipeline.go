// Package pipeline drives detection, pose update and rendering for one
// session, keeping at most one frame in flight at the detector.
package pipeline

import (
	"TryOnGolang/internal/tryon/frame"
	"TryOnGolang/internal/tryon/landmark"
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"sync"
	"sync/atomic"
)

var (
	ErrDetectorFailed = errors.New("landmark detector failed")
	ErrAlreadyRunning = errors.New("pipeline already running")
)

// Detector is the external face landmark detector. Initialize must succeed
// exactly once before the first Detect.
type Detector interface {
	Initialize(ctx context.Context) error
	Detect(ctx context.Context, f frame.Frame) (landmark.Result, error)
}

// Tracker receives per-frame landmark results. asset.Manager implements it.
type Tracker interface {
	UpdateFrameContext(width, height int)
	ApplyFrame(result landmark.Result)
}

// Renderer is the part of the scene the pipeline drives.
type Renderer interface {
	Resize(width, height int)
	Render() error
}

type Stats struct {
	Submitted uint64 `json:"submitted"`
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
}

type Option func(*Pipeline)

// WithResultHook runs fn after each frame has been applied and rendered.
func WithResultHook(fn func(f frame.Frame, result landmark.Result)) Option {
	return func(p *Pipeline) {
		p.onResult = fn
	}
}

type Pipeline struct {
	log      *logrus.Logger
	detector Detector
	tracker  Tracker
	renderer Renderer
	onResult func(frame.Frame, landmark.Result)

	inboxMu   sync.Mutex
	inboxCond *sync.Cond
	inbox     *frame.Frame
	closed    bool

	submitted atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	running   atomic.Bool

	// owned by the Run goroutine
	width   int
	height  int
	lastSeq uint64
}

func New(log *logrus.Logger, detector Detector, tracker Tracker, renderer Renderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		log:      log,
		detector: detector,
		tracker:  tracker,
		renderer: renderer,
	}
	p.inboxCond = sync.NewCond(&p.inboxMu)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit hands a frame to the pipeline without blocking. A frame still
// waiting in the inbox is replaced by the newer one and counted as dropped.
func (p *Pipeline) Submit(f frame.Frame) {
	p.inboxMu.Lock()
	defer p.inboxMu.Unlock()

	if p.closed {
		return
	}
	p.submitted.Add(1)
	if p.inbox != nil {
		p.dropped.Add(1)
	}
	p.inbox = &f
	p.inboxCond.Signal()
}

// Run processes frames until ctx is done or Close is called. It returns nil
// on a normal stop and an error wrapping ErrDetectorFailed when the detector
// fails, after which the pipeline is closed. Frames the detector reports as
// frame.ErrUnusable are counted as dropped and do not stop the pipeline.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	stop := context.AfterFunc(ctx, p.Close)
	defer stop()

	for {
		f, ok := p.next()
		if !ok {
			return nil
		}

		if f.Seq != 0 && f.Seq <= p.lastSeq {
			p.dropped.Add(1)
			p.log.WithFields(logrus.Fields{
				"seq":      f.Seq,
				"last_seq": p.lastSeq,
			}).Debug("Dropping out of order frame")
			continue
		}
		if f.Seq != 0 {
			p.lastSeq = f.Seq
		}

		result, err := p.detector.Detect(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, frame.ErrUnusable) {
				p.dropped.Add(1)
				p.log.WithFields(logrus.Fields{
					"seq":   f.Seq,
					"error": err.Error(),
				}).Warn("Detector rejected frame, skipping")
				continue
			}
			p.Close()
			p.log.WithFields(logrus.Fields{
				"seq":   f.Seq,
				"error": err.Error(),
			}).Error("Landmark detection failed, stopping pipeline")
			return fmt.Errorf("%w: %v", ErrDetectorFailed, err)
		}

		p.apply(f, result)
	}
}

func (p *Pipeline) next() (frame.Frame, bool) {
	p.inboxMu.Lock()
	defer p.inboxMu.Unlock()

	for p.inbox == nil && !p.closed {
		p.inboxCond.Wait()
	}
	if p.closed {
		return frame.Frame{}, false
	}

	f := *p.inbox
	p.inbox = nil
	return f, true
}

func (p *Pipeline) apply(f frame.Frame, result landmark.Result) {
	if f.Width != p.width || f.Height != p.height {
		p.width, p.height = f.Width, f.Height
		p.renderer.Resize(f.Width, f.Height)
		p.tracker.UpdateFrameContext(f.Width, f.Height)
	}

	p.tracker.ApplyFrame(result)

	if err := p.renderer.Render(); err != nil {
		p.log.WithFields(logrus.Fields{
			"seq":   f.Seq,
			"error": err.Error(),
		}).Debug("Render pass failed")
	}
	p.processed.Add(1)

	if p.onResult != nil {
		p.onResult(f, result)
	}
}

// Close stops Run and rejects further frames. Safe to call more than once.
func (p *Pipeline) Close() {
	p.inboxMu.Lock()
	defer p.inboxMu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.inbox != nil {
		p.dropped.Add(1)
		p.inbox = nil
	}
	p.inboxCond.Broadcast()
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Processed: p.processed.Load(),
		Dropped:   p.dropped.Load(),
	}
}
