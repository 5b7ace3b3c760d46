package pipeline

import (
	"TryOnGolang/internal/tryon/frame"
	"TryOnGolang/internal/tryon/landmark"
	"context"
	"errors"
	"fmt"
	"github.com/golang/geo/r3"
	"github.com/sirupsen/logrus"
	"io"
	"sync"
	"testing"
	"time"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeDetector struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	fail        map[uint64]error
	gate        chan struct{}
	entered     chan uint64
}

func newFakeDetector(gated bool) *fakeDetector {
	d := &fakeDetector{
		fail:    map[uint64]error{},
		entered: make(chan uint64, 64),
	}
	if gated {
		d.gate = make(chan struct{})
	}
	return d
}

func (d *fakeDetector) Initialize(context.Context) error { return nil }

func (d *fakeDetector) Detect(ctx context.Context, f frame.Frame) (landmark.Result, error) {
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	err := d.fail[f.Seq]
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.inFlight--
		d.mu.Unlock()
	}()

	d.entered <- f.Seq
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if f.Seq%2 == 0 {
		return landmark.NoFace{}, nil
	}
	return landmark.Detected{Points: landmark.Set{r3.Vector{X: 0.5, Y: 0.5}}}, nil
}

type recorder struct {
	mu        sync.Mutex
	resizes   int
	contexts  int
	applied   []landmark.Result
	renders   int
	renderErr error
}

func (r *recorder) UpdateFrameContext(int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts++
}

func (r *recorder) ApplyFrame(result landmark.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, result)
}

func (r *recorder) Resize(int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resizes++
}

func (r *recorder) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
	return r.renderErr
}

type harness struct {
	pipeline *Pipeline
	detector *fakeDetector
	rec      *recorder
	done     chan uint64
	runErr   chan error
	cancel   context.CancelFunc
}

func start(t *testing.T, gated bool) *harness {
	t.Helper()
	h := &harness{
		detector: newFakeDetector(gated),
		rec:      &recorder{},
		done:     make(chan uint64, 64),
		runErr:   make(chan error, 1),
	}
	h.pipeline = New(testLogger(), h.detector, h.rec, h.rec, WithResultHook(func(f frame.Frame, _ landmark.Result) {
		h.done <- f.Seq
	}))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	t.Cleanup(cancel)
	go func() { h.runErr <- h.pipeline.Run(ctx) }()
	return h
}

func (h *harness) waitDone(t *testing.T) uint64 {
	t.Helper()
	select {
	case seq := <-h.done:
		return seq
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a processed frame")
		return 0
	}
}

func (h *harness) waitEntered(t *testing.T) uint64 {
	t.Helper()
	select {
	case seq := <-h.detector.entered:
		return seq
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the detector")
		return 0
	}
}

func (h *harness) waitRun(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.runErr:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func testFrame(seq uint64) frame.Frame {
	return frame.Frame{Seq: seq, Width: 640, Height: 480}
}

func TestPipelineKeepsOneFrameInFlight(t *testing.T) {
	h := start(t, true)

	h.pipeline.Submit(testFrame(1))
	if seq := h.waitEntered(t); seq != 1 {
		t.Fatalf("detector got seq %d, want 1", seq)
	}

	// detector is busy: 2 and 3 are overwritten by 4
	h.pipeline.Submit(testFrame(2))
	h.pipeline.Submit(testFrame(3))
	h.pipeline.Submit(testFrame(4))

	h.detector.gate <- struct{}{}
	if seq := h.waitDone(t); seq != 1 {
		t.Fatalf("processed seq %d, want 1", seq)
	}
	if seq := h.waitEntered(t); seq != 4 {
		t.Fatalf("detector got seq %d, want 4", seq)
	}
	h.detector.gate <- struct{}{}
	if seq := h.waitDone(t); seq != 4 {
		t.Fatalf("processed seq %d, want 4", seq)
	}

	h.pipeline.Close()
	if err := h.waitRun(t); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	stats := h.pipeline.Stats()
	if stats.Submitted != 4 || stats.Processed != 2 || stats.Dropped != 2 {
		t.Errorf("stats = %+v, want 4 submitted, 2 processed, 2 dropped", stats)
	}
	if h.detector.maxInFlight != 1 {
		t.Errorf("max detections in flight = %d, want 1", h.detector.maxInFlight)
	}
}

func TestPipelineDropsOutOfOrderFrames(t *testing.T) {
	h := start(t, false)

	h.pipeline.Submit(testFrame(5))
	if seq := h.waitDone(t); seq != 5 {
		t.Fatalf("processed seq %d, want 5", seq)
	}

	h.pipeline.Submit(testFrame(3))
	h.pipeline.Submit(testFrame(6))
	if seq := h.waitDone(t); seq != 6 {
		t.Fatalf("processed seq %d, want 6", seq)
	}

	h.pipeline.Close()
	h.waitRun(t)
	if stats := h.pipeline.Stats(); stats.Dropped != 1 || stats.Processed != 2 {
		t.Errorf("stats = %+v, want 1 dropped, 2 processed", stats)
	}
}

func TestPipelineDetectorFailureIsFatal(t *testing.T) {
	h := start(t, false)
	h.detector.fail[2] = errors.New("unsupported input")

	h.pipeline.Submit(testFrame(1))
	h.waitDone(t)
	h.pipeline.Submit(testFrame(2))

	if err := h.waitRun(t); !errors.Is(err, ErrDetectorFailed) {
		t.Fatalf("Run() error = %v, want %v", err, ErrDetectorFailed)
	}

	h.pipeline.Submit(testFrame(3))
	if stats := h.pipeline.Stats(); stats.Submitted != 2 || stats.Processed != 1 {
		t.Errorf("stats = %+v, want frames after failure rejected", stats)
	}
}

func TestPipelineSkipsRejectedFrame(t *testing.T) {
	h := start(t, false)
	h.detector.fail[2] = fmt.Errorf("cannot decode image: %w", frame.ErrUnusable)

	h.pipeline.Submit(testFrame(1))
	h.waitDone(t)
	h.pipeline.Submit(testFrame(2))
	if seq := h.waitEntered(t); seq != 1 {
		t.Fatalf("entered seq %d, want 1", seq)
	}
	if seq := h.waitEntered(t); seq != 2 {
		t.Fatalf("entered seq %d, want 2", seq)
	}

	h.pipeline.Submit(testFrame(3))
	if seq := h.waitDone(t); seq != 3 {
		t.Fatalf("processed seq %d, want 3", seq)
	}

	h.pipeline.Close()
	if err := h.waitRun(t); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats := h.pipeline.Stats(); stats.Submitted != 3 || stats.Processed != 2 || stats.Dropped != 1 {
		t.Errorf("stats = %+v, want 3 submitted, 2 processed, 1 dropped", stats)
	}
}

func TestPipelineUnnumberedFrameKeepsOrdering(t *testing.T) {
	h := start(t, false)

	h.pipeline.Submit(testFrame(5))
	h.waitDone(t)
	h.pipeline.Submit(testFrame(0))
	if seq := h.waitDone(t); seq != 0 {
		t.Fatalf("processed seq %d, want 0", seq)
	}

	h.pipeline.Submit(testFrame(4))
	h.pipeline.Submit(testFrame(7))
	if seq := h.waitDone(t); seq != 7 {
		t.Fatalf("processed seq %d, want 7", seq)
	}

	h.pipeline.Close()
	h.waitRun(t)
	if stats := h.pipeline.Stats(); stats.Processed != 3 {
		t.Errorf("stats = %+v, want 3 processed", stats)
	}
}

func TestPipelineForwardsToTrackerAndRenderer(t *testing.T) {
	h := start(t, false)
	h.rec.renderErr = errors.New("surface gone")

	frames := []frame.Frame{
		{Seq: 1, Width: 640, Height: 480},
		{Seq: 2, Width: 640, Height: 480},
		{Seq: 3, Width: 320, Height: 240},
	}
	for _, f := range frames {
		h.pipeline.Submit(f)
		h.waitDone(t)
	}
	h.pipeline.Close()
	if err := h.waitRun(t); err != nil {
		t.Fatalf("Run() error = %v, render errors must not stop the pipeline", err)
	}

	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	if h.rec.resizes != 2 || h.rec.contexts != 2 {
		t.Errorf("resizes = %d, frame contexts = %d, want 2 each", h.rec.resizes, h.rec.contexts)
	}
	if h.rec.renders != 3 || len(h.rec.applied) != 3 {
		t.Fatalf("renders = %d, applied = %d, want 3 each", h.rec.renders, len(h.rec.applied))
	}
	if _, ok := h.rec.applied[1].(landmark.NoFace); !ok {
		t.Errorf("applied[1] = %T, want landmark.NoFace", h.rec.applied[1])
	}
	if _, ok := landmark.Points(h.rec.applied[2]); !ok {
		t.Errorf("applied[2] = %T, want detected landmarks", h.rec.applied[2])
	}
}

func TestPipelineStopsOnCancelDuringDetection(t *testing.T) {
	h := start(t, true)

	h.pipeline.Submit(testFrame(1))
	h.waitEntered(t)
	h.cancel()

	if err := h.waitRun(t); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancellation", err)
	}
	if stats := h.pipeline.Stats(); stats.Processed != 0 {
		t.Errorf("processed = %d, want 0", stats.Processed)
	}
}

func TestPipelineRunOnce(t *testing.T) {
	p := New(testLogger(), newFakeDetector(false), &recorder{}, &recorder{})
	p.Close()
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := p.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want %v", err, ErrAlreadyRunning)
	}
}
