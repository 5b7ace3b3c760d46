package asset

import (
	"TryOnGolang/internal/tryon/landmark"
	"TryOnGolang/internal/tryon/scene"
	"context"
	"errors"
	"fmt"
	"github.com/golang/geo/r3"
	"github.com/sirupsen/logrus"
	"io"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type loadOutcome struct {
	width float64
	err   error
}

// gatedLoader blocks every Load until the test releases that path.
type gatedLoader struct {
	mu    sync.Mutex
	gates map[string]chan loadOutcome
	calls map[string]int
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{
		gates: make(map[string]chan loadOutcome),
		calls: make(map[string]int),
	}
}

func (l *gatedLoader) gate(path string) chan loadOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.gates[path]
	if !ok {
		ch = make(chan loadOutcome, 16)
		l.gates[path] = ch
	}
	return ch
}

func (l *gatedLoader) Load(ctx context.Context, path string) (Asset, error) {
	l.mu.Lock()
	l.calls[path]++
	l.mu.Unlock()

	select {
	case out := <-l.gate(path):
		if out.err != nil {
			return Asset{}, out.err
		}
		return Asset{Path: path, Source: "/" + path, Width: out.width}, nil
	case <-ctx.Done():
		return Asset{}, ctx.Err()
	}
}

func (l *gatedLoader) release(path string, width float64) {
	l.gate(path) <- loadOutcome{width: width}
}

func (l *gatedLoader) fail(path string, err error) {
	l.gate(path) <- loadOutcome{err: err}
}

func (l *gatedLoader) callCount(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[path]
}

type fixture struct {
	graph   *scene.Graph
	loader  *gatedLoader
	manager *Manager
	settled chan LoadResult
}

func newFixture() *fixture {
	f := &fixture{
		graph:   scene.NewGraph(nil, nil),
		loader:  newGatedLoader(),
		settled: make(chan LoadResult, 64),
	}
	f.manager = NewManager(testLogger(), f.graph, f.loader, WithLoadHook(func(r LoadResult) {
		f.settled <- r
	}))
	return f
}

func (f *fixture) waitSettled(t *testing.T) LoadResult {
	t.Helper()
	select {
	case r := <-f.settled:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for load to settle")
		return LoadResult{}
	}
}

func (f *fixture) reserved() []*scene.Object {
	var out []*scene.Object
	for _, c := range f.graph.Children() {
		if c.Name == ReservedName {
			out = append(out, c)
		}
	}
	return out
}

// faceSet is a frontal face with the outer eye landmarks 0.1 apart.
func faceSet() landmark.Set {
	s := make(landmark.Set, landmark.MinPoints)
	s[landmark.MidEyes] = r3.Vector{X: 0.5, Y: 0.4}
	s[landmark.NoseBottom] = r3.Vector{X: 0.5, Y: 0.6}
	s[landmark.LeftEyeInnerCorner] = r3.Vector{X: 0.53, Y: 0.4}
	s[landmark.RightEyeInnerCorner] = r3.Vector{X: 0.47, Y: 0.4}
	s[landmark.LeftEyeUpper] = r3.Vector{X: 0.55, Y: 0.38}
	s[landmark.RightEyeUpper] = r3.Vector{X: 0.45, Y: 0.38}
	return s
}

func TestManagerLoadThenTrack(t *testing.T) {
	f := newFixture()
	if st := f.manager.Status(); st.State != StateEmpty {
		t.Fatalf("initial state = %v, want empty", st.State)
	}

	f.manager.RequestLoad(context.Background(), "grey.gltf")
	if st := f.manager.Status(); st.State != StateLoading {
		t.Fatalf("state after request = %v, want loading", st.State)
	}

	f.loader.release("grey.gltf", 50)
	if r := f.waitSettled(t); r.Err != nil || r.Stale {
		t.Fatalf("load result = %+v", r)
	}

	// no landmarks yet: loaded but not attached
	if st := f.manager.Status(); st.State != StateReady || st.Attached {
		t.Fatalf("state after load = %+v, want ready and detached", st)
	}
	if n := len(f.reserved()); n != 0 {
		t.Fatalf("attached models = %d before any face, want 0", n)
	}

	f.manager.UpdateFrameContext(1000, 1000)
	f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})

	st := f.manager.Status()
	if st.State != StateTracking || st.Path != "grey.gltf" {
		t.Fatalf("status = %+v, want tracking grey.gltf", st)
	}

	p, ok := f.manager.Pose()
	if !ok {
		t.Fatal("Pose() reported no attached model")
	}
	if math.Abs(p.Scale-2.0) > 1e-9 {
		t.Errorf("scale = %v, want 2.0", p.Scale)
	}
	if p.Position.Sub(r3.Vector{X: 500, Y: 400}).Norm() > 1e-9 {
		t.Errorf("position = %v, want (500, 400, 0)", p.Position)
	}

	objs := f.reserved()
	if len(objs) != 1 {
		t.Fatalf("attached models = %d, want 1", len(objs))
	}
	if objs[0].Scale != p.Scale || objs[0].Position != p.Position {
		t.Errorf("scene object transform %+v does not match pose %+v", objs[0], p)
	}
}

func TestManagerLastRequestWins(t *testing.T) {
	tests := []struct {
		name  string
		order []string
	}{
		{name: "in order", order: []string{"grey.gltf", "black.gltf"}},
		{name: "out of order", order: []string{"black.gltf", "grey.gltf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.manager.UpdateFrameContext(640, 480)
			f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})

			f.manager.RequestLoad(context.Background(), "grey.gltf")
			f.manager.RequestLoad(context.Background(), "black.gltf")

			for _, p := range tt.order {
				f.loader.release(p, 40)
				r := f.waitSettled(t)
				if wantStale := p == "grey.gltf"; r.Stale != wantStale {
					t.Errorf("%s settled with stale=%v, want %v", p, r.Stale, wantStale)
				}
			}

			objs := f.reserved()
			if len(objs) != 1 {
				t.Fatalf("attached models = %d, want 1", len(objs))
			}
			if objs[0].Source != "/black.gltf" {
				t.Errorf("attached model = %s, want /black.gltf", objs[0].Source)
			}
			if st := f.manager.Status(); st.Path != "black.gltf" || st.State != StateTracking {
				t.Errorf("status = %+v", st)
			}
		})
	}
}

func TestManagerHidesWithoutDiscarding(t *testing.T) {
	f := newFixture()
	f.manager.UpdateFrameContext(640, 480)
	f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})
	f.manager.RequestLoad(context.Background(), "grey.gltf")
	f.loader.release("grey.gltf", 30)
	f.waitSettled(t)

	before := f.reserved()
	if len(before) != 1 {
		t.Fatalf("attached models = %d, want 1", len(before))
	}

	f.manager.ApplyFrame(landmark.NoFace{})
	if n := len(f.reserved()); n != 0 {
		t.Fatalf("attached models with no face = %d, want 0", n)
	}
	if st := f.manager.Status(); st.State != StateReady || st.Path != "grey.gltf" {
		t.Fatalf("status with no face = %+v, want ready grey.gltf", st)
	}
	if _, ok := f.manager.Pose(); ok {
		t.Error("Pose() reported a pose while hidden")
	}

	f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})
	after := f.reserved()
	if len(after) != 1 || after[0] != before[0] {
		t.Fatalf("model did not come back as the same object: before %v after %v", before, after)
	}
	if n := f.loader.callCount("grey.gltf"); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
}

func TestManagerApplyFrameIsIdempotent(t *testing.T) {
	f := newFixture()
	f.manager.RequestLoad(context.Background(), "grey.gltf")
	f.loader.release("grey.gltf", 37)
	f.waitSettled(t)

	f.manager.UpdateFrameContext(1280, 720)
	points := faceSet()

	f.manager.ApplyFrame(landmark.Detected{Points: points})
	first, _ := f.manager.Pose()
	f.manager.ApplyFrame(landmark.Detected{Points: points})
	second, _ := f.manager.Pose()

	if first != second {
		t.Errorf("pose changed on repeated frame: %+v then %+v", first, second)
	}
}

func TestManagerFrameContextMarksAttached(t *testing.T) {
	f := newFixture()
	f.manager.RequestLoad(context.Background(), "grey.gltf")
	f.loader.release("grey.gltf", 37)
	f.waitSettled(t)
	f.manager.UpdateFrameContext(640, 480)
	f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})

	f.manager.UpdateFrameContext(1280, 960)
	if st := f.manager.Status(); st.State != StateAttached {
		t.Fatalf("state after resize = %v, want attached", st.State)
	}

	small, _ := f.manager.Pose()
	f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})
	large, _ := f.manager.Pose()
	if math.Abs(large.Scale-2*small.Scale) > 1e-9 {
		t.Errorf("scale after doubling frame = %v, want %v", large.Scale, 2*small.Scale)
	}
}

func TestManagerFailedLoadKeepsCurrent(t *testing.T) {
	f := newFixture()
	f.manager.UpdateFrameContext(640, 480)
	f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})
	f.manager.RequestLoad(context.Background(), "grey.gltf")
	f.loader.release("grey.gltf", 30)
	f.waitSettled(t)

	boom := errors.New("404")
	f.manager.RequestLoad(context.Background(), "missing.gltf")
	f.loader.fail("missing.gltf", boom)
	r := f.waitSettled(t)
	if !errors.Is(r.Err, boom) || r.Stale {
		t.Fatalf("load result = %+v, want error %v", r, boom)
	}

	objs := f.reserved()
	if len(objs) != 1 || objs[0].Source != "/grey.gltf" {
		t.Fatalf("attached models after failure = %v, want grey", objs)
	}
	if st := f.manager.Status(); st.State != StateTracking || st.Path != "grey.gltf" {
		t.Errorf("status = %+v", st)
	}
}

func TestManagerEvictsStrayModels(t *testing.T) {
	f := newFixture()
	stray := f.graph.CreateObject(ReservedName, "/stray.gltf")
	f.graph.Attach(stray)

	f.manager.UpdateFrameContext(640, 480)
	f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})
	f.manager.RequestLoad(context.Background(), "grey.gltf")
	f.loader.release("grey.gltf", 30)
	f.waitSettled(t)

	objs := f.reserved()
	if len(objs) != 1 || objs[0] == stray {
		t.Fatalf("reserved objects = %v, want only the managed model", objs)
	}
}

func TestManagerCloseDiscardsInFlight(t *testing.T) {
	f := newFixture()
	f.manager.UpdateFrameContext(640, 480)
	f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})
	f.manager.RequestLoad(context.Background(), "grey.gltf")

	f.manager.Close()
	f.loader.release("grey.gltf", 30)
	if r := f.waitSettled(t); !r.Stale {
		t.Errorf("load completing after Close was applied: %+v", r)
	}
	if n := len(f.graph.Children()); n != 0 {
		t.Errorf("children after Close = %d, want 0", n)
	}
	if st := f.manager.Status(); st.State != StateEmpty {
		t.Errorf("state after Close = %v, want empty", st.State)
	}
}

func TestManagerInterleavedLoads(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		f := newFixture()
		f.manager.UpdateFrameContext(640, 480)

		n := 2 + rng.Intn(5)
		paths := make([]string, n)
		for i := range paths {
			paths[i] = fmt.Sprintf("model-%d.gltf", i)
			f.manager.RequestLoad(context.Background(), paths[i])
		}

		for _, i := range rng.Perm(n) {
			if rng.Intn(2) == 0 {
				f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})
			} else {
				f.manager.ApplyFrame(landmark.NoFace{})
			}
			f.loader.release(paths[i], float64(10+i))
			f.waitSettled(t)

			if k := len(f.reserved()); k > 1 {
				t.Fatalf("round %d: %d models attached", round, k)
			}
		}

		f.manager.ApplyFrame(landmark.Detected{Points: faceSet()})
		objs := f.reserved()
		want := "/" + paths[n-1]
		if len(objs) != 1 || objs[0].Source != want {
			t.Fatalf("round %d: attached %v, want %s", round, objs, want)
		}
	}
}
