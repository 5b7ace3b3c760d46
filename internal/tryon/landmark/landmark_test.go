package landmark

import (
	"testing"

	"github.com/golang/geo/r3"
)

func TestScaleUsesWidthForDepth(t *testing.T) {
	got := Scale(r3.Vector{X: 0.5, Y: 0.25, Z: -0.1}, 640, 480)
	want := r3.Vector{X: 320, Y: 120, Z: -64}
	if got != want {
		t.Errorf("Scale() = %v, want %v", got, want)
	}
}

func TestScaledDoesNotMutateInput(t *testing.T) {
	in := Set{{X: 1, Y: 1, Z: 1}}
	out := in.Scaled(10, 20)

	if in[0] != (r3.Vector{X: 1, Y: 1, Z: 1}) {
		t.Fatalf("input mutated: %v", in[0])
	}
	if out[0] != (r3.Vector{X: 10, Y: 20, Z: 10}) {
		t.Errorf("Scaled() = %v", out[0])
	}
}

func TestFromPoints(t *testing.T) {
	tests := []struct {
		name     string
		points   Set
		detected bool
	}{
		{name: "nil is no face", points: nil, detected: false},
		{name: "empty is no face", points: Set{}, detected: false},
		{name: "points are detected", points: make(Set, MinPoints), detected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromPoints(tt.points)
			_, ok := Points(r)
			if ok != tt.detected {
				t.Errorf("Points() ok = %v, want %v", ok, tt.detected)
			}
			if _, isNoFace := r.(NoFace); isNoFace == tt.detected {
				t.Errorf("result type %T does not match detected=%v", r, tt.detected)
			}
		})
	}
}

func TestPointsNilResult(t *testing.T) {
	if _, ok := Points(nil); ok {
		t.Error("Points(nil) reported a face")
	}
}
