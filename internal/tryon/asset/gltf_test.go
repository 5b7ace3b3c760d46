package asset

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

const boxModel = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "root", "scale": [2, 2, 2], "children": [1]},
    {"name": "frame", "mesh": 0, "translation": [1, 0, 0]}
  ],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0, "NORMAL": 1}}]}],
  "accessors": [
    {"count": 8, "type": "VEC3", "componentType": 5126, "min": [-3, -1, -0.5], "max": [3, 1, 0.5]},
    {"count": 8, "type": "VEC3", "componentType": 5126}
  ]
}`

func TestModelWidthAppliesNodeTransforms(t *testing.T) {
	width, err := ModelWidth([]byte(boxModel))
	if err != nil {
		t.Fatalf("ModelWidth() error = %v", err)
	}
	// 6 units wide, scaled by the root's 2x; the child's translation shifts but does not widen
	if math.Abs(width-12) > 1e-9 {
		t.Errorf("width = %v, want 12", width)
	}
}

func TestModelWidthRotatedNode(t *testing.T) {
	// 90 degrees about z: the model's y extent becomes its x extent
	model := `{
	  "nodes": [{"mesh": 0, "rotation": [0, 0, 0.7071067811865476, 0.7071067811865476]}],
	  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	  "accessors": [{"min": [-3, -1, 0], "max": [3, 1, 0]}]
	}`

	width, err := ModelWidth([]byte(model))
	if err != nil {
		t.Fatalf("ModelWidth() error = %v", err)
	}
	if math.Abs(width-2) > 1e-9 {
		t.Errorf("width = %v, want 2", width)
	}
}

func TestModelWidthMatrixNode(t *testing.T) {
	model := `{
	  "nodes": [{"mesh": 0, "matrix": [0.5,0,0,0, 0,1,0,0, 0,0,1,0, 10,0,0,1]}],
	  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	  "accessors": [{"min": [0, 0, 0], "max": [4, 1, 1]}]
	}`

	width, err := ModelWidth([]byte(model))
	if err != nil {
		t.Fatalf("ModelWidth() error = %v", err)
	}
	if math.Abs(width-2) > 1e-9 {
		t.Errorf("width = %v, want 2", width)
	}
}

func TestModelWidthGLB(t *testing.T) {
	payload := []byte(boxModel)
	for len(payload)%4 != 0 {
		payload = append(payload, ' ')
	}

	glb := make([]byte, 20, 20+len(payload))
	copy(glb[0:4], glbMagic)
	binary.LittleEndian.PutUint32(glb[4:8], 2)
	binary.LittleEndian.PutUint32(glb[8:12], uint32(20+len(payload)))
	binary.LittleEndian.PutUint32(glb[12:16], uint32(len(payload)))
	binary.LittleEndian.PutUint32(glb[16:20], 0x4E4F534A) // JSON
	glb = append(glb, payload...)

	width, err := ModelWidth(glb)
	if err != nil {
		t.Fatalf("ModelWidth() error = %v", err)
	}
	if math.Abs(width-12) > 1e-9 {
		t.Errorf("width = %v, want 12", width)
	}
}

func TestModelWidthIgnoresExternalBuffers(t *testing.T) {
	model := `{
	  "buffers": [{"uri": "frame.bin", "byteLength": 96}],
	  "nodes": [{"mesh": 0, "scale": [0.5, 1, 1]}],
	  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	  "accessors": [{"count": 8, "type": "VEC3", "componentType": 5126, "min": [-4, -1, -1], "max": [4, 1, 1]}]
	}`

	width, err := ModelWidth([]byte(model))
	if err != nil {
		t.Fatalf("ModelWidth() error = %v", err)
	}
	if math.Abs(width-4) > 1e-9 {
		t.Errorf("width = %v, want 4", width)
	}
}

func TestModelWidthErrors(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  error
	}{
		{name: "not json", model: "solid cube", want: ErrInvalidModel},
		{name: "truncated glb", model: "glTF\x02\x00", want: ErrInvalidModel},
		{name: "no meshes", model: `{"nodes": [{"name": "empty"}]}`, want: ErrNoGeometry},
		{name: "bad node index", model: `{"scenes": [{"nodes": [3]}], "nodes": []}`, want: ErrInvalidModel},
		{
			name:  "accessor without bounds",
			model: `{"nodes": [{"mesh": 0}], "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}], "accessors": [{}]}`,
			want:  ErrInvalidModel,
		},
		{
			name:  "cycle",
			model: `{"scenes": [{"nodes": [0]}], "nodes": [{"children": [1]}, {"children": [0]}]}`,
			want:  ErrInvalidModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ModelWidth([]byte(tt.model)); !errors.Is(err, tt.want) {
				t.Errorf("ModelWidth() error = %v, want %v", err, tt.want)
			}
		})
	}
}
