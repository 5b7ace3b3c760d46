package asset

import (
	"bytes"
	"fmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/qmuntal/gltf"
	"github.com/ungerik/go3d/float64/mat4"
	"github.com/ungerik/go3d/float64/quaternion"
	"github.com/ungerik/go3d/float64/vec3"
	"github.com/ungerik/go3d/float64/vec4"
)

const maxNodeDepth = 64

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	glbMagic = []byte("glTF")
)

type bounds struct {
	min, max vec3.T
	empty    bool
}

// ModelWidth returns the x extent of the world space bounding box of a glTF
// (JSON) or GLB model. Only accessor min/max is read, buffers are not needed.
func ModelWidth(data []byte) (float64, error) {
	doc, err := decodeModel(data)
	if err != nil {
		return 0, err
	}

	b := bounds{empty: true}
	for _, root := range sceneRoots(doc) {
		if err := visit(doc, root, mat4.Ident, 0, &b); err != nil {
			return 0, err
		}
	}

	if b.empty {
		return 0, ErrNoGeometry
	}
	return b.max[0] - b.min[0], nil
}

// decodeModel reads GLB containers through the gltf decoder. JSON documents
// are unmarshalled directly so that external buffer URIs are never resolved.
func decodeModel(data []byte) (*gltf.Document, error) {
	doc := new(gltf.Document)

	if bytes.HasPrefix(data, glbMagic) {
		if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
		return doc, nil
	}

	if err := json.Unmarshal(bytes.TrimSpace(data), doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return doc, nil
}

func sceneRoots(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		i := 0
		if doc.Scene != nil {
			i = int(*doc.Scene)
		}
		if i >= 0 && i < len(doc.Scenes) && doc.Scenes[i] != nil {
			roots := make([]int, 0, len(doc.Scenes[i].Nodes))
			for _, n := range doc.Scenes[i].Nodes {
				roots = append(roots, int(n))
			}
			return roots
		}
	}

	// no scene: every node that nobody references is a root
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n == nil {
			continue
		}
		for _, c := range n.Children {
			if int(c) >= 0 && int(c) < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func visit(doc *gltf.Document, index int, parent mat4.T, depth int, b *bounds) error {
	if depth > maxNodeDepth {
		return fmt.Errorf("%w: node hierarchy too deep", ErrInvalidModel)
	}
	if index < 0 || index >= len(doc.Nodes) || doc.Nodes[index] == nil {
		return fmt.Errorf("%w: node %d out of range", ErrInvalidModel, index)
	}

	node := doc.Nodes[index]
	local := localTransform(node)
	var world mat4.T
	world.AssignMul(&parent, &local)

	if node.Mesh != nil {
		mesh := int(*node.Mesh)
		if mesh < 0 || mesh >= len(doc.Meshes) || doc.Meshes[mesh] == nil {
			return fmt.Errorf("%w: mesh %d out of range", ErrInvalidModel, mesh)
		}
		for _, prim := range doc.Meshes[mesh].Primitives {
			if prim == nil {
				continue
			}
			pos, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			acc := int(pos)
			if acc < 0 || acc >= len(doc.Accessors) || doc.Accessors[acc] == nil {
				return fmt.Errorf("%w: accessor %d out of range", ErrInvalidModel, acc)
			}
			a := doc.Accessors[acc]
			if len(a.Min) < 3 || len(a.Max) < 3 {
				return fmt.Errorf("%w: POSITION accessor %d lacks min/max", ErrInvalidModel, acc)
			}
			b.addBox(&world, vec3.T{a.Min[0], a.Min[1], a.Min[2]}, vec3.T{a.Max[0], a.Max[1], a.Max[2]})
		}
	}

	for _, c := range node.Children {
		if err := visit(doc, int(c), world, depth+1, b); err != nil {
			return err
		}
	}
	return nil
}

// localTransform prefers an explicit matrix and otherwise builds T * R * S.
func localTransform(node *gltf.Node) mat4.T {
	if m := node.MatrixOrDefault(); m != gltf.DefaultMatrix {
		return mat4.T{
			vec4.T{m[0], m[1], m[2], m[3]},
			vec4.T{m[4], m[5], m[6], m[7]},
			vec4.T{m[8], m[9], m[10], m[11]},
			vec4.T{m[12], m[13], m[14], m[15]},
		}
	}

	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	t := node.TranslationOrDefault()

	q := quaternion.T{r[0], r[1], r[2], r[3]}
	out := mat4.Ident
	out.AssignQuaternion(&q)
	out[0].Scale(s[0])
	out[1].Scale(s[1])
	out[2].Scale(s[2])
	out[3] = vec4.T{t[0], t[1], t[2], 1}
	return out
}

func (b *bounds) addBox(m *mat4.T, lo, hi vec3.T) {
	for i := 0; i < 8; i++ {
		corner := vec4.T{lo[0], lo[1], lo[2], 1}
		if i&1 != 0 {
			corner[0] = hi[0]
		}
		if i&2 != 0 {
			corner[1] = hi[1]
		}
		if i&4 != 0 {
			corner[2] = hi[2]
		}
		p := m.MulVec4(&corner)
		b.add(vec3.T{p[0], p[1], p[2]})
	}
}

func (b *bounds) add(p vec3.T) {
	if b.empty {
		b.min, b.max, b.empty = p, p, false
		return
	}
	b.min = vec3.Min(&b.min, &p)
	b.max = vec3.Max(&b.max, &p)
}
