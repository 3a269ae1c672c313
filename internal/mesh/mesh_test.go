package mesh

import (
	"reflect"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBuilderDeduplicates(t *testing.T) {
	shared := Vertex{Position: mgl32.Vec3{1, 1, 0}, Color: mgl32.Vec3{1, 1, 1}, TexCoord: mgl32.Vec2{0.5, 0.5}}
	a := Vertex{Position: mgl32.Vec3{0, 0, 0}}
	b := Vertex{Position: mgl32.Vec3{1, 0, 0}}
	c := Vertex{Position: mgl32.Vec3{0, 1, 0}}

	builder := NewBuilder()
	for _, v := range []Vertex{a, b, shared, shared, c, a} {
		builder.Add(v)
	}
	m := builder.Mesh()

	if len(m.Vertices) != 4 {
		t.Errorf("%d vertices, want 4", len(m.Vertices))
	}
	if want := []uint32{0, 1, 2, 2, 3, 0}; !reflect.DeepEqual(m.Indices, want) {
		t.Errorf("indices = %v, want %v", m.Indices, want)
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			t.Fatalf("index %d out of range", idx)
		}
	}
}

func TestBuilderKeepsDistinctAttributes(t *testing.T) {
	builder := NewBuilder()
	builder.Add(Vertex{TexCoord: mgl32.Vec2{0, 0}})
	builder.Add(Vertex{TexCoord: mgl32.Vec2{0, 1}})

	if n := len(builder.Mesh().Vertices); n != 2 {
		t.Errorf("%d vertices, want vertices differing only in texture coordinates kept apart", n)
	}
}

const quadOBJ = `o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`

func TestLoadOBJ(t *testing.T) {
	m, err := LoadOBJ(strings.NewReader(quadOBJ), strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadOBJ: %+v", err)
	}

	if len(m.Vertices) != 4 || len(m.Indices) != 6 {
		t.Fatalf("got %d vertices and %d indices, want 4 and 6", len(m.Vertices), len(m.Indices))
	}

	first := m.Vertices[m.Indices[0]]
	if first.Position != (mgl32.Vec3{0, 0, 0}) {
		t.Errorf("first position = %v", first.Position)
	}
	if first.TexCoord != (mgl32.Vec2{0, 1}) {
		t.Errorf("first texture coordinate = %v, want V flipped to 1", first.TexCoord)
	}
	for _, v := range m.Vertices {
		if v.Color != (mgl32.Vec3{1, 1, 1}) {
			t.Errorf("vertex colour = %v, want white", v.Color)
		}
	}
}

func TestLoadOBJWithoutFaces(t *testing.T) {
	_, err := LoadOBJ(strings.NewReader("o empty\nv 0 0 0\n"), strings.NewReader(""))
	if err == nil {
		t.Error("LoadOBJ accepted a model without triangles")
	}
}
