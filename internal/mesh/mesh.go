// Package mesh builds indexed triangle meshes from OBJ models.
package mesh

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is one vertex record as laid out in the vertex buffer.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Mesh is a deduplicated vertex array with triangle-list indices into it.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Builder appends vertices, reusing the index of any exactly equal vertex
// already added.
type Builder struct {
	mesh   Mesh
	unique map[Vertex]uint32
}

func NewBuilder() *Builder {
	return &Builder{unique: make(map[Vertex]uint32)}
}

// Add appends an index for v and returns it.
func (b *Builder) Add(v Vertex) uint32 {
	index, exists := b.unique[v]
	if !exists {
		index = uint32(len(b.mesh.Vertices))
		b.mesh.Vertices = append(b.mesh.Vertices, v)
		b.unique[v] = index
	}
	b.mesh.Indices = append(b.mesh.Indices, index)
	return index
}

// Mesh returns the mesh built so far.
func (b *Builder) Mesh() *Mesh {
	return &b.mesh
}

var white = mgl32.Vec3{1, 1, 1}

// LoadOBJ decodes an OBJ model and its material library. Polygons are split
// into triangle fans, texture V is flipped for Vulkan's image origin and
// every vertex is white.
func LoadOBJ(objReader, mtlReader io.Reader) (*Mesh, error) {
	decoder, err := obj.DecodeReader(objReader, mtlReader)
	if err != nil {
		return nil, errors.Wrap(err, "decode obj")
	}

	builder := NewBuilder()
	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					v, err := faceVertex(decoder, face, corner)
					if err != nil {
						return nil, errors.Wrapf(err, "object %q", decodedObj.Name)
					}
					builder.Add(v)
				}
			}
		}
	}

	if len(builder.mesh.Indices) == 0 {
		return nil, errors.New("obj contains no triangles")
	}
	return builder.Mesh(), nil
}

func faceVertex(decoder *obj.Decoder, face obj.Face, corner int) (Vertex, error) {
	vertInd := face.Vertices[corner]
	if vertInd < 0 || vertInd*3+2 >= len(decoder.Vertices) {
		return Vertex{}, errors.Newf("vertex index %d out of range", vertInd)
	}

	v := Vertex{
		Position: mgl32.Vec3{
			decoder.Vertices[vertInd*3],
			decoder.Vertices[vertInd*3+1],
			decoder.Vertices[vertInd*3+2],
		},
		Color: white,
	}

	if corner < len(face.Uvs) {
		uvInd := face.Uvs[corner]
		if uvInd < 0 || uvInd*2+1 >= len(decoder.Uvs) {
			return Vertex{}, errors.Newf("texture coordinate index %d out of range", uvInd)
		}
		v.TexCoord = mgl32.Vec2{
			decoder.Uvs[uvInd*2],
			1.0 - decoder.Uvs[uvInd*2+1],
		}
	}

	return v, nil
}
