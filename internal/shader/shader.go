// Package shader loads precompiled SPIR-V modules.
package shader

//go:generate glslc ../../assets/shaders/shader.vert -o ../../assets/shaders/vert.spv
//go:generate glslc ../../assets/shaders/shader.frag -o ../../assets/shaders/frag.spv

import (
	"encoding/binary"
	"io/fs"

	"github.com/cockroachdb/errors"
)

// Magic is the first word of every SPIR-V module.
const Magic = 0x07230203

// ErrInvalid is returned for data that is not a SPIR-V module.
var ErrInvalid = errors.New("invalid spir-v module")

// Words converts a little-endian SPIR-V binary into code words.
func Words(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalid, "size %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}

	if byteCode[0] != Magic {
		return nil, errors.Wrapf(ErrInvalid, "magic number %#08x", byteCode[0])
	}
	return byteCode, nil
}

// Load reads and validates the SPIR-V module at name.
func Load(fsys fs.FS, name string) ([]uint32, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", name)
	}

	words, err := Words(b)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return words, nil
}

// Pair is the vertex and fragment stage code.
type Pair struct {
	Vertex   []uint32
	Fragment []uint32
}

// LoadPair loads the vertex and fragment modules.
func LoadPair(fsys fs.FS, vertexName, fragmentName string) (Pair, error) {
	var pair Pair
	var err error

	pair.Vertex, err = Load(fsys, vertexName)
	if err != nil {
		return pair, err
	}
	pair.Fragment, err = Load(fsys, fragmentName)
	return pair, err
}
