package shader

import (
	"encoding/binary"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
)

func module(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

func TestWords(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []uint32
		err  bool
	}{
		{"valid", module(Magic, 0x00010000, 7), []uint32{Magic, 0x00010000, 7}, false},
		{"empty", nil, nil, true},
		{"truncated", module(Magic, 1)[:7], nil, true},
		{"wrong magic", module(0x12345678, 1), nil, true},
		{"big endian", []byte{0x07, 0x23, 0x02, 0x03}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Words(tt.data)
			if tt.err {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("Words() error = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Words() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Words() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("word %d = %#x, want %#x", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadPair(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/vert.spv": {Data: module(Magic, 1)},
		"shaders/frag.spv": {Data: module(Magic, 2)},
		"shaders/bad.spv":  {Data: []byte("#version 450")},
	}

	pair, err := LoadPair(fsys, "shaders/vert.spv", "shaders/frag.spv")
	if err != nil {
		t.Fatalf("LoadPair: %+v", err)
	}
	if pair.Vertex[1] != 1 || pair.Fragment[1] != 2 {
		t.Errorf("LoadPair swapped stages: %v %v", pair.Vertex, pair.Fragment)
	}

	if _, err := LoadPair(fsys, "shaders/vert.spv", "shaders/missing.spv"); err == nil {
		t.Error("LoadPair found a missing module")
	}
	if _, err := Load(fsys, "shaders/bad.spv"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load(source text) error = %v, want ErrInvalid", err)
	}
}
