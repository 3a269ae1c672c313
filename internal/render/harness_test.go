package render

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
	"github.com/vkngwrapper/vulkan-comparison/internal/gpu/gputest"
	"github.com/vkngwrapper/vulkan-comparison/internal/mesh"
	"github.com/vkngwrapper/vulkan-comparison/internal/shader"
)

type testSurface struct {
	width, height int
}

func (s *testSurface) DrawableSize() (int, int) {
	return s.width, s.height
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quadMesh() *mesh.Mesh {
	b := mesh.NewBuilder()
	corners := []mesh.Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Color: mgl32.Vec3{1, 0, 0}, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Color: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, Color: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, Color: mgl32.Vec3{1, 1, 1}, TexCoord: mgl32.Vec2{1, 1}},
	}
	for _, idx := range []int{0, 1, 2, 2, 3, 0} {
		b.Add(corners[idx])
	}
	return b.Mesh()
}

func checkerTexture(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: uint8((x + y) % 2 * 255), A: 255})
		}
	}
	return img
}

func testOptions() Options {
	return Options{
		Samples:        core1_0.Samples4,
		VertexShader:   []uint32{shader.Magic, 1},
		FragmentShader: []uint32{shader.Magic, 2},
		Mesh:           quadMesh(),
		Texture:        checkerTexture(3, 2),
		Logger:         discardLogger(),
	}
}

type harness struct {
	adapter  *gputest.Adapter
	instance *gputest.Instance
	device   *gputest.Device
	surface  *testSurface
	ctx      *Context
}

func newHarness(t *testing.T, adapter *gputest.Adapter) *harness {
	t.Helper()
	if adapter == nil {
		adapter = gputest.NewAdapter()
	}
	h := &harness{
		adapter:  adapter,
		instance: &gputest.Instance{AdapterList: []gpu.Adapter{adapter}},
		device:   adapter.Device,
		surface:  &testSurface{width: 800, height: 600},
	}

	ctx, err := NewContext(h.instance, discardLogger())
	if err != nil {
		t.Fatalf("NewContext: %+v", err)
	}
	h.ctx = ctx
	return h
}

func (h *harness) newRenderer(t *testing.T, opts Options) *Renderer {
	t.Helper()
	r, err := New(h.ctx, h.surface, opts)
	if err != nil {
		t.Fatalf("New: %+v", err)
	}
	return r
}

// teardown destroys r and the context, then requires that nothing leaked and
// no lifecycle rule was broken.
func (h *harness) teardown(t *testing.T, r *Renderer) {
	t.Helper()
	if r != nil {
		r.Destroy()
	}
	h.ctx.Destroy()

	if live := h.device.LiveHandles(); len(live) != 0 {
		t.Errorf("live handles after teardown: %v", live)
	}
	if !h.device.Destroyed || !h.instance.Destroyed {
		t.Errorf("device destroyed = %v, instance destroyed = %v", h.device.Destroyed, h.instance.Destroyed)
	}
	h.device.Verify(t)
}
