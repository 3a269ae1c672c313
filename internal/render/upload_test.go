package render

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
	"github.com/vkngwrapper/vulkan-comparison/internal/gpu/gputest"
)

func newUploader(t *testing.T, h *harness) *Uploader {
	t.Helper()
	u, err := NewUploader(h.ctx, NewAllocator(h.ctx), discardLogger())
	if err != nil {
		t.Fatalf("NewUploader: %+v", err)
	}
	return u
}

func TestUploadBuffer(t *testing.T) {
	h := newHarness(t, nil)
	u := newUploader(t, h)

	data := []byte("vertex and index payload")
	buffer, err := u.UploadBuffer(data, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		t.Fatalf("UploadBuffer: %+v", err)
	}

	if got := h.device.Contents(buffer.Buffer); !bytes.Equal(got[:len(data)], data) {
		t.Errorf("device buffer holds %q, want %q", got, data)
	}
	if n := h.device.Live(gputest.KindBuffer); n != 1 {
		t.Errorf("%d live buffers, want staging released", n)
	}
	if n := h.device.Live(gputest.KindCommandBuffer); n != 0 {
		t.Errorf("%d transfer command buffers left allocated", n)
	}

	buffer.Release(h.device)
	u.Destroy()
	h.teardown(t, nil)
}

func TestUploadTexture(t *testing.T) {
	for _, alignment := range []int{0, 64} {
		h := newHarness(t, nil)
		h.device.RowPitchAlignment = alignment
		u := newUploader(t, h)

		pixels := checkerTexture(3, 2).Pix
		texture, err := u.UploadTexture(pixels, 3, 2)
		if err != nil {
			t.Fatalf("alignment %d: UploadTexture: %+v", alignment, err)
		}

		if got := h.device.Contents(texture.Image); !bytes.Equal(got[:len(pixels)], pixels) {
			t.Errorf("alignment %d: texture holds %v, want %v", alignment, got, pixels)
		}
		if texture.View == nil {
			t.Errorf("alignment %d: texture has no view", alignment)
		}
		if n := h.device.Live(gputest.KindImage); n != 1 {
			t.Errorf("alignment %d: %d live images, want staging released", alignment, n)
		}

		texture.Release(h.device)
		u.Destroy()
		h.teardown(t, nil)
	}
}

func TestUploadTextureSizeMismatch(t *testing.T) {
	h := newHarness(t, nil)
	u := newUploader(t, h)

	if _, err := u.UploadTexture(make([]byte, 10), 2, 2); err == nil {
		t.Error("UploadTexture accepted a short pixel buffer")
	}

	u.Destroy()
	h.teardown(t, nil)
}

func TestTransitionImageLayoutUnsupported(t *testing.T) {
	h := newHarness(t, nil)
	u := newUploader(t, h)

	submits := h.device.Submits
	err := u.TransitionImageLayout(nil, TextureFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutGeneral)
	if !errors.Is(err, ErrUnsupportedTransition) {
		t.Fatalf("TransitionImageLayout() error = %v, want ErrUnsupportedTransition", err)
	}
	if h.device.Submits != submits {
		t.Error("unsupported transition was submitted")
	}

	u.Destroy()
	h.teardown(t, nil)
}

func TestUniformBufferUpdate(t *testing.T) {
	h := newHarness(t, nil)
	u := newUploader(t, h)

	ub, err := u.NewUniformBuffer(16)
	if err != nil {
		t.Fatalf("NewUniformBuffer: %+v", err)
	}
	for _, payload := range [][]byte{bytes.Repeat([]byte{1}, 16), bytes.Repeat([]byte{2}, 16)} {
		if err := u.Update(ub, payload); err != nil {
			t.Fatalf("Update: %+v", err)
		}
		if got := h.device.Contents(ub.Device.Buffer); !bytes.Equal(got, payload) {
			t.Errorf("uniform holds %v, want %v", got, payload)
		}
	}

	ub.Release(h.device)
	u.Destroy()
	h.teardown(t, nil)
}

func TestBenchmarkReleasesCopies(t *testing.T) {
	h := newHarness(t, nil)
	u := newUploader(t, h)

	if _, err := u.Benchmark([]byte{1, 2, 3, 4}, []byte{0, 0, 0, 0}, 5); err != nil {
		t.Fatalf("Benchmark: %+v", err)
	}
	if n := h.device.Live(gputest.KindBuffer); n != 0 {
		t.Errorf("%d buffers left after benchmark", n)
	}

	u.Destroy()
	h.teardown(t, nil)
}

func TestRunKeepsPendingCommandsOnWaitFailure(t *testing.T) {
	tests := []struct {
		name       string
		waitErrors []error
		wantLive   int
	}{
		{"device wait drains", []error{errors.New("queue wait timed out")}, 0},
		{"device wait fails", []error{errors.New("queue wait timed out"), errors.New("device lost")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			u := newUploader(t, h)
			h.device.WaitErrors = tt.waitErrors

			err := u.Run(func(cmd gpu.CommandBuffer) error { return nil })
			if err == nil {
				t.Fatal("Run succeeded with a failing wait")
			}
			if n := h.device.Live(gputest.KindCommandBuffer); n != tt.wantLive {
				t.Errorf("%d live transfer command buffers, want %d", n, tt.wantLive)
			}

			if err := h.device.WaitIdle(); err != nil {
				t.Fatalf("WaitIdle: %+v", err)
			}
			u.Destroy()
			h.teardown(t, nil)
		})
	}
}
