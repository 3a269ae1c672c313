package gputest

import (
	"strings"
	"testing"

	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

func expectViolation(t *testing.T, d *Device, fragment string) {
	t.Helper()
	for _, v := range d.Violations() {
		if strings.Contains(v, fragment) {
			return
		}
	}
	t.Errorf("no violation containing %q in %v", fragment, d.Violations())
}

func boundBuffer(t *testing.T, d *Device) (core1_0.Buffer, core1_0.DeviceMemory) {
	t.Helper()
	buffer, err := d.CreateBuffer(core1_0.BufferCreateInfo{Size: 16})
	if err != nil {
		t.Fatal(err)
	}
	memory, err := d.AllocateMemory(core1_0.MemoryAllocateInfo{AllocationSize: 16, MemoryTypeIndex: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.BindBufferMemory(buffer, memory); err != nil {
		t.Fatal(err)
	}
	return buffer, memory
}

func TestDoubleDestroy(t *testing.T) {
	d := NewDevice(2)
	sem, _ := d.CreateSemaphore()
	d.DestroySemaphore(sem)
	d.DestroySemaphore(sem)
	expectViolation(t, d, "destroyed twice")
}

func TestParentBeforeChild(t *testing.T) {
	d := NewDevice(2)
	buffer, memory := boundBuffer(t, d)
	d.FreeMemory(memory)
	expectViolation(t, d, "destroyed before dependent")
	d.DestroyBuffer(buffer)
}

func TestDestroyWhileBusy(t *testing.T) {
	d := NewDevice(2)
	pool, _ := d.CreateCommandPool(core1_0.CommandPoolCreateInfo{})
	buffers, _ := d.AllocateCommandBuffers(pool, 1)
	_ = buffers[0].Begin(0)
	_ = buffers[0].End()
	_ = d.Queue(0).Submit(gpu.Submission{Commands: buffers[0]})

	d.DestroyCommandPool(pool)
	expectViolation(t, d, "while work is in flight")
}

func TestStaleReferenceAtSubmit(t *testing.T) {
	d := NewDevice(2)
	src, srcMemory := boundBuffer(t, d)
	dst, dstMemory := boundBuffer(t, d)
	pool, _ := d.CreateCommandPool(core1_0.CommandPoolCreateInfo{})
	buffers, _ := d.AllocateCommandBuffers(pool, 1)

	cmd := buffers[0]
	_ = cmd.Begin(0)
	_ = cmd.CopyBuffer(src, dst, 16)
	_ = cmd.End()

	d.DestroyBuffer(dst)
	d.FreeMemory(dstMemory)
	_ = d.Queue(0).Submit(gpu.Submission{Commands: cmd})
	expectViolation(t, d, "references destroyed")

	_ = d.WaitIdle()
	d.DestroyCommandPool(pool)
	d.DestroyBuffer(src)
	d.FreeMemory(srcMemory)
}

func TestSemaphoreDiscipline(t *testing.T) {
	d := NewDevice(2)
	sc, err := d.CreateSwapchain(gpu.SwapchainRequest{MinImageCount: 2, Extent: core1_0.Extent2D{Width: 4, Height: 4}})
	if err != nil {
		t.Fatal(err)
	}
	sem, _ := d.CreateSemaphore()

	if _, err := d.Queue(0).Present(sc, 0, sem); err != nil {
		t.Fatal(err)
	}
	expectViolation(t, d, "waits on unsignaled")

	d.violations = nil
	if _, _, err := sc.AcquireNextImage(sem); err != nil {
		t.Fatal(err)
	}
	if _, _, err := sc.AcquireNextImage(sem); err != nil {
		t.Fatal(err)
	}
	expectViolation(t, d, "already signaled")
}

func TestAcquireCyclesImages(t *testing.T) {
	d := NewDevice(2)
	sc, _ := d.CreateSwapchain(gpu.SwapchainRequest{MinImageCount: 3, Extent: core1_0.Extent2D{Width: 4, Height: 4}})
	sem, _ := d.CreateSemaphore()
	d.AcquireResults = []gpu.Status{gpu.StatusSuccess, gpu.StatusOutOfDate}

	idx, status, _ := sc.AcquireNextImage(sem)
	if idx != 0 || status != gpu.StatusSuccess {
		t.Errorf("first acquire = %d %v", idx, status)
	}
	_, _ = d.Queue(0).Present(sc, idx, sem)

	if _, status, _ := sc.AcquireNextImage(sem); status != gpu.StatusOutOfDate {
		t.Errorf("second acquire status = %v, want out-of-date", status)
	}
	if idx, _, _ := sc.AcquireNextImage(sem); idx != 1 {
		t.Errorf("third acquire index = %d, want 1", idx)
	}
	if len(d.Violations()) != 0 {
		t.Errorf("violations: %v", d.Violations())
	}
}

func TestCopyImageHonoursRowPitch(t *testing.T) {
	d := NewDevice(2)
	d.RowPitchAlignment = 16

	linear, _ := d.CreateImage(core1_0.ImageCreateInfo{Extent: core1_0.Extent3D{Width: 2, Height: 2, Depth: 1}, Tiling: core1_0.ImageTilingLinear})
	optimal, _ := d.CreateImage(core1_0.ImageCreateInfo{Extent: core1_0.Extent3D{Width: 2, Height: 2, Depth: 1}, Tiling: core1_0.ImageTilingOptimal})
	if got := d.ImageSubresourceLayout(linear, core1_0.ImageSubresource{}).RowPitch; got != 16 {
		t.Fatalf("linear row pitch = %d, want 16", got)
	}

	for _, image := range []core1_0.Image{linear, optimal} {
		reqs := d.ImageMemoryRequirements(image)
		memory, _ := d.AllocateMemory(core1_0.MemoryAllocateInfo{AllocationSize: reqs.Size})
		_ = d.BindImageMemory(image, memory)
	}

	src := d.Contents(linear)
	copy(src[0:8], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	copy(src[16:24], []byte{9, 10, 11, 12, 13, 14, 15, 16})

	pool, _ := d.CreateCommandPool(core1_0.CommandPoolCreateInfo{})
	buffers, _ := d.AllocateCommandBuffers(pool, 1)
	_ = buffers[0].Begin(0)
	_ = buffers[0].CopyImage(linear, optimal, 2, 2)
	_ = buffers[0].End()
	_ = d.Queue(0).Submit(gpu.Submission{Commands: buffers[0]})

	got := d.Contents(optimal)
	for i := 0; i < 16; i++ {
		if got[i] != byte(i+1) {
			t.Fatalf("optimal image = %v", got)
		}
	}
}
