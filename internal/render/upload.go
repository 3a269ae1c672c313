package render

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

// TextureFormat is the layout of decoded texture pixels.
const TextureFormat = core1_0.FormatR8G8B8A8UnsignedNormalized

const hostCoherent = core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent

// Uploader moves host data into device-local resources. Each transfer is
// recorded into a one-shot command buffer from a transient pool, submitted to
// the graphics queue and waited on before returning.
type Uploader struct {
	logger *slog.Logger
	device gpu.Device
	queue  gpu.Queue
	alloc  *Allocator
	pool   core1_0.CommandPool
}

func NewUploader(ctx *Context, alloc *Allocator, logger *slog.Logger) (*Uploader, error) {
	pool, err := ctx.Device.CreateCommandPool(core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: ctx.Families.Graphics,
		Flags:            core1_0.CommandPoolCreateTransient,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create transfer command pool")
	}

	return &Uploader{
		logger: logger,
		device: ctx.Device,
		queue:  ctx.GraphicsQueue,
		alloc:  alloc,
		pool:   pool,
	}, nil
}

func (u *Uploader) Destroy() {
	if u.pool != nil {
		u.device.DestroyCommandPool(u.pool)
		u.pool = nil
	}
}

// Run records commands into a one-shot buffer and blocks until the graphics
// queue has executed them.
func (u *Uploader) Run(record func(cmd gpu.CommandBuffer) error) error {
	buffers, err := u.device.AllocateCommandBuffers(u.pool, 1)
	if err != nil {
		return errors.Wrap(err, "allocate transfer command buffer")
	}
	pending := false
	defer func() {
		// A buffer that may still execute goes with the pool instead.
		if !pending {
			u.device.FreeCommandBuffers(buffers)
		}
	}()

	cmd := buffers[0]
	if err := cmd.Begin(core1_0.CommandBufferUsageOneTimeSubmit); err != nil {
		return errors.Wrap(err, "begin transfer commands")
	}

	if err := record(cmd); err != nil {
		return err
	}

	if err := cmd.End(); err != nil {
		return errors.Wrap(err, "end transfer commands")
	}

	if err := u.queue.Submit(gpu.Submission{Commands: cmd}); err != nil {
		return errors.Wrap(err, "submit transfer commands")
	}

	if err := u.queue.WaitIdle(); err != nil {
		if devErr := u.device.WaitIdle(); devErr != nil {
			pending = true
			u.logger.Error("transfer commands left pending", "error", devErr)
		}
		return errors.Wrap(err, "wait for transfer")
	}
	return nil
}

// recordTransition records the barrier for a supported layout pair. Nothing
// is recorded for unsupported pairs.
func recordTransition(cmd gpu.CommandBuffer, image core1_0.Image, format core1_0.Format, oldLayout, newLayout core1_0.ImageLayout) error {
	transition, err := TransitionFor(image, format, oldLayout, newLayout)
	if err != nil {
		return err
	}
	return cmd.PipelineBarrier(transition.SrcStage, transition.DstStage, transition.Barrier)
}

// TransitionImageLayout moves image between layouts on its own submission.
func (u *Uploader) TransitionImageLayout(image core1_0.Image, format core1_0.Format, oldLayout, newLayout core1_0.ImageLayout) error {
	// Validate before allocating a command buffer for nothing.
	if _, err := TransitionFor(image, format, oldLayout, newLayout); err != nil {
		return err
	}

	return u.Run(func(cmd gpu.CommandBuffer) error {
		return recordTransition(cmd, image, format, oldLayout, newLayout)
	})
}

// CopyBuffer copies size bytes from the start of src to the start of dst.
func (u *Uploader) CopyBuffer(src, dst core1_0.Buffer, size int) error {
	return u.Run(func(cmd gpu.CommandBuffer) error {
		return cmd.CopyBuffer(src, dst, size)
	})
}

// UploadBuffer creates a device-local buffer with usage holding data.
func (u *Uploader) UploadBuffer(data []byte, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	staging, err := u.alloc.Buffer(len(data), core1_0.BufferUsageTransferSrc, hostCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	defer staging.Release(u.device)

	if err := u.alloc.Write(staging.Memory, data); err != nil {
		return nil, err
	}

	buffer, err := u.alloc.Buffer(len(data), usage|core1_0.BufferUsageTransferDst, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, errors.Wrap(err, "device buffer")
	}

	if err := u.CopyBuffer(staging.Buffer, buffer.Buffer, len(data)); err != nil {
		buffer.Release(u.device)
		return nil, err
	}

	return buffer, nil
}

// UploadTexture stages tightly packed RGBA8 pixels in a linear image and
// copies them into an optimally tiled, shader-readable texture with a view.
func (u *Uploader) UploadTexture(pixels []byte, width, height int) (*Image, error) {
	if len(pixels) != width*height*4 {
		return nil, errors.Newf("texture data is %d bytes, want %d for %dx%d", len(pixels), width*height*4, width, height)
	}

	staging, err := u.alloc.Image(ImageSpec{
		Width:         width,
		Height:        height,
		Format:        TextureFormat,
		Tiling:        core1_0.ImageTilingLinear,
		Usage:         core1_0.ImageUsageTransferSrc,
		InitialLayout: core1_0.ImageLayoutPreInitialized,
		Properties:    hostCoherent,
	})
	if err != nil {
		return nil, errors.Wrap(err, "staging image")
	}
	defer staging.Release(u.device)

	if err := u.writeImage(staging, pixels); err != nil {
		return nil, err
	}

	texture, err := u.alloc.Image(ImageSpec{
		Width:         width,
		Height:        height,
		Format:        TextureFormat,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		InitialLayout: core1_0.ImageLayoutPreInitialized,
		Properties:    core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return nil, errors.Wrap(err, "texture image")
	}

	err = u.Run(func(cmd gpu.CommandBuffer) error {
		if err := recordTransition(cmd, staging.Image, TextureFormat, core1_0.ImageLayoutPreInitialized, core1_0.ImageLayoutTransferSrcOptimal); err != nil {
			return err
		}
		if err := recordTransition(cmd, texture.Image, TextureFormat, core1_0.ImageLayoutPreInitialized, core1_0.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		if err := cmd.CopyImage(staging.Image, texture.Image, width, height); err != nil {
			return errors.Wrap(err, "copy texture")
		}
		return recordTransition(cmd, texture.Image, TextureFormat, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		texture.Release(u.device)
		return nil, err
	}

	if err := u.alloc.CreateView(texture, core1_0.ImageAspectColor); err != nil {
		texture.Release(u.device)
		return nil, err
	}

	return texture, nil
}

// writeImage copies tightly packed pixels into a mapped linear image,
// honouring the row pitch the device reports.
func (u *Uploader) writeImage(img *Image, pixels []byte) error {
	layout := u.device.ImageSubresourceLayout(img.Image, core1_0.ImageSubresource{
		AspectMask: core1_0.ImageAspectColor,
		MipLevel:   0,
		ArrayLayer: 0,
	})

	mapped, err := u.device.MapMemory(img.Memory, layout.Offset, layout.Size)
	if err != nil {
		return errors.Wrap(err, "map staging image")
	}
	defer u.device.UnmapMemory(img.Memory)

	rowSize := img.Width * 4
	if layout.RowPitch == rowSize {
		copy(mapped, pixels)
		return nil
	}

	for y := 0; y < img.Height; y++ {
		copy(mapped[y*layout.RowPitch:y*layout.RowPitch+rowSize], pixels[y*rowSize:(y+1)*rowSize])
	}
	return nil
}

// UniformBuffer is a device-local uniform buffer refreshed through a
// persistent staging twin.
type UniformBuffer struct {
	Staging *Buffer
	Device  *Buffer
}

func (u *Uploader) NewUniformBuffer(size int) (*UniformBuffer, error) {
	staging, err := u.alloc.Buffer(size, core1_0.BufferUsageTransferSrc, hostCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "uniform staging buffer")
	}

	device, err := u.alloc.Buffer(size, core1_0.BufferUsageTransferDst|core1_0.BufferUsageUniformBuffer, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		staging.Release(u.device)
		return nil, errors.Wrap(err, "uniform buffer")
	}

	return &UniformBuffer{Staging: staging, Device: device}, nil
}

// Update writes data to the staging twin and copies it to the device buffer.
func (u *Uploader) Update(ub *UniformBuffer, data []byte) error {
	if err := u.alloc.Write(ub.Staging.Memory, data); err != nil {
		return err
	}
	return u.CopyBuffer(ub.Staging.Buffer, ub.Device.Buffer, len(data))
}

func (ub *UniformBuffer) Release(device gpu.Device) {
	if ub == nil {
		return
	}
	ub.Device.Release(device)
	ub.Staging.Release(device)
}

// Benchmark uploads the vertex and index data rounds times, releasing each
// copy, and returns the total time taken.
func (u *Uploader) Benchmark(vertexData, indexData []byte, rounds int) (time.Duration, error) {
	start := hrtime.Now()

	for round := 0; round < rounds; round++ {
		vertices, err := u.UploadBuffer(vertexData, core1_0.BufferUsageVertexBuffer)
		if err != nil {
			return 0, errors.Wrapf(err, "round %d vertices", round)
		}
		indices, err := u.UploadBuffer(indexData, core1_0.BufferUsageIndexBuffer)
		if err != nil {
			vertices.Release(u.device)
			return 0, errors.Wrapf(err, "round %d indices", round)
		}
		indices.Release(u.device)
		vertices.Release(u.device)
	}

	elapsed := hrtime.Since(start)
	u.logger.Info("multi copy finished", "rounds", rounds, "elapsed", elapsed)
	return elapsed, nil
}
