package render

import (
	"image"
	"log/slog"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
	"github.com/vkngwrapper/vulkan-comparison/internal/mesh"
	"github.com/vkngwrapper/vulkan-comparison/internal/stats"
)

// Surface reports the drawable size of the window being presented to.
type Surface interface {
	DrawableSize() (width, height int)
}

// UniformBufferObject is the per-frame uniform block.
type UniformBufferObject struct {
	MVP mgl32.Mat4
}

// Options configures a Renderer.
type Options struct {
	Samples core1_0.SampleCountFlags

	VertexShader   []uint32
	FragmentShader []uint32

	Mesh    *mesh.Mesh
	Texture *image.RGBA

	// MultiCopyRounds repeats the vertex and index upload that many times at
	// startup and logs the time taken. Zero disables it.
	MultiCopyRounds int

	Logger *slog.Logger
}

// Renderer owns every GPU object below the device context. It is built once
// and drives the frame loop until Destroy.
type Renderer struct {
	logger  *slog.Logger
	ctx     *Context
	device  gpu.Device
	surface Surface
	samples core1_0.SampleCountFlags

	alloc    *Allocator
	uploader *Uploader

	swapchain   *Swapchain
	depthFormat core1_0.Format
	renderPass  core1_0.RenderPass
	setLayout   core1_0.DescriptorSetLayout
	shaders     *Shaders
	pipeline    *Pipeline
	targets     *Targets

	commandPool    core1_0.CommandPool
	commandBuffers []gpu.CommandBuffer

	texture    *Image
	sampler    core1_0.Sampler
	vertices   *Buffer
	indices    *Buffer
	indexCount int
	uniform    *UniformBuffer

	descriptorPool core1_0.DescriptorPool
	descriptorSet  core1_0.DescriptorSet

	imageAvailable core1_0.Semaphore
	renderFinished core1_0.Semaphore

	state       State
	invalidated bool
	recreations int
	timing      stats.Timing
	multiCopy   time.Duration
}

// New builds the renderer on ctx. On failure everything created so far is
// released; ctx stays with the caller.
func New(ctx *Context, surface Surface, opts Options) (*Renderer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	samples := opts.Samples
	if samples == 0 {
		samples = core1_0.Samples4
	}
	if samples&ctx.Info.SampleCounts == 0 {
		return nil, errors.Mark(
			errors.Newf("%d samples not supported by %s (supported mask %#x)", uint32(samples), ctx.Info.Name, uint32(ctx.Info.SampleCounts)),
			ErrFatal)
	}
	if opts.Mesh == nil || len(opts.Mesh.Indices) == 0 {
		return nil, errors.New("renderer needs a mesh with at least one index")
	}
	if opts.Texture == nil {
		return nil, errors.New("renderer needs a texture")
	}

	r := &Renderer{
		logger:  logger,
		ctx:     ctx,
		device:  ctx.Device,
		surface: surface,
		samples: samples,
	}

	if err := r.init(opts); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init(opts Options) error {
	var err error

	r.alloc = NewAllocator(r.ctx)
	r.uploader, err = NewUploader(r.ctx, r.alloc, r.logger)
	if err != nil {
		return err
	}

	width, height := r.surface.DrawableSize()
	r.swapchain, err = NewSwapchain(r.ctx, width, height, nil, r.logger)
	if err != nil {
		return err
	}

	r.depthFormat, err = FindDepthFormat(r.ctx.Adapter)
	if err != nil {
		return err
	}

	if err := r.createRenderPass(); err != nil {
		return err
	}

	bindings := DescriptorBindings()
	r.setLayout, err = r.device.CreateDescriptorSetLayout(core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: bindings[:],
	})
	if err != nil {
		return errors.Wrap(err, "create descriptor set layout")
	}

	r.shaders, err = NewShaders(r.device, opts.VertexShader, opts.FragmentShader)
	if err != nil {
		return err
	}

	r.pipeline, err = NewPipeline(r.device, r.shaders, r.setLayout, r.renderPass, r.swapchain.Extent, r.samples)
	if err != nil {
		return err
	}

	r.commandPool, err = r.device.CreateCommandPool(core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: r.ctx.Families.Graphics,
	})
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}

	r.targets, err = NewTargets(r.alloc, r.uploader, r.swapchain, r.renderPass, r.depthFormat, r.samples)
	if err != nil {
		return err
	}

	bounds := opts.Texture.Bounds()
	r.texture, err = r.uploader.UploadTexture(opts.Texture.Pix, bounds.Dx(), bounds.Dy())
	if err != nil {
		return errors.Wrap(err, "upload texture")
	}

	if err := r.createSampler(); err != nil {
		return err
	}

	vertexData, err := Encode(opts.Mesh.Vertices)
	if err != nil {
		return errors.Wrap(err, "vertex data")
	}
	indexData, err := Encode(opts.Mesh.Indices)
	if err != nil {
		return errors.Wrap(err, "index data")
	}

	r.vertices, err = r.uploader.UploadBuffer(vertexData, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return errors.Wrap(err, "upload vertices")
	}
	r.indices, err = r.uploader.UploadBuffer(indexData, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		return errors.Wrap(err, "upload indices")
	}
	r.indexCount = len(opts.Mesh.Indices)

	if opts.MultiCopyRounds > 0 {
		r.multiCopy, err = r.uploader.Benchmark(vertexData, indexData, opts.MultiCopyRounds)
		if err != nil {
			return errors.Wrap(err, "multi copy")
		}
	}

	r.uniform, err = r.uploader.NewUniformBuffer(int(unsafe.Sizeof(UniformBufferObject{})))
	if err != nil {
		return err
	}

	if err := r.createDescriptorSet(); err != nil {
		return err
	}

	if err := r.createCommandBuffers(); err != nil {
		return err
	}

	r.imageAvailable, err = r.device.CreateSemaphore()
	if err != nil {
		return errors.Wrap(err, "create image available semaphore")
	}
	r.renderFinished, err = r.device.CreateSemaphore()
	if err != nil {
		return errors.Wrap(err, "create render finished semaphore")
	}

	return r.UpdateUniform()
}

func (r *Renderer) createRenderPass() error {
	renderPass, err := r.device.CreateRenderPass(RenderPassInfo(r.swapchain.Format, r.depthFormat, r.samples))
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}
	r.renderPass = renderPass
	return nil
}

func (r *Renderer) createSampler() error {
	var err error
	r.sampler, err = r.device.CreateSampler(core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: r.ctx.Info.SamplerAnisotropy,
		MaxAnisotropy:    r.ctx.Info.MaxSamplerAnisotropy,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
	})
	return errors.Wrap(err, "create sampler")
}

func (r *Renderer) createDescriptorSet() error {
	var err error
	r.descriptorPool, err = r.device.CreateDescriptorPool(core1_0.DescriptorPoolCreateInfo{
		MaxSets: 1,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}

	r.descriptorSet, err = r.device.AllocateDescriptorSet(r.descriptorPool, r.setLayout)
	if err != nil {
		return errors.Wrap(err, "allocate descriptor set")
	}

	err = r.device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:          r.descriptorSet,
			DstBinding:      BindingUniform,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeUniformBuffer,

			BufferInfo: []core1_0.DescriptorBufferInfo{
				{
					Buffer: r.uniform.Device.Buffer,
					Offset: 0,
					Range:  r.uniform.Device.Size,
				},
			},
		},
		{
			DstSet:          r.descriptorSet,
			DstBinding:      BindingSampler,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					ImageView:   r.texture.View,
					Sampler:     r.sampler,
					ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
				},
			},
		},
	})
	return errors.Wrap(err, "update descriptor sets")
}

func (r *Renderer) createCommandBuffers() error {
	buffers, err := r.device.AllocateCommandBuffers(r.commandPool, len(r.targets.Framebuffers))
	if err != nil {
		return errors.Wrap(err, "allocate command buffers")
	}
	r.commandBuffers = buffers

	for idx := range buffers {
		if err := r.record(idx); err != nil {
			return errors.Wrapf(err, "record command buffer %d", idx)
		}
	}
	return nil
}

func (r *Renderer) freeCommandBuffers() {
	if len(r.commandBuffers) > 0 {
		r.device.FreeCommandBuffers(r.commandBuffers)
	}
	r.commandBuffers = nil
}

// record draws the mesh into the framebuffer of swapchain image idx.
func (r *Renderer) record(idx int) error {
	buffer := r.commandBuffers[idx]

	if err := buffer.Begin(core1_0.CommandBufferUsageSimultaneousUse); err != nil {
		return err
	}

	err := buffer.BeginRenderPass(core1_0.RenderPassBeginInfo{
		RenderPass:  r.renderPass,
		Framebuffer: r.targets.Framebuffers[idx],
		RenderArea: core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: r.swapchain.Extent,
		},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat{0.2, 0.2, 0.2, 0.2},
			core1_0.ClearValueFloat{0.2, 0.2, 0.2, 0.2},
			core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
		},
	})
	if err != nil {
		return err
	}

	buffer.BindPipeline(r.pipeline.Pipeline)
	buffer.BindVertexBuffer(r.vertices.Buffer)
	buffer.BindIndexBuffer(r.indices.Buffer, core1_0.IndexTypeUInt32)
	buffer.BindDescriptorSet(r.pipeline.Layout, r.descriptorSet)
	buffer.DrawIndexed(r.indexCount)
	buffer.EndRenderPass()

	return buffer.End()
}

// ModelViewProjection is the transform for a swapchain of the given extent.
func ModelViewProjection(extent core1_0.Extent2D) mgl32.Mat4 {
	model := mgl32.Scale3D(0.05, 0.05, 0.05).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(105))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(10))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(120))).
		Mul4(mgl32.Translate3D(-15, 5, 0))

	view := mgl32.LookAtV(mgl32.Vec3{2, 2, 2}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1})

	aspectRatio := float32(extent.Width) / float32(extent.Height)
	proj := mgl32.Perspective(mgl32.DegToRad(65), aspectRatio, 0.1, 10)
	// Vulkan clip space has Y pointing down.
	proj.Set(1, 1, -proj.At(1, 1))

	return proj.Mul4(view).Mul4(model)
}

// UpdateUniform refreshes the uniform buffer for the current extent.
func (r *Renderer) UpdateUniform() error {
	data, err := Encode(&UniformBufferObject{MVP: ModelViewProjection(r.swapchain.Extent)})
	if err != nil {
		return err
	}
	return errors.Wrap(r.uploader.Update(r.uniform, data), "update uniform buffer")
}

// Destroy waits for the device to go idle and releases everything in
// reverse creation order. The context is left to the caller.
func (r *Renderer) Destroy() {
	if err := r.device.WaitIdle(); err != nil {
		r.logger.Error("device wait idle", "error", err)
	}

	r.releaseSwapchainResources()
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}

	if r.imageAvailable != nil {
		r.device.DestroySemaphore(r.imageAvailable)
		r.imageAvailable = nil
	}
	if r.renderFinished != nil {
		r.device.DestroySemaphore(r.renderFinished)
		r.renderFinished = nil
	}
	if r.descriptorPool != nil {
		r.device.DestroyDescriptorPool(r.descriptorPool)
		r.descriptorPool, r.descriptorSet = nil, nil
	}
	r.uniform.Release(r.device)
	r.uniform = nil
	r.indices.Release(r.device)
	r.indices = nil
	r.vertices.Release(r.device)
	r.vertices = nil
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	r.texture.Release(r.device)
	r.texture = nil
	if r.commandPool != nil {
		r.device.DestroyCommandPool(r.commandPool)
		r.commandPool = nil
	}
	r.shaders.Destroy(r.device)
	r.shaders = nil
	if r.setLayout != nil {
		r.device.DestroyDescriptorSetLayout(r.setLayout)
		r.setLayout = nil
	}
	if r.uploader != nil {
		r.uploader.Destroy()
		r.uploader = nil
	}
}

// Timing returns the accumulated acquire, submit and present durations.
func (r *Renderer) Timing() stats.Timing {
	return r.timing
}

// MultiCopyDuration is the time the startup upload benchmark took.
func (r *Renderer) MultiCopyDuration() time.Duration {
	return r.multiCopy
}

// Extent is the current swapchain extent.
func (r *Renderer) Extent() core1_0.Extent2D {
	return r.swapchain.Extent
}

// Recreations counts completed swapchain recreations.
func (r *Renderer) Recreations() int {
	return r.recreations
}
