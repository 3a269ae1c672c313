package vulkan

import (
	"unsafe"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

type logicalDevice struct {
	device             core1_0.Device
	swapchainExtension khr_swapchain.Extension
	surface            khr_surface.Surface

	queues map[int]*queue
}

var _ gpu.Device = (*logicalDevice)(nil)

func (d *logicalDevice) Queue(family int) gpu.Queue {
	q, ok := d.queues[family]
	if !ok {
		q = &queue{
			queue:              d.device.GetQueue(family, 0),
			swapchainExtension: d.swapchainExtension,
		}
		d.queues[family] = q
	}
	return q
}

func (d *logicalDevice) WaitIdle() error {
	_, err := d.device.WaitIdle()
	return err
}

func (d *logicalDevice) Destroy() {
	d.device.Destroy(nil)
}

func (d *logicalDevice) CreateSwapchain(req gpu.SwapchainRequest) (gpu.Swapchain, error) {
	var old khr_swapchain.Swapchain
	if req.Old != nil {
		old = req.Old.(*swapchain).swapchain
	}

	created, _, err := d.swapchainExtension.CreateSwapchain(d.device, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: d.surface,

		MinImageCount:    req.MinImageCount,
		ImageFormat:      req.Format,
		ImageColorSpace:  req.ColorSpace,
		ImageExtent:      req.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   req.SharingMode,
		QueueFamilyIndices: req.QueueFamilyIndices,

		PreTransform:   req.PreTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    req.PresentMode,
		Clipped:        true,
		OldSwapchain:   old,
	})
	if err != nil {
		return nil, err
	}

	return &swapchain{swapchain: created}, nil
}

func (d *logicalDevice) DestroySwapchain(s gpu.Swapchain) {
	s.(*swapchain).swapchain.Destroy(nil)
}

func (d *logicalDevice) CreateBuffer(info core1_0.BufferCreateInfo) (core1_0.Buffer, error) {
	buffer, _, err := d.device.CreateBuffer(nil, info)
	return buffer, err
}

func (d *logicalDevice) BufferMemoryRequirements(buffer core1_0.Buffer) core1_0.MemoryRequirements {
	return *buffer.MemoryRequirements()
}

func (d *logicalDevice) BindBufferMemory(buffer core1_0.Buffer, memory core1_0.DeviceMemory) error {
	_, err := buffer.BindBufferMemory(memory, 0)
	return err
}

func (d *logicalDevice) DestroyBuffer(buffer core1_0.Buffer) {
	buffer.Destroy(nil)
}

func (d *logicalDevice) CreateImage(info core1_0.ImageCreateInfo) (core1_0.Image, error) {
	image, _, err := d.device.CreateImage(nil, info)
	return image, err
}

func (d *logicalDevice) ImageMemoryRequirements(image core1_0.Image) core1_0.MemoryRequirements {
	return *image.MemoryRequirements()
}

func (d *logicalDevice) ImageSubresourceLayout(image core1_0.Image, subresource core1_0.ImageSubresource) core1_0.SubresourceLayout {
	return *image.SubresourceLayout(&subresource)
}

func (d *logicalDevice) BindImageMemory(image core1_0.Image, memory core1_0.DeviceMemory) error {
	_, err := image.BindImageMemory(memory, 0)
	return err
}

func (d *logicalDevice) DestroyImage(image core1_0.Image) {
	image.Destroy(nil)
}

func (d *logicalDevice) AllocateMemory(info core1_0.MemoryAllocateInfo) (core1_0.DeviceMemory, error) {
	memory, _, err := d.device.AllocateMemory(nil, info)
	return memory, err
}

func (d *logicalDevice) MapMemory(memory core1_0.DeviceMemory, offset, size int) ([]byte, error) {
	memoryPtr, _, err := memory.Map(offset, size, 0)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(memoryPtr), size), nil
}

func (d *logicalDevice) UnmapMemory(memory core1_0.DeviceMemory) {
	memory.Unmap()
}

func (d *logicalDevice) FreeMemory(memory core1_0.DeviceMemory) {
	memory.Free(nil)
}

func (d *logicalDevice) CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	view, _, err := d.device.CreateImageView(nil, info)
	return view, err
}

func (d *logicalDevice) DestroyImageView(view core1_0.ImageView) {
	view.Destroy(nil)
}

func (d *logicalDevice) CreateSampler(info core1_0.SamplerCreateInfo) (core1_0.Sampler, error) {
	sampler, _, err := d.device.CreateSampler(nil, info)
	return sampler, err
}

func (d *logicalDevice) DestroySampler(sampler core1_0.Sampler) {
	sampler.Destroy(nil)
}

func (d *logicalDevice) CreateRenderPass(info core1_0.RenderPassCreateInfo) (core1_0.RenderPass, error) {
	renderPass, _, err := d.device.CreateRenderPass(nil, info)
	return renderPass, err
}

func (d *logicalDevice) DestroyRenderPass(renderPass core1_0.RenderPass) {
	renderPass.Destroy(nil)
}

func (d *logicalDevice) CreateFramebuffer(info core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, error) {
	framebuffer, _, err := d.device.CreateFramebuffer(nil, info)
	return framebuffer, err
}

func (d *logicalDevice) DestroyFramebuffer(framebuffer core1_0.Framebuffer) {
	framebuffer.Destroy(nil)
}

func (d *logicalDevice) CreateShaderModule(code []uint32) (core1_0.ShaderModule, error) {
	module, _, err := d.device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	return module, err
}

func (d *logicalDevice) DestroyShaderModule(module core1_0.ShaderModule) {
	module.Destroy(nil)
}

func (d *logicalDevice) CreateDescriptorSetLayout(info core1_0.DescriptorSetLayoutCreateInfo) (core1_0.DescriptorSetLayout, error) {
	layout, _, err := d.device.CreateDescriptorSetLayout(nil, info)
	return layout, err
}

func (d *logicalDevice) DestroyDescriptorSetLayout(layout core1_0.DescriptorSetLayout) {
	layout.Destroy(nil)
}

func (d *logicalDevice) CreatePipelineLayout(info core1_0.PipelineLayoutCreateInfo) (core1_0.PipelineLayout, error) {
	layout, _, err := d.device.CreatePipelineLayout(nil, info)
	return layout, err
}

func (d *logicalDevice) DestroyPipelineLayout(layout core1_0.PipelineLayout) {
	layout.Destroy(nil)
}

func (d *logicalDevice) CreateGraphicsPipeline(info core1_0.GraphicsPipelineCreateInfo) (core1_0.Pipeline, error) {
	pipelines, _, err := d.device.CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{info})
	if err != nil {
		return nil, err
	}
	return pipelines[0], nil
}

func (d *logicalDevice) DestroyPipeline(pipeline core1_0.Pipeline) {
	pipeline.Destroy(nil)
}

func (d *logicalDevice) CreateDescriptorPool(info core1_0.DescriptorPoolCreateInfo) (core1_0.DescriptorPool, error) {
	pool, _, err := d.device.CreateDescriptorPool(nil, info)
	return pool, err
}

func (d *logicalDevice) AllocateDescriptorSet(pool core1_0.DescriptorPool, layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, error) {
	sets, _, err := d.device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: pool,
		SetLayouts:     []core1_0.DescriptorSetLayout{layout},
	})
	if err != nil {
		return nil, err
	}
	return sets[0], nil
}

func (d *logicalDevice) UpdateDescriptorSets(writes []core1_0.WriteDescriptorSet) error {
	return d.device.UpdateDescriptorSets(writes, nil)
}

func (d *logicalDevice) DestroyDescriptorPool(pool core1_0.DescriptorPool) {
	pool.Destroy(nil)
}

func (d *logicalDevice) CreateCommandPool(info core1_0.CommandPoolCreateInfo) (core1_0.CommandPool, error) {
	pool, _, err := d.device.CreateCommandPool(nil, info)
	return pool, err
}

func (d *logicalDevice) AllocateCommandBuffers(pool core1_0.CommandPool, count int) ([]gpu.CommandBuffer, error) {
	buffers, _, err := d.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, err
	}

	wrapped := make([]gpu.CommandBuffer, 0, len(buffers))
	for _, buffer := range buffers {
		wrapped = append(wrapped, &commandBuffer{buffer: buffer})
	}
	return wrapped, nil
}

func (d *logicalDevice) FreeCommandBuffers(buffers []gpu.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	d.device.FreeCommandBuffers(unwrapCommandBuffers(buffers))
}

func (d *logicalDevice) DestroyCommandPool(pool core1_0.CommandPool) {
	pool.Destroy(nil)
}

func (d *logicalDevice) CreateSemaphore() (core1_0.Semaphore, error) {
	semaphore, _, err := d.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return semaphore, err
}

func (d *logicalDevice) DestroySemaphore(semaphore core1_0.Semaphore) {
	semaphore.Destroy(nil)
}

func unwrapCommandBuffers(buffers []gpu.CommandBuffer) []core1_0.CommandBuffer {
	unwrapped := make([]core1_0.CommandBuffer, 0, len(buffers))
	for _, buffer := range buffers {
		unwrapped = append(unwrapped, buffer.(*commandBuffer).buffer)
	}
	return unwrapped
}
