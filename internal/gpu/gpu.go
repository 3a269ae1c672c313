// Package gpu is the narrow device boundary the renderer drives. Resources are
// created and destroyed through Create/Destroy pairs on Device so that the
// frame lifecycle can run against Vulkan or against the synthetic device in
// gputest without change.
//
// Handle values are vkngwrapper core1_0 handles. Callers never invoke methods
// on them directly; every operation goes through Device, Queue, Swapchain or
// CommandBuffer.
package gpu

import (
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
)

// Status reports transient presentation state. It is a control-flow signal,
// not a failure.
type Status int

const (
	StatusSuccess Status = iota
	StatusSuboptimal
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	}
	return "unknown"
}

// QueueFamily describes one queue family of an adapter. Present is evaluated
// against the surface the instance was opened with.
type QueueFamily struct {
	Graphics   bool
	Present    bool
	QueueCount int
}

// AdapterInfo is the diagnostic and feature summary of a physical device.
type AdapterInfo struct {
	Name          string
	Type          core1_0.PhysicalDeviceType
	APIVersion    common.APIVersion
	DriverVersion common.Version
	VendorID      uint32
	DeviceID      uint32

	SamplerAnisotropy    bool
	MaxSamplerAnisotropy float32

	// SampleCounts are the sample counts usable for both colour and depth
	// framebuffer attachments.
	SampleCounts core1_0.SampleCountFlags
}

// SurfaceSupport is what the surface reports for a given adapter.
type SurfaceSupport struct {
	Capabilities khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// DeviceRequest selects the queue families and features of a logical device.
type DeviceRequest struct {
	QueueFamilies     []int
	SamplerAnisotropy bool
}

// Instance is an API instance bound to one presentation surface.
type Instance interface {
	Adapters() ([]Adapter, error)
	Destroy()
}

// Adapter is a physical device candidate.
type Adapter interface {
	Info() (AdapterInfo, error)
	QueueFamilies() ([]QueueFamily, error)
	SurfaceSupport() (SurfaceSupport, error)
	// MemoryTypes lists property flags indexed by memory type index.
	MemoryTypes() []core1_0.MemoryPropertyFlags
	FormatFeatures(format core1_0.Format, tiling core1_0.ImageTiling) core1_0.FormatFeatureFlags
	CreateDevice(req DeviceRequest) (Device, error)
}

// SwapchainRequest carries the negotiated swapchain parameters. The surface,
// usage, array layers and composite alpha are filled in by the implementation.
type SwapchainRequest struct {
	MinImageCount      int
	Format             core1_0.Format
	ColorSpace         khr_surface.ColorSpace
	Extent             core1_0.Extent2D
	SharingMode        core1_0.SharingMode
	QueueFamilyIndices []int
	PreTransform       khr_surface.SurfaceTransformFlags
	PresentMode        khr_surface.PresentMode
	Old                Swapchain
}

// Swapchain is a set of presentable images.
type Swapchain interface {
	Images() ([]core1_0.Image, error)
	// AcquireNextImage blocks until an image is available and signals semaphore.
	AcquireNextImage(semaphore core1_0.Semaphore) (int, Status, error)
}

// Submission is one batch for Queue.Submit. Wait and Signal may be nil.
type Submission struct {
	Wait      core1_0.Semaphore
	WaitStage core1_0.PipelineStageFlags
	Commands  CommandBuffer
	Signal    core1_0.Semaphore
}

// Queue is a device queue handle.
type Queue interface {
	Submit(s Submission) error
	Present(swapchain Swapchain, imageIndex int, wait core1_0.Semaphore) (Status, error)
	WaitIdle() error
}

// CommandBuffer records commands. Methods mirror the Vulkan commands the
// renderer uses and nothing more.
type CommandBuffer interface {
	Begin(flags core1_0.CommandBufferUsageFlags) error
	End() error

	BeginRenderPass(info core1_0.RenderPassBeginInfo) error
	EndRenderPass()
	BindPipeline(pipeline core1_0.Pipeline)
	BindVertexBuffer(buffer core1_0.Buffer)
	BindIndexBuffer(buffer core1_0.Buffer, indexType core1_0.IndexType)
	BindDescriptorSet(layout core1_0.PipelineLayout, set core1_0.DescriptorSet)
	DrawIndexed(indexCount int)

	CopyBuffer(src, dst core1_0.Buffer, size int) error
	CopyImage(src, dst core1_0.Image, width, height int) error
	PipelineBarrier(srcStage, dstStage core1_0.PipelineStageFlags, barrier core1_0.ImageMemoryBarrier) error
}

// Device is a logical device.
type Device interface {
	Queue(family int) Queue
	WaitIdle() error
	Destroy()

	CreateSwapchain(req SwapchainRequest) (Swapchain, error)
	DestroySwapchain(swapchain Swapchain)

	CreateBuffer(info core1_0.BufferCreateInfo) (core1_0.Buffer, error)
	BufferMemoryRequirements(buffer core1_0.Buffer) core1_0.MemoryRequirements
	BindBufferMemory(buffer core1_0.Buffer, memory core1_0.DeviceMemory) error
	DestroyBuffer(buffer core1_0.Buffer)

	CreateImage(info core1_0.ImageCreateInfo) (core1_0.Image, error)
	ImageMemoryRequirements(image core1_0.Image) core1_0.MemoryRequirements
	ImageSubresourceLayout(image core1_0.Image, subresource core1_0.ImageSubresource) core1_0.SubresourceLayout
	BindImageMemory(image core1_0.Image, memory core1_0.DeviceMemory) error
	DestroyImage(image core1_0.Image)

	AllocateMemory(info core1_0.MemoryAllocateInfo) (core1_0.DeviceMemory, error)
	// MapMemory returns a host view of size bytes at offset. It stays valid
	// until UnmapMemory.
	MapMemory(memory core1_0.DeviceMemory, offset, size int) ([]byte, error)
	UnmapMemory(memory core1_0.DeviceMemory)
	FreeMemory(memory core1_0.DeviceMemory)

	CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error)
	DestroyImageView(view core1_0.ImageView)

	CreateSampler(info core1_0.SamplerCreateInfo) (core1_0.Sampler, error)
	DestroySampler(sampler core1_0.Sampler)

	CreateRenderPass(info core1_0.RenderPassCreateInfo) (core1_0.RenderPass, error)
	DestroyRenderPass(renderPass core1_0.RenderPass)

	CreateFramebuffer(info core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, error)
	DestroyFramebuffer(framebuffer core1_0.Framebuffer)

	CreateShaderModule(code []uint32) (core1_0.ShaderModule, error)
	DestroyShaderModule(module core1_0.ShaderModule)

	CreateDescriptorSetLayout(info core1_0.DescriptorSetLayoutCreateInfo) (core1_0.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout core1_0.DescriptorSetLayout)

	CreatePipelineLayout(info core1_0.PipelineLayoutCreateInfo) (core1_0.PipelineLayout, error)
	DestroyPipelineLayout(layout core1_0.PipelineLayout)

	CreateGraphicsPipeline(info core1_0.GraphicsPipelineCreateInfo) (core1_0.Pipeline, error)
	DestroyPipeline(pipeline core1_0.Pipeline)

	CreateDescriptorPool(info core1_0.DescriptorPoolCreateInfo) (core1_0.DescriptorPool, error)
	AllocateDescriptorSet(pool core1_0.DescriptorPool, layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, error)
	UpdateDescriptorSets(writes []core1_0.WriteDescriptorSet) error
	DestroyDescriptorPool(pool core1_0.DescriptorPool)

	CreateCommandPool(info core1_0.CommandPoolCreateInfo) (core1_0.CommandPool, error)
	AllocateCommandBuffers(pool core1_0.CommandPool, count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers []CommandBuffer)
	DestroyCommandPool(pool core1_0.CommandPool)

	CreateSemaphore() (core1_0.Semaphore, error)
	DestroySemaphore(semaphore core1_0.Semaphore)
}
