package gputest

import (
	"fmt"

	"github.com/vkngwrapper/core/core1_0"
)

// Kind names a class of device object.
type Kind string

const (
	KindBuffer              Kind = "buffer"
	KindImage               Kind = "image"
	KindMemory              Kind = "memory"
	KindImageView           Kind = "image view"
	KindSampler             Kind = "sampler"
	KindRenderPass          Kind = "render pass"
	KindFramebuffer         Kind = "framebuffer"
	KindShaderModule        Kind = "shader module"
	KindDescriptorSetLayout Kind = "descriptor set layout"
	KindPipelineLayout      Kind = "pipeline layout"
	KindPipeline            Kind = "pipeline"
	KindDescriptorPool      Kind = "descriptor pool"
	KindDescriptorSet       Kind = "descriptor set"
	KindCommandPool         Kind = "command pool"
	KindCommandBuffer       Kind = "command buffer"
	KindSemaphore           Kind = "semaphore"
	KindSwapchain           Kind = "swapchain"
	KindSwapchainImage      Kind = "swapchain image"
)

type ref struct {
	kind Kind
	id   int
}

func (r ref) String() string {
	return fmt.Sprintf("%s#%d", r.kind, r.id)
}

func (r ref) handleRef() ref { return r }

type referenced interface {
	handleRef() ref
}

// Each fake embeds the vkngwrapper interface it stands in for so that it can
// travel through the gpu boundary. The embedded interface is nil; calling its
// methods panics.

type fakeBuffer struct {
	core1_0.Buffer
	ref
}

type fakeImage struct {
	core1_0.Image
	ref
}

type fakeMemory struct {
	core1_0.DeviceMemory
	ref
}

type fakeImageView struct {
	core1_0.ImageView
	ref
}

type fakeSampler struct {
	core1_0.Sampler
	ref
}

type fakeRenderPass struct {
	core1_0.RenderPass
	ref
}

type fakeFramebuffer struct {
	core1_0.Framebuffer
	ref
}

type fakeShaderModule struct {
	core1_0.ShaderModule
	ref
}

type fakeDescriptorSetLayout struct {
	core1_0.DescriptorSetLayout
	ref
}

type fakePipelineLayout struct {
	core1_0.PipelineLayout
	ref
}

type fakePipeline struct {
	core1_0.Pipeline
	ref
}

type fakeDescriptorPool struct {
	core1_0.DescriptorPool
	ref
}

type fakeDescriptorSet struct {
	core1_0.DescriptorSet
	ref
}

type fakeCommandPool struct {
	core1_0.CommandPool
	ref
}

type fakeSemaphore struct {
	core1_0.Semaphore
	ref
}

// refOf returns the identity of a handle produced by this package. Nil and
// foreign handles yield the zero ref.
func refOf(handle any) ref {
	if r, ok := handle.(referenced); ok {
		return r.handleRef()
	}
	return ref{}
}
