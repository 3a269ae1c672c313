package render

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
	"github.com/vkngwrapper/vulkan-comparison/internal/mesh"
)

// ShaderEntryPoint is the entry point of both shader stages.
const ShaderEntryPoint = "main"

// Descriptor binding slots.
const (
	BindingUniform = iota
	BindingSampler

	bindingCount
)

func vertexBindingDescriptions() []core1_0.VertexInputBindingDescription {
	v := mesh.Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func vertexAttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := mesh.Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.TexCoord)),
		},
	}
}

// DescriptorBindings is the uniform buffer for the vertex stage and the
// combined image sampler for the fragment stage.
func DescriptorBindings() [bindingCount]core1_0.DescriptorSetLayoutBinding {
	return [bindingCount]core1_0.DescriptorSetLayoutBinding{
		BindingUniform: {
			Binding:         BindingUniform,
			DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,

			StageFlags: core1_0.StageVertex,
		},
		BindingSampler: {
			Binding:         BindingSampler,
			DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,

			StageFlags: core1_0.StageFragment,
		},
	}
}

// Shaders holds the two shader modules. They outlive every pipeline rebuild.
type Shaders struct {
	Vertex   core1_0.ShaderModule
	Fragment core1_0.ShaderModule
}

func NewShaders(device gpu.Device, vertexCode, fragmentCode []uint32) (*Shaders, error) {
	vert, err := device.CreateShaderModule(vertexCode)
	if err != nil {
		return nil, errors.Wrap(err, "vertex shader module")
	}

	frag, err := device.CreateShaderModule(fragmentCode)
	if err != nil {
		device.DestroyShaderModule(vert)
		return nil, errors.Wrap(err, "fragment shader module")
	}

	return &Shaders{Vertex: vert, Fragment: frag}, nil
}

func (s *Shaders) Destroy(device gpu.Device) {
	if s == nil {
		return
	}
	device.DestroyShaderModule(s.Vertex)
	device.DestroyShaderModule(s.Fragment)
}

// PipelineInfo is the fixed-function state for one extent. Viewport and
// scissor are baked in, so a new extent needs a new pipeline.
func PipelineInfo(shaders *Shaders, layout core1_0.PipelineLayout, renderPass core1_0.RenderPass, extent core1_0.Extent2D, samples core1_0.SampleCountFlags) core1_0.GraphicsPipelineCreateInfo {
	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   vertexBindingDescriptions(),
		VertexAttributeDescriptions: vertexAttributeDescriptions(),
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: shaders.Vertex,
		Name:   ShaderEntryPoint,
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: shaders.Fragment,
		Name:   ShaderEntryPoint,
	}

	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        0,
				Width:    float32(extent.Width),
				Height:   float32(extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: extent,
			},
		},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceCounterClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: samples,
		MinSampleShading:     1.0,
	}

	depthStencil := &core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   core1_0.CompareOpLess,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	return core1_0.GraphicsPipelineCreateInfo{
		Stages: []core1_0.PipelineShaderStageCreateInfo{
			vertStage,
			fragStage,
		},
		VertexInputState:   vertexInput,
		InputAssemblyState: inputAssembly,
		ViewportState:      viewport,
		RasterizationState: rasterization,
		MultisampleState:   multisample,
		DepthStencilState:  depthStencil,
		ColorBlendState:    colorBlend,
		Layout:             layout,
		RenderPass:         renderPass,
		Subpass:            0,
		BasePipelineIndex:  -1,
	}
}

// Pipeline is a graphics pipeline with its layout.
type Pipeline struct {
	Layout   core1_0.PipelineLayout
	Pipeline core1_0.Pipeline
}

func NewPipeline(device gpu.Device, shaders *Shaders, setLayout core1_0.DescriptorSetLayout, renderPass core1_0.RenderPass, extent core1_0.Extent2D, samples core1_0.SampleCountFlags) (*Pipeline, error) {
	layout, err := device.CreatePipelineLayout(core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{
			setLayout,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}

	pipeline, err := device.CreateGraphicsPipeline(PipelineInfo(shaders, layout, renderPass, extent, samples))
	if err != nil {
		device.DestroyPipelineLayout(layout)
		return nil, errors.Wrap(err, "create graphics pipeline")
	}

	return &Pipeline{Layout: layout, Pipeline: pipeline}, nil
}

// Destroy destroys the pipeline, then its layout.
func (p *Pipeline) Destroy(device gpu.Device) {
	if p == nil {
		return
	}
	if p.Pipeline != nil {
		device.DestroyPipeline(p.Pipeline)
		p.Pipeline = nil
	}
	if p.Layout != nil {
		device.DestroyPipelineLayout(p.Layout)
		p.Layout = nil
	}
}
