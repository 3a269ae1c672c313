package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

// Attachment indices shared by the render pass and every framebuffer.
const (
	AttachmentMultisampleColor = iota
	AttachmentColor
	AttachmentMultisampleDepth
	AttachmentDepth

	attachmentCount
)

var depthFormats = []core1_0.Format{
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

// FindDepthFormat returns the first depth format usable as an optimally tiled
// depth/stencil attachment.
func FindDepthFormat(adapter gpu.Adapter) (core1_0.Format, error) {
	for _, format := range depthFormats {
		features := adapter.FormatFeatures(format, core1_0.ImageTilingOptimal)
		if features&core1_0.FormatFeatureDepthStencilAttachment == core1_0.FormatFeatureDepthStencilAttachment {
			return format, nil
		}
	}

	return 0, errors.WithStack(ErrNoDepthFormat)
}

// RenderPassInfo describes the single subpass pass. The subpass draws into
// the multisampled colour attachment, resolves into the presentable image and
// tests against the multisampled depth attachment. The single-sample depth
// attachment is stored for later use.
func RenderPassInfo(colorFormat, depthFormat core1_0.Format, samples core1_0.SampleCountFlags) core1_0.RenderPassCreateInfo {
	attachments := [attachmentCount]core1_0.AttachmentDescription{
		AttachmentMultisampleColor: {
			Format:         colorFormat,
			Samples:        samples,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpDontCare,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
		},
		AttachmentColor: {
			Format:         colorFormat,
			Samples:        core1_0.Samples1,
			LoadOp:         core1_0.AttachmentLoadOpDontCare,
			StoreOp:        core1_0.AttachmentStoreOpStore,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
		},
		AttachmentMultisampleDepth: {
			Format:         depthFormat,
			Samples:        samples,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpDontCare,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		},
		AttachmentDepth: {
			Format:         depthFormat,
			Samples:        core1_0.Samples1,
			LoadOp:         core1_0.AttachmentLoadOpDontCare,
			StoreOp:        core1_0.AttachmentStoreOpStore,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	return core1_0.RenderPassCreateInfo{
		Attachments: attachments[:],
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: AttachmentMultisampleColor,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				ResolveAttachments: []core1_0.AttachmentReference{
					{
						Attachment: AttachmentColor,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: AttachmentMultisampleDepth,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentRead | core1_0.AccessColorAttachmentWrite,
			},
		},
	}
}

// Targets holds the attachments derived from the swapchain extent and one
// framebuffer per swapchain image.
type Targets struct {
	device gpu.Device

	Depth            *Image
	MultisampleColor *Image
	MultisampleDepth *Image
	Framebuffers     []core1_0.Framebuffer
}

// NewTargets allocates the depth and multisample attachments for sc and
// binds them with each swapchain view into a framebuffer for renderPass.
func NewTargets(alloc *Allocator, uploader *Uploader, sc *Swapchain, renderPass core1_0.RenderPass, depthFormat core1_0.Format, samples core1_0.SampleCountFlags) (*Targets, error) {
	t := &Targets{device: alloc.device}

	if err := t.build(alloc, uploader, sc, renderPass, depthFormat, samples); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

func (t *Targets) build(alloc *Allocator, uploader *Uploader, sc *Swapchain, renderPass core1_0.RenderPass, depthFormat core1_0.Format, samples core1_0.SampleCountFlags) error {
	width, height := sc.Extent.Width, sc.Extent.Height
	var err error

	t.Depth, err = alloc.Image(ImageSpec{
		Width:         width,
		Height:        height,
		Format:        depthFormat,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         core1_0.ImageUsageDepthStencilAttachment,
		Samples:       core1_0.Samples1,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Properties:    core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return errors.Wrap(err, "depth image")
	}
	if err := alloc.CreateView(t.Depth, core1_0.ImageAspectDepth); err != nil {
		return errors.Wrap(err, "depth image")
	}

	err = uploader.TransitionImageLayout(t.Depth.Image, depthFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal)
	if err != nil {
		return errors.Wrap(err, "depth image layout")
	}

	t.MultisampleColor, err = alloc.Image(ImageSpec{
		Width:         width,
		Height:        height,
		Format:        sc.Format,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         core1_0.ImageUsageTransientAttachment | core1_0.ImageUsageColorAttachment,
		Samples:       samples,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Properties:    core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return errors.Wrap(err, "multisample colour image")
	}
	if err := alloc.CreateView(t.MultisampleColor, core1_0.ImageAspectColor); err != nil {
		return errors.Wrap(err, "multisample colour image")
	}

	t.MultisampleDepth, err = alloc.Image(ImageSpec{
		Width:         width,
		Height:        height,
		Format:        depthFormat,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         core1_0.ImageUsageTransientAttachment | core1_0.ImageUsageDepthStencilAttachment,
		Samples:       samples,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Properties:    core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return errors.Wrap(err, "multisample depth image")
	}
	if err := alloc.CreateView(t.MultisampleDepth, core1_0.ImageAspectDepth); err != nil {
		return errors.Wrap(err, "multisample depth image")
	}

	for idx, view := range sc.Views {
		attachments := [attachmentCount]core1_0.ImageView{
			AttachmentMultisampleColor: t.MultisampleColor.View,
			AttachmentColor:            view,
			AttachmentMultisampleDepth: t.MultisampleDepth.View,
			AttachmentDepth:            t.Depth.View,
		}

		framebuffer, err := t.device.CreateFramebuffer(core1_0.FramebufferCreateInfo{
			RenderPass:  renderPass,
			Layers:      1,
			Attachments: attachments[:],
			Width:       width,
			Height:      height,
		})
		if err != nil {
			return errors.Wrapf(err, "framebuffer %d", idx)
		}
		t.Framebuffers = append(t.Framebuffers, framebuffer)
	}

	return nil
}

// ReleaseAttachments frees the depth attachment, then the multisample
// attachments, each view before its image and image before memory.
func (t *Targets) ReleaseAttachments() {
	t.Depth.Release(t.device)
	t.MultisampleColor.Release(t.device)
	t.MultisampleDepth.Release(t.device)
	t.Depth, t.MultisampleColor, t.MultisampleDepth = nil, nil, nil
}

// ReleaseFramebuffers destroys the framebuffers.
func (t *Targets) ReleaseFramebuffers() {
	for _, framebuffer := range t.Framebuffers {
		t.device.DestroyFramebuffer(framebuffer)
	}
	t.Framebuffers = nil
}

// Release frees everything the targets own.
func (t *Targets) Release() {
	if t == nil {
		return
	}
	t.ReleaseAttachments()
	t.ReleaseFramebuffers()
}
