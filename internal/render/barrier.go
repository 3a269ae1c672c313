package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

type layoutTransition struct {
	oldLayout core1_0.ImageLayout
	newLayout core1_0.ImageLayout
}

type transitionMasks struct {
	srcAccess core1_0.AccessFlags
	dstAccess core1_0.AccessFlags
	srcStage  core1_0.PipelineStageFlags
	dstStage  core1_0.PipelineStageFlags
	aspect    core1_0.ImageAspectFlags
}

var layoutTransitions = map[layoutTransition]transitionMasks{
	{core1_0.ImageLayoutPreInitialized, core1_0.ImageLayoutTransferSrcOptimal}: {
		srcAccess: core1_0.AccessHostWrite,
		dstAccess: core1_0.AccessTransferRead,
		srcStage:  core1_0.PipelineStageHost,
		dstStage:  core1_0.PipelineStageTransfer,
		aspect:    core1_0.ImageAspectColor,
	},
	{core1_0.ImageLayoutPreInitialized, core1_0.ImageLayoutTransferDstOptimal}: {
		srcAccess: core1_0.AccessHostWrite,
		dstAccess: core1_0.AccessTransferWrite,
		srcStage:  core1_0.PipelineStageHost,
		dstStage:  core1_0.PipelineStageTransfer,
		aspect:    core1_0.ImageAspectColor,
	},
	{core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: core1_0.AccessTransferWrite,
		dstAccess: core1_0.AccessShaderRead,
		srcStage:  core1_0.PipelineStageTransfer,
		dstStage:  core1_0.PipelineStageFragmentShader,
		aspect:    core1_0.ImageAspectColor,
	},
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal}: {
		srcAccess: 0,
		dstAccess: core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
		srcStage:  core1_0.PipelineStageTopOfPipe,
		dstStage:  core1_0.PipelineStageEarlyFragmentTests,
		aspect:    core1_0.ImageAspectDepth,
	},
}

// HasStencil reports whether a depth format carries a stencil component.
func HasStencil(format core1_0.Format) bool {
	return format == core1_0.FormatD32SignedFloatS8UnsignedInt || format == core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
}

// Transition is an image memory barrier with the stages it synchronizes.
type Transition struct {
	Barrier  core1_0.ImageMemoryBarrier
	SrcStage core1_0.PipelineStageFlags
	DstStage core1_0.PipelineStageFlags
}

// TransitionFor looks up the barrier for moving image from oldLayout to
// newLayout. Pairs outside the table fail with ErrUnsupportedTransition.
func TransitionFor(image core1_0.Image, format core1_0.Format, oldLayout, newLayout core1_0.ImageLayout) (Transition, error) {
	masks, ok := layoutTransitions[layoutTransition{oldLayout, newLayout}]
	if !ok {
		return Transition{}, errors.Wrapf(ErrUnsupportedTransition, "%s -> %s", oldLayout, newLayout)
	}

	aspect := masks.aspect
	if aspect == core1_0.ImageAspectDepth && HasStencil(format) {
		aspect |= core1_0.ImageAspectStencil
	}

	return Transition{
		Barrier: core1_0.ImageMemoryBarrier{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     aspect,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcAccessMask: masks.srcAccess,
			DstAccessMask: masks.dstAccess,
		},
		SrcStage: masks.srcStage,
		DstStage: masks.dstStage,
	}, nil
}
