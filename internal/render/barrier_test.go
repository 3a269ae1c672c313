package render

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

func TestTransitionFor(t *testing.T) {
	tests := []struct {
		name      string
		format    core1_0.Format
		oldLayout core1_0.ImageLayout
		newLayout core1_0.ImageLayout

		srcAccess core1_0.AccessFlags
		dstAccess core1_0.AccessFlags
		srcStage  core1_0.PipelineStageFlags
		dstStage  core1_0.PipelineStageFlags
		aspect    core1_0.ImageAspectFlags
	}{
		{
			name:      "staging to transfer source",
			format:    TextureFormat,
			oldLayout: core1_0.ImageLayoutPreInitialized,
			newLayout: core1_0.ImageLayoutTransferSrcOptimal,
			srcAccess: core1_0.AccessHostWrite,
			dstAccess: core1_0.AccessTransferRead,
			srcStage:  core1_0.PipelineStageHost,
			dstStage:  core1_0.PipelineStageTransfer,
			aspect:    core1_0.ImageAspectColor,
		},
		{
			name:      "texture to transfer destination",
			format:    TextureFormat,
			oldLayout: core1_0.ImageLayoutPreInitialized,
			newLayout: core1_0.ImageLayoutTransferDstOptimal,
			srcAccess: core1_0.AccessHostWrite,
			dstAccess: core1_0.AccessTransferWrite,
			srcStage:  core1_0.PipelineStageHost,
			dstStage:  core1_0.PipelineStageTransfer,
			aspect:    core1_0.ImageAspectColor,
		},
		{
			name:      "texture to shader read",
			format:    TextureFormat,
			oldLayout: core1_0.ImageLayoutTransferDstOptimal,
			newLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
			srcAccess: core1_0.AccessTransferWrite,
			dstAccess: core1_0.AccessShaderRead,
			srcStage:  core1_0.PipelineStageTransfer,
			dstStage:  core1_0.PipelineStageFragmentShader,
			aspect:    core1_0.ImageAspectColor,
		},
		{
			name:      "depth attachment",
			format:    core1_0.FormatD32SignedFloat,
			oldLayout: core1_0.ImageLayoutUndefined,
			newLayout: core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			dstAccess: core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
			srcStage:  core1_0.PipelineStageTopOfPipe,
			dstStage:  core1_0.PipelineStageEarlyFragmentTests,
			aspect:    core1_0.ImageAspectDepth,
		},
		{
			name:      "depth stencil attachment",
			format:    core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
			oldLayout: core1_0.ImageLayoutUndefined,
			newLayout: core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			dstAccess: core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
			srcStage:  core1_0.PipelineStageTopOfPipe,
			dstStage:  core1_0.PipelineStageEarlyFragmentTests,
			aspect:    core1_0.ImageAspectDepth | core1_0.ImageAspectStencil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransitionFor(nil, tt.format, tt.oldLayout, tt.newLayout)
			if err != nil {
				t.Fatalf("TransitionFor() error = %v", err)
			}
			b := got.Barrier
			if b.OldLayout != tt.oldLayout || b.NewLayout != tt.newLayout {
				t.Errorf("layouts = %v -> %v", b.OldLayout, b.NewLayout)
			}
			if b.SrcAccessMask != tt.srcAccess || b.DstAccessMask != tt.dstAccess {
				t.Errorf("access = %v -> %v, want %v -> %v", b.SrcAccessMask, b.DstAccessMask, tt.srcAccess, tt.dstAccess)
			}
			if got.SrcStage != tt.srcStage || got.DstStage != tt.dstStage {
				t.Errorf("stages = %v -> %v, want %v -> %v", got.SrcStage, got.DstStage, tt.srcStage, tt.dstStage)
			}
			if b.SubresourceRange.AspectMask != tt.aspect {
				t.Errorf("aspect = %v, want %v", b.SubresourceRange.AspectMask, tt.aspect)
			}
			if b.SrcQueueFamilyIndex != -1 || b.DstQueueFamilyIndex != -1 {
				t.Error("barrier transfers queue family ownership")
			}
		})
	}
}

func TestTransitionForUnsupported(t *testing.T) {
	pairs := [][2]core1_0.ImageLayout{
		{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutShaderReadOnlyOptimal},
		{core1_0.ImageLayoutTransferSrcOptimal, core1_0.ImageLayoutPreInitialized},
		{core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.ImageLayoutTransferDstOptimal},
	}
	for _, pair := range pairs {
		_, err := TransitionFor(nil, TextureFormat, pair[0], pair[1])
		if !errors.Is(err, ErrUnsupportedTransition) {
			t.Errorf("TransitionFor(%v, %v) error = %v, want ErrUnsupportedTransition", pair[0], pair[1], err)
		}
	}
}
