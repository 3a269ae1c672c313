package render

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu/gputest"
)

func TestRenderPassInfoWiring(t *testing.T) {
	info := RenderPassInfo(core1_0.FormatB8G8R8A8UnsignedNormalized, core1_0.FormatD32SignedFloat, core1_0.Samples8)

	if len(info.Attachments) != 4 {
		t.Fatalf("%d attachments, want 4", len(info.Attachments))
	}

	msColor := info.Attachments[AttachmentMultisampleColor]
	if msColor.Samples != core1_0.Samples8 || msColor.LoadOp != core1_0.AttachmentLoadOpClear {
		t.Errorf("multisample colour = %+v", msColor)
	}
	resolve := info.Attachments[AttachmentColor]
	if resolve.Samples != core1_0.Samples1 || resolve.StoreOp != core1_0.AttachmentStoreOpStore || resolve.FinalLayout != khr_swapchain.ImageLayoutPresentSrc {
		t.Errorf("resolve attachment = %+v", resolve)
	}
	if info.Attachments[AttachmentMultisampleDepth].Samples != core1_0.Samples8 {
		t.Error("multisample depth is not multisampled")
	}
	if info.Attachments[AttachmentDepth].Samples != core1_0.Samples1 {
		t.Error("depth attachment is multisampled")
	}

	if len(info.Subpasses) != 1 {
		t.Fatalf("%d subpasses, want 1", len(info.Subpasses))
	}
	subpass := info.Subpasses[0]
	if len(subpass.ColorAttachments) != 1 || subpass.ColorAttachments[0].Attachment != AttachmentMultisampleColor {
		t.Errorf("colour references = %+v", subpass.ColorAttachments)
	}
	if len(subpass.ResolveAttachments) != 1 || subpass.ResolveAttachments[0].Attachment != AttachmentColor {
		t.Errorf("resolve references = %+v", subpass.ResolveAttachments)
	}
	if subpass.DepthStencilAttachment == nil || subpass.DepthStencilAttachment.Attachment != AttachmentMultisampleDepth {
		t.Errorf("depth reference = %+v", subpass.DepthStencilAttachment)
	}

	if len(info.SubpassDependencies) != 1 {
		t.Fatalf("%d dependencies, want 1", len(info.SubpassDependencies))
	}
	dep := info.SubpassDependencies[0]
	if dep.SrcSubpass != core1_0.SubpassExternal || dep.DstSubpass != 0 {
		t.Errorf("dependency subpasses = %d -> %d", dep.SrcSubpass, dep.DstSubpass)
	}
	if dep.DstAccessMask != core1_0.AccessColorAttachmentRead|core1_0.AccessColorAttachmentWrite {
		t.Errorf("dependency access = %v", dep.DstAccessMask)
	}
}

func TestFindDepthFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats map[core1_0.Format]core1_0.FormatFeatureFlags
		want    core1_0.Format
		err     error
	}{
		{
			name:    "d32 preferred",
			formats: map[core1_0.Format]core1_0.FormatFeatureFlags{core1_0.FormatD32SignedFloat: core1_0.FormatFeatureDepthStencilAttachment, core1_0.FormatD24UnsignedNormalizedS8UnsignedInt: core1_0.FormatFeatureDepthStencilAttachment},
			want:    core1_0.FormatD32SignedFloat,
		},
		{
			name:    "falls back to d24s8",
			formats: map[core1_0.Format]core1_0.FormatFeatureFlags{core1_0.FormatD24UnsignedNormalizedS8UnsignedInt: core1_0.FormatFeatureDepthStencilAttachment},
			want:    core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
		},
		{
			name:    "sampled only is not enough",
			formats: map[core1_0.Format]core1_0.FormatFeatureFlags{core1_0.FormatD32SignedFloat: core1_0.FormatFeatureSampledImage},
			err:     ErrNoDepthFormat,
		},
		{
			name: "nothing supported",
			err:  ErrNoDepthFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := gputest.NewAdapter()
			adapter.Formats = tt.formats

			got, err := FindDepthFormat(adapter)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("FindDepthFormat() error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("FindDepthFormat() = %v, %v, want %v", got, err, tt.want)
			}
		})
	}
}

func TestTargetsFramebuffers(t *testing.T) {
	h := newHarness(t, nil)
	r := h.newRenderer(t, testOptions())

	if got, want := len(r.targets.Framebuffers), len(r.swapchain.Images); got != want {
		t.Errorf("%d framebuffers for %d swapchain images", got, want)
	}
	for _, info := range h.device.Images {
		if info.Usage&core1_0.ImageUsageTransientAttachment != 0 && info.Samples != core1_0.Samples4 {
			t.Errorf("transient attachment with %v samples, want 4", info.Samples)
		}
	}

	h.teardown(t, r)
}
