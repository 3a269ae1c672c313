package render

import (
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

// State is the position of the renderer in the frame cycle.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateSubmitting
	StatePresenting
	StateRecreating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateSubmitting:
		return "submitting"
	case StatePresenting:
		return "presenting"
	case StateRecreating:
		return "recreating"
	}
	return "unknown"
}

// State reports where the last frame left off.
func (r *Renderer) State() State {
	return r.state
}

// Invalidate schedules a swapchain recreation before the next frame, as
// after a window resize.
func (r *Renderer) Invalidate() {
	r.invalidated = true
}

// DrawFrame acquires a swapchain image, submits its command buffer and
// presents it. An out-of-date acquire abandons the frame and recreates the
// swapchain. An out-of-date or suboptimal present recreates after the image
// was handed to the presentation engine. Nothing is drawn while the drawable
// has no area.
func (r *Renderer) DrawFrame() error {
	if r.invalidated {
		if err := r.Recreate(); err != nil {
			return err
		}
		if r.invalidated {
			// Still minimized.
			return nil
		}
	}

	start := hrtime.Now()

	r.state = StateAcquiring
	imageIndex, status, err := r.swapchain.handle.AcquireNextImage(r.imageAvailable)
	if err != nil {
		r.state = StateIdle
		return errors.Wrap(err, "acquire next image")
	}
	if status == gpu.StatusOutOfDate {
		return r.Recreate()
	}

	r.state = StateSubmitting
	err = r.ctx.GraphicsQueue.Submit(gpu.Submission{
		Wait:      r.imageAvailable,
		WaitStage: core1_0.PipelineStageColorAttachmentOutput,
		Commands:  r.commandBuffers[imageIndex],
		Signal:    r.renderFinished,
	})
	if err != nil {
		r.state = StateIdle
		return errors.Wrap(err, "submit draw commands")
	}

	r.state = StatePresenting
	status, err = r.ctx.PresentQueue.Present(r.swapchain.handle, imageIndex, r.renderFinished)
	if err != nil {
		r.state = StateIdle
		return errors.Wrap(err, "present")
	}

	r.timing.Add(hrtime.Since(start))

	if status == gpu.StatusOutOfDate || status == gpu.StatusSuboptimal {
		return r.Recreate()
	}

	r.state = StateIdle
	return nil
}

// releaseSwapchainResources destroys everything derived from the swapchain,
// dependents first, leaving the swapchain itself as a recreation hint.
func (r *Renderer) releaseSwapchainResources() {
	if r.targets != nil {
		r.targets.ReleaseAttachments()
		r.targets.ReleaseFramebuffers()
		r.targets = nil
	}
	r.freeCommandBuffers()
	if r.pipeline != nil {
		r.pipeline.Destroy(r.device)
		r.pipeline = nil
	}
	if r.renderPass != nil {
		r.device.DestroyRenderPass(r.renderPass)
		r.renderPass = nil
	}
	if r.swapchain != nil {
		r.swapchain.DestroyViews()
	}
}

// Recreate drains the device, tears down every swapchain-derived resource
// and rebuilds the chain from the swapchain up. With a zero-sized drawable
// the rebuild is deferred until the next frame.
func (r *Renderer) Recreate() error {
	r.state = StateRecreating
	// Cleared only once the rebuild completes, so a failed rebuild is
	// retried on the next frame.
	r.invalidated = true

	width, height := r.surface.DrawableSize()
	if width == 0 || height == 0 {
		r.state = StateIdle
		return nil
	}

	if err := r.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait for device idle")
	}

	r.releaseSwapchainResources()

	swapchain, err := NewSwapchain(r.ctx, width, height, r.swapchain, r.logger)
	if err != nil {
		return errors.Wrap(err, "recreate swapchain")
	}
	r.swapchain = swapchain

	if err := r.createRenderPass(); err != nil {
		return err
	}

	r.pipeline, err = NewPipeline(r.device, r.shaders, r.setLayout, r.renderPass, r.swapchain.Extent, r.samples)
	if err != nil {
		return err
	}

	r.targets, err = NewTargets(r.alloc, r.uploader, r.swapchain, r.renderPass, r.depthFormat, r.samples)
	if err != nil {
		return err
	}

	if err := r.createCommandBuffers(); err != nil {
		return err
	}

	if err := r.UpdateUniform(); err != nil {
		return err
	}

	r.invalidated = false
	r.recreations++
	r.state = StateIdle
	r.logger.Info("swapchain recreated", "width", r.swapchain.Extent.Width, "height", r.swapchain.Extent.Height)
	return nil
}
