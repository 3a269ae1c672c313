package render

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

// DefaultSurfaceFormat is used when the surface leaves the format open.
var DefaultSurfaceFormat = khr_surface.SurfaceFormat{
	Format:     core1_0.FormatB8G8R8A8UnsignedNormalized,
	ColorSpace: khr_surface.ColorSpaceSRGBNonlinear,
}

// ChooseSurfaceFormat returns the default when the surface reports a single
// undefined format, and the first reported format otherwise.
func ChooseSurfaceFormat(formats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	if len(formats) == 0 || (len(formats) == 1 && formats[0].Format == core1_0.FormatUndefined) {
		return DefaultSurfaceFormat
	}
	return formats[0]
}

// ClampExtent clamps a window size component-wise into the surface bounds.
func ClampExtent(capabilities khr_surface.SurfaceCapabilities, width, height int) core1_0.Extent2D {
	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

// ChooseExtent uses the surface's current extent unless the surface reports
// it as undefined, in which case the drawable size is clamped.
func ChooseExtent(capabilities khr_surface.SurfaceCapabilities, width, height int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}
	return ClampExtent(capabilities, width, height)
}

// ChoosePresentMode prefers immediate presentation and falls back to FIFO,
// which every surface supports.
func ChoosePresentMode(modes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, mode := range modes {
		if mode == khr_surface.PresentModeImmediate {
			return mode
		}
	}
	return khr_surface.PresentModeFIFO
}

// ChooseSharingMode returns exclusive ownership for a shared family and
// concurrent sharing across exactly the two families otherwise.
func ChooseSharingMode(families QueueFamilies) (core1_0.SharingMode, []int) {
	if families.Shared() {
		return core1_0.SharingModeExclusive, nil
	}
	return core1_0.SharingModeConcurrent, []int{families.Graphics, families.Present}
}

// ChoosePreTransform keeps images untransformed when the surface allows it.
func ChoosePreTransform(capabilities khr_surface.SurfaceCapabilities) khr_surface.SurfaceTransformFlags {
	if capabilities.SupportedTransforms&khr_surface.TransformIdentity != 0 {
		return khr_surface.TransformIdentity
	}
	return capabilities.CurrentTransform
}

// SwapchainRequest builds the creation parameters from what the surface
// reports and the current drawable size.
func SwapchainRequest(support gpu.SurfaceSupport, families QueueFamilies, width, height int) gpu.SwapchainRequest {
	surfaceFormat := ChooseSurfaceFormat(support.Formats)
	sharingMode, familyIndices := ChooseSharingMode(families)

	return gpu.SwapchainRequest{
		MinImageCount:      support.Capabilities.MinImageCount,
		Format:             surfaceFormat.Format,
		ColorSpace:         surfaceFormat.ColorSpace,
		Extent:             ChooseExtent(support.Capabilities, width, height),
		SharingMode:        sharingMode,
		QueueFamilyIndices: familyIndices,
		PreTransform:       ChoosePreTransform(support.Capabilities),
		PresentMode:        ChoosePresentMode(support.PresentModes),
	}
}

// Swapchain is the presentable image set with one view per image.
type Swapchain struct {
	device gpu.Device
	handle gpu.Swapchain
	// retired is set once the handle was passed as a creation hint. A retired
	// chain is only destroyed, never passed again.
	retired bool

	Format     core1_0.Format
	ColorSpace khr_surface.ColorSpace
	Extent     core1_0.Extent2D
	Images     []core1_0.Image
	Views      []core1_0.ImageView
}

// NewSwapchain creates a swapchain for the drawable size. When old is non-nil
// it is passed as the creation hint and destroyed once the replacement and its
// views exist; its views must already be destroyed. On failure old keeps its
// handle so that a later call can release it.
func NewSwapchain(ctx *Context, width, height int, old *Swapchain, logger *slog.Logger) (*Swapchain, error) {
	support, err := ctx.Adapter.SurfaceSupport()
	if err != nil {
		return nil, errors.Wrap(err, "query surface support")
	}

	req := SwapchainRequest(support, ctx.Families, width, height)
	if old != nil && old.handle != nil && !old.retired {
		req.Old = old.handle
		old.retired = true
	}

	handle, err := ctx.Device.CreateSwapchain(req)
	if err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}

	sc := &Swapchain{
		device:     ctx.Device,
		handle:     handle,
		Format:     req.Format,
		ColorSpace: req.ColorSpace,
		Extent:     req.Extent,
	}

	sc.Images, err = handle.Images()
	if err != nil {
		sc.Destroy()
		return nil, errors.Wrap(err, "swapchain images")
	}

	for idx, image := range sc.Images {
		view, err := ctx.Device.CreateImageView(imageViewInfo(image, sc.Format, core1_0.ImageAspectColor))
		if err != nil {
			sc.Destroy()
			return nil, errors.Wrapf(err, "swapchain image view %d", idx)
		}
		sc.Views = append(sc.Views, view)
	}

	if old != nil {
		old.Destroy()
	}

	logger.Debug("swapchain created",
		"images", len(sc.Images),
		"format", sc.Format,
		"width", sc.Extent.Width,
		"height", sc.Extent.Height,
		"presentMode", req.PresentMode)

	return sc, nil
}

// DestroyViews destroys the per-image views. The swapchain itself stays
// valid as a recreation hint.
func (s *Swapchain) DestroyViews() {
	for _, view := range s.Views {
		s.device.DestroyImageView(view)
	}
	s.Views = nil
}

// Destroy releases the views and the swapchain.
func (s *Swapchain) Destroy() {
	s.DestroyViews()
	if s.handle != nil {
		s.device.DestroySwapchain(s.handle)
		s.handle = nil
	}
	s.Images = nil
}

func imageViewInfo(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) core1_0.ImageViewCreateInfo {
	return core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
}
