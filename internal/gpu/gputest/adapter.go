package gputest

import (
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

// Instance is a synthetic gpu.Instance.
type Instance struct {
	AdapterList []gpu.Adapter
	Destroyed   bool
}

var _ gpu.Instance = (*Instance)(nil)

func (i *Instance) Adapters() ([]gpu.Adapter, error) {
	return i.AdapterList, nil
}

func (i *Instance) Destroy() {
	i.Destroyed = true
}

// Adapter is a synthetic physical device. CreateDevice hands out Device.
type Adapter struct {
	Properties gpu.AdapterInfo
	Families   []gpu.QueueFamily
	Support    gpu.SurfaceSupport
	Memory     []core1_0.MemoryPropertyFlags
	// Formats lists optimal-tiling features per format. Linear tiling reports
	// the same features.
	Formats map[core1_0.Format]core1_0.FormatFeatureFlags

	Device   *Device
	Requests []gpu.DeviceRequest
}

var _ gpu.Adapter = (*Adapter)(nil)

// UndefinedExtent is the current-extent value a surface reports when the
// swapchain decides the size.
var UndefinedExtent = core1_0.Extent2D{Width: -1, Height: -1}

// NewAdapter returns an adapter with one combined graphics and present queue
// family, a surface that leaves the extent to the swapchain, device-local and
// host-visible memory, and a D32 depth format.
func NewAdapter() *Adapter {
	memory := []core1_0.MemoryPropertyFlags{
		core1_0.MemoryPropertyDeviceLocal,
		core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
	}
	return &Adapter{
		Properties: gpu.AdapterInfo{
			Name:                 "synthetic adapter",
			Type:                 core1_0.PhysicalDeviceTypeDiscreteGPU,
			APIVersion:           common.Vulkan1_0,
			SamplerAnisotropy:    true,
			MaxSamplerAnisotropy: 16,
			SampleCounts:         core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8,
		},
		Families: []gpu.QueueFamily{
			{Graphics: true, Present: true, QueueCount: 1},
		},
		Support: gpu.SurfaceSupport{
			Capabilities: khr_surface.SurfaceCapabilities{
				MinImageCount:       2,
				MaxImageCount:       3,
				CurrentExtent:       UndefinedExtent,
				MinImageExtent:      core1_0.Extent2D{Width: 1, Height: 1},
				MaxImageExtent:      core1_0.Extent2D{Width: 4096, Height: 4096},
				MaxImageArrayLayers: 1,
				SupportedTransforms: khr_surface.TransformIdentity,
				CurrentTransform:    khr_surface.TransformIdentity,
			},
			Formats: []khr_surface.SurfaceFormat{
				{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			},
			PresentModes: []khr_surface.PresentMode{
				khr_surface.PresentModeFIFO,
				khr_surface.PresentModeImmediate,
			},
		},
		Memory: memory,
		Formats: map[core1_0.Format]core1_0.FormatFeatureFlags{
			core1_0.FormatD32SignedFloat: core1_0.FormatFeatureDepthStencilAttachment,
		},
		Device: NewDevice(len(memory)),
	}
}

func (a *Adapter) Info() (gpu.AdapterInfo, error) {
	return a.Properties, nil
}

func (a *Adapter) QueueFamilies() ([]gpu.QueueFamily, error) {
	return a.Families, nil
}

func (a *Adapter) SurfaceSupport() (gpu.SurfaceSupport, error) {
	return a.Support, nil
}

func (a *Adapter) MemoryTypes() []core1_0.MemoryPropertyFlags {
	return a.Memory
}

func (a *Adapter) FormatFeatures(format core1_0.Format, tiling core1_0.ImageTiling) core1_0.FormatFeatureFlags {
	return a.Formats[format]
}

func (a *Adapter) CreateDevice(req gpu.DeviceRequest) (gpu.Device, error) {
	a.Requests = append(a.Requests, req)
	return a.Device, nil
}
