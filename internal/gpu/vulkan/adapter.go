package vulkan

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_portability_subset"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

type adapter struct {
	physicalDevice core1_0.PhysicalDevice
	surface        khr_surface.Surface
	logger         *slog.Logger
}

func (a *adapter) Info() (gpu.AdapterInfo, error) {
	properties, err := a.physicalDevice.Properties()
	if err != nil {
		return gpu.AdapterInfo{}, errors.Wrap(err, "physical device properties")
	}

	features := a.physicalDevice.Features()

	return gpu.AdapterInfo{
		Name:                 properties.DriverName,
		Type:                 properties.DriverType,
		APIVersion:           properties.APIVersion,
		DriverVersion:        properties.DriverVersion,
		VendorID:             properties.VendorID,
		DeviceID:             properties.DeviceID,
		SamplerAnisotropy:    features.SamplerAnisotropy,
		MaxSamplerAnisotropy: properties.Limits.MaxSamplerAnisotropy,
		SampleCounts:         properties.Limits.FramebufferColorSampleCounts & properties.Limits.FramebufferDepthSampleCounts,
	}, nil
}

func (a *adapter) QueueFamilies() ([]gpu.QueueFamily, error) {
	queueFamilies := a.physicalDevice.QueueFamilyProperties()

	families := make([]gpu.QueueFamily, 0, len(queueFamilies))
	for queueFamilyIdx, queueFamily := range queueFamilies {
		supported, _, err := a.surface.PhysicalDeviceSurfaceSupport(a.physicalDevice, queueFamilyIdx)
		if err != nil {
			return nil, errors.Wrapf(err, "surface support for queue family %d", queueFamilyIdx)
		}

		families = append(families, gpu.QueueFamily{
			Graphics:   (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0,
			Present:    supported,
			QueueCount: queueFamily.QueueCount,
		})
	}

	return families, nil
}

func (a *adapter) SurfaceSupport() (gpu.SurfaceSupport, error) {
	var support gpu.SurfaceSupport

	capabilities, _, err := a.surface.PhysicalDeviceSurfaceCapabilities(a.physicalDevice)
	if err != nil {
		return support, errors.Wrap(err, "surface capabilities")
	}
	support.Capabilities = *capabilities

	support.Formats, _, err = a.surface.PhysicalDeviceSurfaceFormats(a.physicalDevice)
	if err != nil {
		return support, errors.Wrap(err, "surface formats")
	}

	support.PresentModes, _, err = a.surface.PhysicalDeviceSurfacePresentModes(a.physicalDevice)
	if err != nil {
		return support, errors.Wrap(err, "surface present modes")
	}

	return support, nil
}

func (a *adapter) MemoryTypes() []core1_0.MemoryPropertyFlags {
	memProperties := a.physicalDevice.MemoryProperties()

	types := make([]core1_0.MemoryPropertyFlags, 0, len(memProperties.MemoryTypes))
	for _, memoryType := range memProperties.MemoryTypes {
		types = append(types, memoryType.PropertyFlags)
	}
	return types
}

func (a *adapter) FormatFeatures(format core1_0.Format, tiling core1_0.ImageTiling) core1_0.FormatFeatureFlags {
	props := a.physicalDevice.FormatProperties(format)
	if tiling == core1_0.ImageTilingLinear {
		return props.LinearTilingFeatures
	}
	return props.OptimalTilingFeatures
}

func (a *adapter) CreateDevice(req gpu.DeviceRequest) (gpu.Device, error) {
	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range req.QueueFamilies {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	extensions, _, err := a.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate device extensions")
	}

	for _, name := range deviceExtensions {
		if _, ok := extensions[name]; !ok {
			return nil, errors.Newf("device extension %s not supported", name)
		}
	}

	// Required on portability implementations such as MoltenVK.
	if _, supported := extensions[khr_portability_subset.ExtensionName]; supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	device, _, err := a.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueFamilyOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: req.SamplerAnisotropy,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create logical device")
	}

	return &logicalDevice{
		device:             device,
		swapchainExtension: khr_swapchain.CreateExtensionFromDevice(device),
		surface:            a.surface,
		queues:             make(map[int]*queue),
	}, nil
}
