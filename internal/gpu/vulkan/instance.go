// Package vulkan implements the gpu interfaces on top of vkngwrapper, with an
// SDL2 window providing the presentation surface.
package vulkan

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

// ValidationLayer is enabled when Options.Validation is set.
const ValidationLayer = "VK_LAYER_KHRONOS_validation"

// ErrIncompatibleDriver is returned when no compatible Vulkan driver exists.
var ErrIncompatibleDriver = errors.New("cannot find a compatible vulkan driver")

// Options configures instance creation.
type Options struct {
	ApplicationName string
	Validation      bool
	Logger          *slog.Logger
}

// Instance is a Vulkan instance with its SDL2 surface.
type Instance struct {
	logger *slog.Logger

	instance       core1_0.Instance
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	surface        khr_surface.Surface
}

var _ gpu.Instance = (*Instance)(nil)

// Open loads Vulkan through SDL, creates the instance and a surface for window.
func Open(window *sdl.Window, opts Options) (*Instance, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loader, err := core.CreateLoaderFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "vulkan not supported")
	}

	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "Open Vulkan",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_0,
	}

	extensions, _, err := loader.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}

	for _, ext := range window.VulkanGetInstanceExtensions() {
		if _, ok := extensions[ext]; !ok {
			return nil, errors.Newf("cannot initialize sdl: missing extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if _, ok := extensions[khr_portability_enumeration.ExtensionName]; ok {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	inst := &Instance{logger: logger}

	validation := opts.Validation
	if validation {
		layers, _, err := loader.AvailableLayers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerate instance layers")
		}
		if _, ok := layers[ValidationLayer]; !ok {
			// Missing validation is not worth aborting a demo run over.
			logger.Warn("validation layer not available", "layer", ValidationLayer)
			validation = false
		}
	}

	if validation {
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, ValidationLayer)
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		instanceOptions.Next = inst.debugMessengerOptions()
	}

	var res common.VkResult
	inst.instance, res, err = loader.CreateInstance(nil, instanceOptions)
	if res == core1_0.VKErrorIncompatibleDriver {
		return nil, errors.WithStack(ErrIncompatibleDriver)
	} else if err != nil {
		return nil, errors.Wrap(err, "create instance")
	}
	logger.Info("instance created", "extensions", len(instanceOptions.EnabledExtensionNames), "validation", validation)

	if validation {
		debugLoader := ext_debug_utils.CreateExtensionFromInstance(inst.instance)
		inst.debugMessenger, _, err = debugLoader.CreateDebugUtilsMessenger(inst.instance, nil, inst.debugMessengerOptions())
		if err != nil {
			inst.Destroy()
			return nil, errors.Wrap(err, "create debug messenger")
		}
	}

	surfaceLoader := khr_surface.CreateExtensionFromInstance(inst.instance)
	inst.surface, err = vkng_sdl2.CreateSurface(inst.instance, surfaceLoader, window)
	if err != nil {
		inst.Destroy()
		return nil, errors.Wrap(err, "create surface")
	}
	logger.Info("surface created")

	return inst, nil
}

func (i *Instance) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    i.logDebug,
	}
}

func (i *Instance) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := slog.LevelWarn
	if severity&ext_debug_utils.SeverityError != 0 {
		level = slog.LevelError
	}
	i.logger.Log(context.Background(), level, data.Message, slog.Any("type", msgType), slog.Any("severity", severity))
	return false
}

// Adapters enumerates the physical devices visible to the instance.
func (i *Instance) Adapters() ([]gpu.Adapter, error) {
	physicalDevices, _, err := i.instance.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	adapters := make([]gpu.Adapter, 0, len(physicalDevices))
	for _, physicalDevice := range physicalDevices {
		adapters = append(adapters, &adapter{
			physicalDevice: physicalDevice,
			surface:        i.surface,
			logger:         i.logger,
		})
	}
	return adapters, nil
}

// Destroy releases the surface, debug messenger and instance, in that order.
func (i *Instance) Destroy() {
	if i.surface != nil {
		i.surface.Destroy(nil)
		i.surface = nil
	}

	if i.debugMessenger != nil {
		i.debugMessenger.Destroy(nil)
		i.debugMessenger = nil
	}

	if i.instance != nil {
		i.instance.Destroy(nil)
		i.instance = nil
	}
}
