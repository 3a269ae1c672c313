// Package render drives a Vulkan-style device through the full frame
// lifecycle: device negotiation, swapchain and render-target construction,
// resource upload, and the acquire, submit and present loop with recreation
// on surface invalidation.
package render

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

var (
	// ErrFatal marks errors caused by an unusable environment. The process
	// should exit rather than retry.
	ErrFatal = errors.New("fatal configuration error")

	ErrNoQueueFamily         = errors.New("no queue family supports graphics and presentation")
	ErrUnsupportedTransition = errors.New("unsupported image layout transition")
	ErrNoMemoryType          = errors.New("no suitable memory type")
	ErrNoDepthFormat         = errors.New("no supported depth format")
)

// QueueFamilies holds the selected family indices. They are equal when one
// family supports both graphics and presentation.
type QueueFamilies struct {
	Graphics int
	Present  int
}

// Shared reports whether graphics and presentation use the same family.
func (f QueueFamilies) Shared() bool {
	return f.Graphics == f.Present
}

// Unique lists the distinct family indices.
func (f QueueFamilies) Unique() []int {
	if f.Shared() {
		return []int{f.Graphics}
	}
	return []int{f.Graphics, f.Present}
}

// SelectQueueFamilies walks families in index order. The first family with
// both graphics and present support wins outright; otherwise the first
// graphics family and the first present family are paired.
func SelectQueueFamilies(families []gpu.QueueFamily) (QueueFamilies, bool) {
	graphics, present := -1, -1

	for idx, family := range families {
		if family.Graphics && family.Present {
			return QueueFamilies{Graphics: idx, Present: idx}, true
		}
		if family.Graphics && graphics < 0 {
			graphics = idx
		}
		if family.Present && present < 0 {
			present = idx
		}
	}

	if graphics < 0 || present < 0 {
		return QueueFamilies{}, false
	}
	return QueueFamilies{Graphics: graphics, Present: present}, true
}

// Context owns the instance, the selected adapter, the logical device and its
// queues. Every other GPU object is a child of the context and must be
// destroyed before it.
type Context struct {
	logger *slog.Logger

	Instance gpu.Instance
	Adapter  gpu.Adapter
	Info     gpu.AdapterInfo
	Device   gpu.Device
	Families QueueFamilies

	GraphicsQueue gpu.Queue
	PresentQueue  gpu.Queue
}

// NewContext picks the first adapter with usable queue families and creates
// its logical device. On success the context owns instance.
func NewContext(instance gpu.Instance, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.Default()
	}

	adapters, err := instance.Adapters()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate adapters")
	}
	if len(adapters) == 0 {
		return nil, errors.Mark(errors.New("no vulkan capable adapter found"), ErrFatal)
	}

	ctx := &Context{
		logger:   logger,
		Instance: instance,
	}

	for idx, adapter := range adapters {
		info, err := adapter.Info()
		if err != nil {
			return nil, errors.Wrapf(err, "adapter %d", idx)
		}
		logger.Info("adapter found",
			"index", idx,
			"name", info.Name,
			"type", info.Type,
			"api", info.APIVersion,
			"driver", info.DriverVersion,
			"vendor", info.VendorID,
			"device", info.DeviceID)

		families, err := adapter.QueueFamilies()
		if err != nil {
			return nil, errors.Wrapf(err, "adapter %d queue families", idx)
		}

		selected, ok := SelectQueueFamilies(families)
		if !ok {
			logger.Warn("adapter skipped: no graphics and present queue families", "name", info.Name)
			continue
		}

		ctx.Adapter = adapter
		ctx.Info = info
		ctx.Families = selected
		break
	}

	if ctx.Adapter == nil {
		return nil, errors.Mark(errors.WithStack(ErrNoQueueFamily), ErrFatal)
	}

	ctx.Device, err = ctx.Adapter.CreateDevice(gpu.DeviceRequest{
		QueueFamilies:     ctx.Families.Unique(),
		SamplerAnisotropy: ctx.Info.SamplerAnisotropy,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create logical device")
	}

	ctx.GraphicsQueue = ctx.Device.Queue(ctx.Families.Graphics)
	ctx.PresentQueue = ctx.Device.Queue(ctx.Families.Present)

	logger.Info("logical device created",
		"adapter", ctx.Info.Name,
		"graphicsFamily", ctx.Families.Graphics,
		"presentFamily", ctx.Families.Present)

	return ctx, nil
}

// Destroy waits for the device to drain, then destroys it and the instance.
func (c *Context) Destroy() {
	if c.Device != nil {
		if err := c.Device.WaitIdle(); err != nil {
			c.logger.Error("device wait idle", "error", err)
		}
		c.Device.Destroy()
		c.Device = nil
	}
	if c.Instance != nil {
		c.Instance.Destroy()
		c.Instance = nil
	}
}
