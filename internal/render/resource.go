package render

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

// FindMemoryType returns the first memory type allowed by typeFilter whose
// flags include every requested property.
func FindMemoryType(types []core1_0.MemoryPropertyFlags, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, flags := range types {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (flags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Wrapf(ErrNoMemoryType, "filter %#b, properties %s", typeFilter, properties)
}

// Buffer pairs a buffer with its backing allocation.
type Buffer struct {
	Buffer core1_0.Buffer
	Memory core1_0.DeviceMemory
	Size   int
}

// Release destroys the buffer before freeing its memory.
func (b *Buffer) Release(device gpu.Device) {
	if b == nil {
		return
	}
	if b.Buffer != nil {
		device.DestroyBuffer(b.Buffer)
		b.Buffer = nil
	}
	if b.Memory != nil {
		device.FreeMemory(b.Memory)
		b.Memory = nil
	}
}

// Image pairs an image with its allocation and, once created, its view.
type Image struct {
	Image  core1_0.Image
	Memory core1_0.DeviceMemory
	View   core1_0.ImageView

	Format core1_0.Format
	Width  int
	Height int
}

// Release destroys the view, then the image, then frees the memory.
func (i *Image) Release(device gpu.Device) {
	if i == nil {
		return
	}
	if i.View != nil {
		device.DestroyImageView(i.View)
		i.View = nil
	}
	if i.Image != nil {
		device.DestroyImage(i.Image)
		i.Image = nil
	}
	if i.Memory != nil {
		device.FreeMemory(i.Memory)
		i.Memory = nil
	}
}

// ImageSpec describes an image to allocate.
type ImageSpec struct {
	Width, Height int
	Format        core1_0.Format
	Tiling        core1_0.ImageTiling
	Usage         core1_0.ImageUsageFlags
	Samples       core1_0.SampleCountFlags
	InitialLayout core1_0.ImageLayout
	Properties    core1_0.MemoryPropertyFlags
}

// Allocator creates resources backed by dedicated allocations.
type Allocator struct {
	device      gpu.Device
	memoryTypes []core1_0.MemoryPropertyFlags
}

func NewAllocator(ctx *Context) *Allocator {
	return &Allocator{
		device:      ctx.Device,
		memoryTypes: ctx.Adapter.MemoryTypes(),
	}
}

func (a *Allocator) allocate(reqs core1_0.MemoryRequirements, properties core1_0.MemoryPropertyFlags) (core1_0.DeviceMemory, error) {
	memoryIndex, err := FindMemoryType(a.memoryTypes, reqs.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}

	return a.device.AllocateMemory(core1_0.MemoryAllocateInfo{
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
}

// Buffer creates an exclusive buffer of size bytes in memory with properties.
func (a *Allocator) Buffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*Buffer, error) {
	b := &Buffer{Size: size}

	var err error
	b.Buffer, err = a.device.CreateBuffer(core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}

	b.Memory, err = a.allocate(a.device.BufferMemoryRequirements(b.Buffer), properties)
	if err != nil {
		b.Release(a.device)
		return nil, errors.Wrap(err, "allocate buffer memory")
	}

	if err := a.device.BindBufferMemory(b.Buffer, b.Memory); err != nil {
		b.Release(a.device)
		return nil, errors.Wrap(err, "bind buffer memory")
	}

	return b, nil
}

// Image creates a 2D image without a view.
func (a *Allocator) Image(spec ImageSpec) (*Image, error) {
	samples := spec.Samples
	if samples == 0 {
		samples = core1_0.Samples1
	}

	img := &Image{
		Format: spec.Format,
		Width:  spec.Width,
		Height: spec.Height,
	}

	var err error
	img.Image, err = a.device.CreateImage(core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  spec.Width,
			Height: spec.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        spec.Format,
		Tiling:        spec.Tiling,
		InitialLayout: spec.InitialLayout,
		Usage:         spec.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       samples,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create image")
	}

	img.Memory, err = a.allocate(a.device.ImageMemoryRequirements(img.Image), spec.Properties)
	if err != nil {
		img.Release(a.device)
		return nil, errors.Wrap(err, "allocate image memory")
	}

	if err := a.device.BindImageMemory(img.Image, img.Memory); err != nil {
		img.Release(a.device)
		return nil, errors.Wrap(err, "bind image memory")
	}

	return img, nil
}

// CreateView attaches a view covering the single mip level and layer.
func (a *Allocator) CreateView(img *Image, aspect core1_0.ImageAspectFlags) error {
	view, err := a.device.CreateImageView(imageViewInfo(img.Image, img.Format, aspect))
	if err != nil {
		return errors.Wrap(err, "create image view")
	}
	img.View = view
	return nil
}

// Write maps memory and copies data to its start.
func (a *Allocator) Write(memory core1_0.DeviceMemory, data []byte) error {
	mapped, err := a.device.MapMemory(memory, 0, len(data))
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer a.device.UnmapMemory(memory)

	copy(mapped, data)
	return nil
}

// Encode serializes fixed-size data in the device byte order.
func Encode(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, common.ByteOrder, data); err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	return buf.Bytes(), nil
}
