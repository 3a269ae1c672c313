// Package gputest provides a synthetic gpu.Device for exercising the frame
// lifecycle without a driver. The device tracks every live handle and records
// a violation for double destruction, use of destroyed handles, destruction
// of objects still referenced by children, destruction while submitted work
// has not been drained, and semaphore waits that nothing signaled.
package gputest

import (
	"fmt"
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

// Device is a synthetic logical device.
type Device struct {
	// AcquireResults and PresentResults are consumed one per call. Once
	// exhausted every call reports gpu.StatusSuccess.
	AcquireResults []gpu.Status
	PresentResults []gpu.Status

	// MemoryTypeBits is reported in every memory requirement. Zero means
	// every memory type of the adapter is acceptable.
	MemoryTypeBits uint32
	// RowPitchAlignment pads the row pitch of linear images.
	RowPitchAlignment int

	// FailCreate makes the next creation of the given kind fail.
	FailCreate map[Kind]error
	// WaitErrors are returned one per queue or device WaitIdle call. A
	// failed wait leaves submitted work in flight.
	WaitErrors []error

	SwapchainRequests []gpu.SwapchainRequest
	RenderPasses      []core1_0.RenderPassCreateInfo
	Pipelines         []core1_0.GraphicsPipelineCreateInfo
	CommandPools      []core1_0.CommandPoolCreateInfo
	Samplers          []core1_0.SamplerCreateInfo
	Images            []core1_0.ImageCreateInfo

	Submits   int
	Presents  int
	Acquires  int
	Destroyed bool

	memoryTypeCount int
	nextID          int
	live            map[ref]bool
	owner           map[ref]ref
	references      map[ref][]ref
	bufferSize      map[ref]int
	imageInfo       map[ref]core1_0.ImageCreateInfo
	memory          map[ref][]byte
	signaled        map[ref]bool
	busy            bool
	queues          map[int]*Queue

	violations []string
}

var _ gpu.Device = (*Device)(nil)

// NewDevice returns an empty device whose memory types are indexed 0..memoryTypes-1.
func NewDevice(memoryTypes int) *Device {
	return &Device{
		FailCreate:      make(map[Kind]error),
		memoryTypeCount: memoryTypes,
		live:            make(map[ref]bool),
		owner:           make(map[ref]ref),
		references:      make(map[ref][]ref),
		bufferSize:      make(map[ref]int),
		imageInfo:       make(map[ref]core1_0.ImageCreateInfo),
		memory:          make(map[ref][]byte),
		signaled:        make(map[ref]bool),
		queues:          make(map[int]*Queue),
	}
}

func (d *Device) violate(format string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

// Violations returns every lifecycle violation recorded so far.
func (d *Device) Violations() []string {
	return append([]string(nil), d.violations...)
}

// Verify fails t for every recorded violation.
func (d *Device) Verify(t testing.TB) {
	t.Helper()
	for _, v := range d.violations {
		t.Error(v)
	}
}

// Live reports the number of live handles of kind.
func (d *Device) Live(kind Kind) int {
	count := 0
	for r := range d.live {
		if r.kind == kind {
			count++
		}
	}
	return count
}

// LiveHandles lists every live handle, sorted, for diagnostics.
func (d *Device) LiveHandles() []string {
	var out []string
	for r := range d.live {
		out = append(out, r.String())
	}
	sort.Strings(out)
	return out
}

// Busy reports whether submitted work has not yet been drained by a wait.
func (d *Device) Busy() bool {
	return d.busy
}

func (d *Device) create(kind Kind) (ref, error) {
	if err, ok := d.FailCreate[kind]; ok {
		delete(d.FailCreate, kind)
		return ref{}, err
	}
	d.nextID++
	r := ref{kind: kind, id: d.nextID}
	d.live[r] = true
	return r, nil
}

// use records a violation when handle is not a live object of kind.
func (d *Device) use(handle any, kind Kind, context string) ref {
	r := refOf(handle)
	if r.kind == "" {
		d.violate("%s: %s is nil or foreign", context, kind)
		return r
	}
	if r.kind != kind {
		d.violate("%s: expected %s, got %s", context, kind, r)
		return r
	}
	if !d.live[r] {
		d.violate("%s: %s used after destruction", context, r)
	}
	return r
}

// pooled kinds are released together with their parent.
var pooled = map[Kind]bool{
	KindDescriptorSet:  true,
	KindCommandBuffer:  true,
	KindSwapchainImage: true,
}

func (d *Device) destroy(handle any, kind Kind) ref {
	context := fmt.Sprintf("destroy %s", kind)
	r := refOf(handle)
	if r.kind == "" {
		d.violate("%s: nil or foreign handle", context)
		return r
	}
	if !d.live[r] {
		d.violate("%s: %s destroyed twice", context, r)
		return r
	}
	if d.busy {
		d.violate("%s: %s destroyed while work is in flight", context, r)
	}
	for child, parent := range d.owner {
		if parent == r && d.live[child] && !pooled[child.kind] {
			d.violate("%s: %s destroyed before dependent %s", context, r, child)
		}
	}
	delete(d.live, r)
	return r
}

// release marks every live child of parent as destroyed, as pools do.
func (d *Device) release(parent ref, kind Kind) {
	for child, owner := range d.owner {
		if owner == parent && child.kind == kind {
			delete(d.live, child)
		}
	}
}

func (d *Device) Queue(family int) gpu.Queue {
	q, ok := d.queues[family]
	if !ok {
		q = &Queue{device: d, Family: family}
		d.queues[family] = q
	}
	return q
}

func (d *Device) WaitIdle() error {
	return d.wait()
}

func (d *Device) wait() error {
	if len(d.WaitErrors) > 0 {
		err := d.WaitErrors[0]
		d.WaitErrors = d.WaitErrors[1:]
		return err
	}
	d.busy = false
	return nil
}

func (d *Device) Destroy() {
	if d.Destroyed {
		d.violate("device destroyed twice")
	}
	if len(d.live) > 0 {
		d.violate("device destroyed with live children: %v", d.LiveHandles())
	}
	d.Destroyed = true
}

func (d *Device) CreateSwapchain(req gpu.SwapchainRequest) (gpu.Swapchain, error) {
	if req.Old != nil {
		d.use(req.Old.(*Swapchain).ref, KindSwapchain, "create swapchain hint")
	}
	r, err := d.create(KindSwapchain)
	if err != nil {
		return nil, err
	}
	d.SwapchainRequests = append(d.SwapchainRequests, req)

	sc := &Swapchain{device: d, ref: r, Request: req}
	for i := 0; i < req.MinImageCount; i++ {
		d.nextID++
		image := &fakeImage{ref: ref{kind: KindSwapchainImage, id: d.nextID}}
		d.live[image.ref] = true
		d.owner[image.ref] = r
		d.imageInfo[image.ref] = core1_0.ImageCreateInfo{
			Format: req.Format,
			Extent: core1_0.Extent3D{Width: req.Extent.Width, Height: req.Extent.Height, Depth: 1},
		}
		sc.images = append(sc.images, image)
	}
	return sc, nil
}

func (d *Device) DestroySwapchain(swapchain gpu.Swapchain) {
	r := d.destroy(swapchain.(*Swapchain).ref, KindSwapchain)
	for _, image := range swapchain.(*Swapchain).images {
		for child, parent := range d.owner {
			if parent == image.ref && d.live[child] {
				d.violate("destroy swapchain: %s destroyed before view %s", r, child)
			}
		}
		delete(d.live, image.ref)
	}
}

func (d *Device) CreateBuffer(info core1_0.BufferCreateInfo) (core1_0.Buffer, error) {
	if info.Size <= 0 {
		return nil, errors.Newf("buffer size must be positive, got %d", info.Size)
	}
	r, err := d.create(KindBuffer)
	if err != nil {
		return nil, err
	}
	d.bufferSize[r] = info.Size
	return &fakeBuffer{ref: r}, nil
}

func (d *Device) BufferMemoryRequirements(buffer core1_0.Buffer) core1_0.MemoryRequirements {
	r := d.use(buffer, KindBuffer, "buffer memory requirements")
	return core1_0.MemoryRequirements{
		Size:           d.bufferSize[r],
		Alignment:      4,
		MemoryTypeBits: d.memoryTypeBits(),
	}
}

func (d *Device) BindBufferMemory(buffer core1_0.Buffer, memory core1_0.DeviceMemory) error {
	r := d.use(buffer, KindBuffer, "bind buffer memory")
	m := d.use(memory, KindMemory, "bind buffer memory")
	d.owner[r] = m
	return nil
}

func (d *Device) DestroyBuffer(buffer core1_0.Buffer) {
	d.destroy(buffer, KindBuffer)
}

func (d *Device) CreateImage(info core1_0.ImageCreateInfo) (core1_0.Image, error) {
	if info.Extent.Width <= 0 || info.Extent.Height <= 0 {
		return nil, errors.Newf("image extent must be positive, got %dx%d", info.Extent.Width, info.Extent.Height)
	}
	r, err := d.create(KindImage)
	if err != nil {
		return nil, err
	}
	d.imageInfo[r] = info
	d.Images = append(d.Images, info)
	return &fakeImage{ref: r}, nil
}

func (d *Device) rowPitch(info core1_0.ImageCreateInfo) int {
	pitch := info.Extent.Width * 4
	if info.Tiling == core1_0.ImageTilingLinear && d.RowPitchAlignment > 0 {
		pitch = (pitch + d.RowPitchAlignment - 1) / d.RowPitchAlignment * d.RowPitchAlignment
	}
	return pitch
}

func (d *Device) ImageMemoryRequirements(image core1_0.Image) core1_0.MemoryRequirements {
	r := d.use(image, KindImage, "image memory requirements")
	info := d.imageInfo[r]
	samples := int(info.Samples)
	if samples < 1 {
		samples = 1
	}
	return core1_0.MemoryRequirements{
		Size:           d.rowPitch(info) * info.Extent.Height * samples,
		Alignment:      4,
		MemoryTypeBits: d.memoryTypeBits(),
	}
}

func (d *Device) ImageSubresourceLayout(image core1_0.Image, subresource core1_0.ImageSubresource) core1_0.SubresourceLayout {
	r := d.use(image, KindImage, "image subresource layout")
	info := d.imageInfo[r]
	pitch := d.rowPitch(info)
	return core1_0.SubresourceLayout{
		Offset:   0,
		Size:     pitch * info.Extent.Height,
		RowPitch: pitch,
	}
}

func (d *Device) BindImageMemory(image core1_0.Image, memory core1_0.DeviceMemory) error {
	r := d.use(image, KindImage, "bind image memory")
	m := d.use(memory, KindMemory, "bind image memory")
	d.owner[r] = m
	return nil
}

func (d *Device) DestroyImage(image core1_0.Image) {
	d.destroy(image, KindImage)
}

func (d *Device) memoryTypeBits() uint32 {
	if d.MemoryTypeBits != 0 {
		return d.MemoryTypeBits
	}
	return uint32(1)<<d.memoryTypeCount - 1
}

func (d *Device) AllocateMemory(info core1_0.MemoryAllocateInfo) (core1_0.DeviceMemory, error) {
	if info.MemoryTypeIndex < 0 || info.MemoryTypeIndex >= d.memoryTypeCount {
		return nil, errors.Newf("memory type index %d out of range", info.MemoryTypeIndex)
	}
	r, err := d.create(KindMemory)
	if err != nil {
		return nil, err
	}
	d.memory[r] = make([]byte, info.AllocationSize)
	return &fakeMemory{ref: r}, nil
}

func (d *Device) MapMemory(memory core1_0.DeviceMemory, offset, size int) ([]byte, error) {
	r := d.use(memory, KindMemory, "map memory")
	backing := d.memory[r]
	if offset < 0 || offset+size > len(backing) {
		return nil, errors.Newf("map range [%d, %d) exceeds allocation of %d bytes", offset, offset+size, len(backing))
	}
	return backing[offset : offset+size], nil
}

func (d *Device) UnmapMemory(memory core1_0.DeviceMemory) {
	d.use(memory, KindMemory, "unmap memory")
}

func (d *Device) FreeMemory(memory core1_0.DeviceMemory) {
	d.destroy(memory, KindMemory)
}

// Contents returns the bytes backing the memory bound to a buffer or image.
func (d *Device) Contents(resource any) []byte {
	return d.memory[d.owner[refOf(resource)]]
}

func (d *Device) CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	image := refOf(info.Image)
	if image.kind == KindSwapchainImage {
		d.use(info.Image, KindSwapchainImage, "create image view")
	} else {
		d.use(info.Image, KindImage, "create image view")
	}
	r, err := d.create(KindImageView)
	if err != nil {
		return nil, err
	}
	d.owner[r] = image
	return &fakeImageView{ref: r}, nil
}

func (d *Device) DestroyImageView(view core1_0.ImageView) {
	d.destroy(view, KindImageView)
}

func (d *Device) CreateSampler(info core1_0.SamplerCreateInfo) (core1_0.Sampler, error) {
	r, err := d.create(KindSampler)
	if err != nil {
		return nil, err
	}
	d.Samplers = append(d.Samplers, info)
	return &fakeSampler{ref: r}, nil
}

func (d *Device) DestroySampler(sampler core1_0.Sampler) {
	d.destroy(sampler, KindSampler)
}

func (d *Device) CreateRenderPass(info core1_0.RenderPassCreateInfo) (core1_0.RenderPass, error) {
	r, err := d.create(KindRenderPass)
	if err != nil {
		return nil, err
	}
	d.RenderPasses = append(d.RenderPasses, info)
	return &fakeRenderPass{ref: r}, nil
}

func (d *Device) DestroyRenderPass(renderPass core1_0.RenderPass) {
	d.destroy(renderPass, KindRenderPass)
}

func (d *Device) CreateFramebuffer(info core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, error) {
	renderPass := d.use(info.RenderPass, KindRenderPass, "create framebuffer")
	var views []ref
	for _, view := range info.Attachments {
		views = append(views, d.use(view, KindImageView, "create framebuffer"))
	}
	r, err := d.create(KindFramebuffer)
	if err != nil {
		return nil, err
	}
	d.references[r] = append(views, renderPass)
	return &fakeFramebuffer{ref: r}, nil
}

func (d *Device) DestroyFramebuffer(framebuffer core1_0.Framebuffer) {
	d.destroy(framebuffer, KindFramebuffer)
}

func (d *Device) CreateShaderModule(code []uint32) (core1_0.ShaderModule, error) {
	if len(code) == 0 {
		return nil, errors.New("empty shader code")
	}
	r, err := d.create(KindShaderModule)
	if err != nil {
		return nil, err
	}
	return &fakeShaderModule{ref: r}, nil
}

func (d *Device) DestroyShaderModule(module core1_0.ShaderModule) {
	d.destroy(module, KindShaderModule)
}

func (d *Device) CreateDescriptorSetLayout(info core1_0.DescriptorSetLayoutCreateInfo) (core1_0.DescriptorSetLayout, error) {
	r, err := d.create(KindDescriptorSetLayout)
	if err != nil {
		return nil, err
	}
	return &fakeDescriptorSetLayout{ref: r}, nil
}

func (d *Device) DestroyDescriptorSetLayout(layout core1_0.DescriptorSetLayout) {
	d.destroy(layout, KindDescriptorSetLayout)
}

func (d *Device) CreatePipelineLayout(info core1_0.PipelineLayoutCreateInfo) (core1_0.PipelineLayout, error) {
	for _, layout := range info.SetLayouts {
		d.use(layout, KindDescriptorSetLayout, "create pipeline layout")
	}
	r, err := d.create(KindPipelineLayout)
	if err != nil {
		return nil, err
	}
	return &fakePipelineLayout{ref: r}, nil
}

func (d *Device) DestroyPipelineLayout(layout core1_0.PipelineLayout) {
	d.destroy(layout, KindPipelineLayout)
}

func (d *Device) CreateGraphicsPipeline(info core1_0.GraphicsPipelineCreateInfo) (core1_0.Pipeline, error) {
	renderPass := d.use(info.RenderPass, KindRenderPass, "create pipeline")
	layout := d.use(info.Layout, KindPipelineLayout, "create pipeline")
	for _, stage := range info.Stages {
		d.use(stage.Module, KindShaderModule, "create pipeline")
	}
	r, err := d.create(KindPipeline)
	if err != nil {
		return nil, err
	}
	d.references[r] = []ref{renderPass, layout}
	d.Pipelines = append(d.Pipelines, info)
	return &fakePipeline{ref: r}, nil
}

func (d *Device) DestroyPipeline(pipeline core1_0.Pipeline) {
	d.destroy(pipeline, KindPipeline)
}

func (d *Device) CreateDescriptorPool(info core1_0.DescriptorPoolCreateInfo) (core1_0.DescriptorPool, error) {
	r, err := d.create(KindDescriptorPool)
	if err != nil {
		return nil, err
	}
	return &fakeDescriptorPool{ref: r}, nil
}

func (d *Device) AllocateDescriptorSet(pool core1_0.DescriptorPool, layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, error) {
	p := d.use(pool, KindDescriptorPool, "allocate descriptor set")
	d.use(layout, KindDescriptorSetLayout, "allocate descriptor set")
	r, err := d.create(KindDescriptorSet)
	if err != nil {
		return nil, err
	}
	d.owner[r] = p
	return &fakeDescriptorSet{ref: r}, nil
}

func (d *Device) UpdateDescriptorSets(writes []core1_0.WriteDescriptorSet) error {
	for _, write := range writes {
		d.use(write.DstSet, KindDescriptorSet, "update descriptor set")
		for _, info := range write.BufferInfo {
			d.use(info.Buffer, KindBuffer, "update descriptor set")
		}
		for _, info := range write.ImageInfo {
			d.use(info.ImageView, KindImageView, "update descriptor set")
			d.use(info.Sampler, KindSampler, "update descriptor set")
		}
	}
	return nil
}

func (d *Device) DestroyDescriptorPool(pool core1_0.DescriptorPool) {
	r := d.destroy(pool, KindDescriptorPool)
	d.release(r, KindDescriptorSet)
}

func (d *Device) CreateCommandPool(info core1_0.CommandPoolCreateInfo) (core1_0.CommandPool, error) {
	r, err := d.create(KindCommandPool)
	if err != nil {
		return nil, err
	}
	d.CommandPools = append(d.CommandPools, info)
	return &fakeCommandPool{ref: r}, nil
}

func (d *Device) AllocateCommandBuffers(pool core1_0.CommandPool, count int) ([]gpu.CommandBuffer, error) {
	p := d.use(pool, KindCommandPool, "allocate command buffers")
	var buffers []gpu.CommandBuffer
	for i := 0; i < count; i++ {
		r, err := d.create(KindCommandBuffer)
		if err != nil {
			return nil, err
		}
		d.owner[r] = p
		buffers = append(buffers, &CommandBuffer{device: d, ref: r})
	}
	return buffers, nil
}

func (d *Device) FreeCommandBuffers(buffers []gpu.CommandBuffer) {
	for _, buffer := range buffers {
		d.destroy(buffer.(*CommandBuffer).ref, KindCommandBuffer)
	}
}

func (d *Device) DestroyCommandPool(pool core1_0.CommandPool) {
	r := d.destroy(pool, KindCommandPool)
	d.release(r, KindCommandBuffer)
}

func (d *Device) CreateSemaphore() (core1_0.Semaphore, error) {
	r, err := d.create(KindSemaphore)
	if err != nil {
		return nil, err
	}
	return &fakeSemaphore{ref: r}, nil
}

func (d *Device) DestroySemaphore(semaphore core1_0.Semaphore) {
	d.destroy(semaphore, KindSemaphore)
}
