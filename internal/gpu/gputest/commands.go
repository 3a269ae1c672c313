package gputest

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

// Command is one recorded command.
type Command struct {
	Name    string
	Barrier core1_0.ImageMemoryBarrier

	SrcStage, DstStage core1_0.PipelineStageFlags

	refs []ref
	run  func()
}

// CommandBuffer records commands and replays copies when submitted.
type CommandBuffer struct {
	device *Device
	ref

	Flags     core1_0.CommandBufferUsageFlags
	Commands  []Command
	recording bool
	ended     bool
}

var _ gpu.CommandBuffer = (*CommandBuffer)(nil)

func (c *CommandBuffer) record(name string, handles ...any) *Command {
	if !c.recording {
		c.device.violate("%s: %s recorded outside Begin/End", name, c.ref)
	}
	cmd := Command{Name: name}
	for _, handle := range handles {
		cmd.refs = append(cmd.refs, c.device.use(handle, refOf(handle).kind, name))
	}
	c.Commands = append(c.Commands, cmd)
	return &c.Commands[len(c.Commands)-1]
}

// Names lists the recorded command names in order.
func (c *CommandBuffer) Names() []string {
	names := make([]string, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		names = append(names, cmd.Name)
	}
	return names
}

func (c *CommandBuffer) Begin(flags core1_0.CommandBufferUsageFlags) error {
	c.device.use(c.ref, KindCommandBuffer, "begin command buffer")
	c.Flags = flags
	c.Commands = nil
	c.recording = true
	c.ended = false
	return nil
}

func (c *CommandBuffer) End() error {
	if !c.recording {
		return errors.Newf("%s: end without begin", c.ref)
	}
	c.recording = false
	c.ended = true
	return nil
}

func (c *CommandBuffer) BeginRenderPass(info core1_0.RenderPassBeginInfo) error {
	c.record("BeginRenderPass", info.RenderPass, info.Framebuffer)
	return nil
}

func (c *CommandBuffer) EndRenderPass() {
	c.record("EndRenderPass")
}

func (c *CommandBuffer) BindPipeline(pipeline core1_0.Pipeline) {
	c.record("BindPipeline", pipeline)
}

func (c *CommandBuffer) BindVertexBuffer(buffer core1_0.Buffer) {
	c.record("BindVertexBuffer", buffer)
}

func (c *CommandBuffer) BindIndexBuffer(buffer core1_0.Buffer, indexType core1_0.IndexType) {
	c.record("BindIndexBuffer", buffer)
}

func (c *CommandBuffer) BindDescriptorSet(layout core1_0.PipelineLayout, set core1_0.DescriptorSet) {
	c.record("BindDescriptorSet", layout, set)
}

func (c *CommandBuffer) DrawIndexed(indexCount int) {
	c.record("DrawIndexed")
}

func (c *CommandBuffer) CopyBuffer(src, dst core1_0.Buffer, size int) error {
	cmd := c.record("CopyBuffer", src, dst)
	d := c.device
	cmd.run = func() {
		copy(d.Contents(dst)[:size], d.Contents(src)[:size])
	}
	return nil
}

func (c *CommandBuffer) CopyImage(src, dst core1_0.Image, width, height int) error {
	cmd := c.record("CopyImage", src, dst)
	d := c.device
	cmd.run = func() {
		srcPitch := d.rowPitch(d.imageInfo[refOf(src)])
		dstPitch := d.rowPitch(d.imageInfo[refOf(dst)])
		srcBytes, dstBytes := d.Contents(src), d.Contents(dst)
		for y := 0; y < height; y++ {
			copy(dstBytes[y*dstPitch:y*dstPitch+width*4], srcBytes[y*srcPitch:y*srcPitch+width*4])
		}
	}
	return nil
}

func (c *CommandBuffer) PipelineBarrier(srcStage, dstStage core1_0.PipelineStageFlags, barrier core1_0.ImageMemoryBarrier) error {
	cmd := c.record("PipelineBarrier", barrier.Image)
	cmd.Barrier = barrier
	cmd.SrcStage = srcStage
	cmd.DstStage = dstStage
	return nil
}

// Queue is a synthetic device queue.
type Queue struct {
	device *Device
	Family int
}

var _ gpu.Queue = (*Queue)(nil)

// stale returns the first handle reachable from refs that is no longer live.
func (d *Device) stale(refs []ref) (ref, bool) {
	for _, r := range refs {
		if !d.live[r] {
			return r, true
		}
		if dep, ok := d.stale(d.references[r]); ok {
			return dep, true
		}
	}
	return ref{}, false
}

func (q *Queue) Submit(s gpu.Submission) error {
	d := q.device
	buffer := s.Commands.(*CommandBuffer)
	d.use(buffer.ref, KindCommandBuffer, "submit")
	if !buffer.ended {
		d.violate("submit: %s was not ended", buffer.ref)
	}
	if s.Wait != nil {
		w := d.use(s.Wait, KindSemaphore, "submit wait")
		if !d.signaled[w] {
			d.violate("submit: waits on unsignaled %s", w)
		}
		d.signaled[w] = false
	}
	for _, cmd := range buffer.Commands {
		if r, ok := d.stale(cmd.refs); ok {
			d.violate("submit: %s in %s references destroyed %s", cmd.Name, buffer.ref, r)
		}
	}
	for _, cmd := range buffer.Commands {
		if cmd.run != nil {
			cmd.run()
		}
	}
	if s.Signal != nil {
		d.signaled[d.use(s.Signal, KindSemaphore, "submit signal")] = true
	}
	d.busy = true
	d.Submits++
	return nil
}

func (q *Queue) Present(swapchain gpu.Swapchain, imageIndex int, wait core1_0.Semaphore) (gpu.Status, error) {
	d := q.device
	sc := swapchain.(*Swapchain)
	d.use(sc.ref, KindSwapchain, "present")
	if imageIndex < 0 || imageIndex >= len(sc.images) {
		return gpu.StatusSuccess, errors.Newf("present: image index %d out of range", imageIndex)
	}
	if wait != nil {
		w := d.use(wait, KindSemaphore, "present wait")
		if !d.signaled[w] {
			d.violate("present: waits on unsignaled %s", w)
		}
		d.signaled[w] = false
	}
	d.busy = true
	d.Presents++
	return pop(&d.PresentResults), nil
}

func (q *Queue) WaitIdle() error {
	return q.device.wait()
}

// Swapchain is a synthetic swapchain whose image count equals the requested
// minimum.
type Swapchain struct {
	device *Device
	ref

	Request gpu.SwapchainRequest
	images  []*fakeImage
	next    int
}

var _ gpu.Swapchain = (*Swapchain)(nil)

func (s *Swapchain) Images() ([]core1_0.Image, error) {
	images := make([]core1_0.Image, 0, len(s.images))
	for _, image := range s.images {
		images = append(images, image)
	}
	return images, nil
}

func (s *Swapchain) AcquireNextImage(semaphore core1_0.Semaphore) (int, gpu.Status, error) {
	d := s.device
	d.use(s.ref, KindSwapchain, "acquire")
	sem := d.use(semaphore, KindSemaphore, "acquire")
	d.Acquires++

	status := pop(&d.AcquireResults)
	if status == gpu.StatusOutOfDate {
		return 0, status, nil
	}
	if d.signaled[sem] {
		d.violate("acquire: %s is already signaled", sem)
	}
	d.signaled[sem] = true

	index := s.next
	s.next = (s.next + 1) % len(s.images)
	return index, status, nil
}

func pop(results *[]gpu.Status) gpu.Status {
	if len(*results) == 0 {
		return gpu.StatusSuccess
	}
	status := (*results)[0]
	*results = (*results)[1:]
	return status
}
