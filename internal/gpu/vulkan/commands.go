package vulkan

import (
	"github.com/vkngwrapper/core/core1_0"
)

type commandBuffer struct {
	buffer core1_0.CommandBuffer
}

func (c *commandBuffer) Begin(flags core1_0.CommandBufferUsageFlags) error {
	_, err := c.buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: flags,
	})
	return err
}

func (c *commandBuffer) End() error {
	_, err := c.buffer.End()
	return err
}

func (c *commandBuffer) BeginRenderPass(info core1_0.RenderPassBeginInfo) error {
	return c.buffer.CmdBeginRenderPass(core1_0.SubpassContentsInline, info)
}

func (c *commandBuffer) EndRenderPass() {
	c.buffer.CmdEndRenderPass()
}

func (c *commandBuffer) BindPipeline(pipeline core1_0.Pipeline) {
	c.buffer.CmdBindPipeline(core1_0.PipelineBindPointGraphics, pipeline)
}

func (c *commandBuffer) BindVertexBuffer(buffer core1_0.Buffer) {
	c.buffer.CmdBindVertexBuffers(0, []core1_0.Buffer{buffer}, []int{0})
}

func (c *commandBuffer) BindIndexBuffer(buffer core1_0.Buffer, indexType core1_0.IndexType) {
	c.buffer.CmdBindIndexBuffer(buffer, 0, indexType)
}

func (c *commandBuffer) BindDescriptorSet(layout core1_0.PipelineLayout, set core1_0.DescriptorSet) {
	c.buffer.CmdBindDescriptorSets(core1_0.PipelineBindPointGraphics, layout, []core1_0.DescriptorSet{set}, nil)
}

func (c *commandBuffer) DrawIndexed(indexCount int) {
	c.buffer.CmdDrawIndexed(indexCount, 1, 0, 0, 0)
}

func (c *commandBuffer) CopyBuffer(src, dst core1_0.Buffer, size int) error {
	return c.buffer.CmdCopyBuffer(src, dst, []core1_0.BufferCopy{
		{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	})
}

func (c *commandBuffer) CopyImage(src, dst core1_0.Image, width, height int) error {
	subresource := core1_0.ImageSubresourceLayers{
		AspectMask:     core1_0.ImageAspectColor,
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}

	return c.buffer.CmdCopyImage(src, core1_0.ImageLayoutTransferSrcOptimal, dst, core1_0.ImageLayoutTransferDstOptimal, []core1_0.ImageCopy{
		{
			SrcSubresource: subresource,
			SrcOffset:      core1_0.Offset3D{X: 0, Y: 0, Z: 0},
			DstSubresource: subresource,
			DstOffset:      core1_0.Offset3D{X: 0, Y: 0, Z: 0},
			Extent:         core1_0.Extent3D{Width: width, Height: height, Depth: 1},
		},
	})
}

func (c *commandBuffer) PipelineBarrier(srcStage, dstStage core1_0.PipelineStageFlags, barrier core1_0.ImageMemoryBarrier) error {
	return c.buffer.CmdPipelineBarrier(srcStage, dstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
}
