package vulkan

import (
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/vkngwrapper/vulkan-comparison/internal/gpu"
)

type swapchain struct {
	swapchain khr_swapchain.Swapchain
}

func (s *swapchain) Images() ([]core1_0.Image, error) {
	images, _, err := s.swapchain.SwapchainImages()
	return images, err
}

func (s *swapchain) AcquireNextImage(semaphore core1_0.Semaphore) (int, gpu.Status, error) {
	imageIndex, res, err := s.swapchain.AcquireNextImage(common.NoTimeout, semaphore, nil)
	status, err := presentStatus(res, err)
	return imageIndex, status, err
}

type queue struct {
	queue              core1_0.Queue
	swapchainExtension khr_swapchain.Extension
}

func (q *queue) Submit(s gpu.Submission) error {
	info := core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{s.Commands.(*commandBuffer).buffer},
	}
	if s.Wait != nil {
		info.WaitSemaphores = []core1_0.Semaphore{s.Wait}
		info.WaitDstStageMask = []core1_0.PipelineStageFlags{s.WaitStage}
	}
	if s.Signal != nil {
		info.SignalSemaphores = []core1_0.Semaphore{s.Signal}
	}

	_, err := q.queue.Submit(nil, []core1_0.SubmitInfo{info})
	return err
}

func (q *queue) Present(sc gpu.Swapchain, imageIndex int, wait core1_0.Semaphore) (gpu.Status, error) {
	info := khr_swapchain.PresentInfo{
		Swapchains:   []khr_swapchain.Swapchain{sc.(*swapchain).swapchain},
		ImageIndices: []int{imageIndex},
	}
	if wait != nil {
		info.WaitSemaphores = []core1_0.Semaphore{wait}
	}

	res, err := q.swapchainExtension.QueuePresent(q.queue, info)
	return presentStatus(res, err)
}

func (q *queue) WaitIdle() error {
	_, err := q.queue.WaitIdle()
	return err
}

// presentStatus folds the out-of-date and suboptimal results into a Status so
// that only real failures surface as errors.
func presentStatus(res common.VkResult, err error) (gpu.Status, error) {
	switch {
	case res == khr_swapchain.VKErrorOutOfDate:
		return gpu.StatusOutOfDate, nil
	case err != nil:
		return gpu.StatusSuccess, err
	case res == khr_swapchain.VKSuboptimal:
		return gpu.StatusSuboptimal, nil
	}
	return gpu.StatusSuccess, nil
}
