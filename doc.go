/*
Package gpu models the synchronization and presentation subsystem of a
Vulkan-style graphics API: fences, semaphores, events, surfaces, swapchains,
and descriptor pools, with the semantics those objects carry in a real
driver but implemented as a self-contained, driver-independent core.

Queue execution runs on worker goroutines standing in for the GPU timeline,
and each swapchain owns a presentation worker standing in for the
presentation engine, so every contract - fence reuse rules, the semaphore
signal/wait protocol, the per-image free/acquired/presenting state machine,
descriptor pool exhaustion and reset invalidation - is enforced and
observable on the CPU rather than delegated to a native driver.

The usual frame loop looks the same as it would against the native API:

	fence.Wait(gpu.NoTimeout)
	fence.Reset()
	index, err := swapchain.AcquireNextImage(gpu.NoTimeout, imageAvailable, nil)
	queue.Submit(fence, []gpu.SubmitOptions{{
		WaitSemaphores:   []*gpu.Semaphore{imageAvailable},
		Work:             func() { render(swapchain.Images()[index]) },
		SignalSemaphores: []*gpu.Semaphore{renderFinished},
	}})
	err = swapchain.Present(index, renderFinished)

AcquireNextImage and Present report ErrOutOfDate when the surface no longer
matches the swapchain; the caller recreates the swapchain against the same
surface, passing the retired one as OldSwapchain so its in-flight images can
drain.

Window creation and input stay outside this package. The platform side is
abstracted behind the Windower interface; the sdlwin subpackage adapts an
SDL2 window to it.
*/
package gpu
