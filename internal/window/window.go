// Package window wraps the SDL2 window the renderer presents to.
package window

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
)

// Window is a resizable SDL2 window with Vulkan support. All methods must be
// called from the thread that opened it.
type Window struct {
	window *sdl.Window

	minimized      bool
	resized        bool
	closeRequested bool
}

// Open initializes SDL video and creates the window.
func Open(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "initialize sdl")
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return &Window{window: window}, nil
}

// SDL exposes the underlying window for surface creation.
func (w *Window) SDL() *sdl.Window {
	return w.window
}

// Poll drains pending events. It reports whether the window was resized
// since the previous call.
func (w *Window) Poll() (resized bool) {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.closeRequested = true
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_MINIMIZED:
				w.minimized = true
			case sdl.WINDOWEVENT_RESTORED:
				w.minimized = false
			case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
				w.resized = true
			}
		}
	}

	resized, w.resized = w.resized, false
	return resized
}

// Minimized reports whether there is nothing to draw into.
func (w *Window) Minimized() bool {
	if w.minimized {
		return true
	}
	width, height := w.DrawableSize()
	return width == 0 || height == 0
}

// DrawableSize is the size in pixels of the Vulkan drawable.
func (w *Window) DrawableSize() (width, height int) {
	widthInt, heightInt := w.window.VulkanGetDrawableSize()
	return int(widthInt), int(heightInt)
}

func (w *Window) SetTitle(title string) {
	w.window.SetTitle(title)
}

// RequestClose makes ShouldClose report true.
func (w *Window) RequestClose() {
	w.closeRequested = true
}

func (w *Window) ShouldClose() bool {
	return w.closeRequested
}

// Destroy closes the window and shuts SDL down.
func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}
