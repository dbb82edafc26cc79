// Package screen shows the machine in an OpenGL window.
package screen

import (
	"fmt"

	"github.com/faiface/pixel"
	"github.com/faiface/pixel/imdraw"
	"github.com/faiface/pixel/pixelgl"
	"golang.org/x/image/colornames"

	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/loop"
)

const title = "Chyp8"

// Window is a pixelgl window that implements loop.Frontend. It must be
// created and driven from inside pixelgl.Run.
type Window struct {
	*pixelgl.Window
	KeyMap map[uint16]pixelgl.Button

	imd   *imdraw.IMDraw
	scale float64
	debug bool
}

// NewWindow opens a window of 64x32 cells, each scale pixels wide.
func NewWindow(scale int, debug bool) (*Window, error) {
	cfg := pixelgl.WindowConfig{
		Title:  title,
		Bounds: pixel.R(0, 0, float64(cpu.Width*scale), float64(cpu.Height*scale)),
		VSync:  true,
	}

	win, err := pixelgl.NewWindow(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating window: %w", err)
	}

	return &Window{
		Window: win,
		KeyMap: keyMap(),
		imd:    imdraw.New(nil),
		scale:  float64(scale),
		debug:  debug,
	}, nil
}

// Closed reports whether the window was closed or Escape is held.
func (w *Window) Closed() bool {
	return w.Window.Closed() || w.Pressed(pixelgl.KeyEscape)
}

// Keys reports the keypad as currently held down.
func (w *Window) Keys() [cpu.NumKeys]bool {
	var keys [cpu.NumKeys]bool
	for key, btn := range w.KeyMap {
		keys[key] = w.Pressed(btn)
	}
	return keys
}

// Present draws fb and polls window events.
func (w *Window) Present(fb *cpu.Framebuffer, st loop.Status) error {
	// Buffers are swapped every frame, so the whole picture is redrawn
	// whether or not it changed.
	w.Clear(colornames.Black)
	drawPixels(w.imd, fb, w.scale)
	w.imd.Draw(w)

	if w.debug {
		w.SetTitle(debugTitle(st))
	}
	w.Update()
	return nil
}
