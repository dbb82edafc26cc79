package screen

import (
	"fmt"

	"github.com/faiface/pixel"
	"github.com/faiface/pixel/imdraw"
	"github.com/faiface/pixel/pixelgl"
	"golang.org/x/image/colornames"

	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/keymap"
	"github.com/beanboi7/chyp8/emu/loop"
)

var buttons = map[rune]pixelgl.Button{
	'1': pixelgl.Key1, '2': pixelgl.Key2, '3': pixelgl.Key3, '4': pixelgl.Key4,
	'q': pixelgl.KeyQ, 'w': pixelgl.KeyW, 'e': pixelgl.KeyE, 'r': pixelgl.KeyR,
	'a': pixelgl.KeyA, 's': pixelgl.KeyS, 'd': pixelgl.KeyD, 'f': pixelgl.KeyF,
	'z': pixelgl.KeyZ, 'x': pixelgl.KeyX, 'c': pixelgl.KeyC, 'v': pixelgl.KeyV,
}

// keyMap maps each keypad index to the window button standing in for it.
func keyMap() map[uint16]pixelgl.Button {
	m := make(map[uint16]pixelgl.Button, cpu.NumKeys)
	for _, r := range keymap.Layout {
		key, _ := keymap.Index(r)
		m[uint16(key)] = buttons[r]
	}
	return m
}

// drawPixels fills imd with one square per lit pixel. pixel puts the origin
// at the bottom left, so rows are flipped.
func drawPixels(imd *imdraw.IMDraw, fb *cpu.Framebuffer, scale float64) {
	imd.Clear()
	imd.Color = colornames.White
	for y := 0; y < cpu.Height; y++ {
		for x := 0; x < cpu.Width; x++ {
			if !fb.Pixel(x, y) {
				continue
			}
			px := float64(x) * scale
			py := float64(cpu.Height-1-y) * scale
			imd.Push(pixel.V(px, py), pixel.V(px+scale, py+scale))
			imd.Rectangle(0)
		}
	}
}

func debugTitle(st loop.Status) string {
	return fmt.Sprintf("%s | %04X %s | %d Hz", title, st.Opcode, st.Instr, st.Clock)
}
