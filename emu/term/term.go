// Package term shows the machine in a terminal using termbox.
package term

import (
	"fmt"
	"sync"
	"time"

	"github.com/nsf/termbox-go"

	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/keymap"
	"github.com/beanboi7/chyp8/emu/loop"
)

// Terminals only report key presses, never releases, so a key counts as
// held for this long after its last press or autorepeat.
const keyRepeatDuration = time.Second / 5

// Terminal implements loop.Frontend on top of termbox. Two display rows
// share one character cell.
type Terminal struct {
	mu      sync.Mutex
	pressed [cpu.NumKeys]time.Time
	closed  bool

	debug bool
	now   func() time.Time

	// termbox entry points, swapped out in tests
	pollEvent func() termbox.Event
	interrupt func()
	restore   func()

	done chan struct{} // closed once poll returns
}

// Open takes over the terminal and starts reading keys. Call Close to give
// it back.
func Open(debug bool) (*Terminal, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("initializing terminal: %w", err)
	}
	termbox.SetInputMode(termbox.InputEsc)

	t := newTerminal(debug)
	go t.poll()
	return t, nil
}

func newTerminal(debug bool) *Terminal {
	return &Terminal{
		debug:     debug,
		now:       time.Now,
		pollEvent: termbox.PollEvent,
		interrupt: termbox.Interrupt,
		restore:   termbox.Close,
		done:      make(chan struct{}),
	}
}

// Close stops reading keys and restores the terminal.
func (t *Terminal) Close() {
	select {
	case <-t.done:
	default:
		// The interrupt is only received by a poller blocked in PollEvent,
		// which may exit on its own in the meantime.
		sent := make(chan struct{})
		go func() {
			t.interrupt()
			close(sent)
		}()
		select {
		case <-sent:
			<-t.done
		case <-t.done:
		}
	}
	t.restore()
}

func (t *Terminal) poll() {
	defer close(t.done)
	for {
		ev := t.pollEvent()
		switch ev.Type {
		case termbox.EventKey:
			t.handleKey(ev.Key, ev.Ch)
		case termbox.EventError:
			t.mu.Lock()
			t.closed = true
			t.mu.Unlock()
			return
		case termbox.EventInterrupt:
			return
		}
	}
}

func (t *Terminal) handleKey(key termbox.Key, ch rune) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch key {
	case termbox.KeyEsc, termbox.KeyCtrlC:
		t.closed = true
		return
	}

	if idx, ok := keymap.Index(ch); ok {
		t.pressed[idx] = t.now()
	}
}

// Closed reports whether Escape or Ctrl+C was pressed.
func (t *Terminal) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Keys reports the keys pressed within the last keyRepeatDuration.
func (t *Terminal) Keys() [cpu.NumKeys]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	var keys [cpu.NumKeys]bool
	now := t.now()
	for i, at := range t.pressed {
		keys[i] = !at.IsZero() && now.Sub(at) < keyRepeatDuration
	}
	return keys
}

// Present redraws the screen when the framebuffer changed, and the status
// line in debug mode.
func (t *Terminal) Present(fb *cpu.Framebuffer, st loop.Status) error {
	if !st.Redraw && !t.debug {
		return nil
	}

	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		return fmt.Errorf("clearing terminal: %w", err)
	}
	for y, row := range rows(fb) {
		for x, ch := range row {
			termbox.SetCell(x, y, ch, termbox.ColorWhite, termbox.ColorDefault)
		}
	}
	if t.debug {
		for x, ch := range statusLine(st) {
			termbox.SetCell(x, cpu.Height/2, ch, termbox.ColorYellow, termbox.ColorDefault)
		}
	}

	if err := termbox.Flush(); err != nil {
		return fmt.Errorf("flushing terminal: %w", err)
	}
	return nil
}

// rows renders fb as half-block characters, one string per pair of display
// rows.
func rows(fb *cpu.Framebuffer) []string {
	out := make([]string, 0, cpu.Height/2)
	for y := 0; y < cpu.Height; y += 2 {
		row := make([]rune, cpu.Width)
		for x := range row {
			top, bottom := fb.Pixel(x, y), fb.Pixel(x, y+1)
			switch {
			case top && bottom:
				row[x] = '█'
			case top:
				row[x] = '▀'
			case bottom:
				row[x] = '▄'
			default:
				row[x] = ' '
			}
		}
		out = append(out, string(row))
	}
	return out
}

func statusLine(st loop.Status) string {
	line := fmt.Sprintf("%04X %-16s %d Hz", st.Opcode, st.Instr, st.Clock)
	if st.Sound {
		line += " BEEP"
	}
	return line
}
