// Package loop drives an EMU in real time: it runs instructions at the
// configured clock rate, ticks the timers at their own rate and hands each
// frame to a front end.
package loop

import (
	"context"
	"log/slog"
	"time"

	"github.com/beanboi7/chyp8/config"
	"github.com/beanboi7/chyp8/emu/cpu"
)

// maxLag caps how much wall time a single frame may catch up on, so a
// stalled host does not come back to a burst of thousands of cycles.
const maxLag = 250 * time.Millisecond

// Status carries the diagnostics a front end may want to show.
type Status struct {
	Opcode uint16
	Instr  string
	Clock  int
	Redraw bool // framebuffer changed since the last frame
	Sound  bool // sound timer is running
}

// Frontend is the window or terminal the machine is shown in.
type Frontend interface {
	Closed() bool
	Keys() [cpu.NumKeys]bool
	Present(fb *cpu.Framebuffer, st Status) error
}

type Loop struct {
	emu *cpu.EMU
	fe  Frontend
	log *slog.Logger

	clock       int
	cyclePeriod time.Duration
	timerPeriod time.Duration
	framePeriod time.Duration

	cycleLag time.Duration
	timerLag time.Duration
}

// New builds a loop for emu. The machine should be created with
// cpu.WithCoupledTimers(false); the loop ticks the timers itself.
func New(emu *cpu.EMU, fe Frontend, cfg config.Config, log *slog.Logger) *Loop {
	return &Loop{
		emu:         emu,
		fe:          fe,
		log:         log,
		clock:       cfg.Clock,
		cyclePeriod: time.Second / time.Duration(cfg.Clock),
		timerPeriod: time.Second / time.Duration(cfg.Timer),
		framePeriod: time.Second / time.Duration(cfg.Refresh),
	}
}

// Advance latches the front end's keypad and then runs the timer ticks and
// instructions owed for dt of wall time. A fatal machine error stops it
// early and is returned.
func (l *Loop) Advance(dt time.Duration) error {
	if dt > maxLag {
		l.log.Debug("dropping lag", "lag", dt-maxLag)
		dt = maxLag
	}

	l.emu.SetKeys(l.fe.Keys())

	l.timerLag += dt
	for l.timerLag >= l.timerPeriod {
		l.timerLag -= l.timerPeriod
		l.emu.TickTimers()
	}

	l.cycleLag += dt
	for l.cycleLag >= l.cyclePeriod {
		l.cycleLag -= l.cyclePeriod
		if err := l.emu.Cycle(); cpu.IsFatal(err) {
			return err
		}
	}
	return nil
}

// Frame advances by dt and presents the result.
func (l *Loop) Frame(dt time.Duration) error {
	if err := l.Advance(dt); err != nil {
		return err
	}

	st := Status{
		Opcode: l.emu.LastOpcode(),
		Instr:  cpu.Disassemble(l.emu.LastOpcode()),
		Clock:  l.clock,
		Redraw: l.emu.DrawFlag(),
		Sound:  l.emu.SoundTimer() > 0,
	}
	l.emu.ClearDrawFlag()

	fb := l.emu.Display()
	return l.fe.Present(&fb, st)
}

// Run produces frames at the refresh rate until the front end closes, the
// context is cancelled or the machine fails.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.framePeriod)
	defer ticker.Stop()

	last := time.Now()
	for !l.fe.Closed() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := l.Frame(now.Sub(last)); err != nil {
				l.log.Error("emulation halted", "err", err)
				return err
			}
			last = now
		}
	}
	return nil
}
