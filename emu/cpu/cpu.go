package cpu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"
)

const (
	MemorySize   = 4096
	ProgramStart = 0x200
	MaxRomSize   = MemorySize - ProgramStart
	StackSize    = 16
	NumKeys      = 16
	Width        = 64
	Height       = 32
)

// Framebuffer is the 64x32 monochrome display in row-major order.
type Framebuffer [Width * Height]bool

// Pixel reports whether the pixel at (x, y) is lit. Coordinates wrap.
func (fb *Framebuffer) Pixel(x, y int) bool {
	x %= Width
	y %= Height
	if x < 0 {
		x += Width
	}
	if y < 0 {
		y += Height
	}
	return fb[y*Width+x]
}

// Lit counts the pixels that are on.
func (fb *Framebuffer) Lit() int {
	n := 0
	for _, p := range fb {
		if p {
			n++
		}
	}
	return n
}

// EMU holds the whole machine state. It is not safe for concurrent use; the
// host serializes access.
type EMU struct {
	opcode       uint16
	memory       [MemorySize]uint8
	v            [16]uint8
	index        uint16 //address register
	pc           uint16
	display      Framebuffer
	delayTimer   uint8 //counts down at 60Hz
	soundTimer   uint8 //same as above
	stack        [StackSize]uint16
	sp           uint8
	keyState     [NumKeys]bool
	updateScreen bool

	rng           *rand.Rand
	log           *slog.Logger
	coupledTimers bool
}

// Option configures an EMU at construction time. Options survive Reset.
type Option func(emu *EMU)

// WithRand sets the random source used by Cxkk.
func WithRand(rng *rand.Rand) Option {
	return func(emu *EMU) {
		emu.rng = rng
	}
}

// WithSeed seeds the random source used by Cxkk.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithLogger sets the logger. Executed opcodes are traced at debug level.
func WithLogger(log *slog.Logger) Option {
	return func(emu *EMU) {
		emu.log = log
	}
}

// WithCoupledTimers controls whether Cycle decrements the timers after every
// instruction. Hosts running their own 60Hz clock pass false and call
// TickTimers themselves.
func WithCoupledTimers(coupled bool) Option {
	return func(emu *EMU) {
		emu.coupledTimers = coupled
	}
}

// New returns a machine in its power-up state with the font resident.
func New(opts ...Option) *EMU {
	emu := &EMU{
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		coupledTimers: true,
	}
	for _, opt := range opts {
		opt(emu)
	}
	emu.Reset()
	return emu
}

// Reset reinitializes all machine state, keypad and timers included, and
// reinstalls the font. The ROM is not reloaded.
func (emu *EMU) Reset() {
	*emu = EMU{
		pc:            ProgramStart,
		rng:           emu.rng,
		log:           emu.log,
		coupledTimers: emu.coupledTimers,
	}
	emu.loadFont()
}

func (emu *EMU) loadFont() {
	copy(emu.memory[FontBase:], FontSet[:])
}

// Load copies rom into memory at 0x200, replacing any previous program.
func (emu *EMU) Load(rom []byte) error {
	if len(rom) > MaxRomSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrRomTooLarge, len(rom), MaxRomSize)
	}

	program := emu.memory[ProgramStart:]
	n := copy(program, rom)
	for i := n; i < len(program); i++ {
		program[i] = 0
	}

	emu.log.Debug("rom loaded", "bytes", len(rom))
	return nil
}

// LoadFile reads a ROM from disk and loads it.
func (emu *EMU) LoadFile(filename string) error {
	rom, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading rom %s: %w", filename, err)
	}

	if err := emu.Load(rom); err != nil {
		return fmt.Errorf("loading rom %s: %w", filename, err)
	}
	return nil
}

// Cycle fetches, decodes and executes exactly one instruction.
//
// A fatal error leaves pc on the faulting instruction and the rest of the
// state untouched. ErrInvalidOpcode is returned too but execution may go on;
// pc has already moved past the offending word.
func (emu *EMU) Cycle() error {
	pc := emu.pc
	if int(pc)+1 >= MemorySize {
		return fmt.Errorf("fetch at 0x%04X: %w", pc, ErrMemoryOutOfBounds)
	}

	emu.opcode = uint16(emu.memory[pc])<<8 | uint16(emu.memory[pc+1])
	emu.pc += 2

	if emu.log.Enabled(context.Background(), slog.LevelDebug) {
		emu.log.Debug("exec",
			"pc", fmt.Sprintf("0x%04X", pc),
			"opcode", fmt.Sprintf("0x%04X", emu.opcode),
			"instr", Disassemble(emu.opcode),
		)
	}

	err := table[emu.opcode>>12](emu)
	if err != nil {
		if !errors.Is(err, ErrInvalidOpcode) {
			emu.pc = pc
			return fmt.Errorf("opcode 0x%04X at 0x%04X: %w", emu.opcode, pc, err)
		}
		emu.log.Warn("invalid opcode",
			"pc", fmt.Sprintf("0x%04X", pc),
			"opcode", fmt.Sprintf("0x%04X", emu.opcode),
		)
		err = fmt.Errorf("opcode 0x%04X at 0x%04X: %w", emu.opcode, pc, err)
	}

	if emu.coupledTimers {
		emu.TickTimers()
	}
	return err
}

// TickTimers decrements the delay and sound timers once.
func (emu *EMU) TickTimers() {
	if emu.delayTimer > 0 {
		emu.delayTimer--
	}
	if emu.soundTimer > 0 {
		emu.soundTimer--
	}
}

// SetKey records the pressed state of logical key 0x0-0xF.
func (emu *EMU) SetKey(key uint8, pressed bool) error {
	if int(key) >= NumKeys {
		return fmt.Errorf("key 0x%X: %w", key, ErrInvalidKey)
	}
	emu.keyState[key] = pressed
	return nil
}

// SetKeys replaces the whole keypad state.
func (emu *EMU) SetKeys(keys [NumKeys]bool) {
	emu.keyState = keys
}

// Display returns a copy of the framebuffer.
func (emu *EMU) Display() Framebuffer {
	return emu.display
}

// DrawFlag reports whether the framebuffer changed since the last
// ClearDrawFlag.
func (emu *EMU) DrawFlag() bool {
	return emu.updateScreen
}

// ClearDrawFlag acknowledges a redraw.
func (emu *EMU) ClearDrawFlag() {
	emu.updateScreen = false
}

// LastOpcode is the most recently fetched instruction word.
func (emu *EMU) LastOpcode() uint16 {
	return emu.opcode
}

// DelayTimer is the current delay timer value.
func (emu *EMU) DelayTimer() uint8 {
	return emu.delayTimer
}

// SoundTimer is non-zero while a tone should be playing.
func (emu *EMU) SoundTimer() uint8 {
	return emu.soundTimer
}

// PC is the address of the next instruction.
func (emu *EMU) PC() uint16 {
	return emu.pc
}

// Index is the I register.
func (emu *EMU) Index() uint16 {
	return emu.index
}

// SP is the number of return addresses on the stack.
func (emu *EMU) SP() uint8 {
	return emu.sp
}

// Registers returns a copy of V0-VF.
func (emu *EMU) Registers() [16]uint8 {
	return emu.v
}

// Memory returns a copy of n bytes starting at addr.
func (emu *EMU) Memory(addr uint16, n int) ([]byte, error) {
	if n < 0 || int(addr)+n > MemorySize {
		return nil, fmt.Errorf("dump %d bytes at 0x%04X: %w", n, addr, ErrMemoryOutOfBounds)
	}
	out := make([]byte, n)
	copy(out, emu.memory[addr:])
	return out, nil
}
