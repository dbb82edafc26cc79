package cpu

import "fmt"

type opFunc func(emu *EMU) error

// Dispatch is two levels deep. The top nibble picks an entry in table;
// families 0, 8 and E resolve through a second table on the low nibble and
// family F on the low byte. Unused slots hold opInvalid.
var (
	table  [16]opFunc
	table0 [16]opFunc
	table8 [16]opFunc
	tableE [16]opFunc
	tableF [256]opFunc
)

func init() {
	table = [16]opFunc{
		(*EMU).dispatch0, (*EMU).op1nnn, (*EMU).op2nnn, (*EMU).op3xkk,
		(*EMU).op4xkk, (*EMU).op5xy0, (*EMU).op6xkk, (*EMU).op7xkk,
		(*EMU).dispatch8, (*EMU).op9xy0, (*EMU).opAnnn, (*EMU).opBnnn,
		(*EMU).opCxkk, (*EMU).opDxyn, (*EMU).dispatchE, (*EMU).dispatchF,
	}

	for i := range table0 {
		table0[i] = (*EMU).opInvalid
		table8[i] = (*EMU).opInvalid
		tableE[i] = (*EMU).opInvalid
	}
	for i := range tableF {
		tableF[i] = (*EMU).opInvalid
	}

	table0[0x0] = (*EMU).op00E0
	table0[0xE] = (*EMU).op00EE

	table8[0x0] = (*EMU).op8xy0
	table8[0x1] = (*EMU).op8xy1
	table8[0x2] = (*EMU).op8xy2
	table8[0x3] = (*EMU).op8xy3
	table8[0x4] = (*EMU).op8xy4
	table8[0x5] = (*EMU).op8xy5
	table8[0x6] = (*EMU).op8xy6
	table8[0x7] = (*EMU).op8xy7
	table8[0xE] = (*EMU).op8xyE

	tableE[0x1] = (*EMU).opExA1
	tableE[0xE] = (*EMU).opEx9E

	tableF[0x07] = (*EMU).opFx07
	tableF[0x0A] = (*EMU).opFx0A
	tableF[0x15] = (*EMU).opFx15
	tableF[0x18] = (*EMU).opFx18
	tableF[0x1E] = (*EMU).opFx1E
	tableF[0x29] = (*EMU).opFx29
	tableF[0x33] = (*EMU).opFx33
	tableF[0x55] = (*EMU).opFx55
	tableF[0x65] = (*EMU).opFx65
}

func (emu *EMU) x() uint8 { return uint8(emu.opcode>>8) & 0xF }
func (emu *EMU) y() uint8 { return uint8(emu.opcode>>4) & 0xF }
func (emu *EMU) n() uint8 { return uint8(emu.opcode) & 0xF }
func (emu *EMU) kk() uint8 { return uint8(emu.opcode) }
func (emu *EMU) nnn() uint16 { return emu.opcode & 0x0FFF }

func (emu *EMU) opInvalid() error {
	return ErrInvalidOpcode
}

// the secondary tables only key on part of the word, so the rest of it is
// checked here before dispatching.

func (emu *EMU) dispatch0() error {
	if emu.opcode&0xFFF0 != 0x00E0 {
		return ErrInvalidOpcode
	}
	return table0[emu.n()](emu)
}

func (emu *EMU) dispatch8() error {
	return table8[emu.n()](emu)
}

func (emu *EMU) dispatchE() error {
	if kk := emu.kk(); kk != 0x9E && kk != 0xA1 {
		return ErrInvalidOpcode
	}
	return tableE[emu.n()](emu)
}

func (emu *EMU) dispatchF() error {
	return tableF[emu.kk()](emu)
}

func (emu *EMU) skipIf(cond bool) {
	if cond {
		emu.pc += 2
	}
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// checkRange fails unless [addr, addr+n) lies inside memory.
func checkRange(addr uint16, n int) error {
	if int(addr)+n > MemorySize {
		return fmt.Errorf("%d bytes at 0x%04X: %w", n, addr, ErrMemoryOutOfBounds)
	}
	return nil
}

// 00E0 - CLS
func (emu *EMU) op00E0() error {
	emu.display = Framebuffer{}
	emu.updateScreen = true
	return nil
}

// 00EE - RET
func (emu *EMU) op00EE() error {
	if emu.sp == 0 {
		return ErrStackUnderflow
	}
	emu.sp--
	emu.pc = emu.stack[emu.sp]
	return nil
}

// 1nnn - JP addr
func (emu *EMU) op1nnn() error {
	emu.pc = emu.nnn()
	return nil
}

// 2nnn - CALL addr. pc already points past the call, so that is what gets
// pushed.
func (emu *EMU) op2nnn() error {
	if int(emu.sp) >= StackSize {
		return ErrStackOverflow
	}
	emu.stack[emu.sp] = emu.pc
	emu.sp++
	emu.pc = emu.nnn()
	return nil
}

// 3xkk - SE Vx, byte
func (emu *EMU) op3xkk() error {
	emu.skipIf(emu.v[emu.x()] == emu.kk())
	return nil
}

// 4xkk - SNE Vx, byte
func (emu *EMU) op4xkk() error {
	emu.skipIf(emu.v[emu.x()] != emu.kk())
	return nil
}

// 5xy0 - SE Vx, Vy
func (emu *EMU) op5xy0() error {
	if emu.n() != 0 {
		return ErrInvalidOpcode
	}
	emu.skipIf(emu.v[emu.x()] == emu.v[emu.y()])
	return nil
}

// 6xkk - LD Vx, byte
func (emu *EMU) op6xkk() error {
	emu.v[emu.x()] = emu.kk()
	return nil
}

// 7xkk - ADD Vx, byte. VF is left alone.
func (emu *EMU) op7xkk() error {
	emu.v[emu.x()] += emu.kk()
	return nil
}

// 8xy0 - LD Vx, Vy
func (emu *EMU) op8xy0() error {
	emu.v[emu.x()] = emu.v[emu.y()]
	return nil
}

// 8xy1 - OR Vx, Vy
func (emu *EMU) op8xy1() error {
	emu.v[emu.x()] |= emu.v[emu.y()]
	return nil
}

// 8xy2 - AND Vx, Vy
func (emu *EMU) op8xy2() error {
	emu.v[emu.x()] &= emu.v[emu.y()]
	return nil
}

// 8xy3 - XOR Vx, Vy
func (emu *EMU) op8xy3() error {
	emu.v[emu.x()] ^= emu.v[emu.y()]
	return nil
}

// The arithmetic ops below write VF after Vx, so for x == F the flag wins.

// 8xy4 - ADD Vx, Vy, VF = carry
func (emu *EMU) op8xy4() error {
	vx, vy := emu.v[emu.x()], emu.v[emu.y()]
	sum := uint16(vx) + uint16(vy)
	emu.v[emu.x()] = uint8(sum)
	emu.v[0xF] = flag(sum > 0xFF)
	return nil
}

// 8xy5 - SUB Vx, Vy, VF = NOT borrow
func (emu *EMU) op8xy5() error {
	vx, vy := emu.v[emu.x()], emu.v[emu.y()]
	emu.v[emu.x()] = vx - vy
	emu.v[0xF] = flag(vx >= vy)
	return nil
}

// 8xy6 - SHR Vx, VF = lsb before the shift
func (emu *EMU) op8xy6() error {
	vx := emu.v[emu.x()]
	emu.v[emu.x()] = vx >> 1
	emu.v[0xF] = vx & 0x1
	return nil
}

// 8xy7 - SUBN Vx, Vy, VF = NOT borrow
func (emu *EMU) op8xy7() error {
	vx, vy := emu.v[emu.x()], emu.v[emu.y()]
	emu.v[emu.x()] = vy - vx
	emu.v[0xF] = flag(vy >= vx)
	return nil
}

// 8xyE - SHL Vx, VF = msb before the shift
func (emu *EMU) op8xyE() error {
	vx := emu.v[emu.x()]
	emu.v[emu.x()] = vx << 1
	emu.v[0xF] = (vx >> 7) & 0x1
	return nil
}

// 9xy0 - SNE Vx, Vy
func (emu *EMU) op9xy0() error {
	if emu.n() != 0 {
		return ErrInvalidOpcode
	}
	emu.skipIf(emu.v[emu.x()] != emu.v[emu.y()])
	return nil
}

// Annn - LD I, addr
func (emu *EMU) opAnnn() error {
	emu.index = emu.nnn()
	return nil
}

// Bnnn - JP V0, addr
func (emu *EMU) opBnnn() error {
	target := uint16(emu.v[0]) + emu.nnn()
	if target >= MemorySize {
		return fmt.Errorf("jump to 0x%04X: %w", target, ErrMemoryOutOfBounds)
	}
	emu.pc = target
	return nil
}

// Cxkk - RND Vx, byte
func (emu *EMU) opCxkk() error {
	emu.v[emu.x()] = uint8(emu.rng.Intn(256)) & emu.kk()
	return nil
}

// Dxyn - DRW Vx, Vy, nibble. The origin wraps onto the screen and so does
// every pixel of the sprite; VF is set if any lit pixel was turned off.
func (emu *EMU) opDxyn() error {
	height := int(emu.n())
	if err := checkRange(emu.index, height); err != nil {
		return err
	}

	x := int(emu.v[emu.x()]) % Width
	y := int(emu.v[emu.y()]) % Height

	collision := false
	for row := 0; row < height; row++ {
		sprite := emu.memory[int(emu.index)+row]
		for col := 0; col < 8; col++ {
			if sprite&(0x80>>col) == 0 {
				continue
			}
			pixel := ((y+row)%Height)*Width + (x+col)%Width
			if emu.display[pixel] {
				collision = true
			}
			emu.display[pixel] = !emu.display[pixel]
		}
	}

	emu.v[0xF] = flag(collision)
	emu.updateScreen = true
	return nil
}

// only the low nibble of Vx selects a key, like the VIP's keypad latch.
func (emu *EMU) keyAt(x uint8) bool {
	return emu.keyState[emu.v[x]&0xF]
}

// Ex9E - SKP Vx
func (emu *EMU) opEx9E() error {
	emu.skipIf(emu.keyAt(emu.x()))
	return nil
}

// ExA1 - SKNP Vx
func (emu *EMU) opExA1() error {
	emu.skipIf(!emu.keyAt(emu.x()))
	return nil
}

// Fx07 - LD Vx, DT
func (emu *EMU) opFx07() error {
	emu.v[emu.x()] = emu.delayTimer
	return nil
}

// Fx0A - LD Vx, K. Waiting is done by rewinding pc so the instruction runs
// again next cycle until a key is down.
func (emu *EMU) opFx0A() error {
	for key, pressed := range emu.keyState {
		if pressed {
			emu.v[emu.x()] = uint8(key)
			return nil
		}
	}
	emu.pc -= 2
	return nil
}

// Fx15 - LD DT, Vx
func (emu *EMU) opFx15() error {
	emu.delayTimer = emu.v[emu.x()]
	return nil
}

// Fx18 - LD ST, Vx
func (emu *EMU) opFx18() error {
	emu.soundTimer = emu.v[emu.x()]
	return nil
}

// Fx1E - ADD I, Vx
func (emu *EMU) opFx1E() error {
	emu.index += uint16(emu.v[emu.x()])
	return nil
}

// Fx29 - LD F, Vx
func (emu *EMU) opFx29() error {
	digit := uint16(emu.v[emu.x()] & 0xF)
	emu.index = FontBase + 5*digit
	return nil
}

// Fx33 - LD B, Vx
func (emu *EMU) opFx33() error {
	if err := checkRange(emu.index, 3); err != nil {
		return err
	}
	value := emu.v[emu.x()]
	emu.memory[emu.index] = value / 100
	emu.memory[emu.index+1] = (value / 10) % 10
	emu.memory[emu.index+2] = value % 10
	return nil
}

// Fx55 - LD [I], Vx. V0 through Vx inclusive; I is not modified.
func (emu *EMU) opFx55() error {
	x := int(emu.x())
	if err := checkRange(emu.index, x+1); err != nil {
		return err
	}
	copy(emu.memory[emu.index:], emu.v[:x+1])
	return nil
}

// Fx65 - LD Vx, [I]
func (emu *EMU) opFx65() error {
	x := int(emu.x())
	if err := checkRange(emu.index, x+1); err != nil {
		return err
	}
	copy(emu.v[:x+1], emu.memory[emu.index:])
	return nil
}
