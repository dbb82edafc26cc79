package cpu

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// exec runs a single opcode body, skipping fetch and the pc advance.
func exec(emu *EMU, op uint16) error {
	emu.opcode = op
	return table[op>>12](emu)
}

type testMachineState struct {
	Registers map[int]uint8
	Index     uint16
	Program   uint16
}

type opTestCase struct {
	Name   string
	Steps  int
	Code   []uint16
	Keys   [NumKeys]bool
	Input  testMachineState
	Output testMachineState
}

func testOpcode(t *testing.T, test *opTestCase) {
	t.Helper()

	emu := newTestEMU(t, test.Code...)
	for r, value := range test.Input.Registers {
		emu.v[r] = value
	}
	emu.index = test.Input.Index
	emu.SetKeys(test.Keys)

	if test.Steps == 0 {
		test.Steps = 1
	}
	run(t, emu, test.Steps)

	want := emu.v
	for r := range want {
		want[r] = test.Input.Registers[r]
	}
	for r, value := range test.Output.Registers {
		want[r] = value
	}
	if diff := cmp.Diff(want, emu.v); diff != "" {
		t.Errorf("registers: (-want, +got)\n%s", diff)
	}

	wantIndex := test.Output.Index
	if wantIndex == 0 {
		wantIndex = test.Input.Index
	}
	if emu.index != wantIndex {
		t.Errorf("index register mismatch\nwant:0x%04X\nhave:0x%04X", wantIndex, emu.index)
	}

	if emu.pc != test.Output.Program {
		t.Errorf("program counter mismatch\nwant:0x%04X\nhave:0x%04X", test.Output.Program, emu.pc)
	}
}

func TestOpcodes(t *testing.T) {
	tests := []opTestCase{
		{
			Name:   "1nnn jump",
			Code:   []uint16{0x1ABC},
			Output: testMachineState{Program: 0xABC},
		},
		{
			Name:   "3xkk skips when equal",
			Code:   []uint16{0x3342},
			Input:  testMachineState{Registers: map[int]uint8{3: 0x42}},
			Output: testMachineState{Program: 0x204},
		},
		{
			Name:   "3xkk no skip",
			Code:   []uint16{0x3342},
			Input:  testMachineState{Registers: map[int]uint8{3: 0x41}},
			Output: testMachineState{Program: 0x202},
		},
		{
			Name:   "4xkk skips when not equal",
			Code:   []uint16{0x4342},
			Input:  testMachineState{Registers: map[int]uint8{3: 0x41}},
			Output: testMachineState{Program: 0x204},
		},
		{
			Name:   "4xkk no skip",
			Code:   []uint16{0x4342},
			Input:  testMachineState{Registers: map[int]uint8{3: 0x42}},
			Output: testMachineState{Program: 0x202},
		},
		{
			Name:   "5xy0 skips when equal",
			Code:   []uint16{0x5120},
			Input:  testMachineState{Registers: map[int]uint8{1: 7, 2: 7}},
			Output: testMachineState{Program: 0x204},
		},
		{
			Name:   "5xy0 no skip",
			Code:   []uint16{0x5120},
			Input:  testMachineState{Registers: map[int]uint8{1: 7, 2: 8}},
			Output: testMachineState{Program: 0x202},
		},
		{
			Name:   "6xkk load",
			Code:   []uint16{0x6E99},
			Output: testMachineState{Registers: map[int]uint8{0xE: 0x99}, Program: 0x202},
		},
		{
			Name:   "7xkk wraps without touching VF",
			Code:   []uint16{0x7102},
			Input:  testMachineState{Registers: map[int]uint8{1: 0xFF, 0xF: 0x5}},
			Output: testMachineState{Registers: map[int]uint8{1: 0x01}, Program: 0x202},
		},
		{
			Name:   "8xy0 copy",
			Code:   []uint16{0x8120},
			Input:  testMachineState{Registers: map[int]uint8{2: 0x33}},
			Output: testMachineState{Registers: map[int]uint8{1: 0x33}, Program: 0x202},
		},
		{
			Name:   "8xy1 or",
			Code:   []uint16{0x8121},
			Input:  testMachineState{Registers: map[int]uint8{1: 0xF0, 2: 0x0F}},
			Output: testMachineState{Registers: map[int]uint8{1: 0xFF}, Program: 0x202},
		},
		{
			Name:   "8xy2 and",
			Code:   []uint16{0x8122},
			Input:  testMachineState{Registers: map[int]uint8{1: 0xF3, 2: 0x3F}},
			Output: testMachineState{Registers: map[int]uint8{1: 0x33}, Program: 0x202},
		},
		{
			Name:   "8xy3 xor",
			Code:   []uint16{0x8123},
			Input:  testMachineState{Registers: map[int]uint8{1: 0xFF, 2: 0x0F}},
			Output: testMachineState{Registers: map[int]uint8{1: 0xF0}, Program: 0x202},
		},
		{
			Name:   "8xy6 shift right lsb set",
			Code:   []uint16{0x8106},
			Input:  testMachineState{Registers: map[int]uint8{1: 0x05}},
			Output: testMachineState{Registers: map[int]uint8{1: 0x02, 0xF: 1}, Program: 0x202},
		},
		{
			Name:   "8xy6 shift right lsb clear",
			Code:   []uint16{0x8106},
			Input:  testMachineState{Registers: map[int]uint8{1: 0x04, 0xF: 1}},
			Output: testMachineState{Registers: map[int]uint8{1: 0x02, 0xF: 0}, Program: 0x202},
		},
		{
			Name:   "8xyE shift left msb set",
			Code:   []uint16{0x810E},
			Input:  testMachineState{Registers: map[int]uint8{1: 0x81}},
			Output: testMachineState{Registers: map[int]uint8{1: 0x02, 0xF: 1}, Program: 0x202},
		},
		{
			Name:   "8xyE shift left msb clear",
			Code:   []uint16{0x810E},
			Input:  testMachineState{Registers: map[int]uint8{1: 0x41, 0xF: 1}},
			Output: testMachineState{Registers: map[int]uint8{1: 0x82, 0xF: 0}, Program: 0x202},
		},
		{
			Name:   "8xy4 into VF keeps the flag",
			Code:   []uint16{0x8F14},
			Input:  testMachineState{Registers: map[int]uint8{1: 0x01, 0xF: 0xFF}},
			Output: testMachineState{Registers: map[int]uint8{0xF: 1}, Program: 0x202},
		},
		{
			Name:   "9xy0 skips when not equal",
			Code:   []uint16{0x9120},
			Input:  testMachineState{Registers: map[int]uint8{1: 1, 2: 2}},
			Output: testMachineState{Program: 0x204},
		},
		{
			Name:   "9xy0 no skip",
			Code:   []uint16{0x9120},
			Input:  testMachineState{Registers: map[int]uint8{1: 2, 2: 2}},
			Output: testMachineState{Program: 0x202},
		},
		{
			Name:   "Annn load index",
			Code:   []uint16{0xA123},
			Output: testMachineState{Index: 0x123, Program: 0x202},
		},
		{
			Name:   "Bnnn jump with offset",
			Code:   []uint16{0xB300},
			Input:  testMachineState{Registers: map[int]uint8{0: 0x04}},
			Output: testMachineState{Program: 0x304},
		},
		{
			Name:   "Ex9E skips when pressed",
			Code:   []uint16{0xE59E},
			Keys:   [NumKeys]bool{0xA: true},
			Input:  testMachineState{Registers: map[int]uint8{5: 0xA}},
			Output: testMachineState{Program: 0x204},
		},
		{
			Name:   "Ex9E no skip",
			Code:   []uint16{0xE59E},
			Input:  testMachineState{Registers: map[int]uint8{5: 0xA}},
			Output: testMachineState{Program: 0x202},
		},
		{
			Name:   "ExA1 skips when released",
			Code:   []uint16{0xE5A1},
			Input:  testMachineState{Registers: map[int]uint8{5: 0xA}},
			Output: testMachineState{Program: 0x204},
		},
		{
			Name:   "ExA1 no skip",
			Code:   []uint16{0xE5A1},
			Keys:   [NumKeys]bool{0xA: true},
			Input:  testMachineState{Registers: map[int]uint8{5: 0xA}},
			Output: testMachineState{Program: 0x202},
		},
		{
			Name:   "Fx0A takes the lowest pressed key",
			Code:   []uint16{0xF30A},
			Keys:   [NumKeys]bool{0x7: true, 0xC: true},
			Output: testMachineState{Registers: map[int]uint8{3: 7}, Program: 0x202},
		},
		{
			Name:   "Fx0A waits",
			Steps:  5,
			Code:   []uint16{0xF30A},
			Output: testMachineState{Program: 0x200},
		},
		{
			Name:   "Fx1E add to index",
			Code:   []uint16{0xF21E},
			Input:  testMachineState{Registers: map[int]uint8{2: 0x10}, Index: 0x300},
			Output: testMachineState{Index: 0x310, Program: 0x202},
		},
		{
			Name:   "Fx29 digit F",
			Code:   []uint16{0xF429},
			Input:  testMachineState{Registers: map[int]uint8{4: 0xF}},
			Output: testMachineState{Index: FontBase + 5*0xF, Program: 0x202},
		},
	}

	for i := range tests {
		test := &tests[i]
		t.Run(test.Name, func(t *testing.T) {
			testOpcode(t, test)
		})
	}
}

func TestAddCarry(t *testing.T) {
	emu := New()
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			emu.v[1], emu.v[2] = uint8(a), uint8(b)
			if err := exec(emu, 0x8124); err != nil {
				t.Fatal(err)
			}
			if emu.v[1] != uint8((a+b)%256) {
				t.Fatalf("%d+%d: V1 = %d, want %d", a, b, emu.v[1], (a+b)%256)
			}
			if emu.v[0xF] != flag(a+b > 255) {
				t.Fatalf("%d+%d: VF = %d", a, b, emu.v[0xF])
			}
		}
	}
}

func TestSubtractBorrow(t *testing.T) {
	emu := New()
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			emu.v[1], emu.v[2] = uint8(a), uint8(b)
			if err := exec(emu, 0x8125); err != nil {
				t.Fatal(err)
			}
			if emu.v[1] != uint8(a-b) {
				t.Fatalf("8xy5 %d-%d: V1 = %d, want %d", a, b, emu.v[1], uint8(a-b))
			}
			if emu.v[0xF] != flag(a >= b) {
				t.Fatalf("8xy5 %d-%d: VF = %d", a, b, emu.v[0xF])
			}

			emu.v[1], emu.v[2] = uint8(a), uint8(b)
			if err := exec(emu, 0x8127); err != nil {
				t.Fatal(err)
			}
			if emu.v[1] != uint8(b-a) {
				t.Fatalf("8xy7 %d-%d: V1 = %d, want %d", b, a, emu.v[1], uint8(b-a))
			}
			if emu.v[0xF] != flag(b >= a) {
				t.Fatalf("8xy7 %d-%d: VF = %d", b, a, emu.v[0xF])
			}
		}
	}
}

func TestSubtractEqual(t *testing.T) {
	emu := New()
	emu.v[3], emu.v[4] = 0x80, 0x80

	if err := exec(emu, 0x8345); err != nil {
		t.Fatal(err)
	}
	if emu.v[3] != 0 || emu.v[0xF] != 1 {
		t.Errorf("V3=%d VF=%d, want 0 and 1", emu.v[3], emu.v[0xF])
	}
}

func TestRandomMask(t *testing.T) {
	emu := New(WithSeed(7))
	for i := 0; i < 1000; i++ {
		if err := exec(emu, 0xC5A0); err != nil {
			t.Fatal(err)
		}
		if emu.v[5]&^0xA0 != 0 {
			t.Fatalf("V5 = 0x%02X escapes mask 0xA0", emu.v[5])
		}
	}
}

func TestBnnnOutOfBounds(t *testing.T) {
	emu := newTestEMU(t, 0xBFFF)
	emu.v[0] = 0x01

	err := emu.Cycle()
	if !errors.Is(err, ErrMemoryOutOfBounds) {
		t.Fatalf("Cycle() error = %v, want ErrMemoryOutOfBounds", err)
	}
	if emu.PC() != 0x200 {
		t.Errorf("pc = 0x%X, want 0x200", emu.PC())
	}
}

func TestDraw(t *testing.T) {
	glyph := func(x, y int) Framebuffer {
		var fb Framebuffer
		for row, bits := range FontSet[:5] {
			for col := 0; col < 8; col++ {
				if bits&(0x80>>col) != 0 {
					fb[((y+row)%Height)*Width+(x+col)%Width] = true
				}
			}
		}
		return fb
	}

	t.Run("only sprite bits lit", func(t *testing.T) {
		emu := newTestEMU(t, 0x00E0, 0xA050, 0xD125)
		emu.v[1], emu.v[2] = 10, 4

		run(t, emu, 3)

		if diff := cmp.Diff(glyph(10, 4), emu.Display()); diff != "" {
			t.Errorf("display: (-want, +got)\n%s", diff)
		}
		if emu.v[0xF] != 0 {
			t.Errorf("VF = %d, want 0", emu.v[0xF])
		}
		if !emu.DrawFlag() {
			t.Errorf("draw flag not set")
		}
	})

	t.Run("double draw erases", func(t *testing.T) {
		emu := newTestEMU(t, 0xA050, 0xD125, 0xD125)
		emu.v[1], emu.v[2] = 10, 4

		run(t, emu, 2)
		if emu.v[0xF] != 0 {
			t.Errorf("first draw VF = %d, want 0", emu.v[0xF])
		}

		run(t, emu, 1)
		if fb := emu.Display(); fb.Lit() != 0 {
			t.Errorf("display has %d lit pixels, want 0", fb.Lit())
		}
		if emu.v[0xF] != 1 {
			t.Errorf("second draw VF = %d, want 1", emu.v[0xF])
		}
	})

	t.Run("pixels wrap", func(t *testing.T) {
		emu := newTestEMU(t, 0xA050, 0xD125)
		emu.v[1], emu.v[2] = 62, 30

		run(t, emu, 2)

		if diff := cmp.Diff(glyph(62, 30), emu.Display()); diff != "" {
			t.Errorf("display: (-want, +got)\n%s", diff)
		}
		fb := emu.Display()
		if !fb.Pixel(0, 30) || !fb.Pixel(62, 0) {
			t.Errorf("expected wrapped pixels at (0,30) and (62,0)")
		}
	})

	t.Run("origin wraps", func(t *testing.T) {
		emu := newTestEMU(t, 0xA050, 0xD125)
		emu.v[1], emu.v[2] = 64+3, 32+1

		run(t, emu, 2)

		if diff := cmp.Diff(glyph(3, 1), emu.Display()); diff != "" {
			t.Errorf("display: (-want, +got)\n%s", diff)
		}
	})

	t.Run("zero height", func(t *testing.T) {
		emu := newTestEMU(t, 0xA050, 0xD120)
		emu.v[0xF] = 1

		run(t, emu, 2)

		if fb := emu.Display(); fb.Lit() != 0 || emu.v[0xF] != 0 {
			t.Errorf("lit=%d VF=%d, want 0 and 0", fb.Lit(), emu.v[0xF])
		}
	})

	t.Run("sprite past end of memory", func(t *testing.T) {
		emu := newTestEMU(t, 0xAFFE, 0xD125)

		run(t, emu, 1)
		err := emu.Cycle()
		if !errors.Is(err, ErrMemoryOutOfBounds) {
			t.Fatalf("Cycle() error = %v, want ErrMemoryOutOfBounds", err)
		}
		if fb := emu.Display(); fb.Lit() != 0 {
			t.Errorf("display touched by failed draw")
		}
		if emu.PC() != 0x202 {
			t.Errorf("pc = 0x%X, want 0x202", emu.PC())
		}
	})
}

func TestBCD(t *testing.T) {
	for _, value := range []uint8{0, 9, 42, 100, 255} {
		emu := New()
		emu.v[6] = value
		emu.index = 0x300

		if err := exec(emu, 0xF633); err != nil {
			t.Fatal(err)
		}

		want := []byte{value / 100, value / 10 % 10, value % 10}
		got, _ := emu.Memory(0x300, 3)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("BCD of %d: (-want, +got)\n%s", value, diff)
		}
	}

	emu := New()
	emu.index = MemorySize - 2
	if err := exec(emu, 0xF033); !errors.Is(err, ErrMemoryOutOfBounds) {
		t.Errorf("BCD at end of memory error = %v, want ErrMemoryOutOfBounds", err)
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	for x := 0; x < 16; x++ {
		emu := New()
		for r := range emu.v {
			emu.v[r] = uint8(0x10*r + 1)
		}
		original := emu.v
		emu.index = 0x400

		if err := exec(emu, 0xF055|uint16(x)<<8); err != nil {
			t.Fatal(err)
		}
		emu.v = [16]uint8{}
		if err := exec(emu, 0xF065|uint16(x)<<8); err != nil {
			t.Fatal(err)
		}

		want := [16]uint8{}
		copy(want[:x+1], original[:x+1])
		if diff := cmp.Diff(want, emu.v); diff != "" {
			t.Errorf("x=%d registers: (-want, +got)\n%s", x, diff)
		}
		if emu.index != 0x400 {
			t.Errorf("x=%d I = 0x%X, want 0x400", x, emu.index)
		}

		// the byte after Vx must be untouched
		if x < 15 && emu.memory[0x400+x+1] != 0 {
			t.Errorf("x=%d stored past Vx", x)
		}
	}
}

func TestStoreOutOfBounds(t *testing.T) {
	emu := New()
	emu.index = MemorySize - 2
	emu.v[0], emu.v[1], emu.v[2] = 1, 2, 3

	if err := exec(emu, 0xF255); !errors.Is(err, ErrMemoryOutOfBounds) {
		t.Fatalf("error = %v, want ErrMemoryOutOfBounds", err)
	}
	if emu.memory[MemorySize-2] != 0 || emu.memory[MemorySize-1] != 0 {
		t.Errorf("partial write before bounds failure")
	}

	if err := exec(emu, 0xF265); !errors.Is(err, ErrMemoryOutOfBounds) {
		t.Fatalf("error = %v, want ErrMemoryOutOfBounds", err)
	}
	if emu.v[0] != 1 {
		t.Errorf("partial load before bounds failure")
	}
}

func TestKeyUsesLowNibble(t *testing.T) {
	emu := New()
	emu.keyState[0x3] = true
	emu.v[0] = 0x13
	emu.pc = 0x300

	if err := exec(emu, 0xE09E); err != nil {
		t.Fatal(err)
	}
	if emu.pc != 0x302 {
		t.Errorf("pc = 0x%X, want 0x302", emu.pc)
	}
}

func TestDispatchTables(t *testing.T) {
	mapped := map[string][]int{
		"table0": {0x0, 0xE},
		"table8": {0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7, 0xE},
		"tableE": {0x1, 0xE},
		"tableF": {0x07, 0x0A, 0x15, 0x18, 0x1E, 0x29, 0x33, 0x55, 0x65},
	}
	tables := map[string][]opFunc{
		"table0": table0[:],
		"table8": table8[:],
		"tableE": tableE[:],
		"tableF": tableF[:],
	}

	for name, entries := range tables {
		want := map[int]bool{}
		for _, i := range mapped[name] {
			want[i] = true
		}

		for i, fn := range entries {
			if fn == nil {
				t.Errorf("%s[0x%X] is nil", name, i)
				continue
			}
			err := fn(New())
			if isInvalid := errors.Is(err, ErrInvalidOpcode); isInvalid == want[i] {
				t.Errorf("%s[0x%X] mapped=%v but invalid=%v", name, i, want[i], isInvalid)
			}
		}
	}
}
