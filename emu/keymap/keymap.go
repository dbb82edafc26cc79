// Package keymap maps host keyboard keys onto the 16-key hex keypad.
//
// The layout follows the COSMAC VIP keypad placed over the left side of a
// QWERTY keyboard:
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
package keymap

import "unicode"

// Layout lists host keys row by row, matched up with Keypad.
const Layout = "1234qwerasdfzxcv"

// Keypad is the hex keypad in the same order as Layout.
var Keypad = [16]uint8{
	0x1, 0x2, 0x3, 0xC,
	0x4, 0x5, 0x6, 0xD,
	0x7, 0x8, 0x9, 0xE,
	0xA, 0x0, 0xB, 0xF,
}

// Index returns the keypad index for a host key. Letters match in either
// case.
func Index(r rune) (uint8, bool) {
	r = unicode.ToLower(r)
	for i, k := range Layout {
		if k == r {
			return Keypad[i], true
		}
	}
	return 0, false
}

// Rune is the inverse of Index.
func Rune(key uint8) (rune, bool) {
	for i, k := range Keypad {
		if k == key {
			return rune(Layout[i]), true
		}
	}
	return 0, false
}
