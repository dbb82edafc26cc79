package cpu

import "errors"

var (
	ErrRomTooLarge       = errors.New("rom too large")
	ErrStackOverflow     = errors.New("stack overflow")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrInvalidOpcode     = errors.New("invalid opcode")
	ErrMemoryOutOfBounds = errors.New("memory out of bounds")
	ErrInvalidKey        = errors.New("invalid key")
)

// IsFatal reports whether err should halt execution. Invalid opcodes are
// recoverable, everything else is not.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrInvalidOpcode)
}
