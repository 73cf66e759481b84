// Package gberr collects the sentinel errors shared by the register file,
// bus, and decoder. Keeping them in one leaf package lets every other
// package return values a caller can compare with errors.Is without
// introducing import cycles between mem, cpu, and cartridge.
package gberr

import "errors"

var (
	// ErrRomTooLarge is returned when a cartridge byte slice does not fit
	// in the 64 kB address space.
	ErrRomTooLarge = errors.New("gberr: rom too large")

	// ErrBusError covers a write outside the addressable range or any
	// downstream I/O failure reported through the bus.
	ErrBusError = errors.New("gberr: bus error")

	// ErrInvalidRegisterWidth is returned when a register code of the
	// wrong width (8-bit vs 16-bit) is passed to a width-specific
	// register-file operation.
	ErrInvalidRegisterWidth = errors.New("gberr: invalid register width")

	// ErrUnknownOpcode is returned by the decoder in strict mode when it
	// reaches a byte with no mapped semantic.
	ErrUnknownOpcode = errors.New("gberr: unknown opcode")

	// ErrChannelClosed is returned by the event sink when a send is
	// attempted after the consumer side has disconnected.
	ErrChannelClosed = errors.New("gberr: event channel closed")
)
