package cpu

import (
	"fmt"

	"gbcore/gberr"
	"gbcore/mem"
)

// CPU has no state of its own beyond its register file; all memory
// access is delegated to the Bus it was constructed with.
type CPU struct {
	Regs Registers
	Bus  *mem.Bus

	events *mem.Sink

	// Strict selects strict decoding: an opcode byte with no mapped
	// semantic fails the tick with ErrUnknownOpcode instead of being
	// silently treated as NOP. Strict mode is the default for tests.
	Strict bool
}

// New constructs a CPU wired to bus, sharing the bus's event sink so
// that decode narration and bus mutations land in one ordered stream.
func New(bus *mem.Bus) *CPU {
	return &CPU{
		Regs:   NewRegisters(),
		Bus:    bus,
		events: bus.Sink(),
		Strict: true,
	}
}

// fetch8 reads the byte at PC and advances PC by one.
func (c *CPU) fetch8() byte {
	v := c.Bus.Fetch(c.Regs.pc)
	c.Regs.IncPC()
	return v
}

// fetch16 reads a little-endian 16-bit immediate: the first fetched byte
// is the low byte, the second the high byte.
func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return word(hi, lo)
}

// busSave writes through the bus, surfacing any downstream failure as
// the bus-error kind the tick contract names. Every instruction-driven
// store goes through here so the wrapping happens once.
func (c *CPU) busSave(addr uint16, v byte) error {
	if err := c.Bus.Save(addr, v); err != nil {
		return fmt.Errorf("%w: save %#04x: %v", gberr.ErrBusError, addr, err)
	}
	return nil
}

// Tick clears any undrained events, fetches and dispatches exactly one
// opcode, and returns any error the decoder or the dispatched semantic
// produced. A tick is atomic: no operation within it may be observed
// from outside until it returns.
func (c *CPU) Tick() error {
	c.events.Clear()

	pc := c.Regs.pc
	op := c.fetch8()
	c.events.Push(mem.KindTick, fmt.Sprintf("tick pc=%#04x op=%#02x", pc, op))

	return c.dispatch(op)
}

// dispatch looks up op in the primary opcode table and runs it. An
// unmapped byte is a silent NOP in permissive mode or ErrUnknownOpcode in
// strict mode (the default).
func (c *CPU) dispatch(op byte) error {
	entry, ok := Opcodes[op]
	if !ok {
		if c.Strict {
			return fmt.Errorf("%w: %#02x", gberr.ErrUnknownOpcode, op)
		}
		return nil
	}
	c.events.Push(mem.KindDecoding, entry.Name)
	return entry.Exec(c)
}

// dispatchCB looks up cbOp in the CB-prefixed table and runs it. BIT, RES
// and SET cover their whole blocks, but the rotate/shift block only maps
// RLC and RL, so an unmapped CB byte is handled like an unmapped primary
// byte: a silent NOP in permissive mode or ErrUnknownOpcode in strict mode.
func (c *CPU) dispatchCB(cbOp byte) error {
	entry, ok := CBOpcodes[cbOp]
	if !ok {
		if c.Strict {
			return fmt.Errorf("%w: cb %#02x", gberr.ErrUnknownOpcode, cbOp)
		}
		return nil
	}
	c.events.Push(mem.KindDecoding, entry.Name)
	return entry.Exec(c)
}
