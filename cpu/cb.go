package cpu

import (
	"fmt"

	"gbcore/mask"
)

// CBOpcodes is the CB-prefixed dispatch table. A CB byte splits cleanly
// into three mask.Range fields: a 2-bit family (rotate/shift, BIT, RES,
// SET), a 3-bit index (the sub-operation in the rotate/shift family, or
// the bit number n elsewhere), and a 3-bit target selecting one of the
// eight gridRegs slots.
//
// Only RLC and RL are given semantics in the rotate/shift family; the
// rest of that block (RRC, RR, SLA, SRA, SWAP, SRL) has no defined
// behavior here and is left unmapped rather than guessed at.
var CBOpcodes = buildCBOpcodes()

func buildCBOpcodes() map[byte]Opcode {
	m := make(map[byte]Opcode, 256)

	for i := 0; i < 256; i++ {
		op := byte(i)
		family := mask.Range(op, mask.I1, mask.I2)
		idx := mask.Range(op, mask.I3, mask.I5)
		targetSel := mask.Range(op, mask.I6, mask.I8)
		target := gridRegs[targetSel]
		targetName := gridNames[targetSel]

		switch family {
		case 0b00:
			switch idx {
			case 0:
				m[op] = Opcode{Name: "RLC " + targetName, Exec: cbRotateLeftExec(target, false)}
			case 2:
				m[op] = Opcode{Name: "RL " + targetName, Exec: cbRotateLeftExec(target, true)}
			}
		case 0b01:
			n := idx
			m[op] = Opcode{
				Name: fmt.Sprintf("BIT %d,%s", n, targetName),
				Exec: func(c *CPU) error {
					v, err := cbGet(c, target)
					if err != nil {
						return err
					}
					c.bit(n, v)
					return nil
				},
			}
		case 0b10:
			n := idx
			m[op] = Opcode{
				Name: fmt.Sprintf("RES %d,%s", n, targetName),
				Exec: func(c *CPU) error {
					v, err := cbGet(c, target)
					if err != nil {
						return err
					}
					return cbSet(c, target, res(n, v))
				},
			}
		case 0b11:
			n := idx
			m[op] = Opcode{
				Name: fmt.Sprintf("SET %d,%s", n, targetName),
				Exec: func(c *CPU) error {
					v, err := cbGet(c, target)
					if err != nil {
						return err
					}
					return cbSet(c, target, set(n, v))
				},
			}
		}
	}

	return m
}

// cbGet reads a CB-table target: either a named register or the byte at
// (HL).
func cbGet(c *CPU, target RegCode) (byte, error) {
	if target == indirectHL {
		addr, err := c.Regs.Get16(HL)
		if err != nil {
			return 0, err
		}
		return c.Bus.Fetch(addr), nil
	}
	return c.Regs.Get8(target)
}

// cbSet writes a CB-table target.
func cbSet(c *CPU, target RegCode, v byte) error {
	if target == indirectHL {
		addr, err := c.Regs.Get16(HL)
		if err != nil {
			return err
		}
		return c.busSave(addr, v)
	}
	return c.Regs.Set8(target, v)
}

// cbRotateLeftExec builds the Exec closure shared by CB-prefixed RLC and
// RL. Unlike the fast accumulator forms (RLCA/RLA), these set Z from the
// result rather than always clearing it.
func cbRotateLeftExec(target RegCode, throughCarry bool) func(c *CPU) error {
	return func(c *CPU) error {
		v, err := cbGet(c, target)
		if err != nil {
			return err
		}
		bit7 := mask.IsSet(v, mask.I1)

		var carryIn bool
		if throughCarry {
			carryIn = c.Regs.CheckFlag(FlagCarry)
		} else {
			carryIn = bit7
		}

		res := v << 1
		if carryIn {
			res |= 1
		}
		if err := cbSet(c, target, res); err != nil {
			return err
		}

		c.Regs.SetFlag(FlagZero, res == 0)
		c.Regs.SetFlag(FlagSubtract, false)
		c.Regs.SetFlag(FlagHalfCarry, false)
		c.Regs.SetFlag(FlagCarry, bit7)
		return nil
	}
}
