package cpu

import "fmt"

// An Opcode pairs a human-readable Name (used by the decode event and any
// debugger) with an Exec closure that fetches whatever operand bytes it
// needs and applies the instruction's semantics. Operand shapes vary too
// much across this instruction set for a single shared fetched-operand
// field, so each Exec fetches its own.
type Opcode struct {
	Name string
	Exec func(c *CPU) error
}

// indirectHL marks a grid slot whose operand is the byte at (HL) rather
// than a named register; it is never passed to Registers.
const indirectHL RegCode = -1

// gridRegs is the register ordering shared by the LD r,r', XOR, and CP
// grids: B, C, D, E, H, L, (HL), A.
var gridRegs = [8]RegCode{B, C, D, E, H, L, indirectHL, A}
var gridNames = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// Opcodes is the primary (non-CB-prefixed) dispatch table.
var Opcodes = buildOpcodes()

func buildOpcodes() map[byte]Opcode {
	m := map[byte]Opcode{
		0x00: {Name: "NOP", Exec: func(c *CPU) error { return nil }},

		0x01: {Name: "LD BC,d16", Exec: func(c *CPU) error {
			lo, hi := c.fetch8(), c.fetch8()
			return c.ld16Imm(BC, hi, lo)
		}},
		0x11: {Name: "LD DE,d16", Exec: func(c *CPU) error {
			lo, hi := c.fetch8(), c.fetch8()
			return c.ld16Imm(DE, hi, lo)
		}},
		0x21: {Name: "LD HL,d16", Exec: func(c *CPU) error {
			lo, hi := c.fetch8(), c.fetch8()
			return c.ld16Imm(HL, hi, lo)
		}},
		0x31: {Name: "LD SP,d16", Exec: func(c *CPU) error {
			lo, hi := c.fetch8(), c.fetch8()
			return c.ld16Imm(SP, hi, lo)
		}},

		0x02: {Name: "LD (BC),A", Exec: func(c *CPU) error {
			addr, err := c.Regs.Get16(BC)
			if err != nil {
				return err
			}
			return c.ldToIndirect(addr, A)
		}},
		0x12: {Name: "LD (DE),A", Exec: func(c *CPU) error {
			addr, err := c.Regs.Get16(DE)
			if err != nil {
				return err
			}
			return c.ldToIndirect(addr, A)
		}},
		0x22: {Name: "LDI (HL),A", Exec: func(c *CPU) error { return c.ldiToIndirect(A) }},
		0x32: {Name: "LDD (HL),A", Exec: func(c *CPU) error { return c.lddToIndirect(A) }},

		0x0A: {Name: "LD A,(BC)", Exec: func(c *CPU) error {
			addr, err := c.Regs.Get16(BC)
			if err != nil {
				return err
			}
			return c.ldFromIndirect(A, addr)
		}},
		0x1A: {Name: "LD A,(DE)", Exec: func(c *CPU) error {
			addr, err := c.Regs.Get16(DE)
			if err != nil {
				return err
			}
			return c.ldFromIndirect(A, addr)
		}},
		0x2A: {Name: "LDI A,(HL)", Exec: func(c *CPU) error { return c.ldiFromIndirect(A) }},
		0x3A: {Name: "LDD A,(HL)", Exec: func(c *CPU) error { return c.lddFromIndirect(A) }},

		0x07: {Name: "RLCA", Exec: func(c *CPU) error { return c.rotateLeft(A, false, true) }},
		0x17: {Name: "RLA", Exec: func(c *CPU) error { return c.rotateLeft(A, true, true) }},

		0x18: {Name: "JR r8", Exec: func(c *CPU) error {
			d := int8(c.fetch8())
			c.jr(true, d)
			return nil
		}},
		0x20: {Name: "JR NZ,r8", Exec: func(c *CPU) error {
			d := int8(c.fetch8())
			c.jr(!c.Regs.CheckFlag(FlagZero), d)
			return nil
		}},
		0x28: {Name: "JR Z,r8", Exec: func(c *CPU) error {
			d := int8(c.fetch8())
			c.jr(c.Regs.CheckFlag(FlagZero), d)
			return nil
		}},
		0x30: {Name: "JR NC,r8", Exec: func(c *CPU) error {
			d := int8(c.fetch8())
			c.jr(!c.Regs.CheckFlag(FlagCarry), d)
			return nil
		}},
		0x38: {Name: "JR C,r8", Exec: func(c *CPU) error {
			d := int8(c.fetch8())
			c.jr(c.Regs.CheckFlag(FlagCarry), d)
			return nil
		}},

		0xC3: {Name: "JP a16", Exec: func(c *CPU) error {
			c.jp(true, c.fetch16())
			return nil
		}},
		0xC2: {Name: "JP NZ,a16", Exec: func(c *CPU) error {
			addr := c.fetch16()
			c.jp(!c.Regs.CheckFlag(FlagZero), addr)
			return nil
		}},
		0xCA: {Name: "JP Z,a16", Exec: func(c *CPU) error {
			addr := c.fetch16()
			c.jp(c.Regs.CheckFlag(FlagZero), addr)
			return nil
		}},
		0xD2: {Name: "JP NC,a16", Exec: func(c *CPU) error {
			addr := c.fetch16()
			c.jp(!c.Regs.CheckFlag(FlagCarry), addr)
			return nil
		}},
		0xDA: {Name: "JP C,a16", Exec: func(c *CPU) error {
			addr := c.fetch16()
			c.jp(c.Regs.CheckFlag(FlagCarry), addr)
			return nil
		}},

		0xCD: {Name: "CALL a16", Exec: func(c *CPU) error {
			return c.call(true, c.fetch16())
		}},
		0xC4: {Name: "CALL NZ,a16", Exec: func(c *CPU) error {
			target := c.fetch16()
			return c.call(!c.Regs.CheckFlag(FlagZero), target)
		}},
		0xCC: {Name: "CALL Z,a16", Exec: func(c *CPU) error {
			target := c.fetch16()
			return c.call(c.Regs.CheckFlag(FlagZero), target)
		}},
		0xD4: {Name: "CALL NC,a16", Exec: func(c *CPU) error {
			target := c.fetch16()
			return c.call(!c.Regs.CheckFlag(FlagCarry), target)
		}},
		0xDC: {Name: "CALL C,a16", Exec: func(c *CPU) error {
			target := c.fetch16()
			return c.call(c.Regs.CheckFlag(FlagCarry), target)
		}},

		0xC9: {Name: "RET", Exec: func(c *CPU) error { return c.ret() }},
		0xC0: {Name: "RET NZ", Exec: func(c *CPU) error {
			if c.Regs.CheckFlag(FlagZero) {
				return nil
			}
			return c.ret()
		}},
		0xC8: {Name: "RET Z", Exec: func(c *CPU) error {
			if !c.Regs.CheckFlag(FlagZero) {
				return nil
			}
			return c.ret()
		}},
		0xD0: {Name: "RET NC", Exec: func(c *CPU) error {
			if c.Regs.CheckFlag(FlagCarry) {
				return nil
			}
			return c.ret()
		}},
		0xD8: {Name: "RET C", Exec: func(c *CPU) error {
			if !c.Regs.CheckFlag(FlagCarry) {
				return nil
			}
			return c.ret()
		}},

		0xC5: {Name: "PUSH BC", Exec: func(c *CPU) error { return c.push(BC) }},
		0xD5: {Name: "PUSH DE", Exec: func(c *CPU) error { return c.push(DE) }},
		0xE5: {Name: "PUSH HL", Exec: func(c *CPU) error { return c.push(HL) }},
		0xF5: {Name: "PUSH AF", Exec: func(c *CPU) error { return c.push(AF) }},

		0xC1: {Name: "POP BC", Exec: func(c *CPU) error { return c.pop(BC) }},
		0xD1: {Name: "POP DE", Exec: func(c *CPU) error { return c.pop(DE) }},
		0xE1: {Name: "POP HL", Exec: func(c *CPU) error { return c.pop(HL) }},
		0xF1: {Name: "POP AF", Exec: func(c *CPU) error { return c.pop(AF) }},

		0xE0: {Name: "LDH (a8),A", Exec: func(c *CPU) error {
			n := c.fetch8()
			return c.ldhStore(n, A)
		}},
		0xF0: {Name: "LDH A,(a8)", Exec: func(c *CPU) error {
			n := c.fetch8()
			return c.ldhLoad(A, n)
		}},
		0xE2: {Name: "LD (C),A", Exec: func(c *CPU) error {
			n, err := c.Regs.Get8(C)
			if err != nil {
				return err
			}
			return c.ldhStore(n, A)
		}},
		0xF2: {Name: "LD A,(C)", Exec: func(c *CPU) error {
			n, err := c.Regs.Get8(C)
			if err != nil {
				return err
			}
			return c.ldhLoad(A, n)
		}},

		0xFE: {Name: "CP d8", Exec: func(c *CPU) error { return c.cp(c.fetch8()) }},

		0xCB: {Name: "PREFIX CB", Exec: func(c *CPU) error { return c.dispatchCB(c.fetch8()) }},
	}

	addLDRegisterGrid(m)
	addIncDecGrid(m)
	addXorGrid(m)
	addCpGrid(m)

	return m
}

// addLDRegisterGrid adds the 0x40-0x7F LD r,r' block. 0x76, which would
// be LD (HL),(HL), is HALT on real hardware; with no interrupt model in
// scope it is kept as a no-op rather than guessed at.
func addLDRegisterGrid(m map[byte]Opcode) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			op := byte(0x40 + row*8 + col)
			if op == 0x76 {
				m[op] = Opcode{Name: "HALT", Exec: func(c *CPU) error { return nil }}
				continue
			}
			dest, src := gridRegs[row], gridRegs[col]
			name := fmt.Sprintf("LD %s,%s", gridNames[row], gridNames[col])
			m[op] = Opcode{Name: name, Exec: ldGridExec(dest, src)}
		}
	}
}

func ldGridExec(dest, src RegCode) func(c *CPU) error {
	return func(c *CPU) error {
		if dest == indirectHL {
			addr, err := c.Regs.Get16(HL)
			if err != nil {
				return err
			}
			return c.ldToIndirect(addr, src)
		}
		if src == indirectHL {
			addr, err := c.Regs.Get16(HL)
			if err != nil {
				return err
			}
			return c.ldFromIndirect(dest, addr)
		}
		return c.ld8FromReg(dest, src)
	}
}

// addIncDecGrid adds INC r/DEC r/LD r,d8 over the shared B,C,D,E,H,L,
// (HL),A ordering, each row occupying one column of the low opcode
// nibble (x4/xC, x5/xD, x6/xE).
func addIncDecGrid(m map[byte]Opcode) {
	incBytes := [8]byte{0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x34, 0x3C}
	decBytes := [8]byte{0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x35, 0x3D}
	ldImmBytes := [8]byte{0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E}

	for i := 0; i < 8; i++ {
		reg := gridRegs[i]
		name := gridNames[i]

		if reg == indirectHL {
			m[incBytes[i]] = Opcode{Name: "INC (HL)", Exec: func(c *CPU) error { return c.incMemHL() }}
			m[decBytes[i]] = Opcode{Name: "DEC (HL)", Exec: func(c *CPU) error { return c.decMemHL() }}
			m[ldImmBytes[i]] = Opcode{Name: "LD (HL),d8", Exec: func(c *CPU) error {
				v := c.fetch8()
				addr, err := c.Regs.Get16(HL)
				if err != nil {
					return err
				}
				return c.busSave(addr, v)
			}}
			continue
		}

		r := reg
		m[incBytes[i]] = Opcode{Name: "INC " + name, Exec: func(c *CPU) error { return c.Regs.Inc8(r) }}
		m[decBytes[i]] = Opcode{Name: "DEC " + name, Exec: func(c *CPU) error { return c.Regs.Dec8(r) }}
		m[ldImmBytes[i]] = Opcode{Name: "LD " + name + ",d8", Exec: func(c *CPU) error {
			return c.ld8(r, c.fetch8())
		}}
	}
}

// addXorGrid adds 0xA8-0xAF (XOR r, with 0xAE as XOR (HL)).
func addXorGrid(m map[byte]Opcode) {
	for i := 0; i < 8; i++ {
		op := byte(0xA8 + i)
		reg := gridRegs[i]
		name := "XOR " + gridNames[i]
		if reg == indirectHL {
			m[op] = Opcode{Name: name, Exec: func(c *CPU) error {
				addr, err := c.Regs.Get16(HL)
				if err != nil {
					return err
				}
				return c.xorA(c.Bus.Fetch(addr))
			}}
			continue
		}
		r := reg
		m[op] = Opcode{Name: name, Exec: func(c *CPU) error {
			v, err := c.Regs.Get8(r)
			if err != nil {
				return err
			}
			return c.xorA(v)
		}}
	}
}

// addCpGrid adds 0xB8-0xBF (CP r, with 0xBE as CP (HL)).
func addCpGrid(m map[byte]Opcode) {
	for i := 0; i < 8; i++ {
		op := byte(0xB8 + i)
		reg := gridRegs[i]
		name := "CP " + gridNames[i]
		if reg == indirectHL {
			m[op] = Opcode{Name: name, Exec: func(c *CPU) error {
				addr, err := c.Regs.Get16(HL)
				if err != nil {
					return err
				}
				return c.cp(c.Bus.Fetch(addr))
			}}
			continue
		}
		r := reg
		m[op] = Opcode{Name: name, Exec: func(c *CPU) error {
			v, err := c.Regs.Get8(r)
			if err != nil {
				return err
			}
			return c.cp(v)
		}}
	}
}
