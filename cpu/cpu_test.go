package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gbcore/gberr"
	"gbcore/mem"
)

func newTestCPU() *CPU {
	return New(mem.NewBus())
}

func loadAt(c *CPU, addr uint16, bytes ...byte) {
	for i, b := range bytes {
		_ = c.Bus.Save(addr+uint16(i), b)
	}
}

func TestNewRegistersDefaultState(t *testing.T) {
	r := NewRegisters()
	snap := r.Snapshot()
	assert.Equal(t, byte(0x11), snap.A)
	assert.Equal(t, byte(0x80), snap.F)
	assert.Equal(t, byte(0xFF), snap.D)
	assert.Equal(t, byte(0x56), snap.E)
	assert.Equal(t, uint16(0xFFFE), snap.SP)
	assert.Equal(t, uint16(0x0100), snap.PC)
}

func TestSet8Get8RoundTripsEveryByteRegister(t *testing.T) {
	r := NewRegisters()
	for _, code := range []RegCode{A, B, C, D, E, H, L} {
		for _, v := range []byte{0x00, 0x01, 0x7F, 0x80, 0xFF} {
			assert.NoError(t, r.Set8(code, v))
			got, err := r.Get8(code)
			assert.NoError(t, err)
			assert.Equal(t, v, got)
		}
	}
}

func TestSet16Get16CombinesHighAndLow(t *testing.T) {
	r := NewRegisters()
	for _, pair := range []RegCode{BC, DE, HL, SP} {
		assert.NoError(t, r.Set16(pair, 0x12, 0x34))
		got, err := r.Get16(pair)
		assert.NoError(t, err)
		assert.Equal(t, uint16(0x1234), got)
	}
}

func TestMismatchedRegisterWidthFails(t *testing.T) {
	r := NewRegisters()

	_, err := r.Get8(HL)
	assert.ErrorIs(t, err, gberr.ErrInvalidRegisterWidth)
	assert.ErrorIs(t, r.Set8(SP, 0x00), gberr.ErrInvalidRegisterWidth)

	_, err = r.Get16(A)
	assert.ErrorIs(t, err, gberr.ErrInvalidRegisterWidth)
	assert.ErrorIs(t, r.Set16(F, 0x00, 0x00), gberr.ErrInvalidRegisterWidth)
}

func TestFlagByteLowNibbleStaysZero(t *testing.T) {
	r := NewRegisters()
	assert.NoError(t, r.Set8(F, 0xFF))
	f, _ := r.Get8(F)
	assert.Equal(t, byte(0xF0), f)

	r.SetFlag(FlagCarry, true)
	r.SetFlag(FlagZero, false)
	f, _ = r.Get8(F)
	assert.Equal(t, byte(0x00), f&0x0F)
}

func TestTickDecodesAndAdvancesPC(t *testing.T) {
	c := newTestCPU()
	loadAt(c, 0x0100, 0x00) // NOP
	assert.NoError(t, c.Tick())
	assert.Equal(t, uint16(0x0101), c.Regs.pc)
}

func TestLdImmediate16AndIndirectStore(t *testing.T) {
	c := newTestCPU()
	loadAt(c, 0x0100,
		0x01, 0x34, 0x12, // LD BC,0x1234
		0x3E, 0x99, // LD A,0x99
		0x02, // LD (BC),A
	)
	for i := 0; i < 3; i++ {
		assert.NoError(t, c.Tick())
	}
	bc, err := c.Regs.Get16(BC)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x1234), bc)
	assert.Equal(t, byte(0x99), c.Bus.Fetch(0x1234))
}

func TestLdiAndLddAutoIncrementDecrementHL(t *testing.T) {
	c := newTestCPU()
	loadAt(c, 0x0100,
		0x21, 0x00, 0xC0, // LD HL,0xC000
		0x3E, 0x7F, // LD A,0x7F
		0x22, // LDI (HL),A
		0x22, // LDI (HL),A
	)
	for i := 0; i < 4; i++ {
		assert.NoError(t, c.Tick())
	}
	hl, _ := c.Regs.Get16(HL)
	assert.Equal(t, uint16(0xC002), hl)
	assert.Equal(t, byte(0x7F), c.Bus.Fetch(0xC000))
	assert.Equal(t, byte(0x7F), c.Bus.Fetch(0xC001))
}

func TestInc8SetsHalfCarryOnNibbleOverflow(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(B, 0x0F))
	assert.NoError(t, c.Regs.Inc8(B))
	v, _ := c.Regs.Get8(B)
	assert.Equal(t, byte(0x10), v)
	assert.True(t, c.Regs.CheckFlag(FlagHalfCarry))
	assert.False(t, c.Regs.CheckFlag(FlagZero))
	assert.False(t, c.Regs.CheckFlag(FlagSubtract))
}

func TestInc8WrapsToZeroSetsZero(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(B, 0xFF))
	assert.NoError(t, c.Regs.Inc8(B))
	v, _ := c.Regs.Get8(B)
	assert.Equal(t, byte(0x00), v)
	assert.True(t, c.Regs.CheckFlag(FlagZero))
}

func TestDec8SetsSubtractAndHalfCarryOnBorrow(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(C, 0x10))
	assert.NoError(t, c.Regs.Dec8(C))
	v, _ := c.Regs.Get8(C)
	assert.Equal(t, byte(0x0F), v)
	assert.True(t, c.Regs.CheckFlag(FlagSubtract))
	assert.True(t, c.Regs.CheckFlag(FlagHalfCarry))
}

func TestRlcaClearsZeroRegardlessOfResult(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(A, 0x00))
	loadAt(c, 0x0100, 0x07) // RLCA
	assert.NoError(t, c.Tick())
	v, _ := c.Regs.Get8(A)
	assert.Equal(t, byte(0x00), v)
	assert.False(t, c.Regs.CheckFlag(FlagZero))
	assert.False(t, c.Regs.CheckFlag(FlagCarry))
}

func TestCBRlcSetsZeroFromResult(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(B, 0x00))
	loadAt(c, 0x0100, 0xCB, 0x00) // CB RLC B
	assert.NoError(t, c.Tick())
	assert.True(t, c.Regs.CheckFlag(FlagZero))
}

func TestRlcaSetsCarryFromBit7(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(A, 0x80))
	loadAt(c, 0x0100, 0x07) // RLCA
	assert.NoError(t, c.Tick())
	v, _ := c.Regs.Get8(A)
	assert.Equal(t, byte(0x01), v)
	assert.True(t, c.Regs.CheckFlag(FlagCarry))
}

func TestXorAClearsAccumulatorAndSetsZero(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(A, 0x5A))
	loadAt(c, 0x0100, 0xAF) // XOR A
	assert.NoError(t, c.Tick())
	v, _ := c.Regs.Get8(A)
	assert.Equal(t, byte(0x00), v)
	assert.True(t, c.Regs.CheckFlag(FlagZero))
}

func TestCpSetsZeroOnEqualityAndLeavesOperandsUnchanged(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(A, 0x42))
	loadAt(c, 0x0100, 0xFE, 0x42) // CP 0x42
	assert.NoError(t, c.Tick())
	v, _ := c.Regs.Get8(A)
	assert.Equal(t, byte(0x42), v)
	assert.True(t, c.Regs.CheckFlag(FlagZero))
	assert.True(t, c.Regs.CheckFlag(FlagSubtract))
}

func TestJrTakenAddsSignedDisplacement(t *testing.T) {
	c := newTestCPU()
	loadAt(c, 0x0100, 0x18, 0xFE) // JR -2 (infinite loop back to self)
	assert.NoError(t, c.Tick())
	assert.Equal(t, uint16(0x0100), c.Regs.pc)
}

func TestJpAbsoluteSetsPC(t *testing.T) {
	c := newTestCPU()
	loadAt(c, 0x0100, 0xC3, 0x00, 0x90) // JP 0x9000
	assert.NoError(t, c.Tick())
	assert.Equal(t, uint16(0x9000), c.Regs.pc)
}

func TestCallPushesReturnAddressAndJumps(t *testing.T) {
	c := newTestCPU()
	loadAt(c, 0x0100, 0xCD, 0x00, 0x90) // CALL 0x9000
	assert.NoError(t, c.Tick())
	assert.Equal(t, uint16(0x9000), c.Regs.pc)

	sp, _ := c.Regs.Get16(SP)
	assert.Equal(t, uint16(0xFFFC), sp)
	assert.Equal(t, byte(0x03), c.Bus.Fetch(sp))
	assert.Equal(t, byte(0x01), c.Bus.Fetch(sp+1))
}

func TestCallThenRetRoundTrips(t *testing.T) {
	c := newTestCPU()
	loadAt(c, 0x0100, 0xCD, 0x00, 0x90) // CALL 0x9000
	loadAt(c, 0x9000, 0xC9)             // RET
	assert.NoError(t, c.Tick())
	assert.NoError(t, c.Tick())
	assert.Equal(t, uint16(0x0103), c.Regs.pc)
}

func TestPushPopRoundTripsOrdinaryPair(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set16(BC, 0xBE, 0xEF))
	loadAt(c, 0x0100, 0xC5, 0xD1) // PUSH BC; POP DE
	assert.NoError(t, c.Tick())
	assert.NoError(t, c.Tick())
	de, _ := c.Regs.Get16(DE)
	assert.Equal(t, uint16(0xBEEF), de)
}

func TestPopAFForcesLowNibbleToZero(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.push16(0x12, 0xFF))
	loadAt(c, 0x0100, 0xF1) // POP AF
	assert.NoError(t, c.Tick())
	af, _ := c.Regs.Get16(AF)
	assert.Equal(t, uint16(0x12F0), af)
}

func TestCBBitSetsZeroWhenBitClear(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(B, 0x00))
	loadAt(c, 0x0100, 0xCB, 0x40) // BIT 0,B
	assert.NoError(t, c.Tick())
	assert.True(t, c.Regs.CheckFlag(FlagZero))
	assert.True(t, c.Regs.CheckFlag(FlagHalfCarry))
	assert.False(t, c.Regs.CheckFlag(FlagSubtract))
}

func TestCBResThenSetRoundTrip(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.Regs.Set8(B, 0xFF))
	loadAt(c, 0x0100,
		0xCB, 0x80, // RES 0,B
		0xCB, 0xC0, // SET 0,B
	)
	assert.NoError(t, c.Tick())
	v, _ := c.Regs.Get8(B)
	assert.Equal(t, byte(0xFE), v)

	assert.NoError(t, c.Tick())
	v, _ = c.Regs.Get8(B)
	assert.Equal(t, byte(0xFF), v)
}

func TestStrictModeFailsOnUnknownOpcode(t *testing.T) {
	c := newTestCPU()
	loadAt(c, 0x0100, 0xD3) // never mapped on real hardware either
	err := c.Tick()
	assert.ErrorIs(t, err, gberr.ErrUnknownOpcode)
}

func TestPermissiveModeTreatsUnknownOpcodeAsNOP(t *testing.T) {
	c := newTestCPU()
	c.Strict = false
	loadAt(c, 0x0100, 0xD3)
	assert.NoError(t, c.Tick())
	assert.Equal(t, uint16(0x0101), c.Regs.pc)
}

func TestTickClearsUndrainedEventsBeforeRunning(t *testing.T) {
	c := newTestCPU()
	c.Bus.Fetch(0x0000) // stray event from before the tick, at an address the tick never touches
	loadAt(c, 0x0100, 0x00)
	assert.NoError(t, c.Tick())
	events := c.Bus.DrainEvents()
	for _, e := range events {
		assert.NotContains(t, e.Text, "0x0000", "stray pre-tick fetch should have been cleared")
	}
}

func BenchmarkTickNOP(b *testing.B) {
	c := newTestCPU()
	loadAt(c, 0x0100, 0x00)
	for i := 0; i < b.N; i++ {
		c.Regs.SetPC(0x0100)
		_ = c.Tick()
	}
}
