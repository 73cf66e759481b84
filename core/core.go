// Package core wires the register file, bus, and cartridge loader into the
// single Driver/Core type a host embeds: the thing that owns a tick and
// exposes the peek/step/breakpoint surface an interactive debugger drives.
// Nothing in this package decodes opcodes or models hardware region
// semantics itself; it only sequences the components that do.
package core

import (
	"fmt"
	"os"

	"gbcore/cartridge"
	"gbcore/config"
	"gbcore/cpu"
	"gbcore/mem"
)

// entryPointROM is where a cartridge-only boot starts fetching.
const entryPointROM uint16 = 0x0100

// entryPointBootROM is where PC starts when a boot image is in play.
const entryPointBootROM uint16 = 0x0000

// Core owns a CPU, the bus it drives, the parsed cartridge header, and the
// supplemented debugger state (breakpoint set, break-next, log-next) that
// an external debugger toggles between ticks. Core never consults that
// state itself: it has no notion of "should I stop," only "what did the
// last tick do."
type Core struct {
	CPU *cpu.CPU
	Bus *mem.Bus

	cfg       config.Config
	cartridge cartridge.Header
	loaded    bool

	breakpoints map[uint16]struct{}
	breakNext   bool
	logNext     bool
}

// New constructs a Core from cfg. No cartridge is loaded yet; PC holds
// whatever NewRegisters seeds until LoadCartridge runs.
func New(cfg config.Config) *Core {
	bus := mem.NewBus()
	c := &Core{
		CPU:         cpu.New(bus),
		Bus:         bus,
		cfg:         cfg,
		breakpoints: make(map[uint16]struct{}),
	}
	if cfg.InitialBreakpoint != 0 {
		c.breakpoints[cfg.InitialBreakpoint] = struct{}{}
	}
	return c
}

// LoadCartridge parses rom's header, hands the raw bytes to the bus, and
// seeds PC per the BootROMEnabled configuration option: 0x0000 if a boot
// image is in play (the host's job to actually load those bytes; this core
// only honors the PC convention per §1's boot-image non-goal), 0x0100
// otherwise. Calling this twice replaces the bus contents and reseeds PC.
func (c *Core) LoadCartridge(rom []byte) error {
	c.Bus.Sink().Push(mem.KindInitializing, "parsing cartridge header")
	c.cartridge = cartridge.Parse(rom)

	n, err := c.Bus.LoadROM(rom)
	if err != nil {
		return fmt.Errorf("core: load cartridge: %w", err)
	}
	c.Bus.Sink().Push(mem.KindInitializing, fmt.Sprintf("%d bytes loaded into memory", n))

	if c.cfg.BootROMEnabled {
		c.CPU.Regs.SetPC(entryPointBootROM)
	} else {
		c.CPU.Regs.SetPC(entryPointROM)
	}
	c.loaded = true
	return nil
}

// Cartridge returns the most recently parsed cartridge header. The zero
// Header is returned if LoadCartridge has not run yet.
func (c *Core) Cartridge() cartridge.Header {
	return c.cartridge
}

// Tick runs exactly one fetch-decode-execute cycle. It is atomic: the
// caller only observes state once Tick returns.
func (c *Core) Tick() error {
	return c.CPU.Tick()
}

// Registers returns an immutable snapshot of the current register file.
func (c *Core) Registers() cpu.Snapshot {
	return c.CPU.Regs.Snapshot()
}

// Peek reads a single byte without producing a fetch event; a debugger
// inspecting memory should not perturb the event stream it may also be
// displaying.
func (c *Core) Peek(addr uint16) byte {
	return c.Bus.Data[addr]
}

// DrainEvents returns every event buffered on the bus (which the CPU
// shares) since the last drain, clearing the buffer.
func (c *Core) DrainEvents() []mem.Record {
	return c.Bus.DrainEvents()
}

// ForwardEvents drains whatever the last tick buffered and hands each
// record to client, followed by one Register record per register line.
// A disconnected client is reported on standard error and the rest of
// the batch discarded; the failure never reaches the tick cycle.
func (c *Core) ForwardEvents(client *mem.Client) {
	batch := c.DrainEvents()
	for _, line := range registerLines(c.Registers()) {
		batch = append(batch, mem.Record{Kind: mem.KindRegister, Text: "\t[REG] " + line})
	}
	for _, e := range batch {
		if err := client.Send(e); err != nil {
			fmt.Fprintf(os.Stderr, "failed to send message to channel: %v\n", err)
			return
		}
	}
}

func registerLines(s cpu.Snapshot) []string {
	return []string{
		fmt.Sprintf("AF %#06x", uint16(s.A)<<8|uint16(s.F)),
		fmt.Sprintf("BC %#06x", uint16(s.B)<<8|uint16(s.C)),
		fmt.Sprintf("DE %#06x", uint16(s.D)<<8|uint16(s.E)),
		fmt.Sprintf("HL %#06x", uint16(s.H)<<8|uint16(s.L)),
		fmt.Sprintf("SP %#06x", s.SP),
		fmt.Sprintf("PC %#06x", s.PC),
	}
}

// SetPC overrides the program counter directly, bypassing any instruction
// semantics. Used by a debugger's "jump to address" command and by tests
// that want to start execution somewhere other than the configured entry
// point.
func (c *Core) SetPC(pc uint16) {
	c.CPU.Regs.SetPC(pc)
}

// BreakpointAdd arms a breakpoint at addr regardless of DebugMode. The
// breakpoint set is pure state; only an external driver loop (the
// debugger) decides what to do with it.
func (c *Core) BreakpointAdd(addr uint16) {
	c.breakpoints[addr] = struct{}{}
	c.Bus.Sink().Push(mem.KindBreakpoint, fmt.Sprintf("breakpoint added @ %#06x", addr))
}

// BreakpointRemove disarms a breakpoint at addr. Removing an address that
// was never armed leaves the set unchanged; the removal is narrated into
// the event stream either way.
func (c *Core) BreakpointRemove(addr uint16) {
	delete(c.breakpoints, addr)
	c.Bus.Sink().Push(mem.KindBreakpoint, fmt.Sprintf("breakpoint removed @ %#06x", addr))
}

// AtBreakpoint reports whether addr is currently armed. A debugger calls
// this against Registers().PC before deciding to call Tick again; the
// core itself never calls it.
func (c *Core) AtBreakpoint(addr uint16) bool {
	_, ok := c.breakpoints[addr]
	return ok
}

// BreakNext reports whether a single-step was requested via SetBreakNext.
func (c *Core) BreakNext() bool {
	return c.breakNext
}

// SetBreakNext arms or disarms the debugger's "stop after the next tick"
// flag, mirroring DebuggerState.break_next in the reference debugger.
func (c *Core) SetBreakNext(v bool) {
	c.breakNext = v
	c.Bus.Sink().Push(mem.KindDebugToggle, fmt.Sprintf("break_next set to %t", v))
}

// LogNext reports whether the debugger has asked for per-tick event
// narration, mirroring DebuggerState.log_next.
func (c *Core) LogNext() bool {
	return c.logNext
}

// SetLogNext arms or disarms per-tick event narration.
func (c *Core) SetLogNext(v bool) {
	c.logNext = v
	c.Bus.Sink().Push(mem.KindDebugToggle, fmt.Sprintf("log_next set to %t", v))
}

// DebugMode reports whether the configuration this Core was built with
// requested debug mode.
func (c *Core) DebugMode() bool {
	return c.cfg.DebugMode
}

// Loaded reports whether LoadCartridge has run.
func (c *Core) Loaded() bool {
	return c.loaded
}
