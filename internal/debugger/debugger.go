// Package debugger is the interactive terminal front-end described in
// §1/§9 as independent of the core: it drives a *core.Core exclusively
// through the Driver API (Tick, Registers, Peek, breakpoints,
// DrainEvents), the way the reference `Debuggable` trait's boundary does,
// and never reaches into register-file or bus internals directly.
package debugger

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"gbcore/core"
	"gbcore/cpu"
)

// bytesPerPage is the width of one row in the memory page table.
const bytesPerPage = 16

// pageRowCount is how many rows the page table renders, starting at the
// row that holds PC.
const pageRowCount = 5

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	logStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Model is a tea.Model wrapping a *core.Core. Update advances one tick per
// step keypress; View composes a page table and a status panel the way
// cpu/debugger.go's model does, plus the breakpoint/step/log command
// surface folded in from gb_debugger.rs/input.rs as additional key
// bindings rather than a separate command parser.
type Model struct {
	c *core.Core

	prevPC uint16
	err    error
	log    []string
	quit   bool
}

// New returns a debugger Model wrapping c. c must already have a
// cartridge loaded.
func New(c *core.Core) Model {
	return Model{c: c}
}

// Init satisfies tea.Model. No cartridge or entry-point seeding happens
// here: LoadCartridge is the core's job, already done by the caller.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update satisfies tea.Model, interpreting keypresses as the supplemented
// debugger commands: step, continue-to-breakpoint, toggle a breakpoint at
// the current PC, toggle per-tick event narration, and quit.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "q", "ctrl+c":
		m.quit = true
		return m, tea.Quit

	case " ", "n":
		m.step()

	case "c":
		m.continueToBreakpoint()

	case "b":
		pc := m.c.Registers().PC
		if m.c.AtBreakpoint(pc) {
			m.c.BreakpointRemove(pc)
			m.appendLog(fmt.Sprintf("breakpoint removed @ %#04x", pc))
		} else {
			m.c.BreakpointAdd(pc)
			m.appendLog(fmt.Sprintf("breakpoint added @ %#04x", pc))
		}

	case "l":
		m.c.SetLogNext(!m.c.LogNext())
		m.appendLog(fmt.Sprintf("logger set to '%s'", onOff(m.c.LogNext())))
	}

	return m, nil
}

// step runs exactly one tick, recording any error and, when LogNext is
// armed, every event the tick produced.
func (m *Model) step() {
	m.prevPC = m.c.Registers().PC
	if err := m.c.Tick(); err != nil {
		m.err = err
		return
	}
	if m.c.LogNext() {
		for _, e := range m.c.DrainEvents() {
			m.appendLog(fmt.Sprintf("[%s] %s", e.Kind, e.Text))
		}
	} else {
		m.c.DrainEvents()
	}
}

// continueToBreakpoint steps until a breakpoint is hit, an error occurs,
// or break_next is armed (via Core.SetBreakNext). This loop lives
// entirely in the debugger: the core itself never consults the breakpoint
// set.
func (m *Model) continueToBreakpoint() {
	for {
		m.step()
		if m.err != nil {
			return
		}
		if m.c.BreakNext() || m.c.AtBreakpoint(m.c.Registers().PC) {
			return
		}
	}
}

func (m *Model) appendLog(s string) {
	m.log = append(m.log, s)
	if len(m.log) > 8 {
		m.log = m.log[len(m.log)-8:]
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// renderPage renders one 16-byte row of memory as a line, highlighting
// the byte at PC.
func (m Model) renderPage(start uint16) string {
	pc := m.c.Registers().PC
	s := fmt.Sprintf("%04x | ", start)
	for i := 0; i < bytesPerPage; i++ {
		addr := start + uint16(i)
		v := m.c.Peek(addr)
		if addr == pc {
			s += currentStyle.Render(fmt.Sprintf("[%02x]", v)) + " "
		} else {
			s += fmt.Sprintf(" %02x  ", v)
		}
	}
	return s
}

// pageTable renders pageRowCount rows of memory, the first being the row
// that holds PC.
func (m Model) pageTable() string {
	pc := m.c.Registers().PC
	base := pc - pc%bytesPerPage

	header := headerStyle.Render("page | ")
	for b := 0; b < bytesPerPage; b++ {
		header += fmt.Sprintf("  %01x  ", b)
	}

	rows := []string{header}
	for i := 0; i < pageRowCount; i++ {
		rows = append(rows, m.renderPage(base+uint16(i*bytesPerPage)))
	}
	return strings.Join(rows, "\n")
}

// status renders the register snapshot and flag bits, mirroring the
// teacher's status() panel but over the packed Z/N/H/C flag byte instead
// of a 6502 status register.
func (m Model) status() string {
	snap := m.c.Registers()
	flags := fmt.Sprintf("Z:%d N:%d H:%d C:%d",
		b2i(snap.F&byte(cpu.FlagZero) != 0),
		b2i(snap.F&byte(cpu.FlagSubtract) != 0),
		b2i(snap.F&byte(cpu.FlagHalfCarry) != 0),
		b2i(snap.F&byte(cpu.FlagCarry) != 0),
	)

	return fmt.Sprintf(`
PC: %#04x (prev %#04x)
SP: %#04x
 A: %#02x  F: %#02x
 B: %#02x  C: %#02x
 D: %#02x  E: %#02x
 H: %#02x  L: %#02x
%s`,
		snap.PC, m.prevPC,
		snap.SP,
		snap.A, snap.F,
		snap.B, snap.C,
		snap.D, snap.E,
		snap.H, snap.L,
		flags,
	)
}

// opcodeDump gives a raw structural dump of the decoded table entry
// sitting under PC, via spew.Sdump exactly as the teacher's View does
// with its own Opcodes map.
func (m Model) opcodeDump() string {
	op := m.c.Peek(m.c.Registers().PC)
	if entry, ok := cpu.Opcodes[op]; ok {
		return spew.Sdump(entry)
	}
	return spew.Sdump(op)
}

// View satisfies tea.Model.
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("error: %v", m.err)) + "\n" + m.status()
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.pageTable(),
		m.status(),
	)

	help := logStyle.Render("space/n step · c continue · b breakpoint · l toggle log · q quit")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		body,
		"",
		m.opcodeDump(),
		strings.Join(m.log, "\n"),
		help,
	)
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Run starts the interactive TUI over c, blocking until the operator
// quits. c must already have a cartridge loaded.
func Run(c *core.Core) error {
	_, err := tea.NewProgram(New(c)).Run()
	return err
}
