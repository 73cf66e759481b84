package mem

import "sync"

// Kind tags an event Record with the class of observable effect that
// produced it. The set matches what the register file, bus, and decoder
// are documented to emit: hardware-visible mutations (MemorySave,
// MemoryFetch, VramSave, Register), lifecycle markers (Initializing,
// Exit, Snapshot), and decoder narration (Tick, Decoding), plus the
// debugger's own toggle notifications.
type Kind int

const (
	KindInitializing Kind = iota
	KindTick
	KindMemorySave
	KindMemoryFetch
	KindVramSave
	KindDecoding
	KindSnapshot
	KindExit
	KindRegister
	KindDebugToggle
	KindBreakpoint
)

func (k Kind) String() string {
	switch k {
	case KindInitializing:
		return "Initializing"
	case KindTick:
		return "Tick"
	case KindMemorySave:
		return "MemorySave"
	case KindMemoryFetch:
		return "MemoryFetch"
	case KindVramSave:
		return "VramSave"
	case KindDecoding:
		return "Decoding"
	case KindSnapshot:
		return "Snapshot"
	case KindExit:
		return "Exit"
	case KindRegister:
		return "Register"
	case KindDebugToggle:
		return "DebugToggle"
	case KindBreakpoint:
		return "Breakpoint"
	default:
		return "Unknown"
	}
}

// essential reports whether a record of this kind must never be dropped
// when the sink is under backpressure. Fetch traces and decode narration
// are the "non-essential" classes named in the design notes; everything
// else is essential.
func (k Kind) essential() bool {
	switch k {
	case KindMemoryFetch, KindDecoding:
		return false
	default:
		return true
	}
}

// Record is a single typed event produced by any core component.
type Record struct {
	Kind Kind
	Text string
}

// defaultSinkCapacity bounds how many records a Sink holds between drains.
// A tick that forgets to drain for a long stretch should lose fetch
// traces before it loses anything essential, not grow without bound.
const defaultSinkCapacity = 4096

// Sink is the bounded, region-tagged event buffer described in §5/§9:
// a push never blocks; once full it discards the oldest
// non-essential record to make room, and only falls back to discarding
// the oldest record outright when the buffer is saturated with essential
// ones.
type Sink struct {
	mu  sync.Mutex
	cap int
	buf []Record
}

// NewSink constructs a Sink with the default bounded capacity.
func NewSink() *Sink {
	return &Sink{cap: defaultSinkCapacity}
}

// Push appends a record, applying the drop-oldest-non-essential policy
// when the buffer is at capacity.
func (s *Sink) Push(kind Kind, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) >= s.cap {
		if !s.dropOldestNonEssentialLocked() {
			s.buf = s.buf[1:]
		}
	}
	s.buf = append(s.buf, Record{Kind: kind, Text: text})
}

func (s *Sink) dropOldestNonEssentialLocked() bool {
	for i, r := range s.buf {
		if !r.Kind.essential() {
			s.buf = append(s.buf[:i], s.buf[i+1:]...)
			return true
		}
	}
	return false
}

// Drain returns every buffered record since the last drain and clears
// the buffer.
func (s *Sink) Drain() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) == 0 {
		return nil
	}
	out := s.buf
	s.buf = nil
	return out
}

// Clear discards any buffered records without returning them. The
// decoder calls this at the start of every tick so that a driver which
// forgot to drain never sees stale events bleed into the next tick.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
