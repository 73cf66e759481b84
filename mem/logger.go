package mem

import (
	"sync"

	"gbcore/gberr"
)

// defaultLoggerCapacity bounds the transport channel between the driver
// and the consumer thread. It matches the sink capacity so a consumer
// that keeps up never sees the drop policy engage.
const defaultLoggerCapacity = 4096

// Logger is the consumer side of the event-record channel: a bounded
// single-producer single-consumer conduit between the driver loop
// (which drains the core's sink after each tick) and whatever thread
// processes the records. Construction hands out a Client for the
// producer side; the Logger itself only receives.
type Logger struct {
	ch   chan Record
	done chan struct{}
	once sync.Once
}

// NewLogger returns a Logger with the default bounded capacity.
func NewLogger() *Logger {
	return &Logger{
		ch:   make(chan Record, defaultLoggerCapacity),
		done: make(chan struct{}),
	}
}

// Client returns the producer handle the driver uses to forward records.
func (l *Logger) Client() *Client {
	return &Client{l: l}
}

// Poll blocks until a record is available or the Logger is closed.
// Records still buffered when Close runs are delivered before
// ErrChannelClosed is returned.
func (l *Logger) Poll() (Record, error) {
	select {
	case r := <-l.ch:
		return r, nil
	default:
	}
	select {
	case r := <-l.ch:
		return r, nil
	case <-l.done:
		// drain anything that raced in ahead of the close
		select {
		case r := <-l.ch:
			return r, nil
		default:
			return Record{}, gberr.ErrChannelClosed
		}
	}
}

// Close disconnects the channel. Subsequent Client.Send calls fail with
// ErrChannelClosed; Poll keeps returning buffered records until the
// channel is empty. Safe to call more than once.
func (l *Logger) Close() {
	l.once.Do(func() { close(l.done) })
}

// Client is the producer handle to a Logger's channel. A Send never
// blocks the tick that produced the record.
type Client struct {
	l *Logger
}

// Send forwards one record. A closed Logger fails with ErrChannelClosed.
// A full channel never blocks: a non-essential record is dropped
// outright, and an essential one makes room by discarding the oldest
// buffered record when that record is non-essential. When the buffer is
// saturated with essential records the probed record is re-queued and
// the newcomer gives way; under that saturation the front record lands
// behind the buffer, trading strict order for not losing it.
func (c *Client) Send(r Record) error {
	select {
	case <-c.l.done:
		return gberr.ErrChannelClosed
	default:
	}

	select {
	case c.l.ch <- r:
		return nil
	default:
	}

	if !r.Kind.essential() {
		return nil // full; fetch traces give way first
	}

	select {
	case old := <-c.l.ch:
		if old.Kind.essential() {
			// saturated with essentials: re-queue the probed record
			// and drop the newcomer. The single-producer discipline
			// guarantees the freed slot is still ours.
			c.l.ch <- old
			return nil
		}
		c.l.ch <- r
		return nil
	default:
		// the consumer emptied the channel in the meantime
		select {
		case c.l.ch <- r:
		default:
		}
		return nil
	}
}
