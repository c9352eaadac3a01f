package csv

import (
	"io"

	"github.com/shapestone/csvengine/internal/engine"
)

// Kind enumerates the events a PullCursor can deliver, extending the
// recognizer's own engine.EventKind with the two cursor-only markers
// BeforeParse and EOF (spec.md §4.5's state() contract).
type Kind uint8

const (
	KindBeforeParse Kind = iota
	KindStartBuffer
	KindStartRecord
	KindUpdate
	KindFinalize
	KindEndRecord
	KindEmptyPhysicalLine
	KindEndBuffer
	KindEOF
)

// EventMask selects which event kinds a PullCursor actually queues; events
// outside the mask are dropped at the handler callback, never queued
// (spec.md §4.5).
type EventMask uint16

const (
	MaskStartBuffer EventMask = 1 << iota
	MaskStartRecord
	MaskUpdate
	MaskFinalize
	MaskEndRecord
	MaskEmptyPhysicalLine
	MaskEndBuffer

	MaskAll = MaskStartBuffer | MaskStartRecord | MaskUpdate | MaskFinalize |
		MaskEndRecord | MaskEmptyPhysicalLine | MaskEndBuffer
)

func maskFor(k Kind) EventMask {
	switch k {
	case KindStartBuffer:
		return MaskStartBuffer
	case KindStartRecord:
		return MaskStartRecord
	case KindUpdate:
		return MaskUpdate
	case KindFinalize:
		return MaskFinalize
	case KindEndRecord:
		return MaskEndRecord
	case KindEmptyPhysicalLine:
		return MaskEmptyPhysicalLine
	case KindEndBuffer:
		return MaskEndBuffer
	default:
		return 0
	}
}

type event struct {
	kind Kind
	data []byte
	pos  engine.Position
}

// PullCursor is the C5 primitive pull cursor: it drives an engine.Recognizer
// as its own Handler, queues the events the mask selects, and lets a caller
// pull them one at a time instead of being pushed to synchronously. It is
// itself the recognizer's Handler/Yielder/EmptyLineHandler/BufferObserver —
// the push-to-pull inversion happens entirely inside its callback methods.
type PullCursor struct {
	rec   *engine.Recognizer
	mask  EventMask
	queue []event

	discard bool
	state   Kind
	current event
	err     error
}

// NewPullCursor constructs a cursor over src, queuing only the event kinds
// named in mask.
func NewPullCursor(src io.Reader, mask EventMask, opts ...engine.Option) *PullCursor {
	c := &PullCursor{mask: mask, state: KindBeforeParse}
	c.rec = engine.New(src, c, opts...)
	return c
}

func (c *PullCursor) push(kind Kind, data []byte, pos engine.Position) {
	if c.mask&maskFor(kind) == 0 {
		return
	}
	if c.discard {
		data = nil
		pos = engine.Position{}
	}
	c.queue = append(c.queue, event{kind: kind, data: data, pos: pos})
}

// Handler (engine.Handler) — required capabilities.
func (c *PullCursor) StartRecord(pos engine.Position) bool {
	c.push(KindStartRecord, nil, pos)
	return true
}

func (c *PullCursor) Update(data []byte) bool {
	c.push(KindUpdate, data, engine.Position{})
	return true
}

func (c *PullCursor) Finalize(data []byte) bool {
	c.push(KindFinalize, data, engine.Position{})
	return true
}

func (c *PullCursor) EndRecord(pos engine.Position) bool {
	c.push(KindEndRecord, nil, pos)
	return true
}

// EmptyLineHandler, BufferObserver — optional capabilities, always
// implemented here; the mask (not interface absence) decides whether
// anything is queued.
func (c *PullCursor) EmptyPhysicalLine(pos engine.Position) bool {
	c.push(KindEmptyPhysicalLine, nil, pos)
	return true
}

func (c *PullCursor) StartBuffer(offset int64, buf []byte) {
	c.push(KindStartBuffer, buf, engine.Position{Offset: offset})
}

func (c *PullCursor) EndBuffer(offset int64, buf []byte) {
	c.push(KindEndBuffer, buf, engine.Position{Offset: offset})
}

// Yield (engine.Yielder) — suspends the moment an event lands in the
// queue, and opportunistically at every end-of-buffer even with an empty
// queue, per spec.md §4.5's "yields exactly when at least one event is
// enqueued (or when end-of-buffer is reached)".
func (c *PullCursor) Yield(loc engine.YieldLocation) bool {
	if loc == engine.YieldAfterEndBuffer {
		return true
	}
	return len(c.queue) > 0
}

// State reports the kind of the head event.
func (c *PullCursor) State() Kind { return c.state }

// Data returns the head event's byte payload (Update/Finalize/StartBuffer/
// EndBuffer); nil for position-only events or when discarding.
func (c *PullCursor) Data() []byte { return c.current.data }

// EventPosition returns the head event's position payload (StartRecord/
// EndRecord/EmptyPhysicalLine).
func (c *PullCursor) EventPosition() engine.Position { return c.current.pos }

// SetDiscardingData drops future payloads while still enqueueing and
// counting events, for cheap field/record skipping.
func (c *PullCursor) SetDiscardingData(discard bool) { c.discard = discard }

// PhysicalPosition delegates to the recognizer's current position.
func (c *PullCursor) PhysicalPosition() engine.Position { return c.rec.Position() }

// Advance pops the head event, pumping the recognizer for more when the
// queue is empty. Returns the recognizer's error, if any; on error (or on
// exhaustion) State becomes KindEOF.
func (c *PullCursor) Advance() error {
	if c.state == KindEOF {
		return c.err
	}
	if len(c.queue) == 0 {
		if err := c.pump(); err != nil {
			c.err = err
			c.state = KindEOF
			c.current = event{}
			return err
		}
	}
	if len(c.queue) == 0 {
		c.state = KindEOF
		c.current = event{}
		return nil
	}
	c.current = c.queue[0]
	c.queue = c.queue[1:]
	c.state = c.current.kind
	return nil
}

func (c *PullCursor) pump() error {
	_, err := c.rec.Run()
	return err
}
