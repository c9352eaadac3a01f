package engine

// EventKind names the events a Handler receives, in the order spec.md §3's
// GLOSSARY defines them. Pull cursors built on top of engine (pkg/csv's
// PullCursor) queue values of this type verbatim.
type EventKind uint8

const (
	EventStartBuffer EventKind = iota
	EventStartRecord
	EventUpdate
	EventFinalize
	EventEndRecord
	EventEmptyPhysicalLine
	EventEndBuffer
)

func (k EventKind) String() string {
	switch k {
	case EventStartBuffer:
		return "StartBuffer"
	case EventStartRecord:
		return "StartRecord"
	case EventUpdate:
		return "Update"
	case EventFinalize:
		return "Finalize"
	case EventEndRecord:
		return "EndRecord"
	case EventEmptyPhysicalLine:
		return "EmptyPhysicalLine"
	case EventEndBuffer:
		return "EndBuffer"
	default:
		return "Unknown"
	}
}

// Status is what Run returns: the DFA ran to completion, suspended at a
// yield checkpoint awaiting resumption, or stopped early because a handler
// method returned false (spec.md §4.3.3).
type Status uint8

const (
	StatusCompleted Status = iota
	StatusSuspended
	StatusAborted
)

// YieldLocation names the two cooperative-suspension checkpoints of
// spec.md §4.4 (post-character-step and post-end-buffer). YieldNone is the
// zero value; Run never passes it to Yield.
type YieldLocation uint8

const (
	YieldNone YieldLocation = iota
	YieldAfterStep
	YieldAfterEndBuffer
)

// Handler is the C4 contract every recognizer run must satisfy. Field data
// passed to Update and Finalize is a window into the current buffer — it is
// only valid for the duration of the call; a handler that needs to retain
// it past the call must copy it (spec.md §4.4).
//
// A false return from any method aborts the run: Run returns
// (StatusAborted, nil) without surfacing an error, mirroring spec.md
// §4.3.3's "abort is a normal return path, not an exception".
type Handler interface {
	StartRecord(pos Position) bool
	EndRecord(pos Position) bool
	Update(data []byte) bool
	Finalize(data []byte) bool
}

// EmptyLineHandler is the optional capability for observing a physical line
// that contained zero fields (a bare terminator with no preceding record
// content). Handlers that don't care about this distinction simply don't
// implement it.
type EmptyLineHandler interface {
	EmptyPhysicalLine(pos Position) bool
}

// BufferObserver is the optional capability for observing buffer fills.
// offset is the absolute stream offset of buf[0]. Neither method can abort
// the run (spec.md's table does not list start_buffer/end_buffer among the
// methods a handler can use to stop recognition).
type BufferObserver interface {
	StartBuffer(offset int64, buf []byte)
	EndBuffer(offset int64, buf []byte)
}

// Yielder is the optional capability that opts a handler into cooperative
// suspension (spec.md §4.3.2). Yield is called at both checkpoints — after
// every normal character step and after every EndBuffer — and a true
// return suspends the run at that point; Run resumes exactly there on the
// next call, since all recognizer state (buffer, position, DFA state)
// already persists across calls.
type Yielder interface {
	Yield(loc YieldLocation) bool
}

// ExceptionHandler lets a handler observe a panic raised from within one of
// its own methods before the recognizer repropagates it — the Go analogue
// of spec.md §4.4's "exception crossing the handler boundary is reported to
// handle_exception once, then rethrown".
type ExceptionHandler interface {
	HandleException(err error)
}
