package engine

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// runPhase drives Run's resume point across suspend/resume calls, replacing
// the goto-based resume of a direct state-machine transcription with an
// explicit enum the top of Run dispatches on (DESIGN NOTES §9).
type runPhase uint8

const (
	phaseFill runPhase = iota
	phaseDrive
	phaseEndBuffer
	phaseEndBufferFinal
	phaseDone
)

// Recognizer drives the DFA of spec.md §4.3 over a byte stream, calling a
// Handler for every field/record event and cooperating with suspension via
// an optional Yielder. All of its state survives across Run calls so a
// suspended run resumes exactly where it left off.
type Recognizer struct {
	src     io.Reader
	handler Handler
	bufCtrl BufferControl
	dialect dialect

	emptyLineHandler EmptyLineHandler
	bufferObserver   BufferObserver
	yielder          Yielder
	exceptionHandler ExceptionHandler

	bufSize int
	logger  *zap.Logger
	id      uuid.UUID

	phase  runPhase
	st     state
	buf    []byte
	loaded int
	pos    int
	first  int
	last   int

	recordOpen bool
	eof        bool

	bufStart  int64
	lineStart int64
	lineIdx   int
	lineSet   bool
}

// New constructs a Recognizer over src. The buffer control is chosen
// automatically: if handler implements BufferProvider, its buffers are used
// (pass-through); otherwise a fixed-size owning buffer is allocated.
func New(src io.Reader, handler Handler, opts ...Option) *Recognizer {
	r := &Recognizer{
		src:     src,
		handler: handler,
		dialect: defaultDialect(),
		bufSize: defaultBufferSize,
		logger:  zap.NewNop(),
		id:      uuid.New(),
		st:      stateAfterLF,
		phase:   phaseFill,
	}
	if h, ok := handler.(EmptyLineHandler); ok {
		r.emptyLineHandler = h
	}
	if h, ok := handler.(BufferObserver); ok {
		r.bufferObserver = h
	}
	if h, ok := handler.(Yielder); ok {
		r.yielder = h
	}
	if h, ok := handler.(ExceptionHandler); ok {
		r.exceptionHandler = h
	}
	for _, opt := range opts {
		opt(r)
	}
	if provider, ok := handler.(BufferProvider); ok {
		r.bufCtrl = NewPassThroughBufferControl(provider)
	} else {
		r.bufCtrl = NewOwningBufferControl(r.bufSize)
	}
	return r
}

// Position reports the recognizer's current location, usable by a caller
// that wants to annotate its own errors with where the recognizer had
// gotten to (e.g. a pull cursor translating a suspended run into a
// "waiting for more input" condition).
func (r *Recognizer) Position() Position { return r.position(r.pos) }

// Run drives the recognizer until it completes, suspends at a yield
// checkpoint, or a handler method returns false. Calling Run again after a
// suspension resumes from that checkpoint; calling it again after
// completion is a no-op that returns StatusCompleted.
func (r *Recognizer) Run() (Status, error) {
	for {
		switch r.phase {
		case phaseFill:
			if err := r.fill(); err != nil {
				r.phase = phaseDone
				return StatusAborted, err
			}
			r.phase = phaseDrive

		case phaseDrive:
			for r.pos < r.loaded {
				p := r.pos
				cont, err := r.step(p)
				if err != nil {
					r.phase = phaseDone
					return StatusAborted, err
				}
				if !cont {
					r.phase = phaseDone
					return StatusAborted, nil
				}
				r.pos++
				if r.yielder != nil && r.yielder.Yield(YieldAfterStep) {
					return StatusSuspended, nil
				}
			}
			if r.eof {
				cont, err := r.eofHook()
				if err != nil {
					r.phase = phaseDone
					return StatusAborted, err
				}
				if !cont {
					r.phase = phaseDone
					return StatusAborted, nil
				}
				if r.recordOpen {
					if !r.emitEndRecord(r.loaded) {
						r.phase = phaseDone
						return StatusAborted, nil
					}
				}
				r.phase = phaseEndBufferFinal
			} else {
				if !r.underflowHook() {
					r.phase = phaseDone
					return StatusAborted, nil
				}
				r.first, r.last = 0, 0
				r.phase = phaseEndBuffer
			}

		case phaseEndBuffer, phaseEndBufferFinal:
			r.emitEndBuffer()
			r.bufCtrl.Release(r.buf)
			if r.phase == phaseEndBufferFinal {
				r.phase = phaseDone
				return StatusCompleted, nil
			}
			r.bufStart += int64(r.loaded)
			r.phase = phaseFill
			if r.yielder != nil && r.yielder.Yield(YieldAfterEndBuffer) {
				return StatusSuspended, nil
			}

		case phaseDone:
			return StatusCompleted, nil
		}
	}
}

func (r *Recognizer) fill() error {
	buf, err := r.bufCtrl.Acquire()
	if err != nil {
		return err
	}
	if len(buf) == 0 {
		return ErrBufferTooSmall
	}
	r.buf = buf
	n := 0
	for n < len(buf) && !r.eof {
		m, rerr := r.src.Read(buf[n:])
		n += m
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				r.eof = true
				break
			}
			return rerr
		}
	}
	r.loaded = n
	r.pos = 0
	r.emitStartBuffer()
	if ce := r.logger.Check(zap.DebugLevel, "buffer fill"); ce != nil {
		ce.Write(zap.String("parser_id", r.id.String()), zap.Int("bytes", n), zap.Bool("eof", r.eof))
	}
	return nil
}

func (r *Recognizer) emitStartBuffer() {
	if r.bufferObserver != nil {
		r.bufferObserver.StartBuffer(r.bufStart, r.buf[:r.loaded])
	}
}

func (r *Recognizer) emitEndBuffer() {
	if r.bufferObserver != nil {
		r.bufferObserver.EndBuffer(r.bufStart, r.buf[:r.loaded])
	}
}

// step dispatches a single byte at position p to its state handler. It
// returns (false, nil) if the handler requested an abort and (false, err)
// if the byte is malformed per the dialect.
func (r *Recognizer) step(p int) (bool, error) {
	cls := r.dialect.classify(r.buf[p])
	switch r.st {
	case stateAfterComma:
		return r.stepAfterComma(p, cls)
	case stateInValue:
		return r.stepInValue(p, cls)
	case stateRightOfOpenQuote:
		return r.stepRightOfOpenQuote(p, cls)
	case stateInQuotedValue:
		return r.stepInQuotedValue(p, cls)
	case stateInQuotedValueAfterQuote:
		return r.stepInQuotedValueAfterQuote(p, cls)
	case stateAfterCR:
		return r.stepAfterCR(p, cls)
	case stateAfterLF:
		return r.stepAfterLF(p, cls)
	default:
		panic(fmt.Sprintf("engine: unreachable state %d", r.st))
	}
}

func (r *Recognizer) stepAfterComma(p int, cls charClass) (bool, error) {
	switch cls {
	case classComma:
		r.first, r.last = p, p
		if !r.emitFinalize() {
			return false, nil
		}
		return true, nil
	case classQuote:
		if !r.ensureRecordOpen(p) {
			return false, nil
		}
		r.first, r.last = p+1, p+1
		r.st = stateRightOfOpenQuote
		return true, nil
	case classCR:
		r.first, r.last = p, p
		if !r.emitFinalize() || !r.emitEndRecord(p) {
			return false, nil
		}
		r.st = stateAfterCR
		return true, nil
	case classLF:
		r.first, r.last = p, p
		if !r.emitFinalize() || !r.emitEndRecord(p) {
			return false, nil
		}
		r.st = stateAfterLF
		return true, nil
	default:
		r.first, r.last = p, p+1
		r.st = stateInValue
		return true, nil
	}
}

func (r *Recognizer) stepInValue(p int, cls charClass) (bool, error) {
	switch cls {
	case classComma:
		if !r.emitFinalize() {
			return false, nil
		}
		r.st = stateAfterComma
		return true, nil
	case classQuote:
		return false, r.wrapErr(p, ErrQuoteInUnquotedField)
	case classCR:
		if !r.emitFinalize() || !r.emitEndRecord(p) {
			return false, nil
		}
		r.st = stateAfterCR
		return true, nil
	case classLF:
		if !r.emitFinalize() || !r.emitEndRecord(p) {
			return false, nil
		}
		r.st = stateAfterLF
		return true, nil
	default:
		r.last = p + 1
		return true, nil
	}
}

func (r *Recognizer) stepRightOfOpenQuote(p int, cls charClass) (bool, error) {
	if cls == classQuote {
		r.first, r.last = p+1, p+1
		r.st = stateInQuotedValueAfterQuote
		return true, nil
	}
	r.first, r.last = p, p+1
	r.st = stateInQuotedValue
	return true, nil
}

func (r *Recognizer) stepInQuotedValue(p int, cls charClass) (bool, error) {
	if cls == classQuote {
		if !r.emitUpdate() {
			return false, nil
		}
		r.first, r.last = p+1, p+1
		r.st = stateInQuotedValueAfterQuote
		return true, nil
	}
	r.last = p + 1
	return true, nil
}

func (r *Recognizer) stepInQuotedValueAfterQuote(p int, cls charClass) (bool, error) {
	switch cls {
	case classComma:
		if !r.emitFinalize() {
			return false, nil
		}
		r.st = stateAfterComma
		return true, nil
	case classQuote:
		r.first, r.last = p, p+1
		r.st = stateInQuotedValue
		return true, nil
	case classCR:
		if !r.emitFinalize() || !r.emitEndRecord(p) {
			return false, nil
		}
		r.st = stateAfterCR
		return true, nil
	case classLF:
		if !r.emitFinalize() || !r.emitEndRecord(p) {
			return false, nil
		}
		r.st = stateAfterLF
		return true, nil
	default:
		return false, r.wrapErr(p, ErrInvalidAfterQuote)
	}
}

func (r *Recognizer) stepAfterCR(p int, cls charClass) (bool, error) {
	switch cls {
	case classComma:
		r.newLine(p)
		r.first, r.last = p, p
		if !r.emitFinalize() {
			return false, nil
		}
		r.st = stateAfterComma
		return true, nil
	case classQuote:
		r.newLine(p)
		if !r.ensureRecordOpen(p) {
			return false, nil
		}
		r.first, r.last = p+1, p+1
		r.st = stateRightOfOpenQuote
		return true, nil
	case classCR:
		r.newLine(p)
		if !r.emitEmptyPhysicalLine(p) {
			return false, nil
		}
		return true, nil
	case classLF:
		// CR-LF collapses into a single terminator; the new physical line
		// has not started yet, so no newLine() call here.
		r.st = stateAfterLF
		return true, nil
	default:
		r.newLine(p)
		r.first, r.last = p, p+1
		r.st = stateInValue
		return true, nil
	}
}

func (r *Recognizer) stepAfterLF(p int, cls charClass) (bool, error) {
	switch cls {
	case classComma:
		r.newLine(p)
		r.first, r.last = p, p
		if !r.emitFinalize() {
			return false, nil
		}
		r.st = stateAfterComma
		return true, nil
	case classQuote:
		r.newLine(p)
		if !r.ensureRecordOpen(p) {
			return false, nil
		}
		r.first, r.last = p+1, p+1
		r.st = stateRightOfOpenQuote
		return true, nil
	case classCR:
		r.newLine(p)
		if !r.emitEmptyPhysicalLine(p) {
			return false, nil
		}
		r.st = stateAfterCR
		return true, nil
	case classLF:
		r.newLine(p)
		if !r.emitEmptyPhysicalLine(p) {
			return false, nil
		}
		return true, nil
	default:
		r.newLine(p)
		r.first, r.last = p, p+1
		r.st = stateInValue
		return true, nil
	}
}

// eofHook runs the per-state action for reaching end of input mid-buffer,
// at the synthetic position right after the last loaded byte.
func (r *Recognizer) eofHook() (bool, error) {
	p := r.loaded
	switch r.st {
	case stateAfterComma:
		r.first, r.last = p, p
		return r.emitFinalize(), nil
	case stateInValue, stateInQuotedValueAfterQuote:
		return r.emitFinalize(), nil
	case stateRightOfOpenQuote, stateInQuotedValue:
		return false, r.wrapErr(p, ErrUnterminatedQuote)
	default: // stateAfterCR, stateAfterLF: stream ended exactly on a line boundary
		return true, nil
	}
}

// underflowHook runs when the loaded region is exhausted but the source is
// not yet at EOF: a field straddling two fills must be flushed via Update
// before the next fill continues it from buffer offset 0.
func (r *Recognizer) underflowHook() bool {
	switch r.st {
	case stateInValue, stateInQuotedValue:
		if r.last > r.first {
			return r.emitUpdate()
		}
		return true
	default:
		return true
	}
}

func (r *Recognizer) emitUpdate() bool {
	return r.invoke(func() bool { return r.handler.Update(r.buf[r.first:r.last]) })
}

func (r *Recognizer) emitFinalize() bool {
	if !r.ensureRecordOpen(r.first) {
		return false
	}
	return r.invoke(func() bool { return r.handler.Finalize(r.buf[r.first:r.last]) })
}

func (r *Recognizer) emitEndRecord(p int) bool {
	ok := r.invoke(func() bool { return r.handler.EndRecord(r.position(p)) })
	r.recordOpen = false
	return ok
}

func (r *Recognizer) emitEmptyPhysicalLine(p int) bool {
	if r.emptyLineHandler == nil {
		return true
	}
	return r.invoke(func() bool { return r.emptyLineHandler.EmptyPhysicalLine(r.position(p)) })
}

func (r *Recognizer) ensureRecordOpen(p int) bool {
	if r.recordOpen {
		return true
	}
	r.recordOpen = true
	return r.invoke(func() bool { return r.handler.StartRecord(r.position(p)) })
}

// invoke calls fn, routing any panic through ExceptionHandler before
// repropagating it, per the handler-boundary exception contract.
func (r *Recognizer) invoke(fn func() bool) (cont bool) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.exceptionHandler != nil {
				if e, ok := rec.(error); ok {
					r.exceptionHandler.HandleException(e)
				} else {
					r.exceptionHandler.HandleException(fmt.Errorf("%v", rec))
				}
			}
			panic(rec)
		}
	}()
	return fn()
}

func (r *Recognizer) wrapErr(p int, cause error) error {
	return &ParseError{Pos: r.position(p), Err: cause}
}

func (r *Recognizer) globalPos(p int) int64 { return r.bufStart + int64(p) }

func (r *Recognizer) position(p int) Position {
	return Position{
		Line:    r.lineIdx,
		Column:  int(r.globalPos(p) - r.lineStart),
		LineSet: r.lineSet,
		Offset:  r.globalPos(p),
	}
}

func (r *Recognizer) newLine(p int) {
	if !r.lineSet {
		r.lineIdx = 0
		r.lineSet = true
	} else {
		r.lineIdx++
	}
	r.lineStart = r.globalPos(p)
}
