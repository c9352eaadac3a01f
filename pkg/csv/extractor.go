package csv

import (
	"errors"
	"io"

	"github.com/shapestone/csvengine/internal/engine"
)

// ErrHeaderFieldNotFound is returned when a RecordExtractor's name
// predicate matches no header field (spec.md §4.7 step 1).
var ErrHeaderFieldNotFound = errors.New("csv: no header field matched the target predicate")

type extractMode uint8

const (
	modeCarrying extractMode = iota
	modeInclude
	modeExclude
)

// ExtractorOption configures a RecordExtractor at construction.
type ExtractorOption func(*RecordExtractor)

// WithTargetIndex selects the target field by a fixed zero-based index,
// skipping header name matching entirely. Mutually exclusive with
// WithTargetName — the option applied last wins.
func WithTargetIndex(index int) ExtractorOption {
	return func(e *RecordExtractor) {
		e.useExplicitIndex = true
		e.targetIndex = index
	}
}

// WithTargetName selects the target field as the first header field that
// satisfies pred.
func WithTargetName(pred func(name string) bool) ExtractorOption {
	return func(e *RecordExtractor) {
		e.useExplicitIndex = false
		e.targetName = pred
	}
}

// WithValuePredicate sets the predicate evaluated against the target
// field's value in each body record; true includes the record.
func WithValuePredicate(pred func(value []byte) bool) ExtractorOption {
	return func(e *RecordExtractor) { e.valuePredicate = pred }
}

// WithIncludeHeader controls whether the header record is written
// unconditionally ahead of any matching body records.
func WithIncludeHeader(include bool) ExtractorOption {
	return func(e *RecordExtractor) { e.includeHeader = include }
}

// WithMaxRecords caps the number of body records written; n < 0 (the
// default) means unlimited, n == 0 means none.
func WithMaxRecords(n int) ExtractorOption {
	return func(e *RecordExtractor) { e.maxRecords = n }
}

// RecordExtractor is the C7 handler: it writes selected original records,
// verbatim apart from a normalized single '\n' terminator, to out. It
// reconstructs "verbatim" text from the raw buffers the recognizer hands to
// BufferObserver rather than from decoded field values, so quoting choices
// and original spacing inside fields survive exactly as read — only the
// line terminator is normalized (spec.md §4.7).
type RecordExtractor struct {
	out io.Writer

	useExplicitIndex bool
	targetIndex      int
	targetName       func(name string) bool
	valuePredicate   func(value []byte) bool
	includeHeader    bool
	maxRecords       int

	inHeader       bool
	headerResolved bool
	resolvedIndex  int

	fieldIdx  int
	fieldFrag []byte

	mode              extractMode
	carry             []byte
	recordStartOffset int64
	haveRecordStart   bool
	curBufGlobalStart int64
	curBuf            []byte

	emitted int
	done    bool
	err     error
}

// NewRecordExtractor constructs an extractor. Exactly one of
// WithTargetIndex / WithTargetName must be supplied.
func NewRecordExtractor(out io.Writer, opts ...ExtractorOption) *RecordExtractor {
	e := &RecordExtractor{
		out:           out,
		maxRecords:    -1,
		inHeader:      true,
		resolvedIndex: -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Err returns the error that stopped extraction, if any.
func (e *RecordExtractor) Err() error { return e.err }

func (e *RecordExtractor) StartRecord(pos engine.Position) bool {
	e.recordStartOffset = pos.Offset
	e.haveRecordStart = true
	e.fieldIdx = 0
	e.mode = modeCarrying
	return true
}

func (e *RecordExtractor) Update(data []byte) bool {
	e.fieldFrag = append(e.fieldFrag, data...)
	return true
}

func (e *RecordExtractor) Finalize(data []byte) bool {
	full := data
	if len(e.fieldFrag) > 0 {
		full = append(e.fieldFrag, data...)
		e.fieldFrag = nil
	}
	idx := e.fieldIdx
	e.fieldIdx++

	if e.inHeader {
		if !e.headerResolved {
			if e.useExplicitIndex {
				e.resolvedIndex = e.targetIndex
				e.headerResolved = true
			} else if e.targetName != nil && e.targetName(string(full)) {
				e.resolvedIndex = idx
				e.headerResolved = true
			}
		}
		return true
	}

	if idx == e.resolvedIndex && e.mode == modeCarrying {
		if e.valuePredicate != nil && e.valuePredicate(full) {
			e.mode = modeInclude
		} else {
			e.mode = modeExclude
		}
	}
	return true
}

func (e *RecordExtractor) EndRecord(pos engine.Position) bool {
	raw := e.flushCarry(pos.Offset)

	if e.inHeader {
		e.inHeader = false
		if !e.headerResolved {
			e.err = ErrHeaderFieldNotFound
			e.done = true
			return false
		}
		if e.includeHeader {
			if !e.writeRecord(raw) {
				return false
			}
		}
		if e.maxRecords == 0 {
			e.done = true
			return false
		}
		return true
	}

	if e.mode == modeInclude {
		if !e.writeRecord(raw) {
			return false
		}
		e.emitted++
		if e.maxRecords >= 0 && e.emitted >= e.maxRecords {
			e.done = true
		}
	}
	e.mode = modeCarrying
	e.fieldIdx = 0
	return !e.done
}

func (e *RecordExtractor) writeRecord(raw []byte) bool {
	if _, err := e.out.Write(raw); err != nil {
		e.err = err
		e.done = true
		return false
	}
	if _, err := e.out.Write([]byte{'\n'}); err != nil {
		e.err = err
		e.done = true
		return false
	}
	return true
}

// StartBuffer/EndBuffer capture the raw bytes of the in-progress record as
// each fill completes, since the recognizer's buffer is only guaranteed
// stable between these two calls.
func (e *RecordExtractor) StartBuffer(offset int64, buf []byte) {
	e.curBufGlobalStart = offset
	e.curBuf = buf
}

func (e *RecordExtractor) EndBuffer(offset int64, buf []byte) {
	if !e.haveRecordStart {
		return
	}
	start := e.recordStartOffset - offset
	if start < 0 {
		start = 0
	}
	if int(start) < len(buf) {
		e.carry = append(e.carry, buf[start:]...)
	}
	e.recordStartOffset = offset + int64(len(buf))
}

// flushCarry returns the accumulated raw bytes of the record ending at
// endOffset, appending whatever tail of the current buffer belongs to it,
// and resets carry tracking for the next record.
func (e *RecordExtractor) flushCarry(endOffset int64) []byte {
	start := e.recordStartOffset - e.curBufGlobalStart
	if start < 0 {
		start = 0
	}
	end := endOffset - e.curBufGlobalStart
	raw := e.carry
	if start >= 0 && end >= start {
		raw = append(raw, e.bufTail(int(start), int(end))...)
	}
	e.carry = nil
	e.haveRecordStart = false
	return raw
}

func (e *RecordExtractor) bufTail(start, end int) []byte {
	if e.curBuf == nil {
		return nil
	}
	if start < 0 {
		start = 0
	}
	if end > len(e.curBuf) {
		end = len(e.curBuf)
	}
	if start >= end {
		return nil
	}
	return e.curBuf[start:end]
}
