package csv

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shapestone/csvengine/internal/engine"
)

// Sentinel kinds a FieldError can carry (spec.md §4.8's three conversion
// outcomes plus the skip-policy's field_not_found).
var (
	ErrFieldNotFound      = errors.New("csv: bound field missing from a short record")
	ErrFieldInvalidFormat = errors.New("csv: field value is not valid for the target type")
	ErrFieldOutOfRange    = errors.New("csv: field value is out of range for the target type")
	ErrFieldEmpty         = errors.New("csv: field value is empty")
)

// RangeSignHint classifies which side of the target's range an out-of-range
// numeric outcome fell on: above the upper bound, below the lower bound, or
// (for floating point) underflow toward zero.
type RangeSignHint int

const (
	SignNone     RangeSignHint = 0
	SignAboveMax RangeSignHint = 1
	SignBelowMin RangeSignHint = -1
)

// FieldError is raised by a fail action. Kind is one of the Err* sentinels
// above; Sign is only meaningful when Kind is ErrFieldOutOfRange.
type FieldError struct {
	Index int
	Kind  error
	Raw   string
	Sign  RangeSignHint
}

func (e *FieldError) Error() string {
	if e.Kind == ErrFieldOutOfRange {
		return fmt.Sprintf("csv: field %d: %v: %q (sign=%d)", e.Index, e.Kind, e.Raw, e.Sign)
	}
	return fmt.Sprintf("csv: field %d: %v: %q", e.Index, e.Kind, e.Raw)
}

func (e *FieldError) Unwrap() error { return e.Kind }

// ErrorAction is a canonical skip-policy or conversion-error handler.
type ErrorAction uint8

const (
	ActionFail ErrorAction = iota
	ActionReplace
	ActionIgnore
)

// Policy configures one skip or conversion-error branch.
type Policy struct {
	Action      ErrorAction
	Replacement interface{}
}

func Fail() Policy                 { return Policy{Action: ActionFail} }
func Replace(v interface{}) Policy { return Policy{Action: ActionReplace, Replacement: v} }
func Ignore() Policy               { return Policy{Action: ActionIgnore} }

// ConversionPolicy groups the three independently configurable conversion
// error branches.
type ConversionPolicy struct {
	InvalidFormat Policy
	OutOfRange    Policy
	Empty         Policy
}

// DefaultConversionPolicy fails on every branch.
func DefaultConversionPolicy() ConversionPolicy {
	return ConversionPolicy{InvalidFormat: Fail(), OutOfRange: Fail(), Empty: Fail()}
}

// ColumnBinding binds one zero-based field index to a field translator.
// Exactly one of rangeFn/valueFn is populated by its constructor; both
// outcomes funnel through dispatchField uniformly.
type ColumnBinding struct {
	index         int
	skip          Policy
	rangeFn       func(data []byte) (bool, error)
	valueFn       func(value string) (bool, error)
	replacementFn func(repl interface{}) (bool, error)
}

// RangeColumn binds index to a translator that receives the field's raw
// bytes, guaranteed NUL-terminated one byte past the slice (spec.md §4.8).
func RangeColumn(index int, skip Policy, fn func(data []byte) bool) ColumnBinding {
	return ColumnBinding{
		index:   index,
		skip:    skip,
		rangeFn: func(data []byte) (bool, error) { return fn(data), nil },
		replacementFn: func(repl interface{}) (bool, error) {
			b, _ := repl.([]byte)
			return fn(b), nil
		},
	}
}

// ValueColumn binds index to a translator that receives a freshly allocated
// owning string.
func ValueColumn(index int, skip Policy, fn func(value string) bool) ColumnBinding {
	return ColumnBinding{
		index:   index,
		skip:    skip,
		valueFn: func(value string) (bool, error) { return fn(value), nil },
		replacementFn: func(repl interface{}) (bool, error) {
			v, _ := repl.(string)
			return fn(v), nil
		},
	}
}

func trimLeadingSpace(s string) string {
	return strings.TrimLeft(s, " \t\r\n\v\f")
}

func classifyIntError(trimmed string, err error) (error, RangeSignHint) {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		sign := SignAboveMax
		if strings.HasPrefix(trimmed, "-") {
			sign = SignBelowMin
		}
		return ErrFieldOutOfRange, sign
	}
	return ErrFieldInvalidFormat, SignNone
}

func checkIntBounds(n, min, max int64) (bool, RangeSignHint) {
	if n > max {
		return false, SignAboveMax
	}
	if n < min {
		return false, SignBelowMin
	}
	return true, SignNone
}

func handleConvErr(p Policy, index int, raw string, kind error, sign RangeSignHint, deliver func(interface{}) (bool, error)) (bool, error) {
	switch p.Action {
	case ActionFail:
		return false, &FieldError{Index: index, Kind: kind, Raw: raw, Sign: sign}
	case ActionReplace:
		return deliver(p.Replacement)
	default:
		return true, nil
	}
}

// Int64Column parses the field as a base-10 (or base, if nonzero) signed
// integer and delivers it to sink.
func Int64Column(index int, base int, skip Policy, conv ConversionPolicy, sink func(int64) bool) ColumnBinding {
	if base == 0 {
		base = 10
	}
	deliver := func(repl interface{}) (bool, error) {
		v, _ := repl.(int64)
		return sink(v), nil
	}
	value := func(raw string) (bool, error) {
		trimmed := trimLeadingSpace(raw)
		if trimmed == "" {
			return handleConvErr(conv.Empty, index, raw, ErrFieldEmpty, SignNone, deliver)
		}
		n, err := strconv.ParseInt(trimmed, base, 64)
		if err != nil {
			kind, sign := classifyIntError(trimmed, err)
			pol := conv.InvalidFormat
			if kind == ErrFieldOutOfRange {
				pol = conv.OutOfRange
			}
			return handleConvErr(pol, index, raw, kind, sign, deliver)
		}
		return sink(n), nil
	}
	return ColumnBinding{index: index, skip: skip, valueFn: value, replacementFn: deliver}
}

// Int32Column is a bounded-integer target: it parses via the same 64-bit
// path as Int64Column, then range-checks the result against int32's limits,
// per spec.md §4.8's "bounded integer targets... additionally range-check
// the raw result against the target's numeric limits".
func Int32Column(index int, skip Policy, conv ConversionPolicy, sink func(int32) bool) ColumnBinding {
	deliver := func(repl interface{}) (bool, error) {
		v, _ := repl.(int32)
		return sink(v), nil
	}
	value := func(raw string) (bool, error) {
		trimmed := trimLeadingSpace(raw)
		if trimmed == "" {
			return handleConvErr(conv.Empty, index, raw, ErrFieldEmpty, SignNone, deliver)
		}
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			kind, sign := classifyIntError(trimmed, err)
			pol := conv.InvalidFormat
			if kind == ErrFieldOutOfRange {
				pol = conv.OutOfRange
			}
			return handleConvErr(pol, index, raw, kind, sign, deliver)
		}
		if ok, sign := checkIntBounds(n, math.MinInt32, math.MaxInt32); !ok {
			return handleConvErr(conv.OutOfRange, index, raw, ErrFieldOutOfRange, sign, deliver)
		}
		return sink(int32(n)), nil
	}
	return ColumnBinding{index: index, skip: skip, valueFn: value, replacementFn: deliver}
}

// looksNonZero reports whether s's mantissa (the part before any exponent)
// contains a nonzero digit — used to distinguish a genuine zero value from
// float underflow, which Go's strconv.ParseFloat rounds to 0 silently
// instead of reporting as a range error.
func looksNonZero(s string) bool {
	for _, c := range s {
		if c == 'e' || c == 'E' {
			break
		}
		if c >= '1' && c <= '9' {
			return true
		}
	}
	return false
}

// Float64Column parses the field as a floating point value and delivers it
// to sink. Overflow reports SignAboveMax/SignBelowMin by the value's sign;
// underflow to zero reports SignNone.
func Float64Column(index int, skip Policy, conv ConversionPolicy, sink func(float64) bool) ColumnBinding {
	deliver := func(repl interface{}) (bool, error) {
		v, _ := repl.(float64)
		return sink(v), nil
	}
	value := func(raw string) (bool, error) {
		trimmed := trimLeadingSpace(raw)
		if trimmed == "" {
			return handleConvErr(conv.Empty, index, raw, ErrFieldEmpty, SignNone, deliver)
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				sign := SignAboveMax
				if strings.HasPrefix(trimmed, "-") {
					sign = SignBelowMin
				}
				return handleConvErr(conv.OutOfRange, index, raw, ErrFieldOutOfRange, sign, deliver)
			}
			return handleConvErr(conv.InvalidFormat, index, raw, ErrFieldInvalidFormat, SignNone, deliver)
		}
		if f == 0 && looksNonZero(trimmed) {
			return handleConvErr(conv.OutOfRange, index, raw, ErrFieldOutOfRange, SignNone, deliver)
		}
		return sink(f), nil
	}
	return ColumnBinding{index: index, skip: skip, valueFn: value, replacementFn: deliver}
}

// HeaderFieldFunc is the header field scanner capability: invoked once per
// header field with its index and raw (NUL-terminated) bytes, then once
// more with data == nil as an end-of-header signal at the end of the
// record. Returning true from the end-of-header call keeps the scanner
// installed for the next record too, so a header spanning more than one
// physical record stays in header mode until the end-of-header call
// itself returns false. Returning false from a per-field call removes the
// header field scanner: it sees no further fields, the end-of-header call
// for that record does not fire, and the header ends with that record.
type HeaderFieldFunc func(index int, data []byte, s *Scanner) bool

// ScannerOption configures a Scanner at construction.
type ScannerOption func(*Scanner)

// WithHeaderSkip skips the first n records entirely, applying no column
// bindings to them. Mutually exclusive with WithHeaderFieldScanner — the
// option applied last wins.
func WithHeaderSkip(n int) ScannerOption {
	return func(s *Scanner) {
		s.headerScan = nil
		s.headerRemaining = n
	}
}

// WithHeaderFieldScanner supplies a header field scanner in place of a
// fixed skip count.
func WithHeaderFieldScanner(fn HeaderFieldFunc) ScannerOption {
	return func(s *Scanner) {
		s.headerRemaining = 0
		s.headerScan = fn
	}
}

// WithRecordEnd sets the record-end translator, called after every
// non-header record's last field; returning false aborts the stream.
func WithRecordEnd(fn func() bool) ScannerOption {
	return func(s *Scanner) { s.recordEnd = fn }
}

// WithColumn binds a column translator.
func WithColumn(b ColumnBinding) ScannerOption {
	return func(s *Scanner) { s.bindings[b.index] = b }
}

// BindColumn installs or replaces the binding for b.index. Exported so a
// HeaderFieldFunc can bind columns it discovers by name once the header
// arrives, rather than requiring indices to be known before NewScanner
// (see NewSchemaScanner).
func (s *Scanner) BindColumn(b ColumnBinding) {
	s.bindings[b.index] = b
}

// WithEngineOption forwards an engine.Option to the underlying recognizer
// (e.g. engine.WithLogger, engine.WithComma). engine.WithBufferSize has no
// effect here since the Scanner supplies its own buffers — use
// WithScannerBufferSize instead.
func WithEngineOption(opt engine.Option) ScannerOption {
	return func(s *Scanner) { s.engineOpts = append(s.engineOpts, opt) }
}

// WithScannerBufferSize sets the size of the buffer the Scanner allocates
// for itself (one byte of which is always reserved for the NUL sentinel).
func WithScannerBufferSize(n int) ScannerOption {
	return func(s *Scanner) { s.bufSize = n }
}

const defaultScannerBufferSize = 64 * 1024

// Scanner is the C8 table scanner: it binds per-column field translators to
// zero-based field indices and drives the recognizer directly as its own
// Handler and BufferProvider, so conversion happens with no intermediate
// copy for fields that fit in a single fill (spec.md §4.8).
type Scanner struct {
	rec        *engine.Recognizer
	engineOpts []engine.Option
	bufSize    int
	buf        []byte

	bindings  map[int]ColumnBinding
	recordEnd func() bool

	headerRemaining int
	headerScan      HeaderFieldFunc
	inHeader        bool

	fieldIdx   int
	seen       map[int]bool
	fragmented bool
	fragBuf    []byte

	err  error
	done bool
}

// NewScanner constructs a Scanner over src.
func NewScanner(src io.Reader, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		bindings: make(map[int]ColumnBinding),
		bufSize:  defaultScannerBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.inHeader = s.headerRemaining > 0 || s.headerScan != nil
	s.rec = engine.New(src, s, s.engineOpts...)
	return s
}

// Err returns the error that stopped scanning, if any — a *FieldError from
// a fail policy, distinct from a DFA-level *engine.ParseError that Run
// already returns directly.
func (s *Scanner) Err() error { return s.err }

// Run drives the scanner to completion.
func (s *Scanner) Run() (engine.Status, error) {
	status, err := s.rec.Run()
	if err != nil {
		return status, err
	}
	if s.err != nil {
		return engine.StatusAborted, s.err
	}
	return status, nil
}

// AcquireBuffer/ReleaseBuffer implement engine.BufferProvider: the returned
// slice reserves the underlying buffer's last byte so Finalize can write an
// in-place NUL sentinel past any field that lies entirely inside it.
func (s *Scanner) AcquireBuffer() ([]byte, error) {
	if s.buf == nil {
		s.buf = make([]byte, s.bufSize)
	}
	if len(s.buf) < 2 {
		return nil, engine.ErrBufferTooSmall
	}
	return s.buf[:len(s.buf)-1], nil
}

func (s *Scanner) ReleaseBuffer(_ []byte) {}

func (s *Scanner) StartRecord(_ engine.Position) bool {
	s.fieldIdx = 0
	s.seen = make(map[int]bool, len(s.bindings))
	return true
}

// Update accumulates a field fragment that straddled a buffer boundary into
// the reused fragmented-value buffer.
func (s *Scanner) Update(data []byte) bool {
	s.fragBuf = append(s.fragBuf, data...)
	s.fragmented = true
	return true
}

func (s *Scanner) Finalize(data []byte) bool {
	idx := s.fieldIdx
	s.fieldIdx++

	var fieldData []byte
	if s.fragmented {
		s.fragBuf = append(s.fragBuf, data...)
		s.fragBuf = append(s.fragBuf, 0)
		fieldData = s.fragBuf[:len(s.fragBuf)-1]
		s.fragBuf = s.fragBuf[:0]
		s.fragmented = false
	} else {
		ext := data[:len(data)+1]
		ext[len(data)] = 0
		fieldData = data
	}

	return s.dispatchField(idx, fieldData)
}

func (s *Scanner) dispatchField(idx int, data []byte) bool {
	if s.inHeader {
		if s.headerScan != nil {
			if !s.headerScan(idx, data, s) {
				s.headerScan = nil
			}
		}
		return true
	}
	b, ok := s.bindings[idx]
	if !ok {
		return true
	}
	s.seen[idx] = true
	var cont bool
	var err error
	if b.rangeFn != nil {
		cont, err = b.rangeFn(data)
	} else {
		cont, err = b.valueFn(string(data))
	}
	if err != nil {
		s.err = err
		s.done = true
	}
	return cont
}

func (s *Scanner) applySkip(idx int, b ColumnBinding) bool {
	switch b.skip.Action {
	case ActionFail:
		s.err = &FieldError{Index: idx, Kind: ErrFieldNotFound}
		s.done = true
		return false
	case ActionReplace:
		cont, err := b.replacementFn(b.skip.Replacement)
		if err != nil {
			s.err = err
			s.done = true
		}
		return cont
	default:
		return true
	}
}

func (s *Scanner) EndRecord(_ engine.Position) bool {
	if s.inHeader {
		if s.headerScan != nil {
			if !s.headerScan(-1, nil, s) {
				s.headerScan = nil
				s.inHeader = false
			}
			return true
		}
		if s.headerRemaining > 0 {
			s.headerRemaining--
		}
		if s.headerRemaining <= 0 {
			s.inHeader = false
		}
		return true
	}

	for idx, b := range s.bindings {
		if s.seen[idx] {
			continue
		}
		if !s.applySkip(idx, b) {
			return false
		}
	}

	if s.recordEnd != nil && !s.recordEnd() {
		return false
	}
	return true
}
