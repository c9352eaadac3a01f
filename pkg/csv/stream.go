package csv

import (
	"errors"
	"io"
	"strings"

	"github.com/shapestone/csvengine/internal/engine"
)

// Row is one bulk-materialized record, with optional header-name access
// when the RowReader that produced it was told to treat the first record as
// a header row.
type Row struct {
	fields  []string
	headers []string
}

// Get returns the field at index i.
func (r Row) Get(i int) (string, bool) {
	if i < 0 || i >= len(r.fields) {
		return "", false
	}
	return r.fields[i], true
}

// GetByName returns the field whose header matches name.
func (r Row) GetByName(name string) (string, bool) {
	for i, h := range r.headers {
		if h == name {
			return r.Get(i)
		}
	}
	return "", false
}

// Len returns the number of fields in the row.
func (r Row) Len() int { return len(r.fields) }

// RowReader is a bufio.Scanner-style convenience wrapper over a FieldCursor
// (C6): Scan/Record/Err, with optional header-row handling. Unlike
// FieldCursor it materializes each record into a []string before returning
// it, trading the cursor's zero-copy field values for the simpler
// row-at-a-time API most callers want.
type RowReader struct {
	cur         *FieldCursor
	hasHeaders  bool
	reuseRecord bool
	headers     []string
	headersRead bool

	current Row
	reuse   []string

	recovery    ErrorRecoveryOptions
	hasRecovery bool
	recordNo    int

	err  error
	done bool
}

// NewRowReader creates a RowReader that reads CSV from r. By default the
// first record is treated as ordinary data; call SetHasHeaders(true) to
// consume it as a header row instead.
func NewRowReader(r io.Reader, opts ...engine.Option) *RowReader {
	return &RowReader{cur: NewFieldCursor(r, opts...)}
}

// SetHasHeaders sets whether the first record is consumed as a header row.
func (s *RowReader) SetHasHeaders(hasHeaders bool) *RowReader {
	s.hasHeaders = hasHeaders
	return s
}

// SetReuseRecord sets whether successive Record() calls may return a Row
// backed by the same field slice, reducing allocations for callers that
// don't retain rows across iterations.
func (s *RowReader) SetReuseRecord(reuse bool) *RowReader {
	s.reuseRecord = reuse
	return s
}

// SetErrorRecovery enables recovery from oversized fields/records: rows
// that violate MaxFieldSize/MaxRecordSize are handled per OnBadLine
// (BadLineModeError the default, stops scanning; Warn/Skip discard the
// offending row and continue) instead of always stopping Scan. A DFA-level
// error from the underlying recognizer is never recoverable — resuming a
// recognizer after an error is undefined, so those always stop scanning
// regardless of this setting.
//
// The *ParseError for an oversized row carries, in Line, the row's 1-based
// ordinal among data records (the header row is not counted), not a
// physical line number; StartLine and Column are left 0. WarningCallback
// and BadLineCallback receive the same ordinal, and BadLineCallback's
// content is the row's fields read before the limit was hit, joined with
// commas.
func (s *RowReader) SetErrorRecovery(opts ErrorRecoveryOptions) *RowReader {
	s.recovery = opts
	s.hasRecovery = true
	return s
}

// Headers returns the header row, if any, once Scan has consumed it.
func (s *RowReader) Headers() []string { return s.headers }

// Err returns the error, if any, that stopped scanning. Returns nil at
// ordinary EOF.
func (s *RowReader) Err() error { return s.err }

// Scan advances to the next record, returning false at EOF or on error.
func (s *RowReader) Scan() bool {
	if s.done {
		return false
	}
	if s.hasHeaders && !s.headersRead {
		s.headersRead = true
		hdr, ok, err := s.readRow()
		if err != nil {
			s.err = err
			s.done = true
			s.current = Row{}
			return false
		}
		if !ok {
			s.done = true
			s.current = Row{}
			return false
		}
		s.headers = hdr
	}

	for {
		fields, ok, err := s.readRow()
		s.recordNo++
		if err != nil {
			if s.recoverFrom(err, fields) {
				continue
			}
			s.err = err
			s.done = true
			s.current = Row{}
			return false
		}
		if !ok {
			s.done = true
			s.current = Row{}
			return false
		}
		if s.reuseRecord {
			s.reuse = append(s.reuse[:0], fields...)
			fields = s.reuse
		}
		s.current = Row{fields: fields, headers: s.headers}
		return true
	}
}

// recoverFrom applies the configured ErrorRecoveryOptions to a row-level
// error. Only ErrFieldTooLarge/ErrRecordTooLarge are ever recoverable;
// errors from the recognizer itself are not, since resuming it after an
// error is undefined.
func (s *RowReader) recoverFrom(err error, fields []string) bool {
	if !s.hasRecovery || s.recovery.OnBadLine == BadLineModeError {
		return false
	}
	if !errors.Is(err, ErrFieldTooLarge) && !errors.Is(err, ErrRecordTooLarge) {
		return false
	}
	if s.recovery.OnBadLine == BadLineModeWarn && s.recovery.WarningCallback != nil {
		s.recovery.WarningCallback(s.recordNo, err.Error())
	}
	if s.recovery.BadLineCallback != nil {
		return s.recovery.BadLineCallback(s.recordNo, strings.Join(fields, ","), err)
	}
	return true
}

// Record returns the current row. Only meaningful after Scan returns true;
// before the first Scan, or past EOF, it returns a zero-length row.
func (s *RowReader) Record() Row { return s.current }

// readRow pulls fields up to and including the next record boundary,
// enforcing MaxFieldSize/MaxRecordSize when error recovery is configured.
func (s *RowReader) readRow() (fields []string, ok bool, err error) {
	total := 0
	for {
		if err := s.cur.Advance(0); err != nil {
			return fields, len(fields) > 0, err
		}
		switch s.cur.State() {
		case FieldEOF:
			return fields, len(fields) > 0, nil
		case FieldField:
			v := s.cur.Value()
			if s.recovery.MaxFieldSize > 0 && v.Len() > s.recovery.MaxFieldSize {
				s.cur.SkipRecord(0)
				return fields, true, &ParseError{Line: s.recordNo + 1, Err: ErrFieldTooLarge}
			}
			total += v.Len()
			if s.recovery.MaxRecordSize > 0 && total > s.recovery.MaxRecordSize {
				s.cur.SkipRecord(0)
				return fields, true, &ParseError{Line: s.recordNo + 1, Err: ErrRecordTooLarge}
			}
			fields = append(fields, v.String())
		case FieldRecordEnd:
			return fields, true, nil
		}
	}
}
