package csv

import (
	"bufio"
	"errors"
	"io"
)

const writerBufferSize = 1 << 12

var (
	errNilWriter      = errors.New("csv: writer is nil")
	errWriterNoTarget = errors.New("csv: writer destination cannot be nil")
)

// Writer emits RFC 4180 records using the same comma/double-quote dialect
// the recognizer reads, so Writer output is always a valid input to
// NewFieldCursor/RowReader/Scanner.
type Writer struct {
	dst *bufio.Writer

	// UseCRLF terminates records with \r\n instead of \n when set.
	UseCRLF bool
	// AlwaysQuote forces quoting on every field, even when not required.
	AlwaysQuote bool

	err error
}

// NewWriter creates a Writer that buffers output to w.
func NewWriter(w io.Writer) *Writer {
	if w == nil {
		panic(errWriterNoTarget.Error())
	}
	return &Writer{dst: bufio.NewWriterSize(w, writerBufferSize)}
}

// Reset rebinds the Writer to dst, preserving UseCRLF/AlwaysQuote and
// clearing any prior error.
func (w *Writer) Reset(dst io.Writer) {
	if w == nil {
		panic(errNilWriter.Error())
	}
	if dst == nil {
		panic(errWriterNoTarget.Error())
	}
	if w.dst == nil {
		w.dst = bufio.NewWriterSize(dst, writerBufferSize)
	} else {
		w.dst.Reset(dst)
	}
	w.err = nil
}

// Write emits a single record terminated by the configured newline.
func (w *Writer) Write(record []string) error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}

	for i := range record {
		if i > 0 {
			if err := w.dst.WriteByte(','); err != nil {
				w.err = err
				return err
			}
		}
		if err := w.writeField(record[i]); err != nil {
			w.err = err
			return err
		}
	}

	if w.UseCRLF {
		if _, err := w.dst.Write([]byte{'\r', '\n'}); err != nil {
			w.err = err
			return err
		}
	} else {
		if err := w.dst.WriteByte('\n'); err != nil {
			w.err = err
			return err
		}
	}
	return nil
}

// WriteAll writes every record, stopping at the first error.
func (w *Writer) WriteAll(records [][]string) error {
	if w == nil {
		return errNilWriter
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}
	if err := w.dst.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Error reports the first error encountered by the writer.
func (w *Writer) Error() error {
	if w == nil {
		return errNilWriter
	}
	return w.err
}

func (w *Writer) writeField(field string) error {
	needsQuote := w.AlwaysQuote || fieldNeedsQuote(field)
	if !needsQuote {
		_, err := w.dst.WriteString(field)
		return err
	}
	if err := w.dst.WriteByte('"'); err != nil {
		return err
	}

	start := 0
	for i := 0; i < len(field); i++ {
		if field[i] == '"' {
			if start < i {
				if _, err := w.dst.WriteString(field[start:i]); err != nil {
					return err
				}
			}
			if _, err := w.dst.Write([]byte{'"', '"'}); err != nil {
				return err
			}
			start = i + 1
		}
	}
	if start < len(field) {
		if _, err := w.dst.WriteString(field[start:]); err != nil {
			return err
		}
	}
	return w.dst.WriteByte('"')
}

func fieldNeedsQuote(field string) bool {
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case '"', ',', '\n', '\r':
			return true
		}
	}
	return false
}
