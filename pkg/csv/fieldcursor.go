package csv

import (
	"io"

	"github.com/shapestone/csvengine/internal/engine"
)

// FieldState is the C6 field-value pull cursor's own state machine
// (spec.md §4.6), distinct from the primitive cursor's Kind.
type FieldState uint8

const (
	FieldBeforeParse FieldState = iota
	FieldField
	FieldRecordEnd
	FieldEOF
)

// FieldValue is the current field's value: a view aliasing the recognizer's
// buffer when the field is entirely within one fill, or an owned copy when
// it straddled a buffer boundary. A view is only valid until the next
// Advance call.
type FieldValue struct {
	Owned bool
	data  []byte
}

func (v FieldValue) Bytes() []byte  { return v.data }
func (v FieldValue) String() string { return unsafeString(v.data) }
func (v FieldValue) Len() int       { return len(v.data) }

// FieldCursor presents a field-at-a-time / record-boundary-at-a-time view
// over a PullCursor fixed to the event set EndBuffer | EndRecord |
// EmptyPhysicalLine | Update | Finalize (spec.md §4.6).
type FieldCursor struct {
	pull  *PullCursor
	state FieldState
	value FieldValue
	frag  []byte

	recordIdx int
	fieldIdx  int

	emptyLineAware bool
}

// NewFieldCursor constructs a field cursor reading from src.
func NewFieldCursor(src io.Reader, opts ...engine.Option) *FieldCursor {
	mask := MaskEndBuffer | MaskEndRecord | MaskEmptyPhysicalLine | MaskUpdate | MaskFinalize
	return &FieldCursor{
		pull:  NewPullCursor(src, mask, opts...),
		state: FieldBeforeParse,
	}
}

// State reports the cursor's current position in its state machine.
func (fc *FieldCursor) State() FieldState { return fc.state }

// Value returns the current field's value; meaningful only in state Field.
func (fc *FieldCursor) Value() FieldValue { return fc.value }

// Position reports (record index, field index within record); both
// increment on RecordEnd and Field respectively.
func (fc *FieldCursor) Position() (record, field int) { return fc.recordIdx, fc.fieldIdx }

// SetEmptyPhysicalLineAware controls whether empty physical lines surface
// as RecordEnd (true) or are silently absorbed (false, the default).
func (fc *FieldCursor) SetEmptyPhysicalLineAware(aware bool) { fc.emptyLineAware = aware }

// Advance moves to the next field (n == 0) or skips n fields within the
// current record, stopping early at a record boundary rather than crossing
// it (spec.md §4.6).
func (fc *FieldCursor) Advance(n int) error {
	if n <= 0 {
		return fc.advanceOnce()
	}
	for i := 0; i < n; i++ {
		if err := fc.advanceOnce(); err != nil {
			return err
		}
		if fc.state != FieldField {
			return nil
		}
	}
	return nil
}

// SkipRecord advances until the (n+1)-th record terminator, or EOF,
// discarding field payloads along the way.
func (fc *FieldCursor) SkipRecord(n int) error {
	target := n + 1
	seen := 0
	fc.pull.SetDiscardingData(true)
	defer fc.pull.SetDiscardingData(false)
	for seen < target {
		if err := fc.advanceOnce(); err != nil {
			return err
		}
		if fc.state == FieldEOF {
			return nil
		}
		if fc.state == FieldRecordEnd {
			seen++
		}
	}
	return nil
}

func (fc *FieldCursor) advanceOnce() error {
	fc.frag = fc.frag[:0]
	for {
		if err := fc.pull.Advance(); err != nil {
			fc.state = FieldEOF
			return err
		}
		switch fc.pull.State() {
		case KindEOF:
			fc.state = FieldEOF
			return nil
		case KindUpdate:
			fc.frag = append(fc.frag, fc.pull.Data()...)
		case KindFinalize:
			data := fc.pull.Data()
			if len(fc.frag) > 0 {
				fc.value = FieldValue{Owned: true, data: append(fc.frag, data...)}
				fc.frag = nil
			} else {
				fc.value = FieldValue{Owned: false, data: data}
			}
			fc.state = FieldField
			fc.fieldIdx++
			return nil
		case KindEndRecord:
			fc.state = FieldRecordEnd
			fc.recordIdx++
			fc.fieldIdx = 0
			return nil
		case KindEmptyPhysicalLine:
			if fc.emptyLineAware {
				fc.state = FieldRecordEnd
				fc.value = FieldValue{}
				return nil
			}
		case KindEndBuffer:
			// not part of the field/record-boundary view; keep pulling.
		}
	}
}
