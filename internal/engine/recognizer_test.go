package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// collector is a minimal Handler that assembles parsed records into
// [][]string, used to assert the recognizer's behavior end to end without
// pulling in pkg/csv.
type collector struct {
	records    [][]string
	current    []string
	field      strings.Builder
	emptyLines []Position
}

func (c *collector) StartRecord(Position) bool { c.current = nil; return true }

func (c *collector) Update(data []byte) bool {
	c.field.Write(data)
	return true
}

func (c *collector) Finalize(data []byte) bool {
	c.field.Write(data)
	c.current = append(c.current, c.field.String())
	c.field.Reset()
	return true
}

func (c *collector) EndRecord(Position) bool {
	c.records = append(c.records, c.current)
	c.current = nil
	return true
}

func (c *collector) EmptyPhysicalLine(pos Position) bool {
	c.emptyLines = append(c.emptyLines, pos)
	return true
}

func parseAll(t *testing.T, input string) *collector {
	t.Helper()
	c := &collector{}
	r := New(strings.NewReader(input), c, WithBufferSize(4))
	status, err := r.Run()
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)
	return c
}

func TestRecognizer_BasicRecords(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  [][]string
	}{
		{"empty input", "", nil},
		{"single field", "a", [][]string{{"a"}}},
		{"simple record", "a,b,c", [][]string{{"a", "b", "c"}}},
		{"two records lf", "a,b\nc,d", [][]string{{"a", "b"}, {"c", "d"}}},
		{"two records crlf", "a,b\r\nc,d", [][]string{{"a", "b"}, {"c", "d"}}},
		{"empty fields", "a,,c", [][]string{{"a", "", "c"}}},
		{"all empty fields", ",,", [][]string{{"", "", ""}}},
		{"quoted field with comma", `"hello,world"`, [][]string{{"hello,world"}}},
		{"quoted field with escaped quote", `"say ""hello"""`, [][]string{{`say "hello"`}}},
		{"quoted field with embedded newline", "\"line1\nline2\"", [][]string{{"line1\nline2"}}},
		{"empty quoted field", `"",b`, [][]string{{"", "b"}}},
		{"trailing comma no newline", "a,b,", [][]string{{"a", "b", ""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := parseAll(t, tc.input)
			require.Equal(t, tc.want, c.records)
		})
	}
}

func TestRecognizer_SmallBuffersMatchLargeBuffers(t *testing.T) {
	input := "alpha,beta,gamma\none,\"two,with,commas\",three\r\nlast,\"quoted\"\"inner\"\"\",field\n"
	small := parseAll(t, input)

	c := &collector{}
	r := New(strings.NewReader(input), c, WithBufferSize(64*1024))
	status, err := r.Run()
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)

	require.Equal(t, c.records, small.records)
}

func TestRecognizer_QuoteInUnquotedFieldIsError(t *testing.T) {
	c := &collector{}
	r := New(strings.NewReader(`a,b"c,d`), c)
	status, err := r.Run()
	require.Equal(t, StatusAborted, status)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.ErrorIs(t, perr.Err, ErrQuoteInUnquotedField)
}

func TestRecognizer_UnterminatedQuoteIsError(t *testing.T) {
	c := &collector{}
	r := New(strings.NewReader(`a,"bcd`), c)
	_, err := r.Run()
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.ErrorIs(t, perr.Err, ErrUnterminatedQuote)
}

func TestRecognizer_InvalidCharAfterQuoteIsError(t *testing.T) {
	c := &collector{}
	r := New(strings.NewReader(`"abc"def,g`), c)
	_, err := r.Run()
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.ErrorIs(t, perr.Err, ErrInvalidAfterQuote)
}

func TestRecognizer_EmptyPhysicalLines(t *testing.T) {
	c := parseAll(t, "a,b\n\nc,d\n")
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, c.records)
	require.Len(t, c.emptyLines, 1)
}

func TestRecognizer_AbortStopsRun(t *testing.T) {
	c := &abortAfterFirst{}
	r := New(strings.NewReader("a,b\nc,d\n"), c)
	status, err := r.Run()
	require.NoError(t, err)
	require.Equal(t, StatusAborted, status)
	require.Equal(t, 1, c.records)
}

type abortAfterFirst struct{ records int }

func (a *abortAfterFirst) StartRecord(Position) bool { return true }
func (a *abortAfterFirst) Update([]byte) bool        { return true }
func (a *abortAfterFirst) Finalize([]byte) bool      { return true }
func (a *abortAfterFirst) EndRecord(Position) bool {
	a.records++
	return false
}

func TestRecognizer_BufferTooSmall(t *testing.T) {
	c := &collector{}
	r := New(strings.NewReader("a,b"), c, WithBufferSize(0))
	_, err := r.Run()
	require.ErrorIs(t, err, ErrBufferTooSmall)
}

func FuzzRecognizer(f *testing.F) {
	f.Add("a,b,c\n")
	f.Add(`"q","u,o","te"` + "\r\n")
	f.Add("a,\"unterminated")
	f.Add("x\"y,z")
	for _, seed := range []string{"", ",", "\n", "\r\n", "\"\"", "a,b\r\nc,d\n\n"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		c := &collector{}
		r := New(strings.NewReader(input), c, WithBufferSize(8))
		status, err := r.Run()
		if err != nil {
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			return
		}
		require.Contains(t, []Status{StatusCompleted, StatusAborted}, status)
	})
}
