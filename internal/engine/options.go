package engine

import "go.uber.org/zap"

const defaultBufferSize = 64 * 1024

// Option configures a Recognizer at construction, following the
// functional-options pattern already used by the teacher's
// ScannerOptions/ErrorRecoveryOptions/TypeInferenceOptions.
type Option func(*Recognizer)

// WithBufferSize sets the size of the owning buffer control's reusable
// buffer. Ignored if the handler supplies its own buffers (BufferProvider).
// A size below 1 makes Run fail with ErrBufferTooSmall.
func WithBufferSize(n int) Option {
	return func(r *Recognizer) {
		r.bufSize = n
	}
}

// WithLogger attaches a structured logger; defaults to zap.NewNop() so the
// engine is silent unless a caller opts in.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recognizer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithComma overrides the field delimiter (spec.md §6 permits this; quote
// and CR/LF remain fixed).
func WithComma(c byte) Option {
	return func(r *Recognizer) { r.dialect.comma = c }
}

// WithQuote overrides the quote character.
func WithQuote(c byte) Option {
	return func(r *Recognizer) { r.dialect.quote = c }
}
