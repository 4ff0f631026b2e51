package kernel

import "io"

// BatchIter is the pull-based streaming contract every storage scan and
// executor operator implements: repeated Next calls yield batches until
// io.EOF, mirroring the single-row iterator convention this engine's
// batched operators generalize to record batches.
type BatchIter interface {
	Next() (*RecordBatch, error)
	Close() error
}

// ErrDone is never returned directly; callers signal completion with
// io.EOF, kept here only so importers of this package don't need their
// own import of "io" just to recognize it.
var ErrDone = io.EOF
