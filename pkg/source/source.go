// Package source provides row sources for tabflow pipelines.
//
// A row source produces a lazy, finite, one-shot sequence of records. Each
// record maps a field name to a raw value that is either a float64, a string,
// or nil (missing). Sources are consumed destructively by iteration; a
// Factory re-creates a fresh source for each streaming pass.
package source

import "context"

// Record represents one raw row. Values are float64, string, or nil.
type Record map[string]interface{}

// RowStream represents a stream of records. The Records channel is closed
// when the source is exhausted; a value on Errors means the pass failed and
// must be aborted.
type RowStream struct {
	Records <-chan Record
	Errors  <-chan error
}

// RowSource is the interface all row sources implement. A source supports a
// single full traversal; Peek may be called before Stream and the peeked
// records are replayed at the head of the stream.
type RowSource interface {
	// Fields returns the field names in column order
	Fields() []string
	// Peek returns up to n records from the head of the source without
	// consuming them
	Peek(ctx context.Context, n int) ([]Record, error)
	// Stream returns the full record stream, including any peeked records
	Stream(ctx context.Context) (*RowStream, error)
	// Close releases the underlying resources
	Close() error
}

// Factory re-creates a row source for a new streaming pass. Accumulator
// passes each open their own source, so independent passes may run
// concurrently with no shared state.
type Factory func() (RowSource, error)
