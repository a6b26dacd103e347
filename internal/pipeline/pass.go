// Package pipeline orchestrates the tabflow training and inference runs:
// schema inference from a peeked sample, sequential or concurrent streaming
// passes for statistics and vocabularies, layout planning, parallel
// training-batch encoding, model fitting, and artifact persistence. At
// inference it replays the persisted artifact through the same row encoder.
package pipeline

import (
	"context"

	"github.com/tabflow/tabflow/pkg/source"
	"github.com/tabflow/tabflow/pkg/tferrors"
)

// runPass opens a fresh source from the factory and feeds every record to
// observe. The accumulator behind observe is owned exclusively by this pass,
// so independent passes can run concurrently with no shared mutable state.
// Source I/O errors are fatal and abort the pass.
func runPass(ctx context.Context, factory source.Factory, name string, observe func(source.Record)) error {
	src, err := factory()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	stream, err := src.Stream(ctx)
	if err != nil {
		return err
	}

	for rec := range stream.Records {
		observe(rec)
		RowsRead.WithLabelValues(name).Inc()
	}

	if err := <-stream.Errors; err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeData, "streaming pass failed").
			WithDetail("pass", name)
	}
	return ctx.Err()
}
