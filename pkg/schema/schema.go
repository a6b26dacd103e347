// Package schema provides feature schema inference for tabflow.
//
// A feature schema is an ordered sequence of named fields, each classified as
// numeric or categorical. The classification happens once, from a sample at
// the head of the row source, and is fixed for the lifetime of a run: later
// rows are coerced to the schema's kind (a non-number in a numeric column is
// treated as missing, any value in a categorical column is stringified).
package schema

import (
	"go.uber.org/zap"

	"github.com/tabflow/tabflow/pkg/source"
	"github.com/tabflow/tabflow/pkg/tferrors"
)

// FieldKind classifies a feature column
type FieldKind string

const (
	// KindNumeric marks a scalar numeric feature
	KindNumeric FieldKind = "numeric"
	// KindCategorical marks an unordered categorical token feature
	KindCategorical FieldKind = "categorical"
)

// Field is one named, classified feature column
type Field struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
}

// Schema is the ordered, immutable feature schema for one pipeline run.
// Field names are unique and the order never changes after inference.
type Schema struct {
	Fields []Field
}

// Inferer classifies columns from a sample of records
type Inferer struct {
	logger *zap.Logger

	// sampleSize is the number of records required for consensus; with 1
	// the first record's runtime types decide
	sampleSize int
}

// NewInferer creates a schema inferer. sampleSize values below 1 are
// treated as 1.
func NewInferer(sampleSize int, logger *zap.Logger) *Inferer {
	if sampleSize < 1 {
		sampleSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inferer{logger: logger, sampleSize: sampleSize}
}

// Infer classifies each field from the sampled records. fields carries the
// column order; the sample must contain at least one record.
//
// A field is numeric when a sampled value is a number and no sampled value
// is a string. With a sample larger than one record, a column containing
// both numbers and strings fails loudly instead of being silently coerced.
// A column whose sampled values are all missing is categorical.
func (in *Inferer) Infer(fields []string, sample []source.Record) (*Schema, error) {
	if len(sample) == 0 {
		return nil, tferrors.New(tferrors.ErrorTypeSchema, "cannot infer schema from empty sample")
	}

	limit := in.sampleSize
	if limit > len(sample) {
		limit = len(sample)
	}

	sawNumber := make(map[string]bool, len(fields))
	sawString := make(map[string]bool, len(fields))
	for _, rec := range sample[:limit] {
		for _, name := range fields {
			switch rec[name].(type) {
			case float64:
				sawNumber[name] = true
			case nil:
				// missing values do not vote
			default:
				sawString[name] = true
			}
		}
	}

	out := make([]Field, 0, len(fields))
	for _, name := range fields {
		if sawNumber[name] && sawString[name] {
			if limit > 1 {
				return nil, tferrors.New(tferrors.ErrorTypeSchema, "mixed-type column in sample").
					WithDetail("field", name).
					WithDetail("sample_size", limit)
			}
			// unreachable with a single record, kept for safety
			sawNumber[name] = false
		}

		kind := KindCategorical
		if sawNumber[name] {
			kind = KindNumeric
		}
		out = append(out, Field{Name: name, Kind: kind})
	}

	s := &Schema{Fields: out}
	in.logger.Debug("schema inferred",
		zap.Int("fields", len(out)),
		zap.Int("numeric", len(s.NumericNames())),
		zap.Int("categorical", len(s.CategoricalNames())),
		zap.Int("sample_size", limit))

	return s, nil
}

// NumericNames returns the numeric field names in schema order
func (s *Schema) NumericNames() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Kind == KindNumeric {
			names = append(names, f.Name)
		}
	}
	return names
}

// CategoricalNames returns the categorical field names in schema order
func (s *Schema) CategoricalNames() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Kind == KindCategorical {
			names = append(names, f.Name)
		}
	}
	return names
}

// Names returns all field names in schema order
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Without returns a copy of the schema with the named fields removed,
// preserving order. The training pipeline uses this to exclude the label
// and ID columns from the feature set.
func (s *Schema) Without(excluded ...string) *Schema {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}

	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !skip[f.Name] {
			out = append(out, f)
		}
	}
	return &Schema{Fields: out}
}
