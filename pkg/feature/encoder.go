package feature

import (
	"math"

	"github.com/tabflow/tabflow/pkg/artifact"
	"github.com/tabflow/tabflow/pkg/schema"
	"github.com/tabflow/tabflow/pkg/source"
)

// Encoder maps one raw record to a fixed-length numeric vector using only
// the frozen artifact state. It is a pure function of (record, artifact):
// no hidden state, no randomness, and the same implementation serves both
// training-batch construction and inference. Methods are safe for
// concurrent use once constructed.
type Encoder struct {
	totalDim  int
	normalize bool
	missing   string

	numericIndex map[string]int
	means        map[string]float64
	stds         map[string]float64

	blocks     map[string]artifact.Block
	vocabIndex map[string]map[string]int
}

// NewEncoder builds an encoder from a validated artifact. The token→index
// maps are rebuilt from the persisted token sequences alone, which is why
// vocabulary order must never change after freezing.
func NewEncoder(a *artifact.Artifact) (*Encoder, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	e := &Encoder{
		totalDim:     a.TotalDim,
		normalize:    a.Normalize,
		missing:      a.MissingToken,
		numericIndex: make(map[string]int, len(a.NumericFeatureNames)),
		means:        make(map[string]float64, len(a.NumericFeatureNames)),
		stds:         make(map[string]float64, len(a.NumericFeatureNames)),
		blocks:       a.Layout,
		vocabIndex:   make(map[string]map[string]int, len(a.CategoricalFeatureNames)),
	}

	for i, name := range a.NumericFeatureNames {
		e.numericIndex[name] = i
		e.means[name] = a.NumericMeans[i]
		if a.Normalize {
			e.stds[name] = a.NumericStds[i]
		}
	}

	for _, name := range a.CategoricalFeatureNames {
		tokens := a.Vocabularies[name]
		idx := make(map[string]int, len(tokens))
		for i, tok := range tokens {
			idx[tok] = i
		}
		e.vocabIndex[name] = idx
	}

	return e, nil
}

// Dim returns the encoded vector width
func (e *Encoder) Dim() int {
	return e.totalDim
}

// Encode maps one record to a fresh vector of length Dim().
func (e *Encoder) Encode(rec source.Record) []float64 {
	return e.EncodeInto(rec, nil)
}

// EncodeInto encodes into dst when it has sufficient capacity, allocating
// otherwise. The vector is zeroed before filling.
//
// Numeric features write exactly one cell: a finite value is normalized to
// (x−mean)/std (or passed through raw in the mean-only variant); a missing
// or non-finite value imputes to the mean, which normalizes to 0.
// Categorical features set exactly one cell in their block: the token's
// index, falling back to the sentinel's index for tokens never seen during
// vocabulary building.
func (e *Encoder) EncodeInto(rec source.Record, dst []float64) []float64 {
	if cap(dst) >= e.totalDim {
		dst = dst[:e.totalDim]
		for i := range dst {
			dst[i] = 0
		}
	} else {
		dst = make([]float64, e.totalDim)
	}

	for name, pos := range e.numericIndex {
		mean := e.means[name]

		v, ok := rec[name].(float64)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			v = mean
		}

		if e.normalize {
			dst[pos] = (v - mean) / e.stds[name]
		} else {
			dst[pos] = v
		}
	}

	for name, block := range e.blocks {
		tok := NormalizeToken(rec[name], e.missing)
		idx, ok := e.vocabIndex[name][tok]
		if !ok {
			idx = e.vocabIndex[name][e.missing]
		}
		if idx >= 0 && idx < block.Size {
			dst[block.Offset+idx] = 1
		}
	}

	return dst
}

// BuildArtifact assembles the persisted bundle from the frozen outputs of
// one training run. When normalize is false the stds are dropped from the
// artifact, recording the mean-only variant.
func BuildArtifact(s *schema.Schema, stats NumericStats, vocabs map[string]Vocabulary, layout Layout, normalize bool, missingToken string) *artifact.Artifact {
	if missingToken == "" {
		missingToken = DefaultMissingToken
	}

	a := &artifact.Artifact{
		FeatureNames:            s.Names(),
		NumericFeatureNames:     stats.Names,
		CategoricalFeatureNames: s.CategoricalNames(),
		NumericMeans:            stats.Means,
		Vocabularies:            make(map[string][]string, len(vocabs)),
		Layout:                  make(map[string]artifact.Block, len(layout.Blocks)),
		TotalDim:                layout.TotalDim,
		Normalize:               normalize,
		MissingToken:            missingToken,
	}
	if normalize {
		a.NumericStds = stats.Stds
	}

	for name, v := range vocabs {
		a.Vocabularies[name] = v.Tokens
	}
	for name, b := range layout.Blocks {
		a.Layout[name] = artifact.Block{Offset: b.Offset, Size: b.Size}
	}

	return a
}
