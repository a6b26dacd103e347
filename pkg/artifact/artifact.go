// Package artifact defines the persisted preprocessing bundle and its file
// store. The artifact is the sole channel of information between training
// and inference: schema, numeric statistics, vocabularies, and the vector
// layout travel together, and loading it back reproduces training-time
// encodings exactly.
package artifact

import (
	"github.com/tabflow/tabflow/pkg/tferrors"
)

// Block is the persisted one-hot region for one categorical feature.
type Block struct {
	Offset int `json:"offset"`
	Size   int `json:"size"`
}

// Artifact is the serializable bundle written at the end of training and
// read back at inference start. All slices are aligned: NumericMeans and
// NumericStds follow NumericFeatureNames order; vocabulary token order is
// the frozen sorted order and must never be re-sorted.
type Artifact struct {
	// FeatureNames lists every feature in schema order
	FeatureNames []string `json:"featureNames"`
	// NumericFeatureNames lists the numeric features in schema order
	NumericFeatureNames []string `json:"numericFeatureNames"`
	// CategoricalFeatureNames lists the categorical features in schema order
	CategoricalFeatureNames []string `json:"categoricalFeatureNames"`
	// NumericMeans holds the imputation means, aligned with
	// NumericFeatureNames
	NumericMeans []float64 `json:"numericMeans"`
	// NumericStds holds the normalization stds, aligned with
	// NumericFeatureNames; present only when Normalize is true
	NumericStds []float64 `json:"numericStds,omitempty"`
	// Vocabularies holds the sorted token sequence per categorical
	// feature, sentinel included
	Vocabularies map[string][]string `json:"vocabularies"`
	// Layout maps each categorical feature to its one-hot block
	Layout map[string]Block `json:"layout"`
	// TotalDim is the encoded vector width
	TotalDim int `json:"totalDim"`
	// Normalize records which pipeline variant produced the artifact so
	// inference replays the same transform
	Normalize bool `json:"normalize"`
	// MissingToken is the reserved sentinel for absent categorical values
	MissingToken string `json:"missingToken"`
}

// Validate checks the artifact for structural consistency: aligned slices,
// a block and vocabulary for every categorical feature, the sentinel token
// present in every vocabulary, block sizes that match vocabulary sizes,
// contiguous non-overlapping blocks in feature order, and a TotalDim that
// equals the sum of the component widths.
func (a *Artifact) Validate() error {
	if len(a.FeatureNames) == 0 {
		return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "artifact has no features")
	}
	if a.MissingToken == "" {
		return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "artifact missing token is empty")
	}
	if len(a.NumericMeans) != len(a.NumericFeatureNames) {
		return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "numeric means misaligned with feature names").
			WithDetail("means", len(a.NumericMeans)).
			WithDetail("features", len(a.NumericFeatureNames))
	}
	if a.Normalize && len(a.NumericStds) != len(a.NumericFeatureNames) {
		return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "numeric stds misaligned with feature names").
			WithDetail("stds", len(a.NumericStds)).
			WithDetail("features", len(a.NumericFeatureNames))
	}

	offset := len(a.NumericFeatureNames)
	for _, name := range a.CategoricalFeatureNames {
		tokens, ok := a.Vocabularies[name]
		if !ok {
			return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "missing vocabulary").
				WithDetail("feature", name)
		}
		// the encoder's unseen-token fallback lands on the sentinel, so
		// every vocabulary must carry it
		hasSentinel := false
		for _, tok := range tokens {
			if tok == a.MissingToken {
				hasSentinel = true
				break
			}
		}
		if !hasSentinel {
			return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "vocabulary lacks the missing sentinel").
				WithDetail("feature", name).
				WithDetail("sentinel", a.MissingToken)
		}
		block, ok := a.Layout[name]
		if !ok {
			return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "missing layout block").
				WithDetail("feature", name)
		}
		if block.Size != len(tokens) {
			return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "block size disagrees with vocabulary size").
				WithDetail("feature", name).
				WithDetail("block_size", block.Size).
				WithDetail("vocab_size", len(tokens))
		}
		if block.Offset != offset {
			return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "block offset breaks contiguous layout").
				WithDetail("feature", name).
				WithDetail("offset", block.Offset).
				WithDetail("expected", offset)
		}
		offset += block.Size
	}

	if a.TotalDim != offset {
		return tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "totalDim disagrees with sum of component widths").
			WithDetail("total_dim", a.TotalDim).
			WithDetail("computed", offset)
	}

	return nil
}
