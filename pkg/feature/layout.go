package feature

import "github.com/tabflow/tabflow/pkg/schema"

// Block is the contiguous one-hot region for one categorical feature.
type Block struct {
	Offset int `json:"offset"`
	Size   int `json:"size"`
}

// Layout is the deterministic offset plan for the encoded vector: numeric
// scalars occupy [0, numericCount) in schema order, then one fixed-width
// one-hot block per categorical feature in schema order.
type Layout struct {
	// NumericIndex maps a numeric feature name to its vector slot
	NumericIndex map[string]int
	// Blocks maps a categorical feature name to its one-hot block
	Blocks map[string]Block
	// TotalDim is numericCount plus the sum of all block sizes
	TotalDim int
}

// PlanLayout computes the layout from the schema and the frozen vocabulary
// sizes. Pure and deterministic; an empty schema yields TotalDim 0.
func PlanLayout(s *schema.Schema, vocabs map[string]Vocabulary) Layout {
	numericNames := s.NumericNames()

	layout := Layout{
		NumericIndex: make(map[string]int, len(numericNames)),
		Blocks:       make(map[string]Block),
	}

	for i, name := range numericNames {
		layout.NumericIndex[name] = i
	}

	offset := len(numericNames)
	for _, name := range s.CategoricalNames() {
		width := len(vocabs[name].Tokens)
		layout.Blocks[name] = Block{Offset: offset, Size: width}
		offset += width
	}
	layout.TotalDim = offset

	return layout
}
