package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tabflow/tabflow/pkg/schema"
)

func TestPlanLayout(t *testing.T) {
	s := &schema.Schema{Fields: []schema.Field{
		{Name: "age", Kind: schema.KindNumeric},
		{Name: "city", Kind: schema.KindCategorical},
		{Name: "income", Kind: schema.KindNumeric},
		{Name: "plan", Kind: schema.KindCategorical},
	}}
	vocabs := map[string]Vocabulary{
		"city": {Tokens: []string{"LA", "NYC", "__MISSING__"}},
		"plan": {Tokens: []string{"__MISSING__", "basic"}},
	}

	layout := PlanLayout(s, vocabs)

	// numeric prefix in schema order
	assert.Equal(t, map[string]int{"age": 0, "income": 1}, layout.NumericIndex)
	// categorical blocks contiguous in schema order after the prefix
	assert.Equal(t, Block{Offset: 2, Size: 3}, layout.Blocks["city"])
	assert.Equal(t, Block{Offset: 5, Size: 2}, layout.Blocks["plan"])
	assert.Equal(t, 7, layout.TotalDim)
}

func TestPlanLayout_EmptySchema(t *testing.T) {
	layout := PlanLayout(&schema.Schema{}, nil)
	assert.Equal(t, 0, layout.TotalDim)
	assert.Empty(t, layout.Blocks)
}

func TestPlanLayout_NoNumericFeatures(t *testing.T) {
	s := &schema.Schema{Fields: []schema.Field{
		{Name: "c", Kind: schema.KindCategorical},
	}}
	layout := PlanLayout(s, map[string]Vocabulary{"c": {Tokens: []string{"__MISSING__", "a"}}})

	assert.Equal(t, Block{Offset: 0, Size: 2}, layout.Blocks["c"])
	assert.Equal(t, 2, layout.TotalDim)
}
