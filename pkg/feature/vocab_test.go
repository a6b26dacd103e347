package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabflow/tabflow/pkg/source"
)

func TestVocabBuilder_SortedWithSentinel(t *testing.T) {
	b := NewVocabBuilder([]string{"city"}, "")

	b.Observe(source.Record{"city": "NYC"})
	b.Observe(source.Record{"city": "LA"})
	b.Observe(source.Record{"city": nil})

	vocabs := b.Finalize()
	require.Contains(t, vocabs, "city")
	// byte order puts the sentinel after the uppercase tokens
	assert.Equal(t, []string{"LA", "NYC", "__MISSING__"}, vocabs["city"].Tokens)
}

func TestVocabBuilder_SentinelInsertedForCompleteColumn(t *testing.T) {
	b := NewVocabBuilder([]string{"color"}, "")
	b.Observe(source.Record{"color": "red"})
	b.Observe(source.Record{"color": "blue"})

	vocabs := b.Finalize()
	assert.Equal(t, []string{"__MISSING__", "blue", "red"}, vocabs["color"].Tokens)
}

func TestVocabBuilder_DeterministicAcrossPermutations(t *testing.T) {
	rows := []source.Record{
		{"c": "x"}, {"c": "zz"}, {"c": nil}, {"c": "a"}, {"c": "x"},
	}

	b1 := NewVocabBuilder([]string{"c"}, "")
	for _, r := range rows {
		b1.Observe(r)
	}

	b2 := NewVocabBuilder([]string{"c"}, "")
	for i := len(rows) - 1; i >= 0; i-- {
		b2.Observe(rows[i])
	}

	assert.Equal(t, b1.Finalize()["c"].Tokens, b2.Finalize()["c"].Tokens)
}

func TestVocabulary_IndexRebuildsFromTokens(t *testing.T) {
	v := Vocabulary{Tokens: []string{"LA", "NYC", "__MISSING__"}}
	idx := v.Index()
	assert.Equal(t, map[string]int{"LA": 0, "NYC": 1, "__MISSING__": 2}, idx)
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, "__MISSING__"},
		{"empty string", "", "__MISSING__"},
		{"string", "NYC", "NYC"},
		{"integer-valued float", 42.0, "42"},
		{"fractional float", 2.5, "2.5"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeToken(tt.in, DefaultMissingToken))
		})
	}
}

func TestVocabBuilder_CustomMissingToken(t *testing.T) {
	b := NewVocabBuilder([]string{"c"}, "<none>")
	b.Observe(source.Record{"c": nil})

	vocabs := b.Finalize()
	assert.Equal(t, []string{"<none>"}, vocabs["c"].Tokens)
}
