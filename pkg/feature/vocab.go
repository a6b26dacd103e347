package feature

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/tabflow/tabflow/pkg/source"
)

// DefaultMissingToken is the reserved vocabulary entry for absent
// categorical values.
const DefaultMissingToken = "__MISSING__"

// Vocabulary is the frozen, sorted token sequence for one categorical
// feature. The index of a token is its position in Tokens, so the
// token→index mapping can be rebuilt from the sequence alone.
type Vocabulary struct {
	Tokens []string
}

// Index returns the token→index mapping derived from the sorted sequence.
func (v Vocabulary) Index() map[string]int {
	idx := make(map[string]int, len(v.Tokens))
	for i, tok := range v.Tokens {
		idx[tok] = i
	}
	return idx
}

// VocabBuilder collects the distinct tokens per categorical feature in one
// streaming pass. Memory is O(total distinct tokens across all categorical
// features), the one deliberately unbounded cost in the pipeline. It is not
// safe for concurrent use; each pass owns its own builder.
type VocabBuilder struct {
	names        []string
	missingToken string
	seen         map[string]map[string]struct{}
}

// NewVocabBuilder creates a builder for the given categorical feature
// names. An empty missingToken falls back to DefaultMissingToken.
func NewVocabBuilder(categoricalNames []string, missingToken string) *VocabBuilder {
	if missingToken == "" {
		missingToken = DefaultMissingToken
	}
	b := &VocabBuilder{
		names:        categoricalNames,
		missingToken: missingToken,
		seen:         make(map[string]map[string]struct{}, len(categoricalNames)),
	}
	for _, name := range categoricalNames {
		b.seen[name] = make(map[string]struct{})
	}
	return b
}

// Observe normalizes and records each categorical value of one record.
func (b *VocabBuilder) Observe(rec source.Record) {
	for _, name := range b.names {
		tok := NormalizeToken(rec[name], b.missingToken)
		b.seen[name][tok] = struct{}{}
	}
}

// Finalize freezes each token set into a sorted, indexed vocabulary. The
// sentinel is inserted even when a fully-complete column never produced it,
// so unseen values at inference always have a landing slot. Sorting is
// lexicographic byte order; two passes over the same logical row set yield
// identical vocabularies regardless of row order.
func (b *VocabBuilder) Finalize() map[string]Vocabulary {
	vocabs := make(map[string]Vocabulary, len(b.names))
	for _, name := range b.names {
		set := b.seen[name]
		set[b.missingToken] = struct{}{}

		tokens := make([]string, 0, len(set))
		for tok := range set {
			tokens = append(tokens, tok)
		}
		sort.Strings(tokens)

		vocabs[name] = Vocabulary{Tokens: tokens}
	}
	return vocabs
}

// NormalizeToken maps a raw value to its vocabulary token: missing values
// (nil or empty string) become the sentinel, numbers are formatted with
// strconv's shortest representation, everything else is stringified. The
// vocabulary builder and the row encoder share this function so training
// and inference agree byte-for-byte.
func NormalizeToken(v interface{}, missingToken string) string {
	switch t := v.(type) {
	case nil:
		return missingToken
	case string:
		if t == "" {
			return missingToken
		}
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
