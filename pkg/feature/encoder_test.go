package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabflow/tabflow/pkg/artifact"
	"github.com/tabflow/tabflow/pkg/schema"
	"github.com/tabflow/tabflow/pkg/source"
)

// fitArtifact runs the accumulator passes over rows and freezes an
// artifact, mirroring what the training pipeline does.
func fitArtifact(t *testing.T, s *schema.Schema, rows []source.Record, normalize bool) *artifact.Artifact {
	t.Helper()

	statsAcc := NewStatsAccumulator(s.NumericNames())
	vocabBuilder := NewVocabBuilder(s.CategoricalNames(), "")
	for _, r := range rows {
		statsAcc.Observe(r)
		vocabBuilder.Observe(r)
	}

	stats := statsAcc.Finalize()
	vocabs := vocabBuilder.Finalize()
	layout := PlanLayout(s, vocabs)

	return BuildArtifact(s, stats, vocabs, layout, normalize, "")
}

func ageCitySchema() *schema.Schema {
	return &schema.Schema{Fields: []schema.Field{
		{Name: "age", Kind: schema.KindNumeric},
		{Name: "city", Kind: schema.KindCategorical},
	}}
}

func ageCityRows() []source.Record {
	return []source.Record{
		{"age": 25.0, "city": "NYC"},
		{"age": nil, "city": "LA"},
		{"age": 35.0, "city": nil},
	}
}

func TestEncoder_AgeCityScenario(t *testing.T) {
	art := fitArtifact(t, ageCitySchema(), ageCityRows(), true)
	require.Equal(t, []string{"LA", "NYC", "__MISSING__"}, art.Vocabularies["city"])
	require.InDelta(t, 30.0, art.NumericMeans[0], 1e-12)
	require.Equal(t, 4, art.TotalDim)

	enc, err := NewEncoder(art)
	require.NoError(t, err)

	// row 2: missing age imputes to the mean, which normalizes to 0;
	// city one-hot lands on LA's index
	vec := enc.Encode(source.Record{"age": nil, "city": "LA"})
	require.Len(t, vec, art.TotalDim)
	assert.Equal(t, 0.0, vec[0])
	assert.Equal(t, []float64{1, 0, 0}, vec[1:])
}

func TestEncoder_MeanOnlyVariant(t *testing.T) {
	art := fitArtifact(t, ageCitySchema(), ageCityRows(), false)
	require.Nil(t, art.NumericStds)

	enc, err := NewEncoder(art)
	require.NoError(t, err)

	// observed value passes through raw; missing imputes to the mean
	vec := enc.Encode(source.Record{"age": 25.0, "city": "NYC"})
	assert.Equal(t, 25.0, vec[0])

	vec = enc.Encode(source.Record{"age": nil, "city": "NYC"})
	assert.Equal(t, 30.0, vec[0])
}

func TestEncoder_LengthAlwaysTotalDim(t *testing.T) {
	art := fitArtifact(t, ageCitySchema(), ageCityRows(), true)
	enc, err := NewEncoder(art)
	require.NoError(t, err)

	records := []source.Record{
		{},
		{"age": "not a number", "city": 99.0},
		{"age": math.NaN(), "city": "never seen"},
		{"unrelated": "field"},
	}
	for _, rec := range records {
		assert.Len(t, enc.Encode(rec), art.TotalDim)
	}
}

func TestEncoder_ExactlyOneHotPerBlock(t *testing.T) {
	art := fitArtifact(t, ageCitySchema(), ageCityRows(), true)
	enc, err := NewEncoder(art)
	require.NoError(t, err)

	block := art.Layout["city"]
	records := []source.Record{
		{"city": "NYC"},
		{"city": "LA"},
		{"city": nil},
		{"city": ""},
		{"city": "Chicago"}, // unseen at training
		{},
	}
	for _, rec := range records {
		vec := enc.Encode(rec)
		ones := 0
		for _, v := range vec[block.Offset : block.Offset+block.Size] {
			if v == 1 {
				ones++
			} else {
				assert.Equal(t, 0.0, v)
			}
		}
		assert.Equal(t, 1, ones, "record %v", rec)
	}
}

func TestEncoder_UnseenTokenFallsBackToSentinel(t *testing.T) {
	art := fitArtifact(t, ageCitySchema(), ageCityRows(), true)
	enc, err := NewEncoder(art)
	require.NoError(t, err)

	unseen := enc.Encode(source.Record{"city": "Chicago"})
	missing := enc.Encode(source.Record{"city": nil})
	assert.Equal(t, missing, unseen)
}

func TestEncoder_FullyMissingNumericAlwaysZero(t *testing.T) {
	s := &schema.Schema{Fields: []schema.Field{
		{Name: "ghost", Kind: schema.KindNumeric},
	}}
	rows := []source.Record{{"ghost": nil}, {"ghost": nil}}
	art := fitArtifact(t, s, rows, true)

	enc, err := NewEncoder(art)
	require.NoError(t, err)

	// std clamps to 1 and mean to 0, so any input normalizes to itself;
	// a missing value still lands on 0
	assert.Equal(t, 0.0, enc.Encode(source.Record{"ghost": nil})[0])
	assert.Equal(t, 0.0, enc.Encode(source.Record{})[0])
}

func TestEncoder_Idempotent(t *testing.T) {
	art := fitArtifact(t, ageCitySchema(), ageCityRows(), true)
	enc, err := NewEncoder(art)
	require.NoError(t, err)

	rec := source.Record{"age": 25.0, "city": "NYC"}
	first := enc.Encode(rec)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, enc.Encode(rec))
	}
}

func TestEncoder_EncodeIntoReusesBuffer(t *testing.T) {
	art := fitArtifact(t, ageCitySchema(), ageCityRows(), true)
	enc, err := NewEncoder(art)
	require.NoError(t, err)

	buf := make([]float64, 0, 16)
	rec := source.Record{"age": 25.0, "city": "NYC"}

	out := enc.EncodeInto(rec, buf)
	assert.Len(t, out, art.TotalDim)
	assert.Equal(t, enc.Encode(rec), out)

	// stale values in the buffer must not leak into the next encoding
	dirty := out
	dirty[0] = 999
	again := enc.EncodeInto(source.Record{"age": nil, "city": "LA"}, dirty)
	assert.Equal(t, enc.Encode(source.Record{"age": nil, "city": "LA"}), again)
}

func TestBuildArtifact_Validates(t *testing.T) {
	art := fitArtifact(t, ageCitySchema(), ageCityRows(), true)
	require.NoError(t, art.Validate())
}
