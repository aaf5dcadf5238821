package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/engine"
	"github.com/ominux/raco/dataflow/plan"
)

var sampleSchema = plan.Schema{
	{Name: "id", Type: dataflow.TypeInt},
	{Name: "name", Type: dataflow.TypeString},
	{Name: "score", Type: dataflow.TypeFloat},
	{Name: "active", Type: dataflow.TypeBool},
}

func sampleRelation(t *testing.T) *engine.Relation {
	t.Helper()
	rel, err := engine.NewRelation("sample", sampleSchema, []plan.Tuple{
		{int64(1), "alice", 0.75, true},
		{int64(2), "bob", -1.5, false},
		{int64(2), "bob", -1.5, false},
	})
	require.NoError(t, err)
	return rel
}

func TestMemoryCatalog(t *testing.T) {
	cat := NewMemoryCatalog()

	_, err := cat.Scan("missing")
	var nf *engine.SourceNotFoundError
	require.True(t, errors.As(err, &nf))

	rel := sampleRelation(t)
	require.NoError(t, cat.Store("sample", rel))

	got, err := cat.Scan("sample")
	require.NoError(t, err)
	assert.True(t, rel.EqualMultiset(got))
	assert.Equal(t, "sample", got.Name())
	assert.Equal(t, []string{"sample"}, cat.Names())
}

func TestEncodingRoundTrip(t *testing.T) {
	rel := sampleRelation(t)

	blob, err := EncodeRelation(rel)
	require.NoError(t, err)

	got, err := DecodeRelation("sample", blob)
	require.NoError(t, err)

	assert.True(t, rel.Schema().Equal(got.Schema()))
	assert.True(t, rel.EqualMultiset(got), "duplicates must survive the round trip")
}

func TestDecodeRejectsTruncatedBlob(t *testing.T) {
	rel := sampleRelation(t)
	blob, err := EncodeRelation(rel)
	require.NoError(t, err)

	_, err = DecodeRelation("sample", blob[:len(blob)-3])
	require.Error(t, err)

	_, err = DecodeRelation("sample", []byte{99})
	require.Error(t, err)
}

func TestBadgerCatalogRoundTrip(t *testing.T) {
	cat, err := OpenBadgerCatalog(t.TempDir())
	require.NoError(t, err)
	defer cat.Close()

	_, err = cat.Scan("missing")
	var nf *engine.SourceNotFoundError
	require.True(t, errors.As(err, &nf))

	rel := sampleRelation(t)
	require.NoError(t, cat.Store("sample", rel))
	require.NoError(t, cat.Store("other", rel))

	got, err := cat.Scan("sample")
	require.NoError(t, err)
	assert.True(t, rel.EqualMultiset(got))

	names, err := cat.Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sample", "other"}, names)
}

func TestReadCSV(t *testing.T) {
	schema := plan.Schema{
		{Name: "id", Type: dataflow.TypeInt},
		{Name: "x", Type: dataflow.TypeFloat},
	}

	t.Run("ParsesDeclaredTypes", func(t *testing.T) {
		rel, err := ReadCSV("points", strings.NewReader("1,0.5\n2, 1.25\n"), schema)
		require.NoError(t, err)
		require.Equal(t, 2, rel.Size())
		assert.Equal(t, plan.Tuple{int64(1), 0.5}, rel.Tuples()[0])
		assert.Equal(t, plan.Tuple{int64(2), 1.25}, rel.Tuples()[1])
	})

	t.Run("RejectsBadValue", func(t *testing.T) {
		_, err := ReadCSV("points", strings.NewReader("1,notanumber\n"), schema)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 1")
	})

	t.Run("RejectsWrongArity", func(t *testing.T) {
		_, err := ReadCSV("points", strings.NewReader("1,2.0,3.0\n"), schema)
		require.Error(t, err)
	})
}

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema("id:int, name:string, score:float, ok:bool")
	require.NoError(t, err)
	assert.True(t, schema.Equal(plan.Schema{
		{Name: "id", Type: dataflow.TypeInt},
		{Name: "name", Type: dataflow.TypeString},
		{Name: "score", Type: dataflow.TypeFloat},
		{Name: "ok", Type: dataflow.TypeBool},
	}))

	_, err = ParseSchema("id:int, broken")
	require.Error(t, err)

	_, err = ParseSchema("id:what")
	require.Error(t, err)
}
