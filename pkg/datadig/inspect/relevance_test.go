package inspect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/datadig/pkg/datadig/table"
)

func mustTable(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.LoadReader(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

func TestRelevance_Priority(t *testing.T) {
	kw, err := NewKeywords("adni")
	require.NoError(t, err)

	tbl := mustTable(t, "ADNI_id,site\n1,adni\n")

	m, ok := Relevance("adni/data.csv", tbl, kw)
	require.True(t, ok)
	assert.Equal(t, ReasonPath, m.Reason)

	m, ok = Relevance("data.csv", tbl, kw)
	require.True(t, ok)
	assert.Equal(t, ReasonColumn, m.Reason)
	assert.Equal(t, "ADNI_id", m.Column)

	m, ok = Relevance("data.csv", mustTable(t, "id,site\n1,Adni-2\n"), kw)
	require.True(t, ok)
	assert.Equal(t, ReasonValue, m.Reason)
	assert.Equal(t, "site", m.Column)
	assert.Equal(t, "Adni-2", m.Value)
}

func TestRelevance_NumericNeverMatches(t *testing.T) {
	kw, err := NewKeywords("12")
	require.NoError(t, err)

	_, ok := Relevance("data.csv", mustTable(t, "n\n12\n112\n"), kw)
	assert.False(t, ok)
}

func TestRelevance_MissingSentinelMatches(t *testing.T) {
	kw, err := NewKeywords("nan")
	require.NoError(t, err)

	m, ok := Relevance("data.csv", mustTable(t, "label\nx\n\"\"\n"), kw)
	require.True(t, ok)
	assert.Equal(t, table.MissingLabel, m.Value)
}

func TestRelevance_NilTable(t *testing.T) {
	kw, err := NewKeywords("merge")
	require.NoError(t, err)

	_, ok := Relevance("broken.csv", nil, kw)
	assert.False(t, ok)

	m, ok := Relevance("merge/broken.csv", nil, kw)
	assert.True(t, ok)
	assert.Equal(t, "path", m.Reason.String())
}
