package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/lychee-technology/sqlsandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor scripts Execute's return value per query string, so
// Comparator's normalization and batch-capture logic can be exercised
// without a database.
type fakeExecutor struct {
	mu        sync.Mutex
	byQuery   map[string]sandbox.ResultSet
	errByQuery map[string]error
	calls     int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{byQuery: map[string]sandbox.ResultSet{}, errByQuery: map[string]error{}}
}

func (f *fakeExecutor) set(query string, rs sandbox.ResultSet) {
	f.byQuery[query] = rs
}

func (f *fakeExecutor) setErr(query string, err error) {
	f.errByQuery[query] = err
}

func (f *fakeExecutor) Execute(ctx context.Context, environment, query string, includeDBInfo bool) (sandbox.ResultSet, *sandbox.DatabaseInfo, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err, ok := f.errByQuery[query]; ok {
		return sandbox.ResultSet{}, nil, err
	}
	rs, ok := f.byQuery[query]
	if !ok {
		return sandbox.ResultSet{}, nil, fmt.Errorf("fakeExecutor: no script for query %q", query)
	}
	// Return independent copies so the comparator's own mutation (if any)
	// cannot leak between calls.
	return sandbox.ResultSet{
		Columns: append([]string(nil), rs.Columns...),
		Rows:    copyRows(rs.Rows),
	}, nil, nil
}

func intRow(vals ...int64) []sandbox.SqlValue {
	row := make([]sandbox.SqlValue, len(vals))
	for i, v := range vals {
		row[i] = sandbox.IntValue(v)
	}
	return row
}

func TestComparator_Compare_EqualUnderSortRows(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("SELECT 1 UNION SELECT 2", sandbox.ResultSet{
		Columns: []string{"?column?"},
		Rows:    [][]sandbox.SqlValue{intRow(1), intRow(2)},
	})
	exec.set("SELECT 2 UNION SELECT 1", sandbox.ResultSet{
		Columns: []string{"?column?"},
		Rows:    [][]sandbox.SqlValue{intRow(2), intRow(1)},
	})

	c := NewComparator(exec)
	_, _, equal, err := c.Compare(context.Background(), "env", "SELECT 1 UNION SELECT 2", "SELECT 2 UNION SELECT 1", sandbox.RowNormalisationSortRows, sandbox.ColumnNormalisationNumberByOrder)
	require.NoError(t, err)
	assert.True(t, equal)
}

func TestComparator_Compare_SymmetricUnderSwap(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("A", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(1)}})
	exec.set("B", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(2)}})

	c := NewComparator(exec)
	_, _, eqAB, err := c.Compare(context.Background(), "env", "A", "B", sandbox.RowNormalisationNone, sandbox.ColumnNormalisationNone)
	require.NoError(t, err)
	_, _, eqBA, err := c.Compare(context.Background(), "env", "B", "A", sandbox.RowNormalisationNone, sandbox.ColumnNormalisationNone)
	require.NoError(t, err)
	assert.Equal(t, eqAB, eqBA)
}

func TestComparator_Compare_SameQueryIsAlwaysEqual(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("Q", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(1), intRow(2)}})

	c := NewComparator(exec)
	_, _, equal, err := c.Compare(context.Background(), "env", "Q", "Q", sandbox.RowNormalisationNone, sandbox.ColumnNormalisationNone)
	require.NoError(t, err)
	assert.True(t, equal)
}

func TestComparator_Compare_PropagatesFirstQueryError(t *testing.T) {
	exec := newFakeExecutor()
	exec.setErr("bad", sandbox.NewExecuteError(assert.AnError))
	exec.set("good", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(1)}})

	c := NewComparator(exec)
	_, _, _, err := c.Compare(context.Background(), "env", "bad", "good", sandbox.RowNormalisationNone, sandbox.ColumnNormalisationNone)
	require.Error(t, err)
}

func TestComparator_Compare_ColumnNormalizationAppliesBeforeRowNormalization(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("A", sandbox.ResultSet{
		Columns: []string{"b", "a"},
		Rows:    [][]sandbox.SqlValue{intRow(1, 2), intRow(3, 4)},
	})
	exec.set("B", sandbox.ResultSet{
		Columns: []string{"a", "b"},
		Rows:    [][]sandbox.SqlValue{intRow(4, 3), intRow(2, 1)},
	})

	c := NewComparator(exec)
	_, _, equal, err := c.Compare(context.Background(), "env", "A", "B", sandbox.RowNormalisationSortRows, sandbox.ColumnNormalisationSortByName)
	require.NoError(t, err)
	assert.True(t, equal, "sorting columns before rows should make these equal")
}

func TestComparator_BatchCompare_CapturesSubmissionResultSetOnce(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("submission", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(1)}})
	exec.set("sol1", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(1)}})
	exec.set("sol2", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(2)}})
	exec.set("sol3", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(1)}})

	c := NewComparator(exec)
	solutions := []SolutionSpec{
		{Query: "sol1", ColumnNormalisation: sandbox.ColumnNormalisationNone, RowNormalisation: sandbox.RowNormalisationNone, ReturnResultSet: true},
		{Query: "sol2", ColumnNormalisation: sandbox.ColumnNormalisationNone, RowNormalisation: sandbox.RowNormalisationNone},
		{Query: "sol3", ColumnNormalisation: sandbox.ColumnNormalisationNone, RowNormalisation: sandbox.RowNormalisationNone, ReturnResultSet: true},
	}

	result := c.BatchCompare(context.Background(), "env", "submission", solutions)
	require.Len(t, result.Solutions, 3)
	require.NotNil(t, result.SubmissionResultSet)
	assert.Equal(t, []string{"x"}, result.SubmissionResultSet.Columns)

	assert.True(t, result.Solutions[0].Equal)
	assert.False(t, result.Solutions[1].Equal)
	assert.True(t, result.Solutions[2].Equal)

	assert.NotNil(t, result.Solutions[0].ResultSet)
	assert.Nil(t, result.Solutions[1].ResultSet, "ReturnResultSet was false for sol2")
	assert.NotNil(t, result.Solutions[2].ResultSet)
}

func TestComparator_BatchCompare_PerSolutionErrorDoesNotFailOthers(t *testing.T) {
	exec := newFakeExecutor()
	exec.set("submission", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(1)}})
	exec.set("good", sandbox.ResultSet{Columns: []string{"x"}, Rows: [][]sandbox.SqlValue{intRow(1)}})
	exec.setErr("bad", sandbox.NewExecuteError(assert.AnError))

	c := NewComparator(exec)
	solutions := []SolutionSpec{
		{Query: "bad"},
		{Query: "good"},
	}
	result := c.BatchCompare(context.Background(), "env", "submission", solutions)
	require.Len(t, result.Solutions, 2)
	assert.Error(t, result.Solutions[0].Err)
	assert.NoError(t, result.Solutions[1].Err)
	assert.True(t, result.Solutions[1].Equal)
}
