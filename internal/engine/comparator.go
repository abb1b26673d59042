package engine

import (
	"context"
	"sync"

	"github.com/lychee-technology/sqlsandbox"
)

// queryExecutor is the surface Comparator needs from an Executor. *Executor
// satisfies it in production; comparator_test.go substitutes a fake to
// exercise normalization and batch-capture logic without a database.
type queryExecutor interface {
	Execute(ctx context.Context, environment, query string, includeDBInfo bool) (sandbox.ResultSet, *sandbox.DatabaseInfo, error)
}

// Comparator executes two queries in the same environment, applies
// normalization, and tests structural equality.
type Comparator struct {
	executor queryExecutor
}

// NewComparator builds a Comparator around an Executor.
func NewComparator(executor queryExecutor) *Comparator {
	return &Comparator{executor: executor}
}

// Compare runs queryA and queryB against environment (no introspection),
// normalizes columns before rows, then tests structural equality.
func (c *Comparator) Compare(ctx context.Context, environment, queryA, queryB string, rowNorm sandbox.RowNormalisation, colNorm sandbox.ColumnNormalisation) (sandbox.ResultSet, sandbox.ResultSet, bool, error) {
	resultA, _, err := c.executor.Execute(ctx, environment, queryA, false)
	if err != nil {
		return sandbox.ResultSet{}, sandbox.ResultSet{}, false, err
	}
	resultB, _, err := c.executor.Execute(ctx, environment, queryB, false)
	if err != nil {
		return sandbox.ResultSet{}, sandbox.ResultSet{}, false, err
	}

	resultA.Normalize(colNorm, rowNorm)
	resultB.Normalize(colNorm, rowNorm)

	return resultA, resultB, resultA.Equal(resultB), nil
}

// SolutionSpec is one entry of a batch comparison: a reference query with
// its own normalization modes and whether its result set should be returned
// to the caller.
type SolutionSpec struct {
	Query               string
	RowNormalisation    sandbox.RowNormalisation
	ColumnNormalisation sandbox.ColumnNormalisation
	ReturnResultSet     bool
}

// SolutionOutcome is the per-solution result of a batch comparison.
type SolutionOutcome struct {
	Equal     bool
	ResultSet *sandbox.ResultSet
	Err       error
}

// BatchResult is the outcome of BatchCompare: one outcome per solution, plus
// the submission's result set captured at most once.
type BatchResult struct {
	Solutions           []SolutionOutcome
	SubmissionResultSet *sandbox.ResultSet
}

// BatchCompare runs one submission query against many solution queries
// concurrently. The submission's result set is populated from the first
// comparison to complete; subsequent completions observe it as already set
// and do not overwrite it.
func (c *Comparator) BatchCompare(ctx context.Context, environment, submission string, solutions []SolutionSpec) BatchResult {
	outcomes := make([]SolutionOutcome, len(solutions))

	var once sync.Once
	var submissionResultSet *sandbox.ResultSet

	var wg sync.WaitGroup
	wg.Add(len(solutions))
	for i, spec := range solutions {
		go func(i int, spec SolutionSpec) {
			defer wg.Done()

			solutionResult, submissionResult, equal, err := c.compareCapturingSubmission(ctx, environment, spec.Query, submission, spec.RowNormalisation, spec.ColumnNormalisation)
			if err != nil {
				outcomes[i] = SolutionOutcome{Err: err}
				return
			}

			once.Do(func() {
				submissionResultSet = &submissionResult
			})

			outcome := SolutionOutcome{Equal: equal}
			if spec.ReturnResultSet {
				rs := solutionResult
				outcome.ResultSet = &rs
			}
			outcomes[i] = outcome
		}(i, spec)
	}
	wg.Wait()

	return BatchResult{Solutions: outcomes, SubmissionResultSet: submissionResultSet}
}

// compareCapturingSubmission is Compare, but returns the submission result
// as the executor produced it (not normalized) for BatchCompare's
// sync.Once-guarded capture. It runs the solution query, then the
// submission query; every call runs the submission query again.
func (c *Comparator) compareCapturingSubmission(ctx context.Context, environment, solutionQuery, submissionQuery string, rowNorm sandbox.RowNormalisation, colNorm sandbox.ColumnNormalisation) (sandbox.ResultSet, sandbox.ResultSet, bool, error) {
	solutionResult, _, err := c.executor.Execute(ctx, environment, solutionQuery, false)
	if err != nil {
		return sandbox.ResultSet{}, sandbox.ResultSet{}, false, err
	}
	submissionResult, _, err := c.executor.Execute(ctx, environment, submissionQuery, false)
	if err != nil {
		return sandbox.ResultSet{}, sandbox.ResultSet{}, false, err
	}

	normalizedSolution := solutionResult
	normalizedSolution.Columns = append([]string(nil), solutionResult.Columns...)
	normalizedSolution.Rows = copyRows(solutionResult.Rows)
	normalizedSolution.Normalize(colNorm, rowNorm)

	normalizedSubmission := submissionResult
	normalizedSubmission.Columns = append([]string(nil), submissionResult.Columns...)
	normalizedSubmission.Rows = copyRows(submissionResult.Rows)
	normalizedSubmission.Normalize(colNorm, rowNorm)

	return normalizedSolution, submissionResult, normalizedSolution.Equal(normalizedSubmission), nil
}

func copyRows(rows [][]sandbox.SqlValue) [][]sandbox.SqlValue {
	out := make([][]sandbox.SqlValue, len(rows))
	for i, row := range rows {
		out[i] = append([]sandbox.SqlValue(nil), row...)
	}
	return out
}
