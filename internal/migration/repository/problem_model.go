package repository

import "errors"

var (
	ErrProblemNotFound = errors.New("problem not found")
)

// SampleRow is one positional row of sample_test_cases.
type SampleRow struct {
	Input  string
	Output string
}

// TestRow is one positional row of problem_test_cases.
type TestRow struct {
	Input       string
	Output      string
	Description string
	IsSample    bool
}

// RowSyncResult reports a positional upsert. Stale counts rows beyond the written
// range that were kept; Pruned counts rows beyond it that were deleted.
type RowSyncResult struct {
	Written int
	Stale   int
	Pruned  int
}
