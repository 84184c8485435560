package model

import "time"

// MigrationRequest selects which parts of a Polygon problem to migrate.
type MigrationRequest struct {
	ExternalRef        string   `json:"external_ref" binding:"required"`
	Difficulty         string   `json:"difficulty"`
	Tags               []string `json:"tags"`
	NewTag             string   `json:"new_tag"`
	Testset            string   `json:"testset"`
	MigrateProblem     bool     `json:"migrate_problem"`
	MigrateTestCases   bool     `json:"migrate_test_cases"`
	MigrateToStorage   bool     `json:"migrate_to_storage"`
	RefreshWorkingCopy bool     `json:"refresh_working_copy"`
}

type MigrationState string

const (
	StateIdle               MigrationState = "idle"
	StateFetchingMetadata   MigrationState = "fetching_metadata"
	StateCheckingCache      MigrationState = "checking_cache"
	StateFetchingFromAPI    MigrationState = "fetching_from_api"
	StateUploadingTestCases MigrationState = "uploading_test_cases"
	StateUploadingChecker   MigrationState = "uploading_checker"
	StateCommitted          MigrationState = "committed"
	StateRolledBack         MigrationState = "rolled_back"
)

// MigrationReport summarizes one run, successful or not.
type MigrationReport struct {
	RunID       string         `json:"run_id"`
	ExternalRef string         `json:"external_ref"`
	ProblemID   int64          `json:"problem_id,omitempty"`
	State       MigrationState `json:"state"`

	ProblemUpserted bool     `json:"problem_upserted"`
	Tags            []string `json:"tags,omitempty"`

	CacheHit      bool  `json:"cache_hit"`
	TestCaseTotal int   `json:"test_case_total"`
	Uploaded      int   `json:"uploaded"`
	Skipped       []int `json:"skipped,omitempty"`
	FetchFailed   []int `json:"fetch_failed,omitempty"`

	Checker *CheckerArtifact `json:"checker,omitempty"`

	SampleRows int `json:"sample_rows"`
	TestRows   int `json:"test_rows"`
	StaleRows  int `json:"stale_rows"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// PreviewReport is the read-only view of a Polygon problem.
type PreviewReport struct {
	ExternalRef  string      `json:"external_ref"`
	Info         ProblemInfo `json:"info"`
	Checker      string      `json:"checker"`
	CheckerType  string      `json:"checker_type"`
	MainSolution string      `json:"main_solution,omitempty"`
	CacheHit     bool        `json:"cache_hit"`
	TestCount    int         `json:"test_count"`
	SampleCount  int         `json:"sample_count"`
	FetchFailed  []int       `json:"fetch_failed,omitempty"`
}
