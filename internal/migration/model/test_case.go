package model

// TestCase is one test of a Polygon testset. Input and Output hold the raw file bytes.
type TestCase struct {
	Index       int    `json:"index"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	Description string `json:"description"`
	IsSample    bool   `json:"is_sample"`
	IsManual    bool   `json:"is_manual"`
	// FetchFailed marks a test whose input or answer could not be downloaded.
	FetchFailed bool `json:"fetch_failed"`
}

// Uploadable reports whether both sides carry data.
func (tc TestCase) Uploadable() bool {
	return tc.Input != "" && tc.Output != ""
}

// FailedIndices returns the indices of tests whose download failed.
func FailedIndices(cases []TestCase) []int {
	var failed []int
	for _, tc := range cases {
		if tc.FetchFailed {
			failed = append(failed, tc.Index)
		}
	}
	return failed
}

// CountSamples returns how many cases are flagged as samples.
func CountSamples(cases []TestCase) int {
	n := 0
	for _, tc := range cases {
		if tc.IsSample {
			n++
		}
	}
	return n
}
