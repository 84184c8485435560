package model

import "strings"

const (
	DefaultTimeLimitMS   = 1000
	DefaultMemoryLimitMB = 256
)

// ProblemInfo is the problem.info payload.
type ProblemInfo struct {
	InputFile   string `json:"inputFile"`
	OutputFile  string `json:"outputFile"`
	Interactive bool   `json:"interactive"`
	TimeLimit   int    `json:"timeLimit"`
	MemoryLimit int    `json:"memoryLimit"`
}

// TimeLimitOrDefault returns the time limit in milliseconds.
func (p ProblemInfo) TimeLimitOrDefault() int {
	if p.TimeLimit <= 0 {
		return DefaultTimeLimitMS
	}
	return p.TimeLimit
}

// MemoryLimitOrDefault returns the memory limit in megabytes.
func (p ProblemInfo) MemoryLimitOrDefault() int {
	if p.MemoryLimit <= 0 {
		return DefaultMemoryLimitMB
	}
	return p.MemoryLimit
}

// Statement holds the fields extracted from problem.html.
type Statement struct {
	Title  string `json:"title"`
	Legend string `json:"legend"`
	Input  string `json:"input"`
	Output string `json:"output"`
	Notes  string `json:"notes"`
}

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ValidDifficulty reports whether d is one of the accepted difficulty levels.
func ValidDifficulty(d string) bool {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

const CheckerTypeCustom = "custom"

var standardCheckerTypes = map[string]struct{}{
	"ncmp": {}, "fcmp": {}, "hcmp": {}, "lcmp": {}, "nyesno": {},
	"rcmp4": {}, "rcmp6": {}, "rcmp9": {}, "wcmp": {}, "yesno": {},
}

// CheckerType maps a Polygon checker name onto the stored checker type.
func CheckerType(name string) string {
	short := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(name), StandardCheckerPrefix), ".cpp")
	if _, ok := standardCheckerTypes[short]; ok {
		return short
	}
	return CheckerTypeCustom
}

// ProblemRecord is the row written to the problems table.
type ProblemRecord struct {
	ID            int64
	PolygonID     string
	Title         string
	Slug          string
	Difficulty    string
	TimeLimitMS   int
	MemoryLimitMB int
	Legend        string
	InputFormat   string
	OutputFormat  string
	Notes         string
	CheckerType   string
	TestCaseCount int
}
