package model

import "strings"

// StandardCheckerPrefix marks checkers bundled with testlib.
const StandardCheckerPrefix = "std::"

// CheckerDescriptor names the checker configured for a problem.
type CheckerDescriptor struct {
	Name string `json:"name"`
}

// IsStandard reports whether the checker ships with testlib.
func (d CheckerDescriptor) IsStandard() bool {
	return strings.HasPrefix(d.Name, StandardCheckerPrefix)
}

type CheckerArtifactKind string

const (
	CheckerCompiledBinary CheckerArtifactKind = "compiled_binary"
	CheckerSourceFallback CheckerArtifactKind = "source_fallback"
)

// CheckerArtifact is the single checker object written for a problem.
type CheckerArtifact struct {
	Kind CheckerArtifactKind `json:"kind"`
	// Path is the object path inside the storage container.
	Path       string `json:"path"`
	SourceText string `json:"-"`
}

// StorageTarget names where a problem's objects live. ProblemKey is the database id.
type StorageTarget struct {
	Container  string
	ProblemKey int64
}
