package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// TestCaseStorage is the contract shared by every storage backend.
// All writes overwrite existing objects so re-running a migration converges
// to the same final state.
type TestCaseStorage interface {
	// UploadTestCase writes test_cases/{problemKey}/{NN} and its .a answer object.
	UploadTestCase(ctx context.Context, container string, problemKey int64, testNumber int, input, output []byte) error

	// EmptyProblem deletes every object under test_cases/{problemKey}/.
	// A prefix without objects is not an error.
	EmptyProblem(ctx context.Context, container string, problemKey int64) error

	// UploadFile writes data at an arbitrary slash-separated path.
	UploadFile(ctx context.Context, container, objectPath string, data []byte) error
}

const (
	TestCaseRoot = "test_cases"

	CheckerBinaryName        = "custom_checker"
	CheckerBinaryNameWindows = "custom_checker.exe"
	CheckerSourceName        = "custom_checker.cpp"
)

// ProblemPrefix returns the key prefix owning all objects of one problem, with trailing slash.
func ProblemPrefix(problemKey int64) string {
	return fmt.Sprintf("%s/%d/", TestCaseRoot, problemKey)
}

// TestInputKey returns the zero-padded input object key.
func TestInputKey(problemKey int64, testNumber int) string {
	return fmt.Sprintf("%s%02d", ProblemPrefix(problemKey), testNumber)
}

// TestOutputKey returns the answer object key, always the input key plus ".a".
func TestOutputKey(problemKey int64, testNumber int) string {
	return TestInputKey(problemKey, testNumber) + ".a"
}

// ProblemObjectKey returns the key of a named file inside a problem's prefix.
func ProblemObjectKey(problemKey int64, name string) string {
	return ProblemPrefix(problemKey) + name
}

// CheckerBinaryFor picks the binary object name for the target OS.
func CheckerBinaryFor(goos string) string {
	if goos == "windows" {
		return CheckerBinaryNameWindows
	}
	return CheckerBinaryName
}

// cleanObjectPath normalizes a slash-separated object path and rejects traversal.
func cleanObjectPath(objectPath string) (string, error) {
	trimmed := strings.TrimSpace(objectPath)
	if trimmed == "" {
		return "", fmt.Errorf("object path is required")
	}
	if strings.Contains(trimmed, "\\") {
		return "", fmt.Errorf("object path %q must use forward slashes", objectPath)
	}
	cleaned := path.Clean("/" + trimmed)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(trimmed, "/") {
		return "", fmt.Errorf("object path %q is not canonical", objectPath)
	}
	return cleaned, nil
}

func validateTestNumber(testNumber int) error {
	if testNumber <= 0 {
		return fmt.Errorf("test number must be positive, got %d", testNumber)
	}
	return nil
}
