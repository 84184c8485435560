// Package testutil holds assertion helpers shared by package tests.
package testutil

import (
	"reflect"
	"strings"
	"testing"
)

// AssertEqual checks if two values are deeply equal
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertNil checks if a value is nil
func AssertNil(t *testing.T, value interface{}) {
	t.Helper()
	if value != nil {
		t.Errorf("expected nil, got %v", value)
	}
}

// AssertNoError fails the test immediately on a non-nil error
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test when err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertTrue checks if a condition is true
func AssertTrue(t *testing.T, condition bool, message ...string) {
	t.Helper()
	if !condition {
		t.Errorf("assertion failed: %s", strings.Join(message, " "))
	}
}

// AssertFalse checks if a condition is false
func AssertFalse(t *testing.T, condition bool, message ...string) {
	t.Helper()
	if condition {
		t.Errorf("assertion failed: %s", strings.Join(message, " "))
	}
}
