package main

import (
	"testing"

	"polymigrate/internal/testutil"
)

func TestBuildTargetConfigLayersSharedThenOverrides(t *testing.T) {
	base := normalizeValue(map[string]interface{}{
		"polygon": map[string]interface{}{"apiKey": "base", "timeout": "60s"},
		"storage": map[string]interface{}{"type": "local", "container": "problems"},
	})
	profile := &Profile{
		Shared: map[string]interface{}{
			"polygon": map[string]interface{}{"apiKey": "shared"},
		},
	}
	target := TargetProfile{Overrides: map[string]interface{}{
		"storage": map[string]interface{}{"type": "s3", "container": "bucket"},
	}}

	got, err := buildTargetConfig(profile, target, base)
	testutil.AssertNoError(t, err)
	root := got.(map[string]interface{})
	polygon := root["polygon"].(map[string]interface{})
	testutil.AssertEqual(t, polygon["apiKey"], "shared")
	testutil.AssertEqual(t, polygon["timeout"], "60s")
	storage := root["storage"].(map[string]interface{})
	testutil.AssertEqual(t, storage["type"], "s3")
	testutil.AssertEqual(t, storage["container"], "bucket")
}

func TestBuildTargetConfigRejectsBadStorage(t *testing.T) {
	base := normalizeValue(map[string]interface{}{
		"storage": map[string]interface{}{"type": "local", "container": "problems"},
	})
	tests := []struct {
		name    string
		storage map[string]interface{}
	}{
		{name: "unknown type", storage: map[string]interface{}{"type": "ftp"}},
		{name: "missing container", storage: map[string]interface{}{"type": "azure", "container": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildTargetConfig(&Profile{}, TargetProfile{Overrides: map[string]interface{}{"storage": tt.storage}}, base)
			testutil.AssertError(t, err)
		})
	}
}
