package service

import (
	"strings"
	"testing"

	"polymigrate/internal/migration/model"
	"polymigrate/internal/migration/repository"
	"polymigrate/internal/testutil"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "A. Sum Of Two", want: "a-sum-of-two"},
		{in: "  --Hello,   World!-- ", want: "hello-world"},
		{in: "Задача 1", want: "1"},
		{in: "???", want: ""},
		{in: "k-th Element (hard)", want: "k-th-element-hard"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			testutil.AssertEqual(t, slugify(tt.in), tt.want)
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{" dp ", "graphs", "", "dp"}, "graphs")
	testutil.AssertEqual(t, got, []string{"dp", "graphs"})

	got = normalizeTags(nil, " new ")
	testutil.AssertEqual(t, got, []string{"new"})

	testutil.AssertEqual(t, normalizeTags(nil, ""), []string{})
}

func TestNewProblemRecordFallsBackToRef(t *testing.T) {
	rec := newProblemRecord("98765", " Hard ", model.ProblemInfo{}, model.Statement{}, "custom.cpp", 4)
	testutil.AssertEqual(t, rec.Title, "98765")
	testutil.AssertEqual(t, rec.Slug, "98765")
	testutil.AssertEqual(t, rec.Difficulty, "hard")
	testutil.AssertEqual(t, rec.TimeLimitMS, model.DefaultTimeLimitMS)
	testutil.AssertEqual(t, rec.MemoryLimitMB, model.DefaultMemoryLimitMB)
	testutil.AssertEqual(t, rec.CheckerType, model.CheckerTypeCustom)
	testutil.AssertEqual(t, rec.TestCaseCount, 4)
}

func TestBuildRows(t *testing.T) {
	long := strings.Repeat("é", 300)
	cases := []model.TestCase{
		{Index: 1, Input: "1 2\n", Output: "3\n\n", IsSample: true, Description: "sample"},
		{Index: 2, Input: "   \n", Output: "x", IsSample: true},
		{Index: 3, Input: long, Output: "ok\r\n"},
		{Index: 4, FetchFailed: true},
	}

	samples := buildSampleRows(cases)
	testutil.AssertEqual(t, samples, []repository.SampleRow{{Input: "1 2", Output: "3"}})

	rows := buildTestRows(cases)
	testutil.AssertEqual(t, len(rows), 2)
	testutil.AssertEqual(t, rows[0], repository.TestRow{Input: "1 2", Output: "3", Description: "sample", IsSample: true})
	testutil.AssertEqual(t, len([]rune(rows[1].Input)), maxTestRowRunes)
	testutil.AssertEqual(t, rows[1].Output, "ok")
}

func TestTruncateRunes(t *testing.T) {
	testutil.AssertEqual(t, truncateRunes("abc", 5), "abc")
	testutil.AssertEqual(t, truncateRunes("abcdef", 3), "abc")
	testutil.AssertEqual(t, truncateRunes("ééé", 2), "éé")
}
