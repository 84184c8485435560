package service

import (
	"context"
	"strings"
	"unicode"

	"polymigrate/internal/migration/model"
	"polymigrate/internal/migration/repository"
	pkgerrors "polymigrate/pkg/errors"

	mapset "github.com/deckarep/golang-set/v2"
)

// maxTestRowRunes bounds the input and output stored in problem_test_cases.
const maxTestRowRunes = 260

func (s *MigrationService) buildProblemRecord(ctx context.Context, req model.MigrationRequest) (*model.ProblemRecord, error) {
	ref := req.ExternalRef
	info, err := s.polygon.ProblemInfo(ctx, ref)
	if err != nil {
		return nil, polygonError(err, "get problem info")
	}
	content, err := s.polygon.DownloadPackageAndExtractStatement(ctx, ref)
	if err != nil {
		return nil, polygonError(err, "download package")
	}
	statement, err := s.parser.Parse(content)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.PolygonPackageInvalid)
	}
	checkerName, err := s.polygon.CheckerName(ctx, ref)
	if err != nil {
		return nil, polygonError(err, "get checker name")
	}
	tests, err := s.polygon.Tests(ctx, ref, req.Testset)
	if err != nil {
		return nil, polygonError(err, "list tests")
	}
	return newProblemRecord(ref, req.Difficulty, info, statement, checkerName, len(tests)), nil
}

func newProblemRecord(ref, difficulty string, info model.ProblemInfo, st model.Statement, checkerName string, testCount int) *model.ProblemRecord {
	title := strings.TrimSpace(st.Title)
	if title == "" {
		title = ref
	}
	slug := slugify(title)
	if slug == "" {
		slug = slugify("problem-" + ref)
	}
	return &model.ProblemRecord{
		PolygonID:     ref,
		Title:         title,
		Slug:          slug,
		Difficulty:    strings.ToLower(strings.TrimSpace(difficulty)),
		TimeLimitMS:   info.TimeLimitOrDefault(),
		MemoryLimitMB: info.MemoryLimitOrDefault(),
		Legend:        st.Legend,
		InputFormat:   st.Input,
		OutputFormat:  st.Output,
		Notes:         st.Notes,
		CheckerType:   model.CheckerType(checkerName),
		TestCaseCount: testCount,
	}
}

// slugify lower-cases ASCII letters and digits and collapses everything else into single dashes.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// normalizeTags trims and de-duplicates the selected tags plus newTag, keeping first-seen order.
func normalizeTags(tags []string, newTag string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(tags)+1)
	for _, t := range append(append([]string{}, tags...), newTag) {
		t = strings.TrimSpace(t)
		if t == "" || !seen.Add(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func rstrip(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func buildSampleRows(cases []model.TestCase) []repository.SampleRow {
	var rows []repository.SampleRow
	for _, tc := range cases {
		if !tc.IsSample {
			continue
		}
		in, out := rstrip(tc.Input), rstrip(tc.Output)
		if in == "" || out == "" {
			continue
		}
		rows = append(rows, repository.SampleRow{Input: in, Output: out})
	}
	return rows
}

func buildTestRows(cases []model.TestCase) []repository.TestRow {
	var rows []repository.TestRow
	for _, tc := range cases {
		in, out := rstrip(tc.Input), rstrip(tc.Output)
		if in == "" || out == "" {
			continue
		}
		rows = append(rows, repository.TestRow{
			Input:       truncateRunes(in, maxTestRowRunes),
			Output:      truncateRunes(out, maxTestRowRunes),
			Description: tc.Description,
			IsSample:    tc.IsSample,
		})
	}
	return rows
}
