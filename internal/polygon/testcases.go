package polygon

import (
	"context"
	"sort"

	"polymigrate/internal/migration/model"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

// Test is one entry of problem.tests.
type Test struct {
	Index           int    `json:"index"`
	Manual          bool   `json:"manual"`
	Description     string `json:"description"`
	UseInStatements bool   `json:"useInStatements"`
}

// Tests calls problem.tests for the testset, defaulting to the configured one.
func (c *Client) Tests(ctx context.Context, ref, testset string) ([]Test, error) {
	var tests []Test
	if err := c.callJSON(ctx, "problem.tests", testParams(ref, c.testset(testset), 0), &tests); err != nil {
		return nil, err
	}
	return tests, nil
}

// FetchAllTestCases lists the testset then downloads input and answer of every test.
// A per-test download failure does not abort: the case is kept empty and flagged.
func (c *Client) FetchAllTestCases(ctx context.Context, ref, testset string) ([]model.TestCase, error) {
	testset = c.testset(testset)
	tests, err := c.Tests(ctx, ref, testset)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "fetching polygon test cases",
		zap.String("ref", ref),
		zap.String("testset", testset),
		zap.Int("count", len(tests)),
	)

	cases := make([]model.TestCase, 0, len(tests))
	for _, t := range tests {
		tc := model.TestCase{
			Index:       t.Index,
			Description: t.Description,
			IsSample:    t.UseInStatements,
			IsManual:    t.Manual,
		}
		input, output, err := c.fetchTestData(ctx, ref, testset, t.Index)
		if err != nil {
			logger.Warn(ctx, "test case fetch failed, keeping empty data",
				zap.String("ref", ref),
				zap.Int("index", t.Index),
				zap.Error(err),
			)
			tc.FetchFailed = true
		} else {
			tc.Input = input
			tc.Output = output
		}
		cases = append(cases, tc)
	}

	sort.SliceStable(cases, func(i, j int) bool { return cases[i].Index < cases[j].Index })
	return cases, nil
}

func (c *Client) fetchTestData(ctx context.Context, ref, testset string, index int) (string, string, error) {
	params := testParams(ref, testset, index)
	input, err := c.callPlain(ctx, "problem.testInput", params)
	if err != nil {
		return "", "", err
	}
	output, err := c.callPlain(ctx, "problem.testAnswer", params)
	if err != nil {
		return "", "", err
	}
	return input, output, nil
}

func (c *Client) testset(testset string) string {
	if testset == "" {
		return c.cfg.Testset
	}
	return testset
}
