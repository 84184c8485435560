package polygon

import (
	"context"
	"net/url"
	"strconv"

	"polymigrate/internal/migration/model"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

const mainSolutionTag = "MA"

// Package is one entry of problem.packages.
type Package struct {
	ID                  int64  `json:"id"`
	Revision            int    `json:"revision"`
	CreationTimeSeconds int64  `json:"creationTimeSeconds"`
	State               string `json:"state"`
	Comment             string `json:"comment"`
	Type                string `json:"type"`
}

// Solution is one entry of problem.solutions.
type Solution struct {
	Name       string `json:"name"`
	SourceType string `json:"sourceType"`
	Tag        string `json:"tag"`
}

func problemParams(ref string) url.Values {
	return url.Values{"problemId": {ref}}
}

// ProblemInfo calls problem.info.
func (c *Client) ProblemInfo(ctx context.Context, ref string) (model.ProblemInfo, error) {
	var info model.ProblemInfo
	if err := c.callJSON(ctx, "problem.info", problemParams(ref), &info); err != nil {
		return model.ProblemInfo{}, err
	}
	return info, nil
}

// Packages calls problem.packages.
func (c *Client) Packages(ctx context.Context, ref string) ([]Package, error) {
	var packages []Package
	if err := c.callJSON(ctx, "problem.packages", problemParams(ref), &packages); err != nil {
		return nil, err
	}
	return packages, nil
}

// CheckerName calls problem.checker and returns the configured checker file name.
func (c *Client) CheckerName(ctx context.Context, ref string) (string, error) {
	var name string
	if err := c.callJSON(ctx, "problem.checker", problemParams(ref), &name); err != nil {
		return "", err
	}
	return name, nil
}

// Solutions calls problem.solutions.
func (c *Client) Solutions(ctx context.Context, ref string) ([]Solution, error) {
	var solutions []Solution
	if err := c.callJSON(ctx, "problem.solutions", problemParams(ref), &solutions); err != nil {
		return nil, err
	}
	return solutions, nil
}

// MainSolution returns the solution tagged MA, or "" when none is tagged.
func (c *Client) MainSolution(ctx context.Context, ref string) (string, error) {
	solutions, err := c.Solutions(ctx, ref)
	if err != nil {
		return "", err
	}
	for _, s := range solutions {
		if s.Tag == mainSolutionTag {
			return s.Name, nil
		}
	}
	return "", nil
}

// UpdateWorkingCopy calls problem.updateWorkingCopy so later reads see the latest commit.
func (c *Client) UpdateWorkingCopy(ctx context.Context, ref string) error {
	if err := c.callJSON(ctx, "problem.updateWorkingCopy", problemParams(ref), nil); err != nil {
		return err
	}
	logger.Info(ctx, "polygon working copy updated", zap.String("ref", ref))
	return nil
}

func testParams(ref, testset string, index int) url.Values {
	params := url.Values{
		"problemId": {ref},
		"testset":   {testset},
	}
	if index > 0 {
		params.Set("testIndex", strconv.Itoa(index))
	}
	return params
}
