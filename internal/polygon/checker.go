package polygon

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"polymigrate/internal/migration/model"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

// GetCustomCheckerInfo returns the custom checker of a problem, or nil when the
// problem uses a testlib standard checker or none at all.
func (c *Client) GetCustomCheckerInfo(ctx context.Context, ref string) (*model.CheckerDescriptor, error) {
	name, err := c.CheckerName(ctx, ref)
	if err != nil {
		return nil, err
	}
	desc := model.CheckerDescriptor{Name: strings.TrimSpace(name)}
	if desc.Name == "" || desc.IsStandard() {
		logger.Info(ctx, "problem uses no custom checker", zap.String("ref", ref), zap.String("checker", desc.Name))
		return nil, nil
	}
	return &desc, nil
}

type viewFileAttempt struct {
	fileType string
	name     string
}

func checkerSourceAttempts(name string) []viewFileAttempt {
	attempts := []viewFileAttempt{
		{fileType: "source", name: name},
		{fileType: "resource", name: name},
	}
	if !strings.HasSuffix(name, ".cpp") {
		attempts = append(attempts, viewFileAttempt{fileType: "source", name: name + ".cpp"})
	}
	return attempts
}

// FetchCheckerSource downloads checker source text through problem.viewFile,
// trying it as a source file, as a resource, then with a .cpp suffix.
func (c *Client) FetchCheckerSource(ctx context.Context, ref, name string) (string, error) {
	var errs []error
	for _, a := range checkerSourceAttempts(name) {
		params := url.Values{
			"problemId": {ref},
			"type":      {a.fileType},
			"name":      {a.name},
		}
		content, err := c.callPlain(ctx, "problem.viewFile", params)
		if err == nil {
			logger.Info(ctx, "checker source fetched",
				zap.String("ref", ref),
				zap.String("type", a.fileType),
				zap.String("name", a.name),
				zap.Int("bytes", len(content)),
			)
			return content, nil
		}
		logger.Warn(ctx, "checker source attempt failed",
			zap.String("type", a.fileType),
			zap.String("name", a.name),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s %s: %w", a.fileType, a.name, err))
	}
	return "", errors.Join(errs...)
}
