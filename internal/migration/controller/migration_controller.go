package controller

import (
	"context"
	"strings"

	"polymigrate/internal/migration/model"
	pkgerrors "polymigrate/pkg/errors"
	"polymigrate/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Migrator is the service surface exposed over HTTP.
type Migrator interface {
	Migrate(ctx context.Context, req model.MigrationRequest) (*model.MigrationReport, error)
	Preview(ctx context.Context, ref, testset string) (*model.PreviewReport, error)
	PurgeStorage(ctx context.Context, ref string) (int64, error)
	InvalidateCache(ctx context.Context, ref string) error
}

// MigrationController handles migration HTTP endpoints.
type MigrationController struct {
	migrator Migrator
}

// NewMigrationController creates a new MigrationController.
func NewMigrationController(migrator Migrator) *MigrationController {
	return &MigrationController{migrator: migrator}
}

// Register mounts the migration routes on r.
func (h *MigrationController) Register(r gin.IRouter) {
	api := r.Group("/api/v1")
	api.POST("/migrations", h.Migrate)
	api.GET("/problems/:ref/preview", h.Preview)
	api.DELETE("/problems/:ref/storage", h.PurgeStorage)
	api.DELETE("/problems/:ref/cache", h.InvalidateCache)
}

// Migrate runs a migration request. A failed run still returns its report in details.
func (h *MigrationController) Migrate(c *gin.Context) {
	var req model.MigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	report, err := h.migrator.Migrate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, withReport(err, report))
		return
	}
	response.Success(c, report)
}

// Preview returns the read-only view of a Polygon problem.
func (h *MigrationController) Preview(c *gin.Context) {
	ref, ok := refParam(c)
	if !ok {
		return
	}
	report, err := h.migrator.Preview(c.Request.Context(), ref, c.Query("testset"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// PurgeStorage deletes the stored objects of a migrated problem.
func (h *MigrationController) PurgeStorage(c *gin.Context) {
	ref, ok := refParam(c)
	if !ok {
		return
	}
	problemID, err := h.migrator.PurgeStorage(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "Storage purged", PurgeResponse{ExternalRef: ref, ProblemID: problemID})
}

// InvalidateCache drops cached test cases of a problem.
func (h *MigrationController) InvalidateCache(c *gin.Context) {
	ref, ok := refParam(c)
	if !ok {
		return
	}
	if err := h.migrator.InvalidateCache(c.Request.Context(), ref); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "Cache invalidated", InvalidateResponse{ExternalRef: ref})
}

func withReport(err error, report *model.MigrationReport) error {
	if report == nil {
		return err
	}
	return pkgerrors.GetError(err).WithDetail("report", report)
}

func refParam(c *gin.Context) (string, bool) {
	ref := strings.TrimSpace(c.Param("ref"))
	if ref == "" {
		response.BadRequest(c, "Invalid problem reference")
		return "", false
	}
	return ref, true
}

// PurgeResponse is returned after a storage purge.
type PurgeResponse struct {
	ExternalRef string `json:"external_ref"`
	ProblemID   int64  `json:"problem_id"`
}

// InvalidateResponse is returned after a cache invalidation.
type InvalidateResponse struct {
	ExternalRef string `json:"external_ref"`
}
