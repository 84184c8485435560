package controller_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"polymigrate/internal/migration/controller"
	"polymigrate/internal/migration/model"
	pkgerrors "polymigrate/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	lastReq     model.MigrationRequest
	lastTestset string
	report      *model.MigrationReport
	err         error
	purgedRef   string
	clearedRef  string
}

func (f *fakeMigrator) Migrate(ctx context.Context, req model.MigrationRequest) (*model.MigrationReport, error) {
	f.lastReq = req
	return f.report, f.err
}

func (f *fakeMigrator) Preview(ctx context.Context, ref, testset string) (*model.PreviewReport, error) {
	f.lastTestset = testset
	if f.err != nil {
		return nil, f.err
	}
	return &model.PreviewReport{ExternalRef: ref, TestCount: 3}, nil
}

func (f *fakeMigrator) PurgeStorage(ctx context.Context, ref string) (int64, error) {
	f.purgedRef = ref
	return 42, f.err
}

func (f *fakeMigrator) InvalidateCache(ctx context.Context, ref string) error {
	f.clearedRef = ref
	return f.err
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details map[string]any  `json:"details"`
}

func newRouter(m controller.Migrator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	controller.NewMigrationController(m).Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestMigrateEndpoint(t *testing.T) {
	m := &fakeMigrator{report: &model.MigrationReport{RunID: "run-1", State: model.StateCommitted, Uploaded: 3}}
	w, env := do(t, newRouter(m), http.MethodPost, "/api/v1/migrations",
		`{"external_ref":"123","migrate_to_storage":true,"tags":["dp"],"new_tag":"x","testset":"tests"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int(pkgerrors.Success), env.Code)
	assert.Equal(t, "123", m.lastReq.ExternalRef)
	assert.True(t, m.lastReq.MigrateToStorage)
	assert.Equal(t, []string{"dp"}, m.lastReq.Tags)

	var report model.MigrationReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 3, report.Uploaded)
}

func TestMigrateEndpointRejectsMissingRef(t *testing.T) {
	m := &fakeMigrator{}
	w, env := do(t, newRouter(m), http.MethodPost, "/api/v1/migrations", `{"migrate_to_storage":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int(pkgerrors.InvalidParams), env.Code)
	assert.Equal(t, "", m.lastReq.ExternalRef)
}

func TestMigrateEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   pkgerrors.ErrorCode
	}{
		{name: "precondition", err: pkgerrors.PreconditionError("problem 1 has not been migrated yet"), wantStatus: http.StatusPreconditionFailed, wantCode: pkgerrors.MigrationPrecondition},
		{name: "remote", err: pkgerrors.New(pkgerrors.PolygonRemoteError).WithMessage("problemId: Problem not found"), wantStatus: http.StatusBadGateway, wantCode: pkgerrors.PolygonRemoteError},
		{name: "storage", err: pkgerrors.Wrap(errors.New("disk full"), pkgerrors.StorageWriteFailed), wantStatus: http.StatusInternalServerError, wantCode: pkgerrors.StorageWriteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrator{err: tt.err, report: &model.MigrationReport{RunID: "run-2", State: model.StateRolledBack}}
			w, env := do(t, newRouter(m), http.MethodPost, "/api/v1/migrations", `{"external_ref":"1","migrate_to_storage":true}`)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, int(tt.wantCode), env.Code)
			assert.Equal(t, tt.err.Error(), env.Message)
			report, ok := env.Details["report"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "rolled_back", report["state"])
		})
	}
}

func TestPreviewEndpoint(t *testing.T) {
	m := &fakeMigrator{}
	w, env := do(t, newRouter(m), http.MethodGet, "/api/v1/problems/77/preview?testset=pretests", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pretests", m.lastTestset)

	var report model.PreviewReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "77", report.ExternalRef)
	assert.Equal(t, 3, report.TestCount)
}

func TestMaintenanceEndpoints(t *testing.T) {
	m := &fakeMigrator{}
	r := newRouter(m)

	w, env := do(t, r, http.MethodDelete, "/api/v1/problems/77/storage", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "77", m.purgedRef)
	assert.JSONEq(t, `{"external_ref":"77","problem_id":42}`, string(env.Data))

	w, _ = do(t, r, http.MethodDelete, "/api/v1/problems/78/cache", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "78", m.clearedRef)

	m.err = pkgerrors.New(pkgerrors.StorageNotConfigured)
	w, env = do(t, r, http.MethodDelete, "/api/v1/problems/77/storage", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, int(pkgerrors.StorageNotConfigured), env.Code)
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	healthy := controller.NewHealthController(map[string]controller.HealthCheck{
		"db":    func(ctx context.Context) error { return nil },
		"redis": func(ctx context.Context) error { return nil },
	})
	r.GET("/healthz", healthy.Healthz)
	broken := controller.NewHealthController(map[string]controller.HealthCheck{
		"db": func(ctx context.Context) error { return errors.New("connection refused") },
	})
	r.GET("/broken", broken.Healthz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","checks":{"db":"ok","redis":"ok"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
