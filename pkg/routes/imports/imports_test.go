package imports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/reed/pkg/catalog/memory"
	"github.com/Ramsey-B/reed/pkg/importer"
	"github.com/Ramsey-B/reed/pkg/jobs"
	"github.com/Ramsey-B/reed/pkg/matching"
	"github.com/Ramsey-B/reed/pkg/middleware"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/Ramsey-B/reed/pkg/resolver"
)

type testServer struct {
	echo       *echo.Echo
	runner     *importer.Runner
	store      *jobs.Store
	collection *models.Collection
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	catalog := memory.NewCatalog()
	store := jobs.NewStore(time.Minute, logger)
	t.Cleanup(store.Close)

	res := resolver.NewResolver(resolver.Stores{
		Composers:  catalog.Composers(),
		Authors:    catalog.Authors(),
		Categories: catalog.Categories(),
		Pieces:     catalog.Pieces(),
	}, matching.DefaultConfig(), logger)
	runner := importer.NewRunner(res, catalog.Collections(), catalog, store, logger)

	collection, err := catalog.Collections().Create(context.Background(), "Chorbuch", "CB")
	require.NoError(t, err)

	config := ectoinject.DefaultContainerConfig
	config.ID = uuid.New().String()
	container, err := ectoinject.NewDIContainer(config)
	require.NoError(t, err)
	require.NoError(t, ectoinject.RegisterInstance[*importer.Runner](container, runner))
	require.NoError(t, ectoinject.RegisterInstance[*jobs.Store](container, store))
	require.NoError(t, ectoinject.RegisterInstance[ectologger.Logger](container, logger))

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, err := ectoinject.SetActiveContainer(c.Request().Context(), config.ID)
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	Register(e.Group("/api/v1"))

	return &testServer{echo: e, runner: runner, store: store, collection: collection}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestSubmitAndPollImport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/collections/"+s.collection.ID+"/imports",
		`{"rows":[{"title":"Gloria","composer":"John Rutter","number":7},{"title":"Ave verum","composer":""}]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submitted models.SubmitImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.JobID)
	s.runner.Wait()

	rec = s.do(http.MethodGet, "/api/v1/imports/"+submitted.JobID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var job models.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, models.Progress{Current: 2, Total: 2}, job.Progress)
	require.NotNil(t, job.Result)
	assert.Equal(t, 1, job.Result.AddedCount)
	require.Len(t, job.Result.Errors, 1)
	assert.Equal(t, 1, job.Result.Errors[0].Index)
	assert.Contains(t, job.Logs[len(job.Logs)-1], "Import complete. 1 pieces processed.")

	rec = s.do(http.MethodGet, "/api/v1/imports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestGetImport_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/imports/"+uuid.New().String(), "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Job not found.", body.Message)
}

func TestSubmitImport_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"rows":`},
		{name: "no rows", body: `{"rows":[]}`},
		{name: "resolution for unknown row", body: `{"rows":[{"title":"Gloria","composer":"Rutter"}],"resolutions":{"3":{"createNewComposer":true}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(http.MethodPost, "/api/v1/collections/"+s.collection.ID+"/imports", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, s.store.List(context.Background()))
		})
	}
}

func TestSubmitImport_UnknownCollectionFailsJob(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/collections/missing/imports", `{"rows":[{"title":"Gloria","composer":"Rutter"}]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	s.runner.Wait()

	var submitted models.SubmitImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	job, ok := s.store.Get(context.Background(), submitted.JobID)
	require.True(t, ok)
	assert.Equal(t, models.JobStatusFailed, job.Status)
}

func TestPreviewImport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/collections/"+s.collection.ID+"/imports/preview",
		`{"rows":[{"title":"A","composer":"Rutter"},{"title":"B","composer":"Rutter"},{"title":"C","composer":"Rutter"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []models.ImportRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[1].Title)
	assert.Empty(t, s.store.List(context.Background()))
}
