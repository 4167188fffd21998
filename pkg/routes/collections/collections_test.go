package collections

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/reed/pkg/catalog/memory"
	"github.com/Ramsey-B/reed/pkg/middleware"
	"github.com/Ramsey-B/reed/pkg/models"
)

func newTestEcho(t *testing.T, store Store) *echo.Echo {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	config := ectoinject.DefaultContainerConfig
	config.ID = uuid.New().String()
	container, err := ectoinject.NewDIContainer(config)
	require.NoError(t, err)
	require.NoError(t, ectoinject.RegisterInstance[Store](container, store))

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
	return e
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateCollection(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{name: "valid", body: `{"title":" Chorbuch ","prefix":"CB"}`, expected: http.StatusCreated},
		{name: "blank title", body: `{"title":"  "}`, expected: http.StatusBadRequest},
		{name: "malformed", body: `{"title":`, expected: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(t, memory.NewCatalog().Collections())

			rec := serve(e, http.MethodPost, "/api/v1/collections", tt.body)

			require.Equal(t, tt.expected, rec.Code)
			if tt.expected == http.StatusCreated {
				var collection models.Collection
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &collection))
				assert.NotEmpty(t, collection.ID)
				assert.Equal(t, "Chorbuch", collection.Title)
				assert.Equal(t, "CB", collection.Prefix)
			}
		})
	}
}

func TestGetCollection(t *testing.T) {
	catalog := memory.NewCatalog()
	collection, err := catalog.Collections().Create(context.Background(), "Chorbuch", "CB")
	require.NoError(t, err)
	require.NoError(t, catalog.Collections().LinkPiece(context.Background(), models.CollectionPiece{
		CollectionID: collection.ID,
		PieceID:      "piece-1",
		Number:       "1",
	}))
	e := newTestEcho(t, catalog.Collections())

	rec := serve(e, http.MethodGet, "/api/v1/collections/"+collection.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, http.MethodGet, "/api/v1/collections/"+collection.ID+"/pieces", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var links []models.CollectionPiece
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &links))
	require.Len(t, links, 1)
	assert.Equal(t, "1", links[0].Number)

	for _, path := range []string{"/api/v1/collections/missing", "/api/v1/collections/missing/pieces"} {
		rec = serve(e, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
