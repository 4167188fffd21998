package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	reqctx "github.com/Ramsey-B/reed/pkg/context"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho() *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context())
	e.Use(Logger(logger))
	return e
}

func TestContext_SetsRequestValues(t *testing.T) {
	e := newTestEcho()
	var requestID, userID string
	e.GET("/whoami", func(c echo.Context) error {
		requestID = reqctx.GetRequestID(c.Request().Context())
		userID = reqctx.GetUserID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	req.Header.Set(HeaderUserID, "director")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", requestID)
	assert.Equal(t, "director", userID)
	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestError_RendersHTTPError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{name: "http error", err: httperror.NewHTTPError(http.StatusNotFound, "import job abc not found"), code: http.StatusNotFound, message: "import job abc not found"},
		{name: "echo error", err: echo.NewHTTPError(http.StatusUnauthorized, "missing bearer"), code: http.StatusUnauthorized, message: "missing bearer"},
		{name: "plain error", err: errors.New("boom"), code: http.StatusInternalServerError, message: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			e.GET("/fail", func(c echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

			assert.Equal(t, tt.code, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Message)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	return nil, errors.New("expired")
}

func TestAuthentication_RejectsRequests(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing bearer", header: ""},
		{name: "invalid token", header: "Bearer abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			e.GET("/secure", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Authentication(logger, rejectingVerifier{}))

			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
