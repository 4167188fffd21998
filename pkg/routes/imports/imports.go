package imports

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/reed/pkg/importer"
	"github.com/Ramsey-B/reed/pkg/jobs"
	"github.com/Ramsey-B/reed/pkg/models"
)

// Register registers the import routes
func Register(g *echo.Group) {
	g.POST("/collections/:id/imports", SubmitImport)
	g.POST("/collections/:id/imports/preview", PreviewImport)
	g.GET("/imports", ListImports)
	g.GET("/imports/:jobId", GetImport)
}

// SubmitImport starts an asynchronous import into a collection and answers 202 with the job id
func SubmitImport(c echo.Context) error {
	ctx := c.Request().Context()
	collectionID := c.Param("id")

	var req models.ImportRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, runner, err := ectoinject.GetContext[*importer.Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	job, err := runner.Submit(ctx, collectionID, req)
	if err != nil {
		return err
	}

	if ctx, logger, err := ectoinject.GetContext[ectologger.Logger](ctx); err == nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"job_id":        job.ID,
			"collection_id": collectionID,
			"rows":          len(req.Rows),
		}).Info("Import submitted")
	}

	return c.JSON(http.StatusAccepted, models.SubmitImportResponse{JobID: job.ID})
}

// PreviewImport validates an import and echoes its first rows without importing
func PreviewImport(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ImportRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, runner, err := ectoinject.GetContext[*importer.Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	rows, err := runner.Preview(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rows)
}

// GetImport returns a job snapshot, 404 once it is unknown or expired
func GetImport(c echo.Context) error {
	ctx := c.Request().Context()
	jobID := c.Param("jobId")

	ctx, store, err := ectoinject.GetContext[*jobs.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	job, ok := store.Get(ctx, jobID)
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "Job not found.")
	}

	return c.JSON(http.StatusOK, job)
}

// ListImports returns the jobs this replica still retains, newest first
func ListImports(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, store, err := ectoinject.GetContext[*jobs.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, store.List(ctx))
}
