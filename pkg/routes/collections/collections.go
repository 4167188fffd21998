package collections

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/reed/pkg/models"
)

// Store reads and creates collections
type Store interface {
	Create(ctx context.Context, title, prefix string) (*models.Collection, error)
	GetByID(ctx context.Context, id string) (*models.Collection, error)
	Links(ctx context.Context, collectionID string) ([]models.CollectionPiece, error)
}

type CreateCollectionRequest struct {
	Title  string `json:"title" validate:"required"`
	Prefix string `json:"prefix,omitempty"`
}

// Register registers the collection routes
func Register(g *echo.Group) {
	g.POST("/collections", CreateCollection)
	g.GET("/collections/:id", GetCollection)
	g.GET("/collections/:id/pieces", ListCollectionPieces)
}

func CreateCollection(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateCollectionRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Prefix = strings.TrimSpace(req.Prefix)
	if err := models.Validate(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	collection, err := store.Create(ctx, req.Title, req.Prefix)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, collection)
}

func GetCollection(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	collection, err := store.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if collection == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "Collection not found.")
	}
	return c.JSON(http.StatusOK, collection)
}

// ListCollectionPieces returns the collection's links in insertion order
func ListCollectionPieces(c echo.Context) error {
	ctx := c.Request().Context()
	collectionID := c.Param("id")

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	collection, err := store.GetByID(ctx, collectionID)
	if err != nil {
		return err
	}
	if collection == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "Collection not found.")
	}

	links, err := store.Links(ctx, collectionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, links)
}
