package duplicates

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/reed/pkg/matching"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/Ramsey-B/reed/pkg/resolver"
)

// Dependency names of the creator stores
const (
	ComposerStoreName = "composers"
	AuthorStoreName   = "authors"
)

// Register registers the duplicate finder routes
func Register(g *echo.Group) {
	g.GET("/composers/duplicates", handler(ComposerStoreName))
	g.GET("/authors/duplicates", handler(AuthorStoreName))
}

// Response lists groups of creators that probably denote the same person
type Response struct {
	Groups [][]models.Creator `json:"groups"`
}

func handler(storeName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		ctx, store, err := ectoinject.GetNamedDependency[resolver.CreatorStore](ctx, storeName)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
		}

		creators, err := store.List(ctx, 0)
		if err != nil {
			return err
		}

		groups := matching.FindDuplicates(creators, func(creator models.Creator) string {
			return creator.Name
		})
		return c.JSON(http.StatusOK, Response{Groups: groups})
	}
}
