package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	reqctx "github.com/Ramsey-B/reed/pkg/context"
	"github.com/labstack/echo/v4"
)

// Logger writes one structured line per request after the handler has run
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			ctx := c.Request().Context()
			fields := reqctx.Fields(ctx)
			fields["method"] = req.Method
			fields["uri"] = req.RequestURI
			fields["route"] = c.Path()
			fields["status"] = res.Status
			fields["remote_ip"] = c.RealIP()
			fields["user_agent"] = req.UserAgent()
			fields["response_time"] = elapsed
			fields["response_size"] = res.Size

			entry := logger.WithContext(ctx).WithFields(fields)
			if res.Status >= 500 {
				entry.Error("Request")
			} else {
				entry.Info("Request")
			}

			return nil
		}
	}
}
