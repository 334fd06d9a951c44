package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger logs every request through slog with the route, status
// and duration.  Errors are logged at warn so a scan of the log
// separates client mistakes from the steady poll traffic.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start).Milliseconds()

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
				slog.Warn("request failed",
					"method", c.Request().Method,
					"route", c.Path(),
					"status", status,
					"error", err,
					"duration_ms", duration,
				)
				return err
			}
			slog.Info("request ok",
				"method", c.Request().Method,
				"route", c.Path(),
				"status", status,
				"duration_ms", duration,
			)
			return nil
		}
	}
}
