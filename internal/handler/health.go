package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers.  It answers
// from memory and says nothing about the database.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
