package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slopesquad/presence-api/internal/metrics"
	"github.com/slopesquad/presence-api/internal/store"
)

// CreateGroup handles POST /v1/groups.  It issues a fresh 6-digit join
// code and returns the new group.  Collisions are retried inside the
// store; running out of retries surfaces as code_generation_exhausted.
func (h *GroupHandler) CreateGroup(c echo.Context) error {
	g, err := h.Store.CreateGroup(c.Request().Context())
	if err != nil {
		return storeErr(c, err)
	}
	metrics.GroupsCreated.Inc()
	return c.JSON(http.StatusCreated, g)
}

// GetGroup handles GET /v1/groups/:code.  It reports whether the code
// exists so the join screen can validate without a failure status; an
// unknown code is a regular 200 with exists=false.
func (h *GroupHandler) GetGroup(c echo.Context) error {
	g, err := h.Store.GetGroup(c.Request().Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, store.ErrGroupNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"exists": false})
		}
		return storeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"exists": true, "group": g})
}
