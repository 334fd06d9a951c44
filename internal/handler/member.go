package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slopesquad/presence-api/internal/model"
)

// ListMembers handles GET /v1/groups/:code/members.  Each device seen
// inside the history window yields one view; lodging data whose owner
// has visibility off is redacted here, at read time — the stored rows
// are untouched, which is what lets the toggle round-trip.
func (h *GroupHandler) ListMembers(c echo.Context) error {
	views, err := h.Store.Members(c.Request().Context(), c.Param("code"), h.expireBefore(), h.windowStart())
	if err != nil {
		return storeErr(c, err)
	}
	out := make([]model.MemberView, 0, len(views))
	for _, v := range views {
		out = append(out, v.Redacted())
	}
	return c.JSON(http.StatusOK, echo.Map{"members": out})
}
