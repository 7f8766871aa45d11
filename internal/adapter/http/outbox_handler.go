package http

import (
	"net/http"
	"strconv"

	ucOutbox "samanvay/internal/usecase/outbox"

	"github.com/labstack/echo/v4"
)

type OutboxHandler struct{ svc *ucOutbox.Service }

func NewOutboxHandler(svc *ucOutbox.Service) *OutboxHandler { return &OutboxHandler{svc: svc} }

// List is the delivery log. ?status=pending|sent|failed, ?limit=n
func (h *OutboxHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
	}
	out, err := h.svc.List(c.Request().Context(), a, c.QueryParam("status"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OutboxHandler) Replay(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Replay(c.Request().Context(), a, c.Param("event_id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "pending"})
}
