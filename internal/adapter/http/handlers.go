package http

import (
	"net/http"
	"time"

	"samanvay/internal/geocode"

	"github.com/labstack/echo/v4"
)

type Handler struct{ places *geocode.Gazetteer }

func NewHandler(places *geocode.Gazetteer) *Handler { return &Handler{places: places} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Geocode answers ?district=&state= from the embedded gazetteer.
func (h *Handler) Geocode(c echo.Context) error {
	district, state := c.QueryParam("district"), c.QueryParam("state")
	if district == "" || state == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "district and state are required"})
	}
	p := h.places.Lookup(district, state)
	if p == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "district not found"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"district": district,
		"state":    state,
		"lat":      p.Lat,
		"lng":      p.Lng,
	})
}
