package http

import (
	"net/http"

	ucAgency "samanvay/internal/usecase/agency"

	"github.com/labstack/echo/v4"
)

type AgencyHandler struct{ uc *ucAgency.Usecase }

func NewAgencyHandler(uc *ucAgency.Usecase) *AgencyHandler { return &AgencyHandler{uc: uc} }

type createAgencyReq struct {
	Name         string `json:"name"         validate:"notblank"`
	Type         string `json:"type"         validate:"notblank"`
	State        string `json:"state"        validate:"notblank"`
	ContactEmail string `json:"contactEmail" validate:"omitempty,email"`
}

func (h *AgencyHandler) Create(c echo.Context) error {
	var req createAgencyReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.Create(c.Request().Context(), a, ucAgency.CreateAgencyInput{
		Name:         req.Name,
		Type:         req.Type,
		State:        req.State,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *AgencyHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.Get(c.Request().Context(), a, c.Param("agency_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AgencyHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.List(c.Request().Context(), a, c.QueryParam("state"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
