package http

import (
	"net/http"
	"path/filepath"

	"samanvay/internal/adapter/document"
	ucProject "samanvay/internal/usecase/project"

	"github.com/labstack/echo/v4"
)

// DocumentHandler serves generated assignment orders to callers who can
// read the project they belong to.
type DocumentHandler struct {
	dir      string
	projects *ucProject.Usecase
}

func NewDocumentHandler(dir string, projects *ucProject.Usecase) *DocumentHandler {
	return &DocumentHandler{dir: dir, projects: projects}
}

func (h *DocumentHandler) Get(c echo.Context) error {
	name := c.Param("name")
	pid, ok := document.ProjectOf(name)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "document not found"})
	}
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	if _, err := h.projects.Get(c.Request().Context(), a, pid); err != nil {
		return writeError(c, err)
	}
	return c.File(filepath.Join(h.dir, name))
}
