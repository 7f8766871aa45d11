package http

import (
	"net/http"
	"strconv"
	"time"

	ucProject "samanvay/internal/usecase/project"

	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

type ProjectHandler struct{ uc *ucProject.Usecase }

func NewProjectHandler(uc *ucProject.Usecase) *ProjectHandler { return &ProjectHandler{uc: uc} }

type createProjectReq struct {
	Name      string `json:"name"      validate:"notblank"`
	State     string `json:"state"     validate:"notblank"`
	Component string `json:"component" validate:"required,oneof='Adarsh Gram' GIA Hostel"`
	Budget    int64  `json:"budget"    validate:"gte=0"`
	// canonical date `YYYY-MM-DD`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate"   validate:"required,datetime=2006-01-02"`
}

type checklistItemReq struct {
	Text string `json:"text" validate:"notblank"`
}

type assignmentReq struct {
	Agency         string             `json:"agency"         validate:"required,hex32"`
	AllocatedFunds int64              `json:"allocatedFunds" validate:"gte=0"`
	Checklist      []checklistItemReq `json:"checklist"      validate:"required,min=1,dive"`
}

type createAssignmentsReq struct {
	Assignments []assignmentReq `json:"assignments" validate:"required,min=1,dive"`
}

type submitReq struct {
	ProofImages []string `json:"proofImages" validate:"required,min=1,dive,notblank"`
}

type reviewReq struct {
	Action   string `json:"action"   validate:"required,oneof=approve reject"`
	Comments string `json:"comments" validate:"notblank"`
}

func (h *ProjectHandler) Create(c echo.Context) error {
	var req createProjectReq
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
	// layout already checked by the validator
	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)

	dto, err := h.uc.Create(c.Request().Context(), a, ucProject.CreateProjectInput{
		Name:      req.Name,
		State:     req.State,
		Component: req.Component,
		Budget:    req.Budget,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ProjectHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.Get(c.Request().Context(), a, c.Param("project_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ProjectHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.List(c.Request().Context(), a, ucProject.ListInput{
		State:    c.QueryParam("state"),
		AgencyID: c.QueryParam("agency"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProjectHandler) CreateAssignments(c echo.Context) error {
	var req createAssignmentsReq
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
	in := make([]ucProject.AssignmentInput, 0, len(req.Assignments))
	for _, r := range req.Assignments {
		items := make([]string, 0, len(r.Checklist))
		for _, it := range r.Checklist {
			items = append(items, it.Text)
		}
		in = append(in, ucProject.AssignmentInput{
			AgencyID:       r.Agency,
			AllocatedFunds: r.AllocatedFunds,
			Checklist:      items,
		})
	}
	res, err := h.uc.CreateAssignments(c.Request().Context(), a, c.Param("project_id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// locator reads either :milestone_id or the two positional params.
func locator(c echo.Context) (ucProject.MilestoneLocator, bool) {
	loc := ucProject.MilestoneLocator{
		ProjectID:   c.Param("project_id"),
		MilestoneID: c.Param("milestone_id"),
	}
	if loc.MilestoneID != "" {
		return loc, true
	}
	ai, err1 := strconv.Atoi(c.Param("assignment_index"))
	mi, err2 := strconv.Atoi(c.Param("checklist_index"))
	if err1 != nil || err2 != nil {
		return loc, false
	}
	loc.AssignmentIndex, loc.MilestoneIndex = ai, mi
	return loc, true
}

func (h *ProjectHandler) Submit(c echo.Context) error {
	loc, ok := locator(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid checklist position"})
	}
	var req submitReq
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
	dto, err := h.uc.Submit(c.Request().Context(), a, loc, req.ProofImages)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ProjectHandler) Review(c echo.Context) error {
	loc, ok := locator(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid checklist position"})
	}
	var req reviewReq
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
	dto, err := h.uc.Review(c.Request().Context(), a, loc, req.Action, req.Comments)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// PendingReviews serves both the global list (filters from the query) and
// the project+agency form (filters from the path).
func (h *ProjectHandler) PendingReviews(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	in := ucProject.PendingInput{
		State:     c.QueryParam("state"),
		ProjectID: c.QueryParam("projectId"),
		AgencyID:  c.QueryParam("agency"),
	}
	if pid := c.Param("project_id"); pid != "" {
		in.ProjectID = pid
		in.AgencyID = c.Param("agency_id")
	}
	out, err := h.uc.PendingReviews(c.Request().Context(), a, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
