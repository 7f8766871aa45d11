package project

import (
	"context"
	"time"

	domain "samanvay/internal/domain/project"
)

type CreateProjectInput struct {
	Name      string
	State     string
	Component string
	Budget    int64
	StartDate time.Time
	EndDate   time.Time
}

type AssignmentInput struct {
	AgencyID       string
	AllocatedFunds int64
	Checklist      []string
}

// MilestoneLocator addresses a milestone either by its stable id or, when
// MilestoneID is empty, by position.
type MilestoneLocator struct {
	ProjectID       string
	MilestoneID     string
	AssignmentIndex int
	MilestoneIndex  int
}

func (l MilestoneLocator) resolve(p *domain.Project) (*domain.Assignment, *domain.Milestone, error) {
	if l.MilestoneID != "" {
		return p.FindMilestone(l.MilestoneID)
	}
	return p.Locate(l.AssignmentIndex, l.MilestoneIndex)
}

type ListInput struct {
	State    string
	AgencyID string
}

type PendingInput struct {
	State     string
	ProjectID string
	AgencyID  string
}

type ProjectDTO struct {
	ProjectID      string          `json:"projectId"`
	Name           string          `json:"name"`
	State          string          `json:"state"`
	Component      string          `json:"component"`
	Budget         int64           `json:"budget"`
	AllocatedFunds int64           `json:"allocatedFunds"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
	Status         string          `json:"status"`
	Progress       int             `json:"progress"`
	Version        int64           `json:"version"`
	Assignments    []AssignmentDTO `json:"assignments"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type AssignmentDTO struct {
	Index          int            `json:"index"`
	AgencyID       string         `json:"agency"`
	AllocatedFunds int64          `json:"allocatedFunds"`
	Checklist      []MilestoneDTO `json:"checklist"`
}

type MilestoneDTO struct {
	MilestoneID     string     `json:"milestoneId"`
	AssignmentIndex int        `json:"assignmentIndex"`
	Index           int        `json:"index"`
	Text            string     `json:"text"`
	State           string     `json:"state"`
	ProofImages     []string   `json:"proofImages"`
	Comments        string     `json:"comments,omitempty"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy      string     `json:"reviewedBy,omitempty"`
}

type DocumentRef struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// AssignmentResult is returned by CreateAssignments. Warnings carry side
// effects that failed after the assignments were committed.
type AssignmentResult struct {
	Project  ProjectDTO   `json:"project"`
	Document *DocumentRef `json:"document,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// AssignmentOrder is what the document generator renders.
type AssignmentOrder struct {
	Project     ProjectDTO
	Assignments []AssignmentDTO
	IssuedBy    string
	IssuedAt    time.Time
}

type DocumentGenerator interface {
	AssignmentOrder(ctx context.Context, order AssignmentOrder) (*DocumentRef, error)
}

func toMilestoneDTO(assignmentIndex int, m *domain.Milestone) MilestoneDTO {
	proofs := m.ProofImages
	if proofs == nil {
		proofs = []string{}
	}
	return MilestoneDTO{
		MilestoneID:     m.MilestoneID,
		AssignmentIndex: assignmentIndex,
		Index:           m.Position,
		Text:            m.Text,
		State:           string(m.State),
		ProofImages:     proofs,
		Comments:        m.Comments,
		SubmittedAt:     m.SubmittedAt,
		ReviewedAt:      m.ReviewedAt,
		ReviewedBy:      m.ReviewedBy,
	}
}

func toAssignmentDTO(a *domain.Assignment) AssignmentDTO {
	out := AssignmentDTO{
		Index:          a.Position,
		AgencyID:       a.AgencyID,
		AllocatedFunds: a.AllocatedFunds,
		Checklist:      make([]MilestoneDTO, 0, len(a.Milestones)),
	}
	for i := range a.Milestones {
		out.Checklist = append(out.Checklist, toMilestoneDTO(a.Position, &a.Milestones[i]))
	}
	return out
}

func toProjectDTO(p *domain.Project) ProjectDTO {
	out := ProjectDTO{
		ProjectID:      p.ProjectID,
		Name:           p.Name,
		State:          p.State,
		Component:      string(p.Component),
		Budget:         p.Budget,
		AllocatedFunds: p.AllocatedFunds(),
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		Status:         string(p.Status),
		Progress:       p.Progress,
		Version:        p.Version,
		Assignments:    make([]AssignmentDTO, 0, len(p.Assignments)),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	for i := range p.Assignments {
		out.Assignments = append(out.Assignments, toAssignmentDTO(&p.Assignments[i]))
	}
	return out
}
