package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewAssignment builds an assignment with every checklist entry Incomplete.
// Position is set when the assignment is added to a project.
func NewAssignment(agencyID string, funds int64, checklist []string) (*Assignment, error) {
	if strings.TrimSpace(agencyID) == "" {
		return nil, fmt.Errorf("%w: agency is required", ErrValidation)
	}
	if funds < 0 {
		return nil, fmt.Errorf("%w: allocated funds must not be negative", ErrValidation)
	}
	if len(checklist) == 0 {
		return nil, fmt.Errorf("%w: checklist must contain at least one milestone", ErrValidation)
	}
	a := &Assignment{
		AgencyID:       agencyID,
		AllocatedFunds: funds,
		Milestones:     make([]Milestone, 0, len(checklist)),
	}
	for i, text := range checklist {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: checklist item %d has no text", ErrValidation, i)
		}
		a.Milestones = append(a.Milestones, Milestone{
			MilestoneID: uuid.NewString(),
			Position:    i,
			Text:        text,
			State:       MilestoneIncomplete,
			ProofImages: []string{},
		})
	}
	return a, nil
}

// AllocatedFunds sums the funds of every assignment on the project.
func (p *Project) AllocatedFunds() int64 {
	var sum int64
	for i := range p.Assignments {
		sum += p.Assignments[i].AllocatedFunds
	}
	return sum
}

// AddAssignments appends the batch in order. Either all are added or, when
// the batch would overrun the budget, none are.
func (p *Project) AddAssignments(as ...*Assignment) error {
	if len(as) == 0 {
		return fmt.Errorf("%w: at least one assignment is required", ErrValidation)
	}
	total := p.AllocatedFunds()
	for i, a := range as {
		// compare against the remainder so the running total cannot overflow
		if a.AllocatedFunds < 0 || a.AllocatedFunds > p.Budget-total {
			return fmt.Errorf("%w: assignment %d allocates %d but only %d of budget %d remains",
				ErrValidation, i, a.AllocatedFunds, p.Budget-total, p.Budget)
		}
		total += a.AllocatedFunds
	}
	next := len(p.Assignments)
	for i, a := range as {
		a.Position = next + i
		a.ProjectRef = p.ID
		for j := range a.Milestones {
			a.Milestones[j].ProjectRef = p.ID
		}
		p.Assignments = append(p.Assignments, *a)
	}
	return nil
}

// Locate resolves a milestone by its position inside the project.
func (p *Project) Locate(assignmentIndex, milestoneIndex int) (*Assignment, *Milestone, error) {
	if assignmentIndex < 0 || assignmentIndex >= len(p.Assignments) {
		return nil, nil, fmt.Errorf("assignment %d: %w", assignmentIndex, ErrNotFound)
	}
	a := &p.Assignments[assignmentIndex]
	if milestoneIndex < 0 || milestoneIndex >= len(a.Milestones) {
		return nil, nil, fmt.Errorf("milestone %d of assignment %d: %w", milestoneIndex, assignmentIndex, ErrNotFound)
	}
	return a, &a.Milestones[milestoneIndex], nil
}

// FindMilestone resolves a milestone by its stable identifier.
func (p *Project) FindMilestone(milestoneID string) (*Assignment, *Milestone, error) {
	for i := range p.Assignments {
		a := &p.Assignments[i]
		for j := range a.Milestones {
			if a.Milestones[j].MilestoneID == milestoneID {
				return a, &a.Milestones[j], nil
			}
		}
	}
	return nil, nil, fmt.Errorf("milestone %s: %w", milestoneID, ErrNotFound)
}

// Submit moves the milestone to Pending Review. Reviewer comments from a
// previous rejection are kept.
func (m *Milestone) Submit(proofs []string, at time.Time) error {
	if m.State != MilestoneIncomplete && m.State != MilestoneRejected {
		return fmt.Errorf("%w: cannot submit milestone in state %q", ErrInvalidState, m.State)
	}
	clean := make([]string, 0, len(proofs))
	for _, p := range proofs {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		return fmt.Errorf("%w: at least one proof image is required", ErrValidation)
	}
	at = at.UTC()
	m.State = MilestonePendingReview
	m.ProofImages = clean
	m.SubmittedAt = &at
	return nil
}

// Review approves or rejects a milestone awaiting review. Comments are
// mandatory for both outcomes.
func (m *Milestone) Review(action ReviewAction, comments, reviewer string, at time.Time) error {
	var next MilestoneState
	switch action {
	case ActionApprove:
		next = MilestoneApproved
	case ActionReject:
		next = MilestoneRejected
	default:
		return fmt.Errorf("%w: unknown review action %q", ErrValidation, action)
	}
	comments = strings.TrimSpace(comments)
	if comments == "" {
		return fmt.Errorf("%w: review comments are required", ErrValidation)
	}
	if m.State != MilestonePendingReview {
		return fmt.Errorf("%w: cannot review milestone in state %q", ErrInvalidState, m.State)
	}
	at = at.UTC()
	m.State = next
	m.Comments = comments
	m.ReviewedBy = reviewer
	m.ReviewedAt = &at
	return nil
}

// Counts returns the number of approved milestones and the total.
func (p *Project) Counts() (approved, total int) {
	for i := range p.Assignments {
		for _, m := range p.Assignments[i].Milestones {
			total++
			if m.State == MilestoneApproved {
				approved++
			}
		}
	}
	return approved, total
}

// Progress is round(100 * approved / total), 0 for an empty project.
func Progress(p *Project) int {
	approved, total := p.Counts()
	if total == 0 {
		return 0
	}
	// half-up rounding in integers
	return (200*approved + total) / (2 * total)
}

// Recompute refreshes the cached progress and derives the status.
func (p *Project) Recompute(now time.Time) {
	p.Progress = Progress(p)
	approved, total := p.Counts()
	switch {
	case total > 0 && approved == total:
		p.Status = StatusCompleted
	case len(p.Assignments) == 0:
		p.Status = StatusPendingApproval
	case !p.EndDate.IsZero() && now.After(p.EndDate):
		p.Status = StatusDelayed
	default:
		p.Status = StatusOnTrack
	}
}
