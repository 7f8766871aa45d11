package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "samanvay/internal/domain/project"
	"samanvay/internal/testutil/sqlitedb"
	"samanvay/pkg/id"

	"gorm.io/gorm"
)

func makeProject(state string, budget int64) *domain.Project {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Project{
		ProjectID: id.NewID32(),
		Name:      "Hostel block " + state,
		State:     state,
		Component: domain.ComponentHostel,
		Budget:    budget,
		StartDate: start,
		EndDate:   start.AddDate(1, 0, 0),
		Status:    domain.StatusPendingApproval,
		CreatedBy: "tester",
	}
}

// seedProject stores a project and one assignment per checklist, all for agency.
func seedProject(t *testing.T, db *gorm.DB, state, agency string, checklists ...[]string) *domain.Project {
	t.Helper()
	ctx := context.Background()
	repo := NewProjectRepository(db)

	p := makeProject(state, 1_000_000)
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, cl := range checklists {
		a, err := domain.NewAssignment(agency, 1000, cl)
		if err != nil {
			t.Fatalf("NewAssignment: %v", err)
		}
		if err := p.AddAssignments(a); err != nil {
			t.Fatalf("AddAssignments: %v", err)
		}
		if err := repo.CreateAssignment(ctx, &p.Assignments[len(p.Assignments)-1]); err != nil {
			t.Fatalf("CreateAssignment: %v", err)
		}
	}
	return p
}

func TestProjectCreateAndGet(t *testing.T) {
	db := sqlitedb.Open(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	p := seedProject(t, db, "Odisha", "agency-a",
		[]string{"Site Clearance", "Foundation"},
		[]string{"Roofing"},
	)
	if p.ID == 0 {
		t.Fatalf("Create did not set auto-increment ID")
	}

	got, err := repo.GetByProjectID(ctx, p.ProjectID)
	if err != nil {
		t.Fatalf("GetByProjectID: %v", err)
	}
	if len(got.Assignments) != 2 {
		t.Fatalf("want 2 assignments, got %d", len(got.Assignments))
	}
	first := got.Assignments[0]
	if first.Position != 0 || first.AgencyID != "agency-a" || len(first.Milestones) != 2 {
		t.Fatalf("unexpected first assignment: %+v", first)
	}
	if first.Milestones[1].Text != "Foundation" || first.Milestones[1].State != domain.MilestoneIncomplete {
		t.Fatalf("unexpected milestone: %+v", first.Milestones[1])
	}
	if first.Milestones[0].ProofImages == nil || len(first.Milestones[0].ProofImages) != 0 {
		t.Fatalf("proof images should round-trip as empty list, got %#v", first.Milestones[0].ProofImages)
	}
	if got.Assignments[1].Milestones[0].ProjectRef != p.ID {
		t.Fatalf("milestone project_ref not set")
	}
}

func TestGetByProjectID_NotFound(t *testing.T) {
	db := sqlitedb.Open(t)
	repo := NewProjectRepository(db)

	_, err := repo.GetByProjectID(context.Background(), "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = repo.GetByProjectIDForUpdate(context.Background(), "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for locked read, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	db := sqlitedb.Open(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	seedProject(t, db, "Odisha", "agency-a", []string{"x"})
	seedProject(t, db, "Odisha", "agency-b", []string{"y"})
	seedProject(t, db, "Kerala", "agency-a", []string{"z"})

	all, err := repo.List(ctx, domain.ListFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("List all: n=%d err=%v", len(all), err)
	}
	odisha, err := repo.List(ctx, domain.ListFilter{State: "Odisha"})
	if err != nil || len(odisha) != 2 {
		t.Fatalf("List state: n=%d err=%v", len(odisha), err)
	}
	both, err := repo.List(ctx, domain.ListFilter{State: "Odisha", AgencyID: "agency-a"})
	if err != nil || len(both) != 1 || both[0].Assignments[0].AgencyID != "agency-a" {
		t.Fatalf("List state+agency: %+v err=%v", both, err)
	}
}

func TestSaveMilestoneAndAggregate(t *testing.T) {
	db := sqlitedb.Open(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	p := seedProject(t, db, "Odisha", "agency-a", []string{"Site Clearance", "Foundation"})
	now := time.Now().UTC()

	_, m, err := p.Locate(0, 0)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if err := m.Submit([]string{"proof/site.jpg"}, now); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := m.Review(domain.ActionApprove, "Verified on site", "officer", now); err != nil {
		t.Fatalf("Review: %v", err)
	}
	if err := repo.SaveMilestone(ctx, m); err != nil {
		t.Fatalf("SaveMilestone: %v", err)
	}
	p.Recompute(now)
	if err := repo.SaveAggregate(ctx, p); err != nil {
		t.Fatalf("SaveAggregate: %v", err)
	}
	if p.Version != 1 {
		t.Fatalf("version should bump to 1, got %d", p.Version)
	}

	got, err := repo.GetByProjectID(ctx, p.ProjectID)
	if err != nil {
		t.Fatalf("GetByProjectID: %v", err)
	}
	gm := got.Assignments[0].Milestones[0]
	if gm.State != domain.MilestoneApproved || gm.Comments != "Verified on site" || len(gm.ProofImages) != 1 {
		t.Fatalf("milestone not persisted: %+v", gm)
	}
	if got.Progress != 50 || got.Status != domain.StatusOnTrack || got.Version != 1 {
		t.Fatalf("aggregate not persisted: progress=%d status=%s version=%d", got.Progress, got.Status, got.Version)
	}

	// a stale copy loses
	stale := *got
	stale.Version = 0
	if err := repo.SaveAggregate(ctx, &stale); !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
}

func TestListPendingReviews(t *testing.T) {
	db := sqlitedb.Open(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	submit := func(p *domain.Project, ai, mi int) {
		t.Helper()
		_, m, err := p.Locate(ai, mi)
		if err != nil {
			t.Fatalf("Locate: %v", err)
		}
		if err := m.Submit([]string{"proof.jpg"}, now); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if err := repo.SaveMilestone(ctx, m); err != nil {
			t.Fatalf("SaveMilestone: %v", err)
		}
	}

	p1 := seedProject(t, db, "Odisha", "agency-a", []string{"a0", "a1"}, []string{"b0"})
	submit(p1, 0, 1)
	p2 := seedProject(t, db, "Odisha", "agency-b", []string{"c0"})
	submit(p2, 0, 0)
	p3 := seedProject(t, db, "Kerala", "agency-a", []string{"d0"})
	submit(p3, 0, 0)
	seedProject(t, db, "Odisha", "agency-a", []string{"nothing submitted"})

	all, err := repo.ListPendingReviews(ctx, domain.PendingFilter{})
	if err != nil {
		t.Fatalf("ListPendingReviews: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 projects with pending work, got %d", len(all))
	}
	for _, p := range all {
		for _, a := range p.Assignments {
			if len(a.Milestones) == 0 {
				t.Fatalf("assignment without pending milestones leaked: %+v", a)
			}
			for _, m := range a.Milestones {
				if m.State != domain.MilestonePendingReview {
					t.Fatalf("non-pending milestone leaked: %+v", m)
				}
			}
		}
	}

	odisha, err := repo.ListPendingReviews(ctx, domain.PendingFilter{State: "Odisha"})
	if err != nil || len(odisha) != 2 {
		t.Fatalf("state filter: n=%d err=%v", len(odisha), err)
	}

	scoped, err := repo.ListPendingReviews(ctx, domain.PendingFilter{ProjectID: p1.ProjectID, AgencyID: "agency-a"})
	if err != nil {
		t.Fatalf("scoped: %v", err)
	}
	if len(scoped) != 1 || len(scoped[0].Assignments) != 1 {
		t.Fatalf("scoped result: %+v", scoped)
	}
	if m := scoped[0].Assignments[0].Milestones[0]; m.Text != "a1" || m.Position != 1 {
		t.Fatalf("scoped milestone: %+v", m)
	}

	none, err := repo.ListPendingReviews(ctx, domain.PendingFilter{ProjectID: p1.ProjectID, AgencyID: "agency-b"})
	if err != nil || len(none) != 0 {
		t.Fatalf("wrong agency should see nothing: n=%d err=%v", len(none), err)
	}
}

func TestListOverdue(t *testing.T) {
	db := sqlitedb.Open(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	p := seedProject(t, db, "Odisha", "agency-a", []string{"x"})
	p.Recompute(p.StartDate)
	if err := repo.SaveAggregate(ctx, p); err != nil {
		t.Fatalf("SaveAggregate: %v", err)
	}
	seedProject(t, db, "Odisha", "agency-a") // pending approval, never swept

	before, err := repo.ListOverdue(ctx, p.EndDate.Add(-time.Hour))
	if err != nil || len(before) != 0 {
		t.Fatalf("nothing overdue before end date: n=%d err=%v", len(before), err)
	}
	after, err := repo.ListOverdue(ctx, p.EndDate.Add(time.Hour))
	if err != nil || len(after) != 1 || after[0].ProjectID != p.ProjectID {
		t.Fatalf("overdue after end date: %+v err=%v", after, err)
	}
}
