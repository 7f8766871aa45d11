package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	projectDomain "samanvay/internal/domain/project"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepository struct{ db *gorm.DB }

func NewProjectRepository(db *gorm.DB) *ProjectRepository { return &ProjectRepository{db: db} }

func byPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *ProjectRepository) withTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Assignments", byPosition).
		Preload("Assignments.Milestones", byPosition)
}

func notFound(err error, projectID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("project %s: %w", projectID, projectDomain.ErrNotFound)
	}
	return err
}

func (r *ProjectRepository) Create(ctx context.Context, p *projectDomain.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *ProjectRepository) GetByProjectID(ctx context.Context, projectID string) (*projectDomain.Project, error) {
	var out projectDomain.Project
	res := r.withTree(r.db.WithContext(ctx)).
		Where("project_id = ?", projectID).
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error, projectID)
	}
	return &out, nil
}

func (r *ProjectRepository) GetByProjectIDForUpdate(ctx context.Context, projectID string) (*projectDomain.Project, error) {
	// lock the root row only; children are read under that lock
	var locked projectDomain.Project
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("project_id = ?", projectID).
		First(&locked)
	if res.Error != nil {
		return nil, notFound(res.Error, projectID)
	}
	return r.GetByProjectID(ctx, projectID)
}

func (r *ProjectRepository) List(ctx context.Context, f projectDomain.ListFilter) ([]projectDomain.Project, error) {
	q := r.withTree(r.db.WithContext(ctx)).Model(&projectDomain.Project{})
	if f.State != "" {
		q = q.Where("state = ?", f.State)
	}
	if f.AgencyID != "" {
		q = q.Where("id IN (?)", r.db.Model(&projectDomain.Assignment{}).
			Select("project_ref").
			Where("agency_id = ?", f.AgencyID))
	}
	var out []projectDomain.Project
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProjectRepository) ListPendingReviews(ctx context.Context, f projectDomain.PendingFilter) ([]projectDomain.Project, error) {
	pending := r.db.Model(&projectDomain.Milestone{}).
		Select("milestones.project_ref").
		Joins("JOIN assignments ON assignments.id = milestones.assignment_ref").
		Where("milestones.state = ?", projectDomain.MilestonePendingReview)
	if f.AgencyID != "" {
		pending = pending.Where("assignments.agency_id = ?", f.AgencyID)
	}

	q := r.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			if f.AgencyID != "" {
				db = db.Where("agency_id = ?", f.AgencyID)
			}
			return db.Order("position ASC")
		}).
		Preload("Assignments.Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Where("state = ?", projectDomain.MilestonePendingReview).Order("position ASC")
		}).
		Where("id IN (?)", pending)
	if f.State != "" {
		q = q.Where("state = ?", f.State)
	}
	if f.ProjectID != "" {
		q = q.Where("project_id = ?", f.ProjectID)
	}

	var out []projectDomain.Project
	if err := q.Order("updated_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	// drop assignments with nothing to review
	for i := range out {
		kept := out[i].Assignments[:0]
		for _, a := range out[i].Assignments {
			if len(a.Milestones) > 0 {
				kept = append(kept, a)
			}
		}
		out[i].Assignments = kept
	}
	return out, nil
}

func (r *ProjectRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]projectDomain.Project, error) {
	var out []projectDomain.Project
	err := r.db.WithContext(ctx).
		Where("end_date < ? AND status = ?", cutoff, projectDomain.StatusOnTrack).
		Order("end_date ASC").
		Find(&out).Error
	return out, err
}

// CreateAssignment inserts the assignment together with its milestones.
func (r *ProjectRepository) CreateAssignment(ctx context.Context, a *projectDomain.Assignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ProjectRepository) SaveMilestone(ctx context.Context, m *projectDomain.Milestone) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *ProjectRepository) SaveAggregate(ctx context.Context, p *projectDomain.Project) error {
	res := r.db.WithContext(ctx).
		Model(&projectDomain.Project{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]any{
			"status":   p.Status,
			"progress": p.Progress,
			"version":  p.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("project %s at version %d: %w", p.ProjectID, p.Version, projectDomain.ErrConcurrentUpdate)
	}
	p.Version++
	return nil
}
