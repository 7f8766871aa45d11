package mysql

import (
	"context"
	"errors"

	agencyDomain "samanvay/internal/domain/agency"

	"gorm.io/gorm"
)

type AgencyRepository struct{ db *gorm.DB }

func NewAgencyRepository(db *gorm.DB) *AgencyRepository { return &AgencyRepository{db: db} }

func (r *AgencyRepository) Create(ctx context.Context, a *agencyDomain.Agency) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AgencyRepository) GetByAgencyID(ctx context.Context, agencyID string) (*agencyDomain.Agency, error) {
	var out agencyDomain.Agency
	res := r.db.WithContext(ctx).
		Where("agency_id = ?", agencyID).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, agencyDomain.ErrNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}

func (r *AgencyRepository) List(ctx context.Context, state string) ([]agencyDomain.Agency, error) {
	q := r.db.WithContext(ctx).Model(&agencyDomain.Agency{})
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var out []agencyDomain.Agency
	if err := q.Order("name ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
