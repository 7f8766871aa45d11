package agency

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"samanvay/internal/domain/access"
	domain "samanvay/internal/domain/agency"
	"samanvay/internal/domain/project"
	"samanvay/pkg/id"
)

type Usecase struct{ repo domain.Repository }

func NewUsecase(r domain.Repository) *Usecase { return &Usecase{repo: r} }

type CreateAgencyInput struct {
	Name         string
	Type         string
	State        string
	ContactEmail string
}

type AgencyDTO struct {
	AgencyID     string    `json:"agencyId"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	State        string    `json:"state"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toDTO(a *domain.Agency) AgencyDTO {
	return AgencyDTO{
		AgencyID:     a.AgencyID,
		Name:         a.Name,
		Type:         a.Type,
		State:        a.State,
		ContactEmail: a.ContactEmail,
		CreatedAt:    a.CreatedAt,
	}
}

func (u *Usecase) Create(ctx context.Context, actor access.Actor, in CreateAgencyInput) (*AgencyDTO, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	in.State = strings.TrimSpace(in.State)
	if in.Name == "" || in.Type == "" || in.State == "" {
		return nil, fmt.Errorf("%w: name, type and state are required", project.ErrValidation)
	}
	if in.ContactEmail != "" {
		if _, err := mail.ParseAddress(in.ContactEmail); err != nil {
			return nil, fmt.Errorf("%w: invalid contact email", project.ErrValidation)
		}
	}
	if !actor.Has(access.PermAgencyCreate) {
		return nil, access.ErrForbidden
	}

	a := &domain.Agency{
		AgencyID:     id.NewID32(),
		Name:         in.Name,
		Type:         in.Type,
		State:        in.State,
		ContactEmail: in.ContactEmail,
	}
	if err := u.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	dto := toDTO(a)
	return &dto, nil
}

func (u *Usecase) Get(ctx context.Context, actor access.Actor, agencyID string) (*AgencyDTO, error) {
	if !actor.Has(access.PermAgencyRead) {
		return nil, access.ErrForbidden
	}
	a, err := u.repo.GetByAgencyID(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(a)
	return &dto, nil
}

// List returns agencies of one state, or all when state is empty. State
// officers default to their own state.
func (u *Usecase) List(ctx context.Context, actor access.Actor, state string) ([]AgencyDTO, error) {
	if !actor.Has(access.PermAgencyRead) {
		return nil, access.ErrForbidden
	}
	if state == "" && actor.Role == access.RoleStateOfficer {
		state = actor.State
	}
	as, err := u.repo.List(ctx, state)
	if err != nil {
		return nil, err
	}
	out := make([]AgencyDTO, 0, len(as))
	for i := range as {
		out = append(out, toDTO(&as[i]))
	}
	return out, nil
}
