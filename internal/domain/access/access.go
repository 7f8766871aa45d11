package access

import (
	"context"
	"errors"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type Role string

const (
	RoleCentralAdmin Role = "central_admin"
	RoleStateOfficer Role = "state_officer"
	RoleAgency       Role = "executing_agency"
)

func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

type Permission string

const (
	PermProjectCreate    Permission = "project:create"
	PermProjectRead      Permission = "project:read"
	PermAssignmentCreate Permission = "assignment:create"
	PermMilestoneSubmit  Permission = "milestone:submit"
	PermMilestoneReview  Permission = "milestone:review"
	PermPendingRead      Permission = "pending:read"
	PermAgencyCreate     Permission = "agency:create"
	PermAgencyRead       Permission = "agency:read"
	PermOutboxManage     Permission = "outbox:manage"
)

var rolePermissions = map[Role][]Permission{
	RoleCentralAdmin: {
		PermProjectCreate, PermProjectRead, PermAssignmentCreate,
		PermPendingRead, PermAgencyCreate, PermAgencyRead, PermOutboxManage,
	},
	RoleStateOfficer: {
		PermProjectCreate, PermProjectRead, PermAssignmentCreate,
		PermMilestoneReview, PermPendingRead, PermAgencyRead,
	},
	RoleAgency: {
		PermProjectRead, PermMilestoneSubmit, PermPendingRead, PermAgencyRead,
	},
}

// Actor is the authenticated caller of a request.
type Actor struct {
	Subject  string `json:"sub"`
	Role     Role   `json:"role"`
	State    string `json:"state,omitempty"`
	AgencyID string `json:"agencyId,omitempty"`
}

func (a Actor) Has(p Permission) bool {
	for _, got := range rolePermissions[a.Role] {
		if got == p {
			return true
		}
	}
	return false
}

// CanManageState: central admins manage every state, officers only their own.
func (a Actor) CanManageState(state string) bool {
	switch a.Role {
	case RoleCentralAdmin:
		return true
	case RoleStateOfficer:
		return a.State != "" && a.State == state
	}
	return false
}

// CanReview is narrower than CanManageState: only the state's officer reviews.
func (a Actor) CanReview(state string) bool {
	return a.Role == RoleStateOfficer && a.State != "" && a.State == state
}

func (a Actor) IsAgency(agencyID string) bool {
	return a.Role == RoleAgency && a.AgencyID != "" && a.AgencyID == agencyID
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
