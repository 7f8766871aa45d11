package project

import (
	"time"

	"gorm.io/gorm"
)

type Component string

const (
	ComponentAdarshGram Component = "Adarsh Gram"
	ComponentGIA        Component = "GIA"
	ComponentHostel     Component = "Hostel"
)

func (c Component) Valid() bool {
	switch c {
	case ComponentAdarshGram, ComponentGIA, ComponentHostel:
		return true
	}
	return false
}

type Status string

const (
	StatusPendingApproval Status = "Pending Approval"
	StatusOnTrack         Status = "On Track"
	StatusDelayed         Status = "Delayed"
	StatusCompleted       Status = "Completed"
)

type MilestoneState string

const (
	MilestoneIncomplete    MilestoneState = "Incomplete"
	MilestonePendingReview MilestoneState = "Pending Review"
	MilestoneApproved      MilestoneState = "Approved"
	MilestoneRejected      MilestoneState = "Rejected"
)

type ReviewAction string

const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
)

// Project is the aggregate root. Assignments and their milestones are only
// mutated through the project, under the project's row lock.
type Project struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	ProjectID string    `gorm:"column:project_id;size:32;uniqueIndex:ux_projects_project_id" json:"projectId"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	State     string    `gorm:"column:state;size:64;not null;index:idx_projects_state" json:"state"`
	Component Component `gorm:"column:component;size:32;not null" json:"component"`
	// Budget in the smallest currency unit.
	Budget    int64     `gorm:"column:budget;not null" json:"budget"`
	StartDate time.Time `gorm:"column:start_date" json:"startDate"`
	EndDate   time.Time `gorm:"column:end_date" json:"endDate"`
	Status    Status    `gorm:"column:status;size:32;not null;default:'Pending Approval'" json:"status"`
	Progress  int       `gorm:"column:progress;not null;default:0" json:"progress"`
	Version   int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedBy string    `gorm:"column:created_by;size:64" json:"createdBy"`

	Assignments []Assignment `gorm:"foreignKey:ProjectRef;constraint:OnDelete:CASCADE" json:"assignments"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Project) TableName() string { return "projects" }

type Assignment struct {
	ID             uint64 `gorm:"primaryKey;column:id" json:"-"`
	ProjectRef     uint64 `gorm:"column:project_ref;not null;index:idx_assignments_project" json:"-"`
	Position       int    `gorm:"column:position;not null" json:"index"`
	AgencyID       string `gorm:"column:agency_id;size:32;not null;index:idx_assignments_agency" json:"agencyId"`
	AllocatedFunds int64  `gorm:"column:allocated_funds;not null" json:"allocatedFunds"`

	Milestones []Milestone `gorm:"foreignKey:AssignmentRef;constraint:OnDelete:CASCADE" json:"milestones"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Assignment) TableName() string { return "assignments" }

type Milestone struct {
	ID            uint64 `gorm:"primaryKey;column:id" json:"-"`
	MilestoneID   string `gorm:"column:milestone_id;size:36;not null;uniqueIndex:ux_milestones_milestone_id" json:"milestoneId"`
	AssignmentRef uint64 `gorm:"column:assignment_ref;not null;index:idx_milestones_assignment" json:"-"`
	// denormalised so pending reviews can be queried without walking assignments
	ProjectRef  uint64         `gorm:"column:project_ref;not null;index:idx_milestones_project_state" json:"-"`
	Position    int            `gorm:"column:position;not null" json:"index"`
	Text        string         `gorm:"column:text;type:text;not null" json:"text"`
	State       MilestoneState `gorm:"column:state;size:32;not null;index:idx_milestones_project_state" json:"state"`
	ProofImages []string       `gorm:"column:proof_images;type:text;serializer:json" json:"proofImages"`
	Comments    string         `gorm:"column:comments;type:text" json:"comments"`
	SubmittedAt *time.Time     `gorm:"column:submitted_at" json:"submittedAt,omitempty"`
	ReviewedAt  *time.Time     `gorm:"column:reviewed_at" json:"reviewedAt,omitempty"`
	ReviewedBy  string         `gorm:"column:reviewed_by;size:64" json:"reviewedBy,omitempty"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Milestone) TableName() string { return "milestones" }
