package agency

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("agency not found")
)

// Agency executes work against assignments. Projects reference agencies by
// AgencyID; an agency is never owned by a project.
type Agency struct {
	ID           uint64         `gorm:"primaryKey;column:id" json:"-"`
	AgencyID     string         `gorm:"column:agency_id;size:32;uniqueIndex:ux_agencies_agency_id" json:"agencyId"`
	Name         string         `gorm:"column:name;size:255;not null" json:"name"`
	Type         string         `gorm:"column:type;size:64;not null" json:"type"`
	State        string         `gorm:"column:state;size:64;not null;index:idx_agencies_state" json:"state"`
	ContactEmail string         `gorm:"column:contact_email;size:255" json:"contactEmail,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Agency) TableName() string { return "agencies" }
