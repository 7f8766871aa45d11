package outbox

import (
	"encoding/json"
	"errors"
	"time"

	"samanvay/pkg/id"
)

var (
	ErrNotFound = errors.New("outbox event not found")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Routing keys
const (
	TypeAssignmentCreated  = "assignment.created"
	TypeMilestoneSubmitted = "milestone.submitted"
	TypeMilestoneReviewed  = "milestone.reviewed"
	TypeDocumentFailed     = "document.generation_failed"
)

// Event is a notification waiting to be delivered. Workflow events are
// written in the same transaction as the state change they describe.
type Event struct {
	ID          uint64     `gorm:"primaryKey;column:id" json:"-"`
	EventID     string     `gorm:"column:event_id;size:32;uniqueIndex:ux_outbox_event_id" json:"eventId"`
	Type        string     `gorm:"column:type;size:64;not null" json:"type"`
	AggregateID string     `gorm:"column:aggregate_id;size:32;index:idx_outbox_aggregate" json:"aggregateId"`
	Recipient   string     `gorm:"column:recipient;size:128;not null" json:"recipient"`
	Payload     []byte     `gorm:"column:payload" json:"payload"`
	Status      Status     `gorm:"column:status;size:16;not null;index:idx_outbox_status_next" json:"status"`
	RetryCount  int        `gorm:"column:retry_count;not null;default:0" json:"retryCount"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at;index:idx_outbox_status_next" json:"nextRetryAt,omitempty"`
	LastError   string     `gorm:"column:last_error;type:text" json:"lastError,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Event) TableName() string { return "outbox_events" }

// NewEvent marshals payload and returns a pending event.
func NewEvent(eventType, aggregateID, recipient string, payload any) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		EventID:     id.NewID32(),
		Type:        eventType,
		AggregateID: aggregateID,
		Recipient:   recipient,
		Payload:     body,
		Status:      StatusPending,
	}, nil
}

// Envelope is what goes on the wire.
type Envelope struct {
	EventID     string          `json:"eventId"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregateId"`
	Recipient   string          `json:"recipient"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (e *Event) Envelope() Envelope {
	return Envelope{
		EventID:     e.EventID,
		Type:        e.Type,
		AggregateID: e.AggregateID,
		Recipient:   e.Recipient,
		Payload:     json.RawMessage(e.Payload),
		CreatedAt:   e.CreatedAt,
	}
}

// Backoff is 5s doubled per attempt, capped at 10 minutes.
func Backoff(retry int) time.Duration {
	const (
		base = 5 * time.Second
		max  = 10 * time.Minute
	)
	if retry < 1 {
		retry = 1
	}
	d := base
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}

func RecipientAgency(agencyID string) string { return "agency:" + agencyID }
func RecipientState(state string) string     { return "state:" + state }

const RecipientCentralAdmin = "role:central_admin"

// Payloads

type AssignmentCreated struct {
	ProjectID       string   `json:"projectId"`
	ProjectName     string   `json:"projectName"`
	AssignmentIndex int      `json:"assignmentIndex"`
	AgencyID        string   `json:"agencyId"`
	AllocatedFunds  int64    `json:"allocatedFunds"`
	Milestones      []string `json:"milestones"`
}

type MilestoneSubmitted struct {
	ProjectID       string   `json:"projectId"`
	MilestoneID     string   `json:"milestoneId"`
	AssignmentIndex int      `json:"assignmentIndex"`
	MilestoneIndex  int      `json:"milestoneIndex"`
	AgencyID        string   `json:"agencyId"`
	ProofImages     []string `json:"proofImages"`
}

type MilestoneReviewed struct {
	ProjectID       string `json:"projectId"`
	MilestoneID     string `json:"milestoneId"`
	AssignmentIndex int    `json:"assignmentIndex"`
	MilestoneIndex  int    `json:"milestoneIndex"`
	Action          string `json:"action"`
	State           string `json:"state"`
	Comments        string `json:"comments"`
	Progress        int    `json:"progress"`
}

type DocumentFailed struct {
	ProjectID string `json:"projectId"`
	Reason    string `json:"reason"`
}
