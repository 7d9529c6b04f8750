package request

import "time"

// Action is the intent a request carries
type Action string

const (
	ActionJoin  Action = "join"
	ActionLeave Action = "leave"
)

// Status is the lifecycle state of a request. Pending requests move to
// approved or rejected exactly once; both are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// GroupRequest represents a user's intent to join or leave a group, pending
// admin resolution. Role is the requester's role snapshotted at submission
// time.
type GroupRequest struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	GroupID   int64     `json:"group_id"`
	Action    Action    `json:"action"`
	Role      string    `json:"role"`
	Status    Status    `json:"status"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
