package notification

import "time"

// Kind categorizes what a notification is about
type Kind string

const (
	KindRequestApproved Kind = "request_approved"
	KindRequestRejected Kind = "request_rejected"
)

// Notification is a message delivered to a user about activity on their
// account. RequestID links back to the group request that produced it and is
// cleared if that request is ever removed.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	Kind        Kind      `json:"kind"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	RequestID   *int64    `json:"request_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
