package subscription

import "time"

// SessionType distinguishes private and group tutoring packages
type SessionType string

const (
	SessionPrivate SessionType = "private"
	SessionGroup   SessionType = "group"
)

// Package represents a purchasable bundle of tutoring sessions
type Package struct {
	ID          int64       `json:"id"`
	Name        string      `json:"package"`
	SessionType SessionType `json:"session_type"`
	Price       float64     `json:"price"`
	Duration    int         `json:"duration"` // days of validity
	MaxSessions int         `json:"max_sessions"`
	Description *string     `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// UserPackage represents a user's subscription to a package
type UserPackage struct {
	UserID     int64     `json:"user_id"`
	PackageID  int64     `json:"package_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiryDate time.Time `json:"expiry_date"`
	IsActive   bool      `json:"is_active"`
}

// ExpiryFrom computes when a subscription started at the given time runs out.
// A zero-duration package expires immediately.
func (p *Package) ExpiryFrom(start time.Time) time.Time {
	if p.Duration == 0 {
		return start
	}
	return start.AddDate(0, 0, p.Duration)
}
