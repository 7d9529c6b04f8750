package group

import (
	"strings"
	"time"
)

// Status is the derived lifecycle stage of a group
type Status string

const (
	StatusComing   Status = "coming"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
)

// ValidStatus reports whether s is one of the three lifecycle stages.
func ValidStatus(s Status) bool {
	return s == StatusComing || s == StatusRunning || s == StatusFinished
}

// Group represents a cohort with fixed capacity, schedule and lifecycle status
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"group"`
	Size      int       `json:"size"`
	Status    Status    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	TeacherID *int64    `json:"teacher_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Populated from group_days
	Days []GroupDay `json:"days,omitempty"`
}

// GroupDay is one scheduled weekday+time slot owned by a group.
// Time is stored in 24-hour form ("15:04:05") regardless of input format.
type GroupDay struct {
	GroupID int64  `json:"group_id"`
	DayID   int64  `json:"day_id"`
	Day     string `json:"day,omitempty"` // populated from JOIN
	Time    string `json:"time"`
}

// Day is one of the seven weekdays, immutable reference data
type Day struct {
	ID   int64  `json:"id"`
	Name string `json:"day"`
}

// Student is an enrolled student's directory entry
type Student struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// DeriveStatus computes a group's lifecycle status from its dates relative to
// today. This is the single source of truth for status: it is evaluated and
// persisted at creation and after every date edit. Boundary dates count as
// running — a group starting or ending today is in session.
func DeriveStatus(start, end, today time.Time) Status {
	start, end, today = dateOnly(start), dateOnly(end), dateOnly(today)
	switch {
	case start.After(today):
		return StatusComing
	case today.After(end):
		return StatusFinished
	default:
		return StatusRunning
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseClockTime parses a 12-hour clock string with AM/PM marker
// ("09:00:00 AM") and returns it in 24-hour form ("09:00:00").
func ParseClockTime(s string) (string, error) {
	t, err := time.Parse("03:04:05 PM", strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return "", err
	}
	return t.Format("15:04:05"), nil
}

// DateFormat is the wire format for group start/end dates.
const DateFormat = "2006-01-02"
