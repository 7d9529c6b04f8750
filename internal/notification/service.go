package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/hmaged/tutorbase/internal/group"
	"github.com/hmaged/tutorbase/internal/request"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
)

// Repository abstracts notification persistence
type Repository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, recipientID int64) error
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
}

// Groups looks up group names for notification messages.
type Groups interface {
	GetByID(ctx context.Context, id int64) (*group.Group, error)
}

// Service handles notification business logic
type Service struct {
	repo   Repository
	groups Groups
}

// NewService creates a new notification service
func NewService(repo Repository, groups Groups) *Service {
	return &Service{repo: repo, groups: groups}
}

// ListByRecipient retrieves a user's notifications, newest first
func (s *Service) ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, page, perPage int) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipient(ctx, recipientID, unreadOnly, perPage, offset)
}

// MarkRead marks a notification as read. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotificationNotFound
	}
	if n.RecipientID != userID {
		return ErrNotRecipient
	}

	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead marks all of a user's notifications as read
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// UnreadCount returns the count of a user's unread notifications
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// RequestResolved implements request.Notifier. It tells the requester how
// their join/leave request was decided.
func (s *Service) RequestResolved(ctx context.Context, gr *request.GroupRequest) error {
	groupName := fmt.Sprintf("group %d", gr.GroupID)
	if g, err := s.groups.GetByID(ctx, gr.GroupID); err == nil {
		groupName = g.Name
	}

	kind := KindRequestApproved
	decision := "approved"
	if gr.Status == request.StatusRejected {
		kind = KindRequestRejected
		decision = "rejected"
	}

	n := &Notification{
		RecipientID: gr.UserID,
		Kind:        kind,
		Message:     fmt.Sprintf("Your request to %s %s has been %s", gr.Action, groupName, decision),
		RequestID:   &gr.ID,
	}
	_, err := s.repo.Create(ctx, n)
	return err
}
