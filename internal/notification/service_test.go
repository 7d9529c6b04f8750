package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaged/tutorbase/internal/group"
	"github.com/hmaged/tutorbase/internal/request"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	notifications map[int64]*Notification
	nextID        int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{notifications: make(map[int64]*Notification)}
}

func (r *fakeRepo) Create(_ context.Context, n *Notification) (*Notification, error) {
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	stored := *n
	r.notifications[n.ID] = &stored
	return n, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*Notification, error) {
	n, ok := r.notifications[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (r *fakeRepo) ListByRecipient(_ context.Context, recipientID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	var matched []*Notification
	for id := r.nextID; id >= 1; id-- {
		n, ok := r.notifications[id]
		if !ok || n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		cp := *n
		matched = append(matched, &cp)
	}
	total := len(matched)
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeRepo) MarkRead(_ context.Context, id int64) error {
	if n, ok := r.notifications[id]; ok {
		n.IsRead = true
	}
	return nil
}

func (r *fakeRepo) MarkAllRead(_ context.Context, recipientID int64) error {
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeRepo) UnreadCount(_ context.Context, recipientID int64) (int, error) {
	count := 0
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// fakeGroups resolves group names.
type fakeGroups struct {
	groups map[int64]*group.Group
}

func (g *fakeGroups) GetByID(_ context.Context, id int64) (*group.Group, error) {
	gr, ok := g.groups[id]
	if !ok {
		return nil, group.ErrGroupNotFound
	}
	return gr, nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	groups := &fakeGroups{groups: map[int64]*group.Group{
		1: {ID: 1, Name: "Math101"},
	}}
	return NewService(repo, groups), repo
}

func TestRequestResolved(t *testing.T) {
	ctx := context.Background()

	t.Run("approved join", func(t *testing.T) {
		svc, _ := newTestService()

		err := svc.RequestResolved(ctx, &request.GroupRequest{
			ID: 7, UserID: 3, GroupID: 1,
			Action: request.ActionJoin, Status: request.StatusApproved,
		})
		require.NoError(t, err)

		notifications, total, err := svc.ListByRecipient(ctx, 3, false, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, notifications, 1)
		assert.Equal(t, KindRequestApproved, notifications[0].Kind)
		assert.Equal(t, "Your request to join Math101 has been approved", notifications[0].Message)
		require.NotNil(t, notifications[0].RequestID)
		assert.Equal(t, int64(7), *notifications[0].RequestID)
	})

	t.Run("rejected leave", func(t *testing.T) {
		svc, _ := newTestService()

		err := svc.RequestResolved(ctx, &request.GroupRequest{
			ID: 8, UserID: 3, GroupID: 1,
			Action: request.ActionLeave, Status: request.StatusRejected,
		})
		require.NoError(t, err)

		notifications, _, err := svc.ListByRecipient(ctx, 3, false, 1, 20)
		require.NoError(t, err)
		require.Len(t, notifications, 1)
		assert.Equal(t, KindRequestRejected, notifications[0].Kind)
		assert.Equal(t, "Your request to leave Math101 has been rejected", notifications[0].Message)
	})

	t.Run("deleted group falls back to id", func(t *testing.T) {
		svc, _ := newTestService()

		err := svc.RequestResolved(ctx, &request.GroupRequest{
			ID: 9, UserID: 3, GroupID: 42,
			Action: request.ActionJoin, Status: request.StatusApproved,
		})
		require.NoError(t, err)

		notifications, _, err := svc.ListByRecipient(ctx, 3, false, 1, 20)
		require.NoError(t, err)
		require.Len(t, notifications, 1)
		assert.Equal(t, "Your request to join group 42 has been approved", notifications[0].Message)
	})
}

func TestMarkRead(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	n, err := repo.Create(ctx, &Notification{RecipientID: 3, Kind: KindRequestApproved, Message: "x"})
	require.NoError(t, err)

	t.Run("only the recipient may mark", func(t *testing.T) {
		assert.ErrorIs(t, svc.MarkRead(ctx, n.ID, 4), ErrNotRecipient)
	})

	t.Run("unknown notification", func(t *testing.T) {
		assert.ErrorIs(t, svc.MarkRead(ctx, 999, 3), ErrNotificationNotFound)
	})

	require.NoError(t, svc.MarkRead(ctx, n.ID, 3))

	count, err := svc.UnreadCount(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAllRead(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &Notification{RecipientID: 3, Kind: KindRequestApproved, Message: "x"})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, &Notification{RecipientID: 4, Kind: KindRequestApproved, Message: "x"})
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, svc.MarkAllRead(ctx, 3))

	count, err = svc.UnreadCount(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, count)

	// another user's notifications are untouched
	count, err = svc.UnreadCount(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListUnreadOnly(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	first, err := repo.Create(ctx, &Notification{RecipientID: 3, Kind: KindRequestApproved, Message: "first"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &Notification{RecipientID: 3, Kind: KindRequestRejected, Message: "second"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, first.ID, 3))

	notifications, total, err := svc.ListByRecipient(ctx, 3, true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, notifications, 1)
	assert.Equal(t, "second", notifications[0].Message)

	_, total, err = svc.ListByRecipient(ctx, 3, false, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
