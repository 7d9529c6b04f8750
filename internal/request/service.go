package request

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hmaged/tutorbase/internal/group"
	"github.com/hmaged/tutorbase/internal/user"
	"github.com/hmaged/tutorbase/pkg/validation"
)

// Common errors
var (
	ErrRequestNotFound = errors.New("request not found")
	ErrPendingExists   = errors.New("a pending request for this group already exists")
	ErrAlreadyResolved = errors.New("request has already been resolved")
	ErrRoleNotAllowed  = errors.New("only students and teachers can submit group requests")
)

// Repository abstracts group request persistence
type Repository interface {
	Create(ctx context.Context, gr *GroupRequest) (*GroupRequest, error)
	GetByID(ctx context.Context, id int64) (*GroupRequest, error)
	GetPending(ctx context.Context, userID, groupID int64) (*GroupRequest, error)
	ListPending(ctx context.Context, groupID *int64, limit, offset int) ([]*GroupRequest, int, error)
	Resolve(ctx context.Context, id int64, status Status, apply func(tx *sql.Tx) error) error
}

// Groups is the slice of the group service the workflow consumes: existence
// checks on submission and membership-ledger writes on approval. The ledger
// writes take the resolution transaction so they commit with the status flip.
type Groups interface {
	GetByID(ctx context.Context, id int64) (*group.Group, error)
	EnrollStudentTx(ctx context.Context, tx *sql.Tx, groupID, studentID int64) error
	UnenrollStudentTx(ctx context.Context, tx *sql.Tx, groupID, studentID int64) error
	AssignTeacherTx(ctx context.Context, tx *sql.Tx, groupID, teacherID int64) error
	RemoveTeacherTx(ctx context.Context, tx *sql.Tx, groupID int64) error
}

// Notifier receives resolution outcomes. A nil notifier disables
// notifications.
type Notifier interface {
	RequestResolved(ctx context.Context, gr *GroupRequest) error
}

// Service handles the join/leave request workflow
type Service struct {
	repo     Repository
	groups   Groups
	notifier Notifier
}

// NewService creates a new request service
func NewService(repo Repository, groups Groups, notifier Notifier) *Service {
	return &Service{repo: repo, groups: groups, notifier: notifier}
}

// Submit records a user's intent to join or leave a group. It only records
// intent; membership is not touched until an admin approves the request. The
// requester's role is snapshotted onto the request.
func (s *Service) Submit(ctx context.Context, userID int64, role string, groupID int64, req *SubmitRequestRequest) (*GroupRequest, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if role != user.RoleStudent && role != user.RoleTeacher {
		return nil, ErrRoleNotAllowed
	}

	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	pending, err := s.repo.GetPending(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrPendingExists
	}

	gr := &GroupRequest{
		UserID:  userID,
		GroupID: groupID,
		Action:  req.Action,
		Role:    role,
		Status:  StatusPending,
		Note:    req.Note,
	}
	return s.repo.Create(ctx, gr)
}

// ListPending retrieves pending requests in stable creation order, optionally
// narrowed to one group
func (s *Service) ListPending(ctx context.Context, groupID *int64, page, perPage int) ([]*GroupRequest, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	offset := (page - 1) * perPage
	return s.repo.ListPending(ctx, groupID, perPage, offset)
}

// Resolve moves a pending request to a terminal status. Approving a request
// applies its action to the membership ledger: a join enrolls the student (or
// assigns the teacher), a leave unenrolls (or removes) them. The ledger write
// and the status flip share one transaction, so a ledger failure leaves the
// request pending and a lost resolution race leaves the ledger untouched.
func (s *Service) Resolve(ctx context.Context, id int64, req *ResolveRequestRequest) (*GroupRequest, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	gr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if gr == nil {
		return nil, ErrRequestNotFound
	}
	if gr.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}

	var apply func(tx *sql.Tx) error
	if req.Decision == StatusApproved {
		apply = func(tx *sql.Tx) error {
			return s.applyToLedger(ctx, tx, gr)
		}
	}

	if err := s.repo.Resolve(ctx, gr.ID, req.Decision, apply); err != nil {
		return nil, err
	}

	gr.Status = req.Decision

	// a notification failure must not undo the resolution
	if s.notifier != nil {
		_ = s.notifier.RequestResolved(ctx, gr)
	}

	return gr, nil
}

func (s *Service) applyToLedger(ctx context.Context, tx *sql.Tx, gr *GroupRequest) error {
	switch {
	case gr.Role == user.RoleStudent && gr.Action == ActionJoin:
		return s.groups.EnrollStudentTx(ctx, tx, gr.GroupID, gr.UserID)
	case gr.Role == user.RoleStudent && gr.Action == ActionLeave:
		return s.groups.UnenrollStudentTx(ctx, tx, gr.GroupID, gr.UserID)
	case gr.Role == user.RoleTeacher && gr.Action == ActionJoin:
		return s.groups.AssignTeacherTx(ctx, tx, gr.GroupID, gr.UserID)
	default:
		return s.groups.RemoveTeacherTx(ctx, tx, gr.GroupID)
	}
}
