package group

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/hmaged/tutorbase/internal/user"
	"github.com/hmaged/tutorbase/pkg/validation"
)

// Common errors
var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrGroupNameTaken    = errors.New("a group with this name already exists")
	ErrDayNotFound       = errors.New("day not found")
	ErrCapacityReached   = errors.New("Group capacity has been reached.")
	ErrAlreadyEnrolled   = errors.New("student is already enrolled in this group")
	ErrNotEnrolled       = errors.New("student is not enrolled in this group")
	ErrNotStudent        = errors.New("user does not have the student role")
	ErrNotTeacher        = errors.New("user does not have the teacher role")
	ErrTeacherAssigned   = errors.New("group already has an assigned teacher")
	ErrNoTeacherAssigned = errors.New("group has no assigned teacher")
)

var nameRegex = regexp.MustCompile(`^[A-Za-z0-9_\- ]{2,100}$`)

// Filter narrows a group listing
type Filter struct {
	Search string
	Status Status
	Size   int // 0 means any
}

// DayReconciliation is the set-diff between a group's stored schedule and a
// newly supplied one: slots to insert, slots whose time changed, and day ids
// whose slots disappeared.
type DayReconciliation struct {
	Insert []GroupDay
	Update []GroupDay
	Delete []int64
}

// Empty reports whether applying the reconciliation would change nothing.
func (d *DayReconciliation) Empty() bool {
	return len(d.Insert) == 0 && len(d.Update) == 0 && len(d.Delete) == 0
}

// Repository abstracts group and membership persistence. Composite writes
// (group + slots, enrollment under capacity) are atomic inside the
// implementation.
type Repository interface {
	CreateGroup(ctx context.Context, g *Group) (*Group, error)
	GetByID(ctx context.Context, id int64) (*Group, error)
	GetByName(ctx context.Context, name string) (*Group, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Group, int, error)
	UpdateGroup(ctx context.Context, g *Group, days *DayReconciliation) (*Group, error)
	DeleteGroup(ctx context.Context, id int64) error
	ListDays(ctx context.Context) ([]Day, error)

	AssignTeacher(ctx context.Context, groupID, teacherID int64) error
	RemoveTeacher(ctx context.Context, groupID int64) error
	EnrollStudent(ctx context.Context, groupID, studentID int64) error
	UnenrollStudent(ctx context.Context, groupID, studentID int64) error
	ListStudents(ctx context.Context, groupID int64) ([]*Student, error)

	AssignTeacherTx(ctx context.Context, tx *sql.Tx, groupID, teacherID int64) error
	RemoveTeacherTx(ctx context.Context, tx *sql.Tx, groupID int64) error
	EnrollStudentTx(ctx context.Context, tx *sql.Tx, groupID, studentID int64) error
	UnenrollStudentTx(ctx context.Context, tx *sql.Tx, groupID, studentID int64) error
}

// Directory is the narrow view of the user store the group service needs.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Service handles group catalog and membership business logic
type Service struct {
	repo      Repository
	directory Directory
	now       func() time.Time
}

// NewService creates a new group service
func NewService(repo Repository, directory Directory) *Service {
	return &Service{repo: repo, directory: directory, now: time.Now}
}

// Create validates and creates a new group together with its schedule slots.
// The initial status is derived from the dates relative to today.
func (s *Service) Create(ctx context.Context, req *CreateGroupRequest) (*Group, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !nameRegex.MatchString(req.Name) {
		return nil, validation.NewError("group", "must be 2-100 characters of letters, digits, spaces, '_' or '-'")
	}

	start, err := time.Parse(DateFormat, req.StartDate)
	if err != nil {
		return nil, validation.NewError("start_date", "must be a valid date in YYYY-MM-DD form")
	}
	end, err := time.Parse(DateFormat, req.EndDate)
	if err != nil {
		return nil, validation.NewError("end_date", "must be a valid date in YYYY-MM-DD form")
	}
	if !start.Before(end) {
		return nil, validation.NewError("start_date", "must be strictly before end_date")
	}

	days, err := s.buildSchedule(ctx, req.Days)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrGroupNameTaken
	}

	g := &Group{
		Name:      req.Name,
		Size:      req.Size,
		Status:    DeriveStatus(start, end, s.now()),
		StartDate: start,
		EndDate:   end,
		Days:      days,
	}
	return s.repo.CreateGroup(ctx, g)
}

// buildSchedule validates day/time pairs against the day reference data and
// normalizes times to 24-hour form.
func (s *Service) buildSchedule(ctx context.Context, inputs []DayTimeInput) ([]GroupDay, error) {
	valid, err := s.dayIndex(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(inputs))
	days := make([]GroupDay, 0, len(inputs))
	for _, in := range inputs {
		name, ok := valid[in.DayID]
		if !ok {
			return nil, ErrDayNotFound
		}
		if seen[in.DayID] {
			return nil, validation.NewError("day_ids", "day ids must not repeat")
		}
		seen[in.DayID] = true

		t, err := ParseClockTime(in.Time)
		if err != nil {
			return nil, validation.NewError("time", "must be a 12-hour clock time with AM/PM marker (HH:MM:SS AM)")
		}
		days = append(days, GroupDay{DayID: in.DayID, Day: name, Time: t})
	}
	return days, nil
}

func (s *Service) dayIndex(ctx context.Context) (map[int64]string, error) {
	all, err := s.repo.ListDays(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[int64]string, len(all))
	for _, d := range all {
		idx[d.ID] = d.Name
	}
	return idx, nil
}

// GetByID retrieves a group with its schedule
func (s *Service) GetByID(ctx context.Context, id int64) (*Group, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// List retrieves groups matching the filter with pagination. Students only
// see groups that have not started yet; a student's own status filter is
// intersected with that restriction, so asking for anything but coming
// yields an empty page.
func (s *Service) List(ctx context.Context, callerRole string, f Filter, page, perPage int) ([]*Group, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, validation.NewError("status", "must be one of: coming, running, finished")
	}
	if callerRole == user.RoleStudent {
		if f.Status != "" && f.Status != StatusComing {
			return []*Group{}, 0, nil
		}
		f.Status = StatusComing
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, f, perPage, offset)
}

// Update applies a sparse patch to a group. Every supplied field is
// re-validated with the creation rules; date checks use the stored value for
// whichever of start/end the patch omits. Status is re-derived after any date
// change. A patch that changes nothing is rejected.
func (s *Service) Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	updated := *g
	changed := false

	if req.Name != nil && *req.Name != g.Name {
		if !nameRegex.MatchString(*req.Name) {
			return nil, validation.NewError("group", "must be 2-100 characters of letters, digits, spaces, '_' or '-'")
		}
		other, err := s.repo.GetByName(ctx, *req.Name)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != g.ID {
			return nil, ErrGroupNameTaken
		}
		updated.Name = *req.Name
		changed = true
	}

	if req.Size != nil && *req.Size != g.Size {
		updated.Size = *req.Size
		changed = true
	}

	if req.StartDate != nil {
		start, err := time.Parse(DateFormat, *req.StartDate)
		if err != nil {
			return nil, validation.NewError("start_date", "must be a valid date in YYYY-MM-DD form")
		}
		if !start.Equal(updated.StartDate) {
			updated.StartDate = start
			changed = true
		}
	}
	if req.EndDate != nil {
		end, err := time.Parse(DateFormat, *req.EndDate)
		if err != nil {
			return nil, validation.NewError("end_date", "must be a valid date in YYYY-MM-DD form")
		}
		if !end.Equal(updated.EndDate) {
			updated.EndDate = end
			changed = true
		}
	}
	if !updated.StartDate.Before(updated.EndDate) {
		return nil, validation.NewError("start_date", "must be strictly before end_date")
	}

	var plan *DayReconciliation
	if req.Days != nil {
		desired, err := s.buildSchedule(ctx, req.Days)
		if err != nil {
			return nil, err
		}
		p := ReconcileDays(g.Days, desired)
		if !p.Empty() {
			plan = &p
			changed = true
		}
	}

	if !changed {
		return nil, validation.NewError("patch", "no changes detected")
	}

	updated.Status = DeriveStatus(updated.StartDate, updated.EndDate, s.now())
	return s.repo.UpdateGroup(ctx, &updated, plan)
}

// ReconcileDays diffs a group's stored schedule against a desired one. Pairs
// present in both keep their slot (updating the time when it moved); pairs
// only in the desired set are inserted; pairs only in the stored set are
// deleted. Applying the same desired set twice yields an empty diff.
func ReconcileDays(current, desired []GroupDay) DayReconciliation {
	var plan DayReconciliation

	stored := make(map[int64]GroupDay, len(current))
	for _, d := range current {
		stored[d.DayID] = d
	}

	keep := make(map[int64]bool, len(desired))
	for _, d := range desired {
		keep[d.DayID] = true
		old, ok := stored[d.DayID]
		switch {
		case !ok:
			plan.Insert = append(plan.Insert, d)
		case old.Time != d.Time:
			plan.Update = append(plan.Update, d)
		}
	}

	for _, d := range current {
		if !keep[d.DayID] {
			plan.Delete = append(plan.Delete, d.DayID)
		}
	}
	return plan
}

// Delete removes a group, cascading its schedule and membership records
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteGroup(ctx, id)
}

// AssignTeacher sets a group's single teacher reference
func (s *Service) AssignTeacher(ctx context.Context, groupID, teacherID int64) error {
	if err := s.checkTeacherAssignable(ctx, groupID, teacherID); err != nil {
		return err
	}
	return s.repo.AssignTeacher(ctx, groupID, teacherID)
}

// AssignTeacherTx runs the assignment inside the caller's transaction
func (s *Service) AssignTeacherTx(ctx context.Context, tx *sql.Tx, groupID, teacherID int64) error {
	if err := s.checkTeacherAssignable(ctx, groupID, teacherID); err != nil {
		return err
	}
	return s.repo.AssignTeacherTx(ctx, tx, groupID, teacherID)
}

func (s *Service) checkTeacherAssignable(ctx context.Context, groupID, teacherID int64) error {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g.TeacherID != nil {
		return ErrTeacherAssigned
	}

	u, err := s.directory.GetByID(ctx, teacherID)
	if err != nil {
		return err
	}
	if u.Role != user.RoleTeacher {
		return ErrNotTeacher
	}
	return nil
}

// RemoveTeacher clears a group's teacher reference
func (s *Service) RemoveTeacher(ctx context.Context, groupID int64) error {
	if err := s.checkTeacherRemovable(ctx, groupID); err != nil {
		return err
	}
	return s.repo.RemoveTeacher(ctx, groupID)
}

// RemoveTeacherTx runs the removal inside the caller's transaction
func (s *Service) RemoveTeacherTx(ctx context.Context, tx *sql.Tx, groupID int64) error {
	if err := s.checkTeacherRemovable(ctx, groupID); err != nil {
		return err
	}
	return s.repo.RemoveTeacherTx(ctx, tx, groupID)
}

func (s *Service) checkTeacherRemovable(ctx context.Context, groupID int64) error {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g.TeacherID == nil {
		return ErrNoTeacherAssigned
	}
	return nil
}

// GetTeacher describes a group's assigned teacher
func (s *Service) GetTeacher(ctx context.Context, groupID int64) (*user.User, error) {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.TeacherID == nil {
		return nil, ErrNoTeacherAssigned
	}
	return s.directory.GetByID(ctx, *g.TeacherID)
}

// EnrollStudent adds a student to a group. The capacity check runs inside the
// repository's transaction so concurrent enrollments against the same group
// cannot exceed its size.
func (s *Service) EnrollStudent(ctx context.Context, groupID, studentID int64) error {
	if err := s.checkStudentEligible(ctx, groupID, studentID); err != nil {
		return err
	}
	return s.repo.EnrollStudent(ctx, groupID, studentID)
}

// EnrollStudentTx runs the enrollment inside the caller's transaction
func (s *Service) EnrollStudentTx(ctx context.Context, tx *sql.Tx, groupID, studentID int64) error {
	if err := s.checkStudentEligible(ctx, groupID, studentID); err != nil {
		return err
	}
	return s.repo.EnrollStudentTx(ctx, tx, groupID, studentID)
}

// UnenrollStudent removes a student from a group
func (s *Service) UnenrollStudent(ctx context.Context, groupID, studentID int64) error {
	if err := s.checkStudentEligible(ctx, groupID, studentID); err != nil {
		return err
	}
	return s.repo.UnenrollStudent(ctx, groupID, studentID)
}

// UnenrollStudentTx runs the unenrollment inside the caller's transaction
func (s *Service) UnenrollStudentTx(ctx context.Context, tx *sql.Tx, groupID, studentID int64) error {
	if err := s.checkStudentEligible(ctx, groupID, studentID); err != nil {
		return err
	}
	return s.repo.UnenrollStudentTx(ctx, tx, groupID, studentID)
}

func (s *Service) checkStudentEligible(ctx context.Context, groupID, studentID int64) error {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return err
	}

	u, err := s.directory.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if u.Role != user.RoleStudent {
		return ErrNotStudent
	}
	return nil
}

// GetStudents lists a group's enrolled students together with the group
func (s *Service) GetStudents(ctx context.Context, groupID int64) (*Group, []*Student, error) {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	students, err := s.repo.ListStudents(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	return g, students, nil
}
