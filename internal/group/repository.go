package group

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository handles group, schedule and membership persistence
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a new group repository
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// execer is the querying surface shared by *sql.DB and *sql.Tx; ledger writes
// run against it so they work standalone or inside a caller's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CreateGroup inserts a group and its schedule slots in one transaction, so a
// partially created group is never observable.
func (r *PostgresRepository) CreateGroup(ctx context.Context, g *Group) (*Group, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO groups (name, size, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRowContext(ctx, query, g.Name, g.Size, g.Status, g.StartDate, g.EndDate).Scan(
		&g.ID,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	dayQuery := `INSERT INTO group_days (group_id, day_id, time) VALUES ($1, $2, $3)`
	for i := range g.Days {
		g.Days[i].GroupID = g.ID
		if _, err := tx.ExecContext(ctx, dayQuery, g.ID, g.Days[i].DayID, g.Days[i].Time); err != nil {
			return nil, fmt.Errorf("failed to create group day: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group creation: %w", err)
	}

	return g, nil
}

// GetByID retrieves a group and its schedule by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Group, error) {
	query := `
		SELECT id, name, size, status, start_date, end_date, teacher_id, created_at, updated_at
		FROM groups
		WHERE id = $1
	`

	g := &Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID,
		&g.Name,
		&g.Size,
		&g.Status,
		&g.StartDate,
		&g.EndDate,
		&g.TeacherID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	days, err := r.getDays(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Days = days

	return g, nil
}

// GetByName retrieves a group by its unique name, without its schedule
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*Group, error) {
	query := `
		SELECT id, name, size, status, start_date, end_date, teacher_id, created_at, updated_at
		FROM groups
		WHERE name = $1
	`

	g := &Group{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&g.ID,
		&g.Name,
		&g.Size,
		&g.Status,
		&g.StartDate,
		&g.EndDate,
		&g.TeacherID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group by name: %w", err)
	}

	return g, nil
}

func (r *PostgresRepository) getDays(ctx context.Context, groupID int64) ([]GroupDay, error) {
	query := `
		SELECT gd.group_id, gd.day_id, d.day, gd.time
		FROM group_days gd
		JOIN days d ON gd.day_id = d.id
		WHERE gd.group_id = $1
		ORDER BY gd.id
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group days: %w", err)
	}
	defer rows.Close()

	var days []GroupDay
	for rows.Next() {
		var d GroupDay
		if err := rows.Scan(&d.GroupID, &d.DayID, &d.Day, &d.Time); err != nil {
			return nil, fmt.Errorf("failed to scan group day: %w", err)
		}
		days = append(days, d)
	}

	return days, nil
}

// List retrieves groups matching the filter, with total count for pagination
func (r *PostgresRepository) List(ctx context.Context, f Filter, limit, offset int) ([]*Group, int, error) {
	where := `
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		AND ($2 = '' OR status = $2)
		AND ($3 = 0 OR size = $3)
	`

	var total int
	countQuery := `SELECT COUNT(*) FROM groups` + where
	if err := r.db.QueryRowContext(ctx, countQuery, f.Search, string(f.Status), f.Size).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	query := `
		SELECT id, name, size, status, start_date, end_date, teacher_id, created_at, updated_at
		FROM groups
	` + where + `
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.db.QueryContext(ctx, query, f.Search, string(f.Status), f.Size, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	byID := make(map[int64]*Group)
	ids := make([]int64, 0)
	for rows.Next() {
		g := &Group{}
		if err := rows.Scan(
			&g.ID,
			&g.Name,
			&g.Size,
			&g.Status,
			&g.StartDate,
			&g.EndDate,
			&g.TeacherID,
			&g.CreatedAt,
			&g.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
		byID[g.ID] = g
		ids = append(ids, g.ID)
	}

	if len(ids) > 0 {
		dayQuery := `
			SELECT gd.group_id, gd.day_id, d.day, gd.time
			FROM group_days gd
			JOIN days d ON gd.day_id = d.id
			WHERE gd.group_id = ANY($1)
			ORDER BY gd.id
		`
		dayRows, err := r.db.QueryContext(ctx, dayQuery, pq.Array(ids))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get group days: %w", err)
		}
		defer dayRows.Close()

		for dayRows.Next() {
			var d GroupDay
			if err := dayRows.Scan(&d.GroupID, &d.DayID, &d.Day, &d.Time); err != nil {
				return nil, 0, fmt.Errorf("failed to scan group day: %w", err)
			}
			if g, ok := byID[d.GroupID]; ok {
				g.Days = append(g.Days, d)
			}
		}
	}

	return groups, total, nil
}

// UpdateGroup persists a patched group and reconciles its schedule in one
// transaction. A nil reconciliation leaves group_days untouched.
func (r *PostgresRepository) UpdateGroup(ctx context.Context, g *Group, days *DayReconciliation) (*Group, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE groups
		SET name = $2, size = $3, status = $4, start_date = $5, end_date = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := tx.QueryRowContext(ctx, query, g.ID, g.Name, g.Size, g.Status, g.StartDate, g.EndDate).Scan(&g.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	if days != nil {
		for _, d := range days.Insert {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO group_days (group_id, day_id, time) VALUES ($1, $2, $3)`,
				g.ID, d.DayID, d.Time,
			); err != nil {
				return nil, fmt.Errorf("failed to insert group day: %w", err)
			}
		}
		for _, d := range days.Update {
			if _, err := tx.ExecContext(ctx,
				`UPDATE group_days SET time = $3 WHERE group_id = $1 AND day_id = $2`,
				g.ID, d.DayID, d.Time,
			); err != nil {
				return nil, fmt.Errorf("failed to update group day: %w", err)
			}
		}
		if len(days.Delete) > 0 {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM group_days WHERE group_id = $1 AND day_id = ANY($2)`,
				g.ID, pq.Array(days.Delete),
			); err != nil {
				return nil, fmt.Errorf("failed to delete group days: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group update: %w", err)
	}

	return r.GetByID(ctx, g.ID)
}

// DeleteGroup removes a group; its schedule and membership rows cascade
func (r *PostgresRepository) DeleteGroup(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrGroupNotFound
	}

	return nil
}

// ListDays retrieves the weekday reference data
func (r *PostgresRepository) ListDays(ctx context.Context) ([]Day, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, day FROM days ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		var d Day
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		days = append(days, d)
	}

	return days, nil
}

// AssignTeacher sets the group's teacher reference. The conditional update
// closes the race with a concurrent assignment.
func (r *PostgresRepository) AssignTeacher(ctx context.Context, groupID, teacherID int64) error {
	return assignTeacher(ctx, r.db, groupID, teacherID)
}

// AssignTeacherTx is AssignTeacher inside the caller's transaction
func (r *PostgresRepository) AssignTeacherTx(ctx context.Context, tx *sql.Tx, groupID, teacherID int64) error {
	return assignTeacher(ctx, tx, groupID, teacherID)
}

func assignTeacher(ctx context.Context, q execer, groupID, teacherID int64) error {
	query := `
		UPDATE groups
		SET teacher_id = $2, updated_at = NOW()
		WHERE id = $1 AND teacher_id IS NULL
	`

	result, err := q.ExecContext(ctx, query, groupID, teacherID)
	if err != nil {
		return fmt.Errorf("failed to assign teacher: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTeacherAssigned
	}

	return nil
}

// RemoveTeacher clears the group's teacher reference
func (r *PostgresRepository) RemoveTeacher(ctx context.Context, groupID int64) error {
	return removeTeacher(ctx, r.db, groupID)
}

// RemoveTeacherTx is RemoveTeacher inside the caller's transaction
func (r *PostgresRepository) RemoveTeacherTx(ctx context.Context, tx *sql.Tx, groupID int64) error {
	return removeTeacher(ctx, tx, groupID)
}

func removeTeacher(ctx context.Context, q execer, groupID int64) error {
	query := `
		UPDATE groups
		SET teacher_id = NULL, updated_at = NOW()
		WHERE id = $1 AND teacher_id IS NOT NULL
	`

	result, err := q.ExecContext(ctx, query, groupID)
	if err != nil {
		return fmt.Errorf("failed to remove teacher: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNoTeacherAssigned
	}

	return nil
}

// EnrollStudent adds a membership row. It locks the group row and re-reads
// the enrollment count inside the transaction, so the capacity invariant
// holds under concurrent enrollments.
func (r *PostgresRepository) EnrollStudent(ctx context.Context, groupID, studentID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := enrollStudent(ctx, tx, groupID, studentID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit enrollment: %w", err)
	}

	return nil
}

// EnrollStudentTx is EnrollStudent inside the caller's transaction; the row
// lock and capacity re-read still run, the caller commits.
func (r *PostgresRepository) EnrollStudentTx(ctx context.Context, tx *sql.Tx, groupID, studentID int64) error {
	return enrollStudent(ctx, tx, groupID, studentID)
}

func enrollStudent(ctx context.Context, tx *sql.Tx, groupID, studentID int64) error {
	var size int
	err := tx.QueryRowContext(ctx, `SELECT size FROM groups WHERE id = $1 FOR UPDATE`, groupID).Scan(&size)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to lock group: %w", err)
	}

	var enrolled bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_students WHERE group_id = $1 AND user_id = $2)`,
		groupID, studentID,
	).Scan(&enrolled)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return ErrAlreadyEnrolled
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_students WHERE group_id = $1`, groupID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count enrollment: %w", err)
	}
	if count >= size {
		return ErrCapacityReached
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO group_students (group_id, user_id) VALUES ($1, $2)`,
		groupID, studentID,
	); err != nil {
		return fmt.Errorf("failed to enroll student: %w", err)
	}

	return nil
}

// UnenrollStudent removes a membership row
func (r *PostgresRepository) UnenrollStudent(ctx context.Context, groupID, studentID int64) error {
	return unenrollStudent(ctx, r.db, groupID, studentID)
}

// UnenrollStudentTx is UnenrollStudent inside the caller's transaction
func (r *PostgresRepository) UnenrollStudentTx(ctx context.Context, tx *sql.Tx, groupID, studentID int64) error {
	return unenrollStudent(ctx, tx, groupID, studentID)
}

func unenrollStudent(ctx context.Context, q execer, groupID, studentID int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM group_students WHERE group_id = $1 AND user_id = $2`,
		groupID, studentID,
	)
	if err != nil {
		return fmt.Errorf("failed to unenroll student: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotEnrolled
	}

	return nil
}

// ListStudents retrieves a group's enrolled students in enrollment order
func (r *PostgresRepository) ListStudents(ctx context.Context, groupID int64) ([]*Student, error) {
	query := `
		SELECT u.id, u.username, u.first_name || ' ' || u.last_name AS name
		FROM group_students gs
		JOIN users u ON gs.user_id = u.id
		WHERE gs.group_id = $1
		ORDER BY gs.joined_at, u.id
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*Student
	for rows.Next() {
		s := &Student{}
		if err := rows.Scan(&s.ID, &s.Username, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}

	return students, nil
}
