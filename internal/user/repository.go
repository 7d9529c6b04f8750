package user

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepository handles user data persistence
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID retrieves a user by their ID
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.first_name, u.last_name, r.role, l.language, u.is_active, u.created_at
		FROM users u
		JOIN roles r ON u.role_id = r.id
		JOIN languages l ON u.language_id = l.id
		WHERE u.id = $1
	`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Language,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetBySessionToken retrieves the user owning a non-expired session token
func (r *PostgresRepository) GetBySessionToken(ctx context.Context, token string) (*User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.first_name, u.last_name, r.role, l.language, u.is_active, u.created_at
		FROM user_sessions s
		JOIN users u ON s.user_id = u.id
		JOIN roles r ON u.role_id = r.id
		JOIN languages l ON u.language_id = l.id
		WHERE s.token = $1 AND s.expires_at > NOW() AND u.is_active
	`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Language,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session user: %w", err)
	}

	return user, nil
}

// List retrieves users matching the filter, with total count for pagination.
// search does a case-insensitive match on username, first or last name; role
// narrows to one role when non-empty.
func (r *PostgresRepository) List(ctx context.Context, search, role string, limit, offset int) ([]*User, int, error) {
	where := `
		WHERE ($1 = '' OR u.username ILIKE '%' || $1 || '%'
			OR u.first_name ILIKE '%' || $1 || '%'
			OR u.last_name ILIKE '%' || $1 || '%')
		AND ($2 = '' OR r.role = $2)
	`

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM users u
		JOIN roles r ON u.role_id = r.id
	` + where
	if err := r.db.QueryRowContext(ctx, countQuery, search, role).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `
		SELECT u.id, u.username, u.email, u.first_name, u.last_name, r.role, l.language, u.is_active, u.created_at
		FROM users u
		JOIN roles r ON u.role_id = r.id
		JOIN languages l ON u.language_id = l.id
	` + where + `
		ORDER BY u.created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, search, role, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.FirstName,
			&user.LastName,
			&user.Role,
			&user.Language,
			&user.IsActive,
			&user.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, total, nil
}
