package subscription

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepository handles package and subscription persistence
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a new subscription repository
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreatePackage inserts a new package
func (r *PostgresRepository) CreatePackage(ctx context.Context, p *Package) (*Package, error) {
	query := `
		INSERT INTO packages (name, session_type, price, duration, max_sessions, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		p.Name,
		p.SessionType,
		p.Price,
		p.Duration,
		p.MaxSessions,
		p.Description,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create package: %w", err)
	}

	return p, nil
}

// GetPackageByID retrieves a package by its ID
func (r *PostgresRepository) GetPackageByID(ctx context.Context, id int64) (*Package, error) {
	query := `
		SELECT id, name, session_type, price, duration, max_sessions, description, created_at
		FROM packages
		WHERE id = $1
	`

	p := &Package{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.SessionType,
		&p.Price,
		&p.Duration,
		&p.MaxSessions,
		&p.Description,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get package: %w", err)
	}

	return p, nil
}

// GetPackageByName retrieves a package by its unique name
func (r *PostgresRepository) GetPackageByName(ctx context.Context, name string) (*Package, error) {
	query := `
		SELECT id, name, session_type, price, duration, max_sessions, description, created_at
		FROM packages
		WHERE name = $1
	`

	p := &Package{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&p.ID,
		&p.Name,
		&p.SessionType,
		&p.Price,
		&p.Duration,
		&p.MaxSessions,
		&p.Description,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get package by name: %w", err)
	}

	return p, nil
}

// ListPackages retrieves packages with total count for pagination
func (r *PostgresRepository) ListPackages(ctx context.Context, limit, offset int) ([]*Package, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count packages: %w", err)
	}

	query := `
		SELECT id, name, session_type, price, duration, max_sessions, description, created_at
		FROM packages
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []*Package
	for rows.Next() {
		p := &Package{}
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.SessionType,
			&p.Price,
			&p.Duration,
			&p.MaxSessions,
			&p.Description,
			&p.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, p)
	}

	return packages, total, nil
}

// GetSubscription retrieves a user's subscription to a package, if any
func (r *PostgresRepository) GetSubscription(ctx context.Context, userID, packageID int64) (*UserPackage, error) {
	query := `
		SELECT user_id, package_id, created_at, expiry_date, is_active
		FROM user_packages
		WHERE user_id = $1 AND package_id = $2
	`

	up := &UserPackage{}
	err := r.db.QueryRowContext(ctx, query, userID, packageID).Scan(
		&up.UserID,
		&up.PackageID,
		&up.CreatedAt,
		&up.ExpiryDate,
		&up.IsActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return up, nil
}

// Subscribe inserts a subscription row
func (r *PostgresRepository) Subscribe(ctx context.Context, up *UserPackage) (*UserPackage, error) {
	query := `
		INSERT INTO user_packages (user_id, package_id, expiry_date, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		up.UserID,
		up.PackageID,
		up.ExpiryDate,
		up.IsActive,
	).Scan(&up.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return up, nil
}
