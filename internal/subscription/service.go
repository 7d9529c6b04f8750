package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/hmaged/tutorbase/internal/user"
	"github.com/hmaged/tutorbase/pkg/validation"
)

// Common errors
var (
	ErrPackageNotFound   = errors.New("package not found")
	ErrPackageNameTaken  = errors.New("a package with this name already exists")
	ErrAlreadySubscribed = errors.New("user is already subscribed to this package")
)

// Repository abstracts package and subscription persistence
type Repository interface {
	CreatePackage(ctx context.Context, p *Package) (*Package, error)
	GetPackageByID(ctx context.Context, id int64) (*Package, error)
	GetPackageByName(ctx context.Context, name string) (*Package, error)
	ListPackages(ctx context.Context, limit, offset int) ([]*Package, int, error)
	GetSubscription(ctx context.Context, userID, packageID int64) (*UserPackage, error)
	Subscribe(ctx context.Context, up *UserPackage) (*UserPackage, error)
}

// Directory is the narrow view of the user store the subscription service needs.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Service handles package business logic
type Service struct {
	repo      Repository
	directory Directory
	now       func() time.Time
}

// NewService creates a new subscription service
func NewService(repo Repository, directory Directory) *Service {
	return &Service{repo: repo, directory: directory, now: time.Now}
}

// CreatePackage validates and creates a new package
func (s *Service) CreatePackage(ctx context.Context, req *CreatePackageRequest) (*Package, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetPackageByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPackageNameTaken
	}

	p := &Package{
		Name:        req.Name,
		SessionType: req.SessionType,
		Price:       req.Price,
		Duration:    req.Duration,
		MaxSessions: req.MaxSessions,
		Description: req.Description,
	}
	return s.repo.CreatePackage(ctx, p)
}

// ListPackages retrieves packages with pagination
func (s *Service) ListPackages(ctx context.Context, page, perPage int) ([]*Package, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListPackages(ctx, perPage, offset)
}

// Subscribe subscribes a user to a package. The expiry date is computed from
// the package's duration at subscription time.
func (s *Service) Subscribe(ctx context.Context, packageID, userID int64) (*UserPackage, error) {
	p, err := s.repo.GetPackageByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPackageNotFound
	}

	if _, err := s.directory.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetSubscription(ctx, userID, packageID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySubscribed
	}

	now := s.now()
	up := &UserPackage{
		UserID:     userID,
		PackageID:  packageID,
		ExpiryDate: p.ExpiryFrom(now),
		IsActive:   false,
	}
	return s.repo.Subscribe(ctx, up)
}
