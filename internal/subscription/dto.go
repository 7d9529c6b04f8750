package subscription

// CreatePackageRequest represents the request to create a new package
type CreatePackageRequest struct {
	Name        string      `json:"package" validate:"required,min=2,max=50"`
	SessionType SessionType `json:"session_type" validate:"required,oneof=private group"`
	Price       float64     `json:"price" validate:"required,gt=0"`
	Duration    int         `json:"duration" validate:"gte=0"`
	MaxSessions int         `json:"max_sessions" validate:"required,gt=0"`
	Description *string     `json:"description,omitempty"`
}

// PackageResponse represents the response for a package
type PackageResponse struct {
	ID          int64       `json:"id"`
	Name        string      `json:"package"`
	SessionType SessionType `json:"session_type"`
	Price       float64     `json:"price"`
	Duration    int         `json:"duration"`
	MaxSessions int         `json:"max_sessions"`
	Description *string     `json:"description,omitempty"`
	CreatedAt   string      `json:"created_at"`
}

// SubscriptionResponse represents the response for a user's subscription
type SubscriptionResponse struct {
	UserID     int64  `json:"user_id"`
	PackageID  int64  `json:"package_id"`
	CreatedAt  string `json:"created_at"`
	ExpiryDate string `json:"expiry_date"`
	IsActive   bool   `json:"is_active"`
}

// ToResponse converts a Package model to a PackageResponse DTO
func (p *Package) ToResponse() *PackageResponse {
	return &PackageResponse{
		ID:          p.ID,
		Name:        p.Name,
		SessionType: p.SessionType,
		Price:       p.Price,
		Duration:    p.Duration,
		MaxSessions: p.MaxSessions,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a UserPackage model to a SubscriptionResponse DTO
func (up *UserPackage) ToResponse() *SubscriptionResponse {
	return &SubscriptionResponse{
		UserID:     up.UserID,
		PackageID:  up.PackageID,
		CreatedAt:  up.CreatedAt.Format("2006-01-02T15:04:05Z"),
		ExpiryDate: up.ExpiryDate.Format("2006-01-02T15:04:05Z"),
		IsActive:   up.IsActive,
	}
}
