package request

// SubmitRequestRequest represents the body of a join/leave request submission
type SubmitRequestRequest struct {
	Action Action  `json:"action" validate:"required,oneof=join leave"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// ResolveRequestRequest represents an admin's decision on a pending request
type ResolveRequestRequest struct {
	Decision Status `json:"decision" validate:"required,oneof=approved rejected"`
}

// GroupRequestResponse represents the response for a group request
type GroupRequestResponse struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	GroupID   int64   `json:"group_id"`
	Action    Action  `json:"action"`
	Role      string  `json:"role"`
	Status    Status  `json:"status"`
	Note      *string `json:"note,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// ToResponse converts a GroupRequest model to a GroupRequestResponse DTO
func (gr *GroupRequest) ToResponse() *GroupRequestResponse {
	return &GroupRequestResponse{
		ID:        gr.ID,
		UserID:    gr.UserID,
		GroupID:   gr.GroupID,
		Action:    gr.Action,
		Role:      gr.Role,
		Status:    gr.Status,
		Note:      gr.Note,
		CreatedAt: gr.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: gr.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
