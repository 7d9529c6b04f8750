package group

// DayTimeInput is one {day_id, time} pair in a create or update request.
// Time must be a 12-hour clock string with AM/PM marker.
type DayTimeInput struct {
	DayID int64  `json:"day_id" validate:"required"`
	Time  string `json:"time" validate:"required"`
}

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	Name      string         `json:"group" validate:"required"`
	Size      int            `json:"size" validate:"required,gt=0"`
	Days      []DayTimeInput `json:"day_ids" validate:"required,min=1,dive"`
	StartDate string         `json:"start_date" validate:"required"`
	EndDate   string         `json:"end_date" validate:"required"`
}

// UpdateGroupRequest represents a sparse patch over a group's mutable fields.
// A nil field is left untouched; at least one supplied field must cause an
// actual change.
type UpdateGroupRequest struct {
	Name      *string        `json:"group,omitempty"`
	Size      *int           `json:"size,omitempty" validate:"omitempty,gt=0"`
	Days      []DayTimeInput `json:"day_ids,omitempty" validate:"omitempty,min=1,dive"`
	StartDate *string        `json:"start_date,omitempty"`
	EndDate   *string        `json:"end_date,omitempty"`
}

// GroupDayResponse represents one scheduled slot in a group response
type GroupDayResponse struct {
	DayID int64  `json:"day_id"`
	Day   string `json:"day"`
	Time  string `json:"time"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID        int64              `json:"id"`
	Name      string             `json:"group"`
	Size      int                `json:"size"`
	Status    Status             `json:"status"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	TeacherID *int64             `json:"teacher_id,omitempty"`
	Days      []GroupDayResponse `json:"days"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
}

// StudentResponse represents one enrolled student in a student list
type StudentResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StudentListResponse represents a group's enrolled students together with
// its remaining capacity
type StudentListResponse struct {
	GroupID           int64             `json:"group_id"`
	Size              int               `json:"size"`
	RemainingCapacity int               `json:"remaining_capacity"`
	Students          []StudentResponse `json:"students"`
}

// TeacherResponse describes a group's assigned teacher
type TeacherResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	days := make([]GroupDayResponse, len(g.Days))
	for i, d := range g.Days {
		days[i] = GroupDayResponse{DayID: d.DayID, Day: d.Day, Time: d.Time}
	}
	return &GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		Size:      g.Size,
		Status:    g.Status,
		StartDate: g.StartDate.Format(DateFormat),
		EndDate:   g.EndDate.Format(DateFormat),
		TeacherID: g.TeacherID,
		Days:      days,
		CreatedAt: g.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: g.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
