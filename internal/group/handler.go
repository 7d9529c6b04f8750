package group

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hmaged/tutorbase/internal/user"
	"github.com/hmaged/tutorbase/pkg/middleware"
	"github.com/hmaged/tutorbase/pkg/response"
	"github.com/hmaged/tutorbase/pkg/validation"
)

// Handler handles HTTP requests for group and membership operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts group endpoints on the given router. Catalog and membership
// mutations are admin-only.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.List)

	admin := r.With(middleware.RequireRole(user.RoleAdmin))
	admin.Post("/create_group", h.Create)
	admin.Patch("/update_group/{id}", h.Update)
	admin.Delete("/delete_group/{id}", h.Delete)

	admin.Post("/add_student_to_group/{group_id}/{student_id}", h.AddStudent)
	admin.Delete("/remove_student_from_group/{group_id}/{student_id}", h.RemoveStudent)
	r.Get("/get_student_list_of_group/{group_id}", h.GetStudents)

	admin.Post("/add_teacher_to_group/{group_id}/{teacher_id}", h.AddTeacher)
	admin.Delete("/remove_teacher_from_group/{group_id}", h.RemoveTeacher)
	r.Get("/get_teacher_of_group/{group_id}", h.GetTeacher)
}

// List handles GET /groups
// @Summary      List groups
// @Description  Get a paginated list of groups. Students only see groups that have not started yet.
// @Tags         groups
// @Produce      json
// @Param        search query string false "Match on group name"
// @Param        status query string false "Filter by status" Enums(coming, running, finished)
// @Param        size query int false "Filter by capacity"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(10)
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetUser(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	filter := Filter{
		Search: r.URL.Query().Get("search"),
		Status: Status(r.URL.Query().Get("status")),
		Size:   size,
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	groups, total, err := h.service.List(r.Context(), caller.Role, filter, page, perPage)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			response.BadRequest(w, verr.Error())
			return
		}
		response.InternalError(w, "Failed to list groups")
		return
	}

	groupResponses := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		groupResponses[i] = g.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, groupResponses, response.NewMeta(page, perPage, total))
}

// Create handles POST /groups/create_group
// @Summary      Create a group
// @Description  Create a group with its weekday/time schedule. Status is derived from the dates.
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/create_group [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	g, err := h.service.Create(r.Context(), &req)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			response.BadRequest(w, verr.Error())
		case errors.Is(err, ErrGroupNameTaken):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrDayNotFound):
			response.NotFound(w, err.Error())
		default:
			response.InternalError(w, "Failed to create group")
		}
		return
	}

	response.JSON(w, http.StatusCreated, g.ToResponse())
}

// Update handles PATCH /groups/update_group/{id}
// @Summary      Update a group
// @Description  Apply a sparse patch; supplied fields are re-validated and status is re-derived after date changes.
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body UpdateGroupRequest true "Sparse patch"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/update_group/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	g, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			response.BadRequest(w, verr.Error())
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrGroupNameTaken):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrDayNotFound):
			response.NotFound(w, err.Error())
		default:
			response.InternalError(w, "Failed to update group")
		}
		return
	}

	response.JSON(w, http.StatusOK, g.ToResponse())
}

// Delete handles DELETE /groups/delete_group/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to delete group")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Group deleted"})
}

// AddStudent handles POST /groups/add_student_to_group/{group_id}/{student_id}
// @Summary      Enroll a student
// @Description  Add a student to a group, bounded by the group's capacity
// @Tags         groups
// @Produce      json
// @Param        group_id path int true "Group ID"
// @Param        student_id path int true "Student user ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/add_student_to_group/{group_id}/{student_id} [post]
func (h *Handler) AddStudent(w http.ResponseWriter, r *http.Request) {
	groupID, studentID, ok := pathPair(w, r, "group_id", "student_id")
	if !ok {
		return
	}

	if err := h.service.EnrollStudent(r.Context(), groupID, studentID); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound), errors.Is(err, user.ErrUserNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotStudent):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrAlreadyEnrolled), errors.Is(err, ErrCapacityReached):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to enroll student")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Student added to group"})
}

// RemoveStudent handles DELETE /groups/remove_student_from_group/{group_id}/{student_id}
func (h *Handler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	groupID, studentID, ok := pathPair(w, r, "group_id", "student_id")
	if !ok {
		return
	}

	if err := h.service.UnenrollStudent(r.Context(), groupID, studentID); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound), errors.Is(err, user.ErrUserNotFound), errors.Is(err, ErrNotEnrolled):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotStudent):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to unenroll student")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Student removed from group"})
}

// GetStudents handles GET /groups/get_student_list_of_group/{group_id}
// @Summary      List a group's students
// @Description  Get a group's enrolled students together with its remaining capacity
// @Tags         groups
// @Produce      json
// @Param        group_id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=StudentListResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/get_student_list_of_group/{group_id} [get]
func (h *Handler) GetStudents(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "group_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	g, students, err := h.service.GetStudents(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list students")
		return
	}

	remaining := g.Size - len(students)
	if remaining < 0 {
		remaining = 0
	}

	resp := &StudentListResponse{
		GroupID:           groupID,
		Size:              g.Size,
		RemainingCapacity: remaining,
		Students:          make([]StudentResponse, len(students)),
	}
	for i, s := range students {
		resp.Students[i] = StudentResponse{ID: s.ID, Name: s.Name}
	}

	response.JSON(w, http.StatusOK, resp)
}

// AddTeacher handles POST /groups/add_teacher_to_group/{group_id}/{teacher_id}
func (h *Handler) AddTeacher(w http.ResponseWriter, r *http.Request) {
	groupID, teacherID, ok := pathPair(w, r, "group_id", "teacher_id")
	if !ok {
		return
	}

	if err := h.service.AssignTeacher(r.Context(), groupID, teacherID); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound), errors.Is(err, user.ErrUserNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotTeacher):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrTeacherAssigned):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to assign teacher")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Teacher added to group"})
}

// RemoveTeacher handles DELETE /groups/remove_teacher_from_group/{group_id}
func (h *Handler) RemoveTeacher(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "group_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	if err := h.service.RemoveTeacher(r.Context(), groupID); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrNoTeacherAssigned):
			response.NotFound(w, err.Error())
		default:
			response.InternalError(w, "Failed to remove teacher")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Teacher removed from group"})
}

// GetTeacher handles GET /groups/get_teacher_of_group/{group_id}
func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "group_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	teacher, err := h.service.GetTeacher(r.Context(), groupID)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrNoTeacherAssigned), errors.Is(err, user.ErrUserNotFound):
			response.NotFound(w, err.Error())
		default:
			response.InternalError(w, "Failed to get teacher")
		}
		return
	}

	response.JSON(w, http.StatusOK, &TeacherResponse{
		ID:       teacher.ID,
		Name:     teacher.DisplayName(),
		Username: teacher.Username,
	})
}

// pathPair parses two int64 path params, writing a 400 on failure.
func pathPair(w http.ResponseWriter, r *http.Request, first, second string) (int64, int64, bool) {
	a, err := strconv.ParseInt(chi.URLParam(r, first), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid "+first)
		return 0, 0, false
	}
	b, err := strconv.ParseInt(chi.URLParam(r, second), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid "+second)
		return 0, 0, false
	}
	return a, b, true
}
