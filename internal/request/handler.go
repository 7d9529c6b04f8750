package request

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hmaged/tutorbase/internal/group"
	"github.com/hmaged/tutorbase/internal/user"
	"github.com/hmaged/tutorbase/pkg/middleware"
	"github.com/hmaged/tutorbase/pkg/response"
	"github.com/hmaged/tutorbase/pkg/validation"
)

// Handler handles HTTP requests for the request workflow
type Handler struct {
	service *Service
}

// NewHandler creates a new request handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts request-workflow endpoints on the given router. Listing and
// resolving pending requests are admin-only; submission is open to any
// authenticated user (the service enforces the student/teacher role rule).
func (h *Handler) Register(r chi.Router) {
	r.Post("/send_request/{group_id}", h.Submit)

	admin := r.With(middleware.RequireRole(user.RoleAdmin))
	admin.Get("/pending_requests", h.ListPending)
	admin.Patch("/resolve_request/{request_id}", h.Resolve)
}

// Submit handles POST /groups/send_request/{group_id}
// @Summary      Submit a join/leave request
// @Description  Record the caller's intent to join or leave a group, pending admin resolution
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        group_id path int true "Group ID"
// @Param        request body SubmitRequestRequest true "Request submission"
// @Success      201 {object} response.APIResponse{data=GroupRequestResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/send_request/{group_id} [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "group_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	caller, ok := middleware.GetUser(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req SubmitRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	gr, err := h.service.Submit(r.Context(), caller.ID, caller.Role, groupID, &req)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			response.BadRequest(w, verr.Error())
		case errors.Is(err, ErrRoleNotAllowed):
			response.Forbidden(w, err.Error())
		case errors.Is(err, group.ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrPendingExists):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to submit request")
		}
		return
	}

	response.JSON(w, http.StatusCreated, gr.ToResponse())
}

// ListPending handles GET /groups/pending_requests
// @Summary      List pending requests
// @Description  Get pending join/leave requests in creation order, optionally narrowed to one group
// @Tags         requests
// @Produce      json
// @Param        group_id query int false "Narrow to one group"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(10)
// @Success      200 {object} response.APIResponse{data=[]GroupRequestResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/pending_requests [get]
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	var groupID *int64
	if raw := r.URL.Query().Get("group_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "Invalid group ID")
			return
		}
		groupID = &id
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	requests, total, err := h.service.ListPending(r.Context(), groupID, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list pending requests")
		return
	}

	requestResponses := make([]*GroupRequestResponse, len(requests))
	for i, gr := range requests {
		requestResponses[i] = gr.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, requestResponses, response.NewMeta(page, perPage, total))
}

// Resolve handles PATCH /groups/resolve_request/{request_id}
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "request_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	var req ResolveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	gr, err := h.service.Resolve(r.Context(), id, &req)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			response.BadRequest(w, verr.Error())
		case errors.Is(err, ErrRequestNotFound), errors.Is(err, group.ErrGroupNotFound), errors.Is(err, user.ErrUserNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrAlreadyResolved), errors.Is(err, group.ErrCapacityReached),
			errors.Is(err, group.ErrAlreadyEnrolled), errors.Is(err, group.ErrTeacherAssigned):
			response.Conflict(w, err.Error())
		case errors.Is(err, group.ErrNotEnrolled), errors.Is(err, group.ErrNoTeacherAssigned),
			errors.Is(err, group.ErrNotStudent), errors.Is(err, group.ErrNotTeacher):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to resolve request")
		}
		return
	}

	response.JSON(w, http.StatusOK, gr.ToResponse())
}
