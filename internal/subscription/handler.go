package subscription

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

// Handler handles HTTP requests for package operations
type Handler struct {
	service *Service
}

// NewHandler creates a new subscription handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts package endpoints on the given router
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.List)

	admin := r.With(middleware.RequireRole(user.RoleAdmin))
	admin.Post("/create_package", h.Create)
	admin.Post("/subscribe/{package_id}/{user_id}", h.Subscribe)
}

// List handles GET /packages
// @Summary      List packages
// @Tags         packages
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]PackageResponse}
// @Router       /packages [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	packages, total, err := h.service.ListPackages(r.Context(), page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list packages")
		return
	}

	packageResponses := make([]*PackageResponse, len(packages))
	for i, p := range packages {
		packageResponses[i] = p.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, packageResponses, response.NewMeta(page, perPage, total))
}

// Create handles POST /packages/create_package
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, err := h.service.CreatePackage(r.Context(), &req)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			response.BadRequest(w, verr.Error())
		case errors.Is(err, ErrPackageNameTaken):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to create package")
		}
		return
	}

	response.JSON(w, http.StatusCreated, p.ToResponse())
}

// Subscribe handles POST /packages/subscribe/{package_id}/{user_id}
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	packageID, err := strconv.ParseInt(chi.URLParam(r, "package_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid package ID")
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	up, err := h.service.Subscribe(r.Context(), packageID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPackageNotFound), errors.Is(err, user.ErrUserNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrAlreadySubscribed):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to subscribe user")
		}
		return
	}

	response.JSON(w, http.StatusCreated, up.ToResponse())
}
