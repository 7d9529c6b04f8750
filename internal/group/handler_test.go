package group

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaged/tutorbase/internal/user"
	"github.com/hmaged/tutorbase/pkg/middleware"
	"github.com/hmaged/tutorbase/pkg/response"
)

func authAs(u *middleware.AuthUser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), u)))
		})
	}
}

func newTestRouter(caller *middleware.AuthUser) (http.Handler, *Service) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(authAs(caller))
	r.Route("/groups", h.Register)
	return r, svc
}

func doJSON(t *testing.T, router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) *response.APIResponse {
	t.Helper()

	var envelope struct {
		Success bool               `json:"success"`
		Data    json.RawMessage    `json:"data"`
		Error   *response.APIError `json:"error"`
		Meta    *response.Meta     `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return &response.APIResponse{Success: envelope.Success, Error: envelope.Error, Meta: envelope.Meta}
}

var adminCaller = &middleware.AuthUser{ID: 1, Role: user.RoleAdmin}

func createBody() map[string]interface{} {
	return map[string]interface{}{
		"group": "Math101",
		"size":  2,
		"day_ids": []map[string]interface{}{
			{"day_id": 1, "time": "09:00:00 AM"},
		},
		"start_date": testToday.AddDate(0, 0, 5).Format(DateFormat),
		"end_date":   testToday.AddDate(0, 0, 40).Format(DateFormat),
	}
}

func TestCreateGroupEndpoint(t *testing.T) {
	router, _ := newTestRouter(adminCaller)

	rec := doJSON(t, router, http.MethodPost, "/groups/create_group", createBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var got GroupResponse
	env := decodeEnvelope(t, rec, &got)
	assert.True(t, env.Success)
	assert.Equal(t, "Math101", got.Name)
	assert.Equal(t, StatusComing, got.Status)
	require.Len(t, got.Days, 1)
	assert.Equal(t, "Saturday", got.Days[0].Day)
	assert.Equal(t, "09:00:00", got.Days[0].Time)
}

func TestCreateGroupEndpointErrors(t *testing.T) {
	t.Run("forbidden for students", func(t *testing.T) {
		router, _ := newTestRouter(&middleware.AuthUser{ID: 3, Role: user.RoleStudent})

		rec := doJSON(t, router, http.MethodPost, "/groups/create_group", createBody())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router, _ := newTestRouter(adminCaller)

		req := httptest.NewRequest(http.MethodPost, "/groups/create_group", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		router, _ := newTestRouter(adminCaller)

		body := createBody()
		body["size"] = 0
		rec := doJSON(t, router, http.MethodPost, "/groups/create_group", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		router, _ := newTestRouter(adminCaller)

		rec := doJSON(t, router, http.MethodPost, "/groups/create_group", createBody())
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(t, router, http.MethodPost, "/groups/create_group", createBody())
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestUpdateGroupEndpoint(t *testing.T) {
	router, svc := newTestRouter(adminCaller)
	g, err := svc.Create(context.Background(), validCreateReq())
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/groups/update_group/%d", g.ID), map[string]interface{}{
		"start_date": testToday.AddDate(0, 0, -1).Format(DateFormat),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got GroupResponse
	decodeEnvelope(t, rec, &got)
	assert.Equal(t, StatusRunning, got.Status)

	t.Run("unknown group", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPatch, "/groups/update_group/999", map[string]interface{}{
			"group": "Other",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no-op patch", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/groups/update_group/%d", g.ID), map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEnrollmentEndpoints(t *testing.T) {
	router, svc := newTestRouter(adminCaller)
	g, err := svc.Create(context.Background(), validCreateReq()) // size 2
	require.NoError(t, err)

	enroll := func(studentID int64) *httptest.ResponseRecorder {
		return doJSON(t, router, http.MethodPost, fmt.Sprintf("/groups/add_student_to_group/%d/%d", g.ID, studentID), nil)
	}

	require.Equal(t, http.StatusOK, enroll(3).Code)
	require.Equal(t, http.StatusOK, enroll(4).Code)

	t.Run("capacity conflict", func(t *testing.T) {
		rec := enroll(5)
		require.Equal(t, http.StatusConflict, rec.Code)

		env := decodeEnvelope(t, rec, nil)
		require.NotNil(t, env.Error)
		assert.Equal(t, "Group capacity has been reached.", env.Error.Message)
	})

	t.Run("duplicate enrollment", func(t *testing.T) {
		assert.Equal(t, http.StatusConflict, enroll(3).Code)
	})

	t.Run("teacher as student", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, enroll(2).Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, enroll(999).Code)
	})

	t.Run("student list with remaining capacity", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/groups/get_student_list_of_group/%d", g.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got StudentListResponse
		decodeEnvelope(t, rec, &got)
		assert.Equal(t, g.ID, got.GroupID)
		assert.Equal(t, 2, got.Size)
		assert.Equal(t, 0, got.RemainingCapacity)
		assert.Len(t, got.Students, 2)
	})

	t.Run("remove then re-check capacity", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/groups/remove_student_from_group/%d/3", g.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/groups/get_student_list_of_group/%d", g.ID), nil)
		var got StudentListResponse
		decodeEnvelope(t, rec, &got)
		assert.Equal(t, 1, got.RemainingCapacity)
	})

	t.Run("remove student who is not enrolled", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/groups/remove_student_from_group/%d/3", g.ID), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTeacherEndpoints(t *testing.T) {
	router, svc := newTestRouter(adminCaller)
	g, err := svc.Create(context.Background(), validCreateReq())
	require.NoError(t, err)

	t.Run("no teacher yet", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/groups/get_teacher_of_group/%d", g.ID), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/groups/add_teacher_to_group/%d/2", g.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("describe assigned teacher", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/groups/get_teacher_of_group/%d", g.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got TeacherResponse
		decodeEnvelope(t, rec, &got)
		assert.Equal(t, int64(2), got.ID)
		assert.Equal(t, "Tina Teacher", got.Name)
		assert.Equal(t, "teach", got.Username)
	})

	t.Run("second assignment conflicts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/groups/add_teacher_to_group/%d/2", g.ID), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("student as teacher", func(t *testing.T) {
		other, err := svc.Create(context.Background(), &CreateGroupRequest{
			Name:      "Chem301",
			Size:      5,
			Days:      []DayTimeInput{{DayID: 2, Time: "11:00:00 AM"}},
			StartDate: testToday.AddDate(0, 0, 5).Format(DateFormat),
			EndDate:   testToday.AddDate(0, 0, 40).Format(DateFormat),
		})
		require.NoError(t, err)

		rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/groups/add_teacher_to_group/%d/3", other.ID), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("remove", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/groups/remove_teacher_from_group/%d", g.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/groups/remove_teacher_from_group/%d", g.ID), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListEndpoint(t *testing.T) {
	router, svc := newTestRouter(adminCaller)
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreateReq())
	require.NoError(t, err)

	running := validCreateReq()
	running.Name = "Physics202"
	running.StartDate = testToday.AddDate(0, 0, -5).Format(DateFormat)
	_, err = svc.Create(ctx, running)
	require.NoError(t, err)

	t.Run("admin sees everything with meta", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/groups/", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got []GroupResponse
		env := decodeEnvelope(t, rec, &got)
		assert.Len(t, got, 2)
		require.NotNil(t, env.Meta)
		assert.Equal(t, 2, env.Meta.Total)
		assert.Equal(t, 1, env.Meta.Page)
		assert.Nil(t, env.Meta.NextPage)
	})

	t.Run("status filter", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/groups/?status=running", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got []GroupResponse
		decodeEnvelope(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "Physics202", got[0].Name)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/groups/?status=paused", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("students only see coming groups", func(t *testing.T) {
		studentRouter, studentSvc := newTestRouter(&middleware.AuthUser{ID: 3, Role: user.RoleStudent})
		_, err := studentSvc.Create(ctx, validCreateReq())
		require.NoError(t, err)
		late := validCreateReq()
		late.Name = "Physics202"
		late.StartDate = testToday.AddDate(0, 0, -5).Format(DateFormat)
		_, err = studentSvc.Create(ctx, late)
		require.NoError(t, err)

		rec := doJSON(t, studentRouter, http.MethodGet, "/groups/", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got []GroupResponse
		decodeEnvelope(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "Math101", got[0].Name)
	})
}
