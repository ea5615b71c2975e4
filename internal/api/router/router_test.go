package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"elective-allocation/internal/allocation"
	"elective-allocation/internal/api/handlers"
	domain "elective-allocation/internal/domain/allocation"
	"elective-allocation/internal/infrastructure/cache"
	"elective-allocation/internal/infrastructure/repository"
	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/internal/service"
	"elective-allocation/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	t      *testing.T
	engine *gin.Engine
	tokens *token.Manager
	repos  interfaces.Repositories
	admin  uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repos := repository.NewMemoryRepositories()
	c := cache.NewMemoryCache()
	snapshots := service.NewSnapshotService(repos, c, c, time.Minute)
	tokens := token.NewManager("test-secret", "elective-allocation", time.Hour)

	engine := NewRouter(Dependencies{
		Allocations:    service.NewAllocationService(repos, snapshots, allocation.MultiRound{}, c, c),
		Snapshots:      snapshots,
		Preferences:    service.NewPreferenceService(repos, 5),
		ChangeRequests: service.NewChangeRequestService(repos, nil),
		Idempotency:    service.NewIdempotencyService(c, time.Hour),
		Tokens:         tokens,
		Health: map[string]handlers.HealthCheckFunc{
			"cache": c.Health,
		},
		Version: "test",
	})

	return &apiFixture{t: t, engine: engine, tokens: tokens, repos: repos, admin: uuid.New()}
}

func (f *apiFixture) bearer(subject uuid.UUID, role string) string {
	signed, _, err := f.tokens.Issue(subject, role)
	require.NoError(f.t, err)
	return "Bearer " + signed
}

func (f *apiFixture) do(method, path, auth string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func (f *apiFixture) seed() (*domain.Subject, *domain.Student) {
	subject := &domain.Subject{Code: "CS501", Title: "Distributed Systems", Capacity: 1}
	require.NoError(f.t, f.repos.Subjects.Create(context.Background(), subject))
	student := &domain.Student{RollNumber: "R1", Name: "R1", CGPA: 8.1}
	require.NoError(f.t, f.repos.Students.Create(context.Background(), student))
	return subject, student
}

func TestRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/v1/allocations/run", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/v1/allocations/run", "Bearer not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunRequiresAdmin(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/v1/allocations/run", f.bearer(uuid.New(), token.RoleStudent), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPost, "/api/v1/allocations/run", f.bearer(uuid.New(), token.RoleFaculty), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRunWithoutSubjectsIsBadRequest(t *testing.T) {
	f := newAPIFixture(t)
	student := &domain.Student{
		RollNumber:  "R1",
		CGPA:        7,
		Preferences: []domain.StudentPreference{{Rank: 1, SubjectID: uuid.New()}},
	}
	require.NoError(t, f.repos.Students.Create(context.Background(), student))

	w := f.do(http.MethodPost, "/api/v1/allocations/run", f.bearer(f.admin, token.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var detail handlers.ErrorDetail
	require.NoError(t, json.Unmarshal(decode(t, w).Errors, &detail))
	assert.Equal(t, "NO_SUBJECTS", string(detail.Code))
}

func TestStudentFlow(t *testing.T) {
	f := newAPIFixture(t)
	subject, student := f.seed()
	studentAuth := f.bearer(student.StudentID, token.RoleStudent)
	prefsPath := "/api/v1/students/" + student.StudentID.String() + "/preferences"
	body := map[string]interface{}{"subject_ids": []uuid.UUID{subject.SubjectID}}

	w := f.do(http.MethodPut, prefsPath, f.bearer(uuid.New(), token.RoleStudent), body)
	assert.Equal(t, http.StatusForbidden, w.Code, "students cannot submit for others")

	w = f.do(http.MethodPut, prefsPath, studentAuth, map[string]interface{}{"subject_ids": []uuid.UUID{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, prefsPath, studentAuth, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPut, prefsPath, studentAuth, body)
	assert.Equal(t, http.StatusForbidden, w.Code, "preferences are locked after submission")

	w = f.do(http.MethodPost, "/api/v1/allocations/run", f.bearer(f.admin, token.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var run struct {
		AllocatedCount int `json:"allocated_count"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &run))
	assert.Equal(t, 1, run.AllocatedCount)

	w = f.do(http.MethodGet, "/api/v1/students/"+student.StudentID.String()+"/allocation", studentAuth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alloc domain.Allocation
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &alloc))
	assert.Equal(t, subject.SubjectID, alloc.SubjectID)
	assert.Equal(t, 1, alloc.Priority)

	w = f.do(http.MethodGet, "/api/v1/allocations?subject_id="+subject.SubjectID.String(), f.bearer(uuid.New(), token.RoleFaculty), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []domain.Allocation
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &listed))
	assert.Len(t, listed, 1)
}

func TestChangeRequestFlow(t *testing.T) {
	f := newAPIFixture(t)
	current, student := f.seed()
	requested := &domain.Subject{Code: "CS502", Title: "Compilers", Capacity: 1}
	require.NoError(t, f.repos.Subjects.Create(context.Background(), requested))
	require.NoError(t, f.repos.Allocations.ReplaceAll(context.Background(), []*domain.Allocation{
		{StudentID: student.StudentID, SubjectID: current.SubjectID, Priority: 1},
	}))

	studentAuth := f.bearer(student.StudentID, token.RoleStudent)
	body := map[string]interface{}{
		"current_subject_id":   current.SubjectID,
		"requested_subject_id": requested.SubjectID,
		"reason":               "clash",
	}

	w := f.do(http.MethodPost, "/api/v1/change-requests", studentAuth, body, "Idempotency-Key", "cr-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.ChangeRequest
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))

	replay := f.do(http.MethodPost, "/api/v1/change-requests", studentAuth, body, "Idempotency-Key", "cr-1")
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, w.Body.String(), replay.Body.String())

	w = f.do(http.MethodPost, "/api/v1/change-requests", studentAuth, body)
	assert.Equal(t, http.StatusConflict, w.Code, "one pending request per student")

	decisionPath := "/api/v1/change-requests/" + created.RequestID.String() + "/decision"
	w = f.do(http.MethodPost, decisionPath, studentAuth, map[string]bool{"approve": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPost, decisionPath, f.bearer(uuid.New(), token.RoleFaculty), map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "approve is required")

	w = f.do(http.MethodPost, decisionPath, f.bearer(uuid.New(), token.RoleFaculty), map[string]bool{"approve": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	alloc, err := f.repos.Allocations.GetByStudent(context.Background(), student.StudentID)
	require.NoError(t, err)
	assert.Equal(t, requested.SubjectID, alloc.SubjectID)
}

func TestSnapshotRoutes(t *testing.T) {
	f := newAPIFixture(t)
	adminAuth := f.bearer(f.admin, token.RoleAdmin)

	w := f.do(http.MethodPost, "/api/v1/snapshots/"+uuid.NewString()+"/rollback", adminAuth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/api/v1/snapshots/not-a-uuid/rollback", adminAuth, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/v1/snapshots", adminAuth, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/api/v1/allocations/rollback", adminAuth, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Services["cache"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
