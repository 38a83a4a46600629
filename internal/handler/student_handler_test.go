package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-treasury-api/internal/models"
	"github.com/noah-isme/class-treasury-api/internal/service"
)

type stubStudentRepo struct {
	students   []models.Student
	lastFilter models.StudentFilter
	created    *models.Student
}

func (s *stubStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	s.lastFilter = filter
	return s.students, len(s.students), nil
}

func (s *stubStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for i := range s.students {
		if s.students[i].ID == id {
			return &s.students[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubStudentRepo) ExistsByStudentNo(ctx context.Context, studentNo, excludeID string) (bool, error) {
	return false, nil
}

func (s *stubStudentRepo) Create(ctx context.Context, student *models.Student) error {
	s.created = student
	return nil
}

func (s *stubStudentRepo) Update(ctx context.Context, student *models.Student) error {
	return nil
}

func (s *stubStudentRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
}

func TestStudentHandlerListDefaultsPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubStudentRepo{students: []models.Student{{ID: "stu-1", FullName: "Ana Cruz"}}}
	h := NewStudentHandler(service.NewStudentService(repo, nil, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students?active=true", nil)

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Page)
	assert.Equal(t, 20, env.Pagination.PageSize)
	assert.Equal(t, 1, env.Pagination.TotalCount)
	require.NotNil(t, repo.lastFilter.Active)
	assert.True(t, *repo.lastFilter.Active)
}

func TestStudentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubStudentRepo{}
	h := NewStudentHandler(service.NewStudentService(repo, nil, nil))

	body := `{"student_no":"2024-001","full_name":"Ana Cruz"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "2024-001", repo.created.StudentNo)
}

func TestStudentHandlerCreateValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubStudentRepo{}
	h := NewStudentHandler(service.NewStudentService(repo, nil, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{"notes":"no name"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "VALIDATION_ERROR", env.Error["code"])
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubStudentRepo{}
	h := NewStudentHandler(service.NewStudentService(repo, nil, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
