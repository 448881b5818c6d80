package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var errDatabaseDown = errors.New("connection refused")

type MockAuthService struct {
	session *services.Session
	user    *models.User
	err     error

	lastEmail    string
	lastPassword string
}

func (m *MockAuthService) Signup(ctx context.Context, email, password string) (*services.Session, error) {
	m.lastEmail, m.lastPassword = email, password
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.Session, error) {
	m.lastEmail, m.lastPassword = email, password
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *MockAuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

type MockTaskService struct {
	tasks    []models.Task
	task     *models.Task
	comments []models.Comment
	err      error

	lastFilter models.TaskFilter
	lastID     int64
	lastNew    models.NewTask
	lastPatch  models.TaskPatch
	deleted    []int64
}

func (m *MockTaskService) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.tasks, nil
}

func (m *MockTaskService) GetTask(ctx context.Context, id int64) (*models.Task, []models.Comment, error) {
	m.lastID = id
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.task, m.comments, nil
}

func (m *MockTaskService) CreateTask(ctx context.Context, input models.NewTask) (*models.Task, error) {
	m.lastNew = input
	if m.err != nil {
		return nil, m.err
	}
	return m.task, nil
}

func (m *MockTaskService) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	m.lastID = id
	m.lastPatch = patch
	if m.err != nil {
		return nil, m.err
	}
	return m.task, nil
}

func (m *MockTaskService) DeleteTask(ctx context.Context, id int64) error {
	m.lastID = id
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type MockCommentService struct {
	comment *models.Comment
	err     error

	lastTaskID   int64
	lastAuthorID int64
	lastBody     string
}

func (m *MockCommentService) AddComment(ctx context.Context, taskID, authorID int64, body string) (*models.Comment, error) {
	m.lastTaskID, m.lastAuthorID, m.lastBody = taskID, authorID, body
	if m.err != nil {
		return nil, m.err
	}
	return m.comment, nil
}

func serviceError(kind error, message string) error {
	return &services.Error{Kind: kind, Message: message}
}

func sampleTask(id int64) *models.Task {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &models.Task{
		ID:          id,
		Title:       "Write release notes",
		Description: "",
		Priority:    models.PriorityMedium,
		Status:      models.StatusBacklog,
		CreatedAt:   created,
		UpdatedAt:   created,
		StatusBadge: "On Track",
	}
}

// withIdentity stands in for the session guard.
func withIdentity(userID int64, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserEmail, email)
		c.Next()
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	switch v := body.(type) {
	case nil:
		reader = bytes.NewBuffer(nil)
	case string:
		reader = bytes.NewBufferString(v)
	default:
		data, _ := json.Marshal(v)
		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
