package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
)

func bindContext(t *testing.T, body any) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidators()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	details, ok := apiErr.Details.([]FieldError)
	require.True(t, ok)
	out := map[string]string{}
	for _, d := range details {
		out[d.Field] = d.Message
	}
	return out
}

func TestCreateTaskBinding(t *testing.T) {
	var req dto.CreateTaskRequest
	c := bindContext(t, map[string]any{
		"title":    "",
		"dueDate":  time.Now().Add(-time.Hour),
		"priority": "whenever",
		"tags":     []string{"ok", strings.Repeat("x", 51)},
	})

	err := c.ShouldBindJSON(&req)
	require.Error(t, err)

	fields := detailsOf(t, bindingError(err))
	assert.Equal(t, "Task title is required", fields["title"])
	assert.Equal(t, "Due date cannot be in the past", fields["dueDate"])
	assert.Equal(t, "Priority must be one of: low, medium, high, urgent", fields["priority"])
	assert.Equal(t, "Each tag cannot exceed 50 characters", fields["tags[1]"])
}

func TestCreateTaskBinding_Valid(t *testing.T) {
	var req dto.CreateTaskRequest
	c := bindContext(t, map[string]any{
		"title":   "Ship it",
		"dueDate": time.Now().Add(time.Hour),
		"tags":    []string{"release"},
	})
	require.NoError(t, c.ShouldBindJSON(&req))
	assert.Equal(t, "Ship it", req.Title)
}

func TestRegisterBinding(t *testing.T) {
	cases := []struct {
		name     string
		username string
		password string
		bad      []string
	}{
		{"valid", "alice_01", "Passw0rd!", nil},
		{"short username", "al", "Passw0rd!", []string{"username"}},
		{"username symbols", "alice-01", "Passw0rd!", []string{"username"}},
		{"no special", "alice", "Passw0rd1", []string{"password"}},
		{"no upper", "alice", "passw0rd!", []string{"password"}},
		{"too short", "alice", "Pa0!", []string{"password"}},
		{"unlisted special", "alice", "Passw0rd#", []string{"password"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req dto.RegisterRequest
			c := bindContext(t, map[string]string{"username": tc.username, "email": "a@example.com", "password": tc.password})

			err := c.ShouldBindJSON(&req)
			if tc.bad == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			fields := detailsOf(t, bindingError(err))
			for _, f := range tc.bad {
				assert.Contains(t, fields, f)
			}
			assert.Len(t, fields, len(tc.bad))
		})
	}
}

func TestBindingError_NonValidation(t *testing.T) {
	err := bindingError(&json.SyntaxError{})

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid request body", apiErr.Message)
	assert.Nil(t, apiErr.Details)
}

func TestPathAndQueryIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?userId=7&teamId=x", nil)
	c.Params = gin.Params{{Key: "id", Value: "42"}, {Key: "bad", Value: "4x"}}

	id, err := pathID(c, "id", "task")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	_, err = pathID(c, "bad", "task")
	assert.EqualError(t, err, "Invalid task ID")

	userID, err := queryID(c, "userId")
	require.NoError(t, err)
	require.NotNil(t, userID)
	assert.Equal(t, uint64(7), *userID)

	_, err = queryID(c, "teamId")
	assert.Error(t, err)

	missing, err := queryID(c, "page")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
