package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
)

// RequireTaskAccess loads the task named by the :id parameter and checks the
// caller may act on it. Unlike reads, mutations of an existing task outside
// the caller's scope are answered with 403.
func RequireTaskAccess(taskService *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.Abort(c, apierrors.Validation("Invalid task ID", nil))
			return
		}

		caller, ok := GetCaller(c)
		if !ok {
			apierrors.Abort(c, services.ErrTokenRequired)
			return
		}

		task, err := taskService.AuthorizeTask(c.Request.Context(), caller, taskID)
		if err != nil {
			apierrors.Abort(c, err)
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := v.(*models.Task)
	return task, ok
}
