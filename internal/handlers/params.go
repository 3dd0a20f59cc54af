package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/access"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/services"
)

// pathID parses a numeric path parameter
func pathID(c *gin.Context, name, label string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, apierrors.Validation("Invalid "+label+" ID", nil)
	}
	return id, nil
}

// queryID parses an optional numeric query parameter
func queryID(c *gin.Context, name string) (*uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apierrors.Validation("Invalid "+name, nil)
	}
	return &id, nil
}

// caller fetches the authenticated caller or renders 401
func caller(c *gin.Context) (access.Caller, bool) {
	who, ok := middleware.GetCaller(c)
	if !ok {
		apierrors.Respond(c, services.ErrTokenRequired)
	}
	return who, ok
}
