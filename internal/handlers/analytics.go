package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/services"
)

// AnalyticsHandler serves read-only task rollups.
type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// TaskStats summarizes the tasks visible to the caller
//
// @Summary   Task statistics
// @Tags      Analytics
// @Produce   json
// @Security  BearerAuth
// @Param     userId  query     int  false  "Narrow to one user's tasks"
// @Param     teamId  query     int  false  "Narrow to tasks assigned within a team"
// @Success   200     {object}  dto.Response{data=dto.TaskStats}
// @Router    /api/analytics/stats [get]
func (h *AnalyticsHandler) TaskStats(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	userID, err := queryID(c, "userId")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	teamID, err := queryID(c, "teamId")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	stats, err := h.analyticsService.TaskStats(c.Request.Context(), who, userID, teamID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(stats))
}

// UserStats summarizes one user's created and assigned tasks. Served for
// both /user and /user/:userId.
//
// @Summary   User statistics
// @Tags      Analytics
// @Produce   json
// @Security  BearerAuth
// @Param     userId  path      int  true  "User ID"
// @Success   200     {object}  dto.Response{data=dto.UserStats}
// @Failure   403     {object}  apierrors.APIError
// @Router    /api/analytics/user/{userId} [get]
func (h *AnalyticsHandler) UserStats(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	var target *uint64
	if c.Param("userId") != "" {
		id, err := pathID(c, "userId", "user")
		if err != nil {
			apierrors.Respond(c, err)
			return
		}
		target = &id
	}

	stats, err := h.analyticsService.UserStats(c.Request.Context(), who, target)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(stats))
}

// TeamStats summarizes the tasks assigned to a team's members
//
// @Summary   Team statistics
// @Tags      Analytics
// @Produce   json
// @Security  BearerAuth
// @Param     teamId  query     int  false  "Team ID, defaults to the caller's team"
// @Success   200     {object}  dto.Response{data=dto.TeamStats}
// @Router    /api/analytics/team [get]
func (h *AnalyticsHandler) TeamStats(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	teamID, err := queryID(c, "teamId")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	stats, err := h.analyticsService.TeamStats(c.Request.Context(), who, teamID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(stats))
}
