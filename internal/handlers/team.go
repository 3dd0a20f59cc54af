package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// TeamHandler manages teams and their membership.
type TeamHandler struct {
	teamService *services.TeamService
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// CreateTeam creates a team
//
// @Summary   Create a team
// @Tags      Teams
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      dto.CreateTeamRequest  true  "Team"
// @Success   201   {object}  dto.Response{data=dto.TeamDTO}
// @Router    /api/teams [post]
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req dto.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, bindingError(err))
		return
	}

	team, err := h.teamService.CreateTeam(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Message("Team created successfully", dto.ToTeamDTO(team)))
}

// ListTeams returns one page of teams
//
// @Summary   List teams
// @Tags      Teams
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  dto.Response{data=[]dto.TeamDTO}
// @Router    /api/teams [get]
func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, page, err := h.teamService.ListTeams(c.Request.Context(), utils.GetPaginationParams(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Page(dto.ToTeamDTOs(teams), page))
}

// GetTeam returns a team with its members
//
// @Summary   Get a team
// @Tags      Teams
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      int  true  "Team ID"
// @Success   200  {object}  dto.Response{data=dto.TeamDTO}
// @Router    /api/teams/{id} [get]
func (h *TeamHandler) GetTeam(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	teamID, err := pathID(c, "id", "team")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	team, err := h.teamService.GetTeam(c.Request.Context(), who, teamID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToTeamDTO(team)))
}

// UpdateTeam renames a team or changes its description
//
// @Summary   Update a team
// @Tags      Teams
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id    path      int                    true  "Team ID"
// @Param     body  body      dto.UpdateTeamRequest  true  "Fields to change"
// @Success   200   {object}  dto.Response{data=dto.TeamDTO}
// @Router    /api/teams/{id} [put]
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	teamID, err := pathID(c, "id", "team")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	var req dto.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, bindingError(err))
		return
	}

	team, err := h.teamService.UpdateTeam(c.Request.Context(), teamID, services.TeamInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Team updated successfully", dto.ToTeamDTO(team)))
}

// DeleteTeam removes a team and detaches its members
//
// @Summary   Delete a team
// @Tags      Teams
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      int  true  "Team ID"
// @Success   200  {object}  dto.Response
// @Router    /api/teams/{id} [delete]
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	teamID, err := pathID(c, "id", "team")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if err := h.teamService.DeleteTeam(c.Request.Context(), teamID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Team deleted successfully", nil))
}

// AddMember moves a user into a team
//
// @Summary   Add a team member
// @Tags      Teams
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id    path      int                    true  "Team ID"
// @Param     body  body      dto.TeamMemberRequest  true  "Member"
// @Success   200   {object}  dto.Response{data=dto.TeamDTO}
// @Router    /api/teams/{id}/members [post]
func (h *TeamHandler) AddMember(c *gin.Context) {
	teamID, err := pathID(c, "id", "team")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	var req dto.TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, bindingError(err))
		return
	}

	team, err := h.teamService.AddMember(c.Request.Context(), teamID, req.UserID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Member added successfully", dto.ToTeamDTO(team)))
}

// RemoveMember detaches a user from a team
//
// @Summary   Remove a team member
// @Tags      Teams
// @Produce   json
// @Security  BearerAuth
// @Param     id      path      int  true  "Team ID"
// @Param     userId  path      int  true  "User ID"
// @Success   200     {object}  dto.Response{data=dto.TeamDTO}
// @Router    /api/teams/{id}/members/{userId} [delete]
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	teamID, err := pathID(c, "id", "team")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	userID, err := pathID(c, "userId", "user")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	team, err := h.teamService.RemoveMember(c.Request.Context(), teamID, userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Member removed successfully", dto.ToTeamDTO(team)))
}
