package dto

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
)

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID          uint64        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Members     []UserSummary `json:"members,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// CreateTeamRequest is the body of POST /api/teams
type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateTeamRequest is the body of PUT /api/teams/:id
type UpdateTeamRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// TeamMemberRequest is the body of POST /api/teams/:id/members
type TeamMemberRequest struct {
	UserID uint64 `json:"userId" binding:"required"`
}

// ToTeamDTO converts a Team model to TeamDTO
func ToTeamDTO(team *models.Team) TeamDTO {
	dto := TeamDTO{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		CreatedAt:   team.CreatedAt,
		UpdatedAt:   team.UpdatedAt,
	}
	for i := range team.Members {
		dto.Members = append(dto.Members, *ToUserSummary(&team.Members[i]))
	}
	return dto
}

// ToTeamDTOs converts a page of teams
func ToTeamDTOs(teams []models.Team) []TeamDTO {
	items := make([]TeamDTO, len(teams))
	for i := range teams {
		items[i] = ToTeamDTO(&teams[i])
	}
	return items
}
