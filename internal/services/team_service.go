package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/utils"
	"gorm.io/gorm"
)

// TeamService provides business logic for team operations.
type TeamService struct {
	teams repository.TeamRepository
	users repository.UserRepository
	cache *cache.Cache
}

// NewTeamService creates a new TeamService.
func NewTeamService(teams repository.TeamRepository, users repository.UserRepository, c *cache.Cache) *TeamService {
	return &TeamService{teams: teams, users: users, cache: c}
}

// TeamInput represents the editable fields of a team. Nil fields are left
// unchanged on update.
type TeamInput struct {
	Name        *string
	Description *string
}

// CreateTeam creates a new team with a unique name.
func (s *TeamService) CreateTeam(ctx context.Context, name, description string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	team := &models.Team{Name: name, Description: strings.TrimSpace(description)}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apierrors.Internal(fmt.Errorf("failed to create team: %w", err))
	}
	return team, nil
}

// ListTeams returns one page of teams.
func (s *TeamService) ListTeams(ctx context.Context, page utils.PaginationParams) ([]models.Team, utils.PaginationResponse, error) {
	teams, total, err := s.teams.List(ctx, page)
	if err != nil {
		return nil, utils.PaginationResponse{}, apierrors.Internal(fmt.Errorf("failed to list teams: %w", err))
	}
	return teams, utils.NewPaginationResponse(page, total), nil
}

// GetTeam returns a team with its members. Only admins and members of the
// team may read it.
func (s *TeamService) GetTeam(ctx context.Context, caller access.Caller, teamID uint64) (*models.Team, error) {
	if !caller.IsAdmin() && (caller.TeamID == nil || *caller.TeamID != teamID) {
		return nil, ErrTeamAccessDenied
	}
	return s.findTeam(ctx, teamID, true)
}

// UpdateTeam updates a team's name or description.
func (s *TeamService) UpdateTeam(ctx context.Context, teamID uint64, input TeamInput) (*models.Team, error) {
	team, err := s.findTeam(ctx, teamID, false)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := s.ensureNameFree(ctx, name, teamID); err != nil {
			return nil, err
		}
		team.Name = name
	}
	if input.Description != nil {
		team.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.teams.Update(ctx, team); err != nil {
		return nil, apierrors.Internal(fmt.Errorf("failed to update team: %w", err))
	}
	return team, nil
}

// DeleteTeam removes a team and detaches its members.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID uint64) error {
	members, err := s.users.TeamMemberIDs(ctx, teamID)
	if err != nil {
		return apierrors.Internal(fmt.Errorf("failed to list team members: %w", err))
	}

	if err := s.teams.Delete(ctx, teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return apierrors.Internal(fmt.Errorf("failed to delete team: %w", err))
	}

	s.invalidateMembership(ctx, members...)
	return nil
}

// AddMember moves a user into the team, leaving any previous team.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID uint64) (*models.Team, error) {
	if _, err := s.findTeam(ctx, teamID, false); err != nil {
		return nil, err
	}
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.users.SetTeam(ctx, userID, &teamID); err != nil {
		return nil, apierrors.Internal(fmt.Errorf("failed to add team member: %w", err))
	}

	s.invalidateMembership(ctx, userID)
	return s.findTeam(ctx, teamID, true)
}

// RemoveMember detaches a user from the team.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID uint64) (*models.Team, error) {
	if _, err := s.findTeam(ctx, teamID, false); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.InTeam(&teamID) {
		return nil, ErrNotTeamMember
	}

	if err := s.users.SetTeam(ctx, userID, nil); err != nil {
		return nil, apierrors.Internal(fmt.Errorf("failed to remove team member: %w", err))
	}

	s.invalidateMembership(ctx, userID)
	return s.findTeam(ctx, teamID, true)
}

// invalidateMembership drops cached views that depend on team membership:
// manager task scopes, analytics rollups and the moved users' profiles
func (s *TeamService) invalidateMembership(ctx context.Context, userIDs ...uint64) {
	s.cache.DeletePattern(ctx, "task:*")
	s.cache.DeletePattern(ctx, constants.AnalyticsCacheKey+":*")
	for _, id := range userIDs {
		s.cache.DeletePattern(ctx, userKeys(id))
	}
}

func (s *TeamService) ensureNameFree(ctx context.Context, name string, excludeID uint64) error {
	existing, err := s.teams.FindByName(ctx, name)
	if err == nil {
		if existing.ID != excludeID {
			return ErrTeamNameTaken
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.Internal(fmt.Errorf("failed to check team name: %w", err))
	}
	return nil
}

func (s *TeamService) findTeam(ctx context.Context, teamID uint64, withMembers bool) (*models.Team, error) {
	team, err := s.teams.FindByID(ctx, teamID, withMembers)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, apierrors.Internal(fmt.Errorf("failed to find team: %w", err))
	}
	return team, nil
}

func (s *TeamService) findUser(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apierrors.Internal(fmt.Errorf("failed to find user: %w", err))
	}
	return user, nil
}
