package services

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/utils"
)

func (s *ServiceTestSuite) TestTeamLifecycle() {
	team, err := s.team.CreateTeam(s.ctx, " core ", "the core team")
	s.Require().NoError(err)
	s.Equal("core", team.Name)

	_, err = s.team.CreateTeam(s.ctx, "core", "")
	s.ErrorIs(err, ErrTeamNameTaken)

	other, err := s.team.CreateTeam(s.ctx, "other", "")
	s.Require().NoError(err)

	name := "core"
	_, err = s.team.UpdateTeam(s.ctx, other.ID, TeamInput{Name: &name})
	s.ErrorIs(err, ErrTeamNameTaken)

	desc := "renamed"
	updated, err := s.team.UpdateTeam(s.ctx, team.ID, TeamInput{Name: &name, Description: &desc})
	s.Require().NoError(err)
	s.Equal("renamed", updated.Description)

	teams, page, err := s.team.ListTeams(s.ctx, utils.NewPaginationParams(1, 10))
	s.Require().NoError(err)
	s.Len(teams, 2)
	s.Equal(int64(2), page.Total)

	s.Require().NoError(s.team.DeleteTeam(s.ctx, other.ID))
	s.ErrorIs(s.team.DeleteTeam(s.ctx, other.ID), ErrTeamNotFound)
}

func (s *ServiceTestSuite) TestTeamMembership_ChangesManagerScope() {
	core := s.createTeam("core")
	manager := s.createUser("manager", models.RoleManager, core)
	newcomer := s.createUser("newcomer", models.RoleUser, nil)
	outsider := s.createUser("outsider", models.RoleUser, nil)
	task := s.createTask(outsider, newcomer, models.TaskStatusPending, time.Now().Add(time.Hour))

	_, err := s.tasks.GetTask(s.ctx, callerOf(manager), task.ID)
	s.Error(err)

	s.cache.Set(s.ctx, "analytics:stats:manager-1:all:all", "stale", time.Minute)
	team, err := s.team.AddMember(s.ctx, core.ID, newcomer.ID)
	s.Require().NoError(err)
	s.Len(team.Members, 2)
	s.False(s.mr.Exists("analytics:stats:manager-1:all:all"))

	got, err := s.tasks.GetTask(s.ctx, callerOf(manager), task.ID)
	s.Require().NoError(err)
	s.Equal(task.ID, got.ID)

	_, err = s.team.RemoveMember(s.ctx, core.ID, outsider.ID)
	s.ErrorIs(err, ErrNotTeamMember)

	team, err = s.team.RemoveMember(s.ctx, core.ID, newcomer.ID)
	s.Require().NoError(err)
	s.Len(team.Members, 1)

	_, err = s.tasks.GetTask(s.ctx, callerOf(manager), task.ID)
	s.Error(err)

	_, err = s.team.AddMember(s.ctx, core.ID, 9999)
	s.ErrorIs(err, ErrUserNotFound)
	_, err = s.team.AddMember(s.ctx, 9999, newcomer.ID)
	s.ErrorIs(err, ErrTeamNotFound)
}

func (s *ServiceTestSuite) TestGetTeam_Access() {
	core := s.createTeam("core")
	member := s.createUser("member", models.RoleUser, core)
	outsider := s.createUser("outsider", models.RoleUser, nil)
	admin := s.createUser("admin", models.RoleAdmin, nil)

	team, err := s.team.GetTeam(s.ctx, callerOf(member), core.ID)
	s.Require().NoError(err)
	s.Len(team.Members, 1)

	_, err = s.team.GetTeam(s.ctx, callerOf(outsider), core.ID)
	s.ErrorIs(err, ErrTeamAccessDenied)

	_, err = s.team.GetTeam(s.ctx, callerOf(admin), core.ID)
	s.NoError(err)
	_, err = s.team.GetTeam(s.ctx, callerOf(admin), 9999)
	s.ErrorIs(err, ErrTeamNotFound)
}
