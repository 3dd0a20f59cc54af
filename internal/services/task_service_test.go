package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yukikurage/team-task-api/internal/access"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/events"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/utils"
)

func (s *ServiceTestSuite) TestCreateTask_AssignmentRules() {
	core := s.createTeam("core")
	other := s.createTeam("other")
	manager := s.createUser("manager", models.RoleManager, core)
	member := s.createUser("member", models.RoleUser, core)
	outsider := s.createUser("outsider", models.RoleUser, other)

	due := time.Now().Add(48 * time.Hour)

	task, err := s.tasks.CreateTask(s.ctx, callerOf(manager), CreateTaskInput{Title: "  plan  ", DueDate: due, AssignedTo: &member.ID})
	s.Require().NoError(err)
	s.Equal("plan", task.Title)
	s.Equal(manager.ID, task.CreatedByID)
	s.Equal("member", task.AssignedTo.Username)

	_, err = s.tasks.CreateTask(s.ctx, callerOf(manager), CreateTaskInput{Title: "x", DueDate: due, AssignedTo: &outsider.ID})
	s.True(apierrors.Is(err, http.StatusForbidden))

	missing := uint64(9999)
	_, err = s.tasks.CreateTask(s.ctx, callerOf(manager), CreateTaskInput{Title: "x", DueDate: due, AssignedTo: &missing})
	s.True(apierrors.Is(err, http.StatusNotFound))

	_, err = s.tasks.CreateTask(s.ctx, callerOf(member), CreateTaskInput{Title: "x", DueDate: due, AssignedTo: &manager.ID})
	s.EqualError(err, "You can only assign tasks to yourself.")

	_, err = s.tasks.CreateTask(s.ctx, callerOf(member), CreateTaskInput{Title: "   ", DueDate: due})
	s.ErrorIs(err, ErrTitleRequired)
}

func (s *ServiceTestSuite) TestCreateTask_CompletedStampsCompletion() {
	user := s.createUser("alice", models.RoleUser, nil)

	task, err := s.tasks.CreateTask(s.ctx, callerOf(user), CreateTaskInput{
		Title:   "done already",
		DueDate: time.Now().Add(time.Hour),
		Status:  models.TaskStatusCompleted,
		Tags:    []string{"a", " a ", "", "b"},
	})
	s.Require().NoError(err)
	s.NotNil(task.CompletedAt)
	s.Equal([]string{"a", "b"}, task.Tags)
}

func (s *ServiceTestSuite) TestUpdateTask_CompletionRoundTrip() {
	user := s.createUser("alice", models.RoleUser, nil)
	task := s.createTask(user, nil, models.TaskStatusPending, time.Now().Add(time.Hour))
	caller := callerOf(user)

	completed := models.TaskStatusCompleted
	pending := models.TaskStatusPending

	updated, err := s.tasks.UpdateTask(s.ctx, caller, task.ID, UpdateTaskInput{Status: &completed})
	s.Require().NoError(err)
	s.Require().NotNil(updated.CompletedAt)
	first := *updated.CompletedAt

	updated, err = s.tasks.UpdateTask(s.ctx, caller, task.ID, UpdateTaskInput{Status: &pending})
	s.Require().NoError(err)
	s.Nil(updated.CompletedAt)

	time.Sleep(5 * time.Millisecond)
	updated, err = s.tasks.UpdateTask(s.ctx, caller, task.ID, UpdateTaskInput{Status: &completed})
	s.Require().NoError(err)
	s.Require().NotNil(updated.CompletedAt)
	s.True(updated.CompletedAt.After(first))

	empty := " "
	_, err = s.tasks.UpdateTask(s.ctx, caller, task.ID, UpdateTaskInput{Title: &empty})
	s.ErrorIs(err, ErrTitleEmpty)
}

func (s *ServiceTestSuite) TestUpdateTask_GetNeverReturnsStaleCopy() {
	user := s.createUser("alice", models.RoleUser, nil)
	task := s.createTask(user, nil, models.TaskStatusPending, time.Now().Add(time.Hour))
	caller := callerOf(user)

	cached, err := s.tasks.GetTask(s.ctx, caller, task.ID)
	s.Require().NoError(err)
	s.Equal("task", cached.Title)

	title := "renamed"
	_, err = s.tasks.UpdateTask(s.ctx, caller, task.ID, UpdateTaskInput{Title: &title})
	s.Require().NoError(err)

	got, err := s.tasks.GetTask(s.ctx, caller, task.ID)
	s.Require().NoError(err)
	s.Equal("renamed", got.Title)
}

func (s *ServiceTestSuite) TestAuthorizeTask() {
	alice := s.createUser("alice", models.RoleUser, nil)
	bob := s.createUser("bob", models.RoleUser, nil)
	task := s.createTask(alice, nil, models.TaskStatusPending, time.Now().Add(time.Hour))

	_, err := s.tasks.AuthorizeTask(s.ctx, callerOf(alice), task.ID)
	s.NoError(err)

	_, err = s.tasks.AuthorizeTask(s.ctx, callerOf(bob), task.ID)
	s.True(apierrors.Is(err, http.StatusForbidden))

	_, err = s.tasks.AuthorizeTask(s.ctx, callerOf(bob), 9999)
	s.True(apierrors.Is(err, http.StatusNotFound))
}

func (s *ServiceTestSuite) TestAssignTask_InvalidatesAllAndNotifies() {
	core := s.createTeam("core")
	manager := s.createUser("manager", models.RoleManager, core)
	member := s.createUser("member", models.RoleUser, core)
	task := s.createTask(manager, nil, models.TaskStatusPending, time.Now().Add(time.Hour))

	s.cache.Set(s.ctx, "task:list:manager-1:all:p1:l10:s", "stale", time.Minute)
	s.cache.Set(s.ctx, "task:12345", "stale", time.Minute)

	assigned, err := s.tasks.AssignTask(s.ctx, callerOf(manager), task.ID, member.ID)
	s.Require().NoError(err)
	s.Equal(member.ID, *assigned.AssignedToID)

	keys := s.mr.Keys()
	s.Empty(keys)

	rooms := []string{}
	for _, e := range s.published.take() {
		s.Equal("task:assigned", e.Name)
		rooms = append(rooms, e.Room)
	}
	s.ElementsMatch([]string{"", events.UserRoom(member.ID), events.UserRoom(manager.ID)}, rooms)

	_, err = s.tasks.AssignTask(s.ctx, callerOf(manager), 9999, member.ID)
	s.True(apierrors.Is(err, http.StatusNotFound))
}

func (s *ServiceTestSuite) TestMyTasksAndAssignedTasks() {
	core := s.createTeam("core")
	other := s.createTeam("other")
	manager := s.createUser("manager", models.RoleManager, core)
	member := s.createUser("member", models.RoleUser, core)
	outsider := s.createUser("outsider", models.RoleUser, other)
	admin := s.createUser("admin", models.RoleAdmin, nil)

	due := time.Now().Add(time.Hour)
	s.createTask(member, nil, models.TaskStatusPending, due)
	s.createTask(outsider, member, models.TaskStatusCompleted, due)
	s.createTask(outsider, outsider, models.TaskStatusPending, due)
	s.createTask(manager, nil, models.TaskStatusPending, due)

	page := utils.NewPaginationParams(1, 10)

	mine, err := s.tasks.MyTasks(s.ctx, callerOf(member), ListTasksInput{Page: page})
	s.Require().NoError(err)
	s.Equal(int64(2), mine.Pagination.Total)

	mine, err = s.tasks.MyTasks(s.ctx, callerOf(member), ListTasksInput{Page: page, Filter: access.Filter{Status: models.TaskStatusCompleted}})
	s.Require().NoError(err)
	s.Equal(int64(1), mine.Pagination.Total)

	assigned, err := s.tasks.AssignedTasks(s.ctx, callerOf(member), ListTasksInput{Page: page})
	s.Require().NoError(err)
	s.Equal(int64(1), assigned.Pagination.Total)

	assigned, err = s.tasks.AssignedTasks(s.ctx, callerOf(manager), ListTasksInput{Page: page})
	s.Require().NoError(err)
	s.Equal(int64(1), assigned.Pagination.Total)

	assigned, err = s.tasks.AssignedTasks(s.ctx, callerOf(admin), ListTasksInput{Page: page})
	s.Require().NoError(err)
	s.Equal(int64(2), assigned.Pagination.Total)

	loner := s.createUser("loner", models.RoleManager, nil)
	assigned, err = s.tasks.AssignedTasks(s.ctx, callerOf(loner), ListTasksInput{Page: page})
	s.Require().NoError(err)
	s.Zero(assigned.Pagination.Total)
}

func (s *ServiceTestSuite) TestListTasks_SearchAndSort() {
	user := s.createUser("alice", models.RoleUser, nil)
	due := time.Now().Add(time.Hour)
	for _, title := range []string{"Write report", "Review PR", "Report bugs"} {
		_, err := s.tasks.CreateTask(s.ctx, callerOf(user), CreateTaskInput{Title: title, DueDate: due})
		s.Require().NoError(err)
	}

	result, err := s.tasks.ListTasks(s.ctx, callerOf(user), ListTasksInput{
		Filter: access.Filter{Search: "REPORT"},
		Page:   utils.NewPaginationParams(1, 10),
		Sort:   "title",
	})
	s.Require().NoError(err)
	s.Require().Len(result.Items, 2)
	s.Equal("Report bugs", result.Items[0].Title)
	s.Equal("Write report", result.Items[1].Title)
}

type fakeExtractor struct {
	tasks []GeneratedTask
	err   error
}

func (f fakeExtractor) GenerateTasksFromText(context.Context, string) ([]GeneratedTask, error) {
	return f.tasks, f.err
}

func (s *ServiceTestSuite) TestGenerateTasks() {
	_, err := s.tasks.GenerateTasks(s.ctx, "anything")
	s.True(apierrors.Is(err, http.StatusServiceUnavailable))

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)
	s.tasks.ai = fakeExtractor{tasks: []GeneratedTask{
		{Title: " Ship ", DueDate: &future, Priority: "high"},
		{Title: "", Description: "dropped"},
		{Title: "Old", DueDate: &past, Priority: "whenever"},
	}}

	drafts, err := s.tasks.GenerateTasks(s.ctx, "notes")
	s.Require().NoError(err)
	s.Require().Len(drafts, 2)
	s.Equal("Ship", drafts[0].Title)
	s.Equal("high", drafts[0].Priority)
	s.Nil(drafts[1].DueDate)
	s.Equal("medium", drafts[1].Priority)

	s.tasks.ai = fakeExtractor{}
	_, err = s.tasks.GenerateTasks(s.ctx, "notes")
	s.ErrorIs(err, ErrAINoTasksGenerated)

	boom := errors.New("upstream down")
	s.tasks.ai = fakeExtractor{err: boom}
	_, err = s.tasks.GenerateTasks(s.ctx, "notes")
	s.ErrorIs(err, boom)
}
