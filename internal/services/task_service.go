package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/dto"
	"github.com/yukikurage/team-task-api/internal/events"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/query"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/resource"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// TaskSortColumns maps sortable API fields to columns
var TaskSortColumns = map[string]string{
	"id":        models.TaskColumnID,
	"title":     models.TaskColumnTitle,
	"status":    models.TaskColumnStatus,
	"priority":  models.TaskColumnPriority,
	"dueDate":   models.TaskColumnDueDate,
	"createdAt": models.TaskColumnCreatedAt,
	"updatedAt": models.TaskColumnUpdatedAt,
}

// TaskService handles task business logic
type TaskService struct {
	tasks    *resource.Service[*models.Task]
	resolver *access.Resolver
	ai       TaskExtractor
	now      func() time.Time
}

// NewTaskService creates a new TaskService. ai may be nil when draft
// generation is not configured.
func NewTaskService(
	taskRepo repository.TaskRepository,
	resolver *access.Resolver,
	c *cache.Cache,
	dispatcher events.Dispatcher,
	ai TaskExtractor,
) *TaskService {
	return &TaskService{
		tasks: resource.NewService[*models.Task](taskRepo, resolver, c, dispatcher, resource.Options[*models.Task]{
			Name:     "task",
			Label:    "Task",
			IDColumn: models.TaskColumnID,
			TTL:      constants.DefaultCacheTTL,
			Present:  dto.PresentTask,
		}),
		resolver: resolver,
		ai:       ai,
		now:      time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    models.TaskPriority
	Status      models.TaskStatus
	AssignedTo  *uint64
	Tags        []string
}

// UpdateTaskInput represents input for updating a task. Nil fields are left
// unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *models.TaskPriority
	Status      *models.TaskStatus
	AssignedTo  *uint64
	Tags        []string
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Filter access.Filter
	Page   utils.PaginationParams
	Sort   string
}

func (in ListTasksInput) query() resource.ListQuery {
	return resource.ListQuery{
		Filter:    access.FilterClauses(in.Filter),
		FilterKey: in.Filter.Key(),
		Page:      in.Page,
		Sort:      utils.ParseSort(in.Sort, TaskSortColumns),
	}
}

// CreateTask creates a task owned by the caller
func (s *TaskService) CreateTask(ctx context.Context, caller access.Caller, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	if input.AssignedTo != nil {
		if _, err := s.resolver.CanAssign(ctx, caller, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		DueDate:      input.DueDate,
		Priority:     input.Priority,
		AssignedToID: input.AssignedTo,
		Tags:         normalizeTags(input.Tags),
	}
	if input.Status != "" {
		task.SetStatus(input.Status, s.now())
	}

	return s.tasks.Create(ctx, caller, task)
}

// ListTasks returns the tasks inside the caller's scope that match the filters
func (s *TaskService) ListTasks(ctx context.Context, caller access.Caller, input ListTasksInput) (*resource.ListResult[*models.Task], error) {
	return s.tasks.List(ctx, caller, input.query())
}

// GetTask returns a task inside the caller's scope
func (s *TaskService) GetTask(ctx context.Context, caller access.Caller, taskID uint64) (*models.Task, error) {
	return s.tasks.Get(ctx, caller, taskID)
}

// AuthorizeTask loads a task and checks that the caller may act on it
func (s *TaskService) AuthorizeTask(ctx context.Context, caller access.Caller, taskID uint64) (*models.Task, error) {
	task, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.CanAccess(ctx, caller, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask applies the provided fields to a task
func (s *TaskService) UpdateTask(ctx context.Context, caller access.Caller, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleEmpty
	}

	if input.AssignedTo != nil {
		if _, err := s.resolver.CanAssign(ctx, caller, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	now := s.now()
	return s.tasks.Update(ctx, taskID, func(task *models.Task) error {
		if input.Title != nil {
			task.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			task.Description = strings.TrimSpace(*input.Description)
		}
		if input.DueDate != nil {
			task.DueDate = *input.DueDate
		}
		if input.Priority != nil {
			task.Priority = *input.Priority
		}
		if input.Status != nil {
			task.SetStatus(*input.Status, now)
		}
		if input.AssignedTo != nil {
			task.AssignedToID = input.AssignedTo
		}
		if input.Tags != nil {
			task.Tags = normalizeTags(input.Tags)
		}
		return nil
	})
}

// DeleteTask permanently removes a task
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint64) error {
	return s.tasks.Delete(ctx, taskID)
}

// AssignTask sets the assignee of a task. Every cached task view is dropped
// because the assignment moves the task between scopes.
func (s *TaskService) AssignTask(ctx context.Context, caller access.Caller, taskID, assigneeID uint64) (*models.Task, error) {
	assignee, err := s.resolver.CanAssign(ctx, caller, assigneeID)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.Apply(ctx, taskID, func(task *models.Task) error {
		task.AssignedToID = &assignee.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.tasks.InvalidateAll(ctx)
	s.tasks.Notify("task:assigned", task)
	return task, nil
}

// MyTasks returns tasks the caller created or is assigned to. Only the status
// and priority filters apply.
func (s *TaskService) MyTasks(ctx context.Context, caller access.Caller, input ListTasksInput) (*resource.ListResult[*models.Task], error) {
	input.Filter = access.Filter{Status: input.Filter.Status, Priority: input.Filter.Priority}
	q := input.query()

	p := query.And(
		query.Or(
			query.Eq(models.TaskColumnCreatedBy, caller.ID),
			query.Eq(models.TaskColumnAssignedTo, caller.ID),
		),
		q.Filter,
	)
	return s.tasks.Query(ctx, "mine-"+strconv.FormatUint(caller.ID, 10), p, q)
}

// AssignedTasks returns assigned tasks: the caller's own for users, the
// team's for managers and all of them for admins
func (s *TaskService) AssignedTasks(ctx context.Context, caller access.Caller, input ListTasksInput) (*resource.ListResult[*models.Task], error) {
	input.Filter = access.Filter{}
	q := input.query()

	var p query.Predicate
	switch caller.Role {
	case models.RoleAdmin:
		p = query.NotNull(models.TaskColumnAssignedTo)
	case models.RoleManager:
		members, err := s.resolver.TeamMemberIDs(ctx, caller.TeamID)
		if err != nil {
			return nil, err
		}
		p = query.In(models.TaskColumnAssignedTo, members)
	default:
		p = query.Eq(models.TaskColumnAssignedTo, caller.ID)
	}
	return s.tasks.Query(ctx, "assigned-"+caller.Key(), p, q)
}

// GenerateTasks uses AI to draft tasks from text. Drafts are not persisted.
func (s *TaskService) GenerateTasks(ctx context.Context, text string) ([]GeneratedTask, error) {
	if s.ai == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.ai.GenerateTasksFromText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	now := s.now()
	for _, aiTask := range aiTasks {
		aiTask.Title = strings.TrimSpace(aiTask.Title)
		if aiTask.Title == "" || len(aiTask.Title) > constants.MaxTitleLength {
			continue
		}
		if len(aiTask.Description) > constants.MaxDescriptionLength {
			aiTask.Description = aiTask.Description[:constants.MaxDescriptionLength]
		}

		// a draft must be creatable as is, so past deadlines are dropped
		if aiTask.DueDate != nil && aiTask.DueDate.Before(now) {
			aiTask.DueDate = nil
		}

		switch models.TaskPriority(aiTask.Priority) {
		case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh, models.TaskPriorityUrgent:
		default:
			aiTask.Priority = string(models.TaskPriorityMedium)
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

// normalizeTags trims tags and removes blanks and duplicates
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, exists := seen[tag]; exists {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}

	return result
}
