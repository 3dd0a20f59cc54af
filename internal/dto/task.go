package dto

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	DueDate     time.Time           `json:"dueDate"`
	Priority    models.TaskPriority `json:"priority"`
	Status      models.TaskStatus   `json:"status"`
	CreatedBy   *UserSummary        `json:"createdBy"`
	AssignedTo  *UserSummary        `json:"assignedTo"`
	CompletedAt *time.Time          `json:"completedAt"`
	Tags        []string            `json:"tags"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// CreateTaskRequest is the body of POST /api/tasks
type CreateTaskRequest struct {
	Title       string              `json:"title" binding:"required,max=200"`
	Description string              `json:"description" binding:"max=1000"`
	DueDate     *time.Time          `json:"dueDate" binding:"required,notpast"`
	Priority    models.TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status      models.TaskStatus   `json:"status" binding:"omitempty,oneof=pending in-progress completed cancelled"`
	AssignedTo  *uint64             `json:"assignedTo"`
	Tags        []string            `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/:id. Absent fields are
// left unchanged.
type UpdateTaskRequest struct {
	Title       *string              `json:"title" binding:"omitempty,max=200"`
	Description *string              `json:"description" binding:"omitempty,max=1000"`
	DueDate     *time.Time           `json:"dueDate"`
	Priority    *models.TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status      *models.TaskStatus   `json:"status" binding:"omitempty,oneof=pending in-progress completed cancelled"`
	AssignedTo  *uint64              `json:"assignedTo"`
	Tags        []string             `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

// AssignTaskRequest is the body of POST /api/tasks/:id/assign
type AssignTaskRequest struct {
	AssignedTo *uint64 `json:"assignedTo"`
}

// GenerateTasksRequest is the body of POST /api/tasks/generate
type GenerateTasksRequest struct {
	Text string `json:"text" binding:"required,max=10000"`
}

// TaskDraftDTO is a task extracted from free text. It is not persisted.
type TaskDraftDTO struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority,omitempty"`
}

// Conversion functions

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task *models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Priority:    task.Priority,
		Status:      task.Status,
		CompletedAt: task.CompletedAt,
		Tags:        task.Tags,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	// Fall back to bare ids when relations were not preloaded
	dto.CreatedBy = ToUserSummary(task.CreatedBy)
	if dto.CreatedBy == nil && task.CreatedByID != 0 {
		dto.CreatedBy = &UserSummary{ID: task.CreatedByID}
	}
	dto.AssignedTo = ToUserSummary(task.AssignedTo)
	if dto.AssignedTo == nil && task.AssignedToID != nil {
		dto.AssignedTo = &UserSummary{ID: *task.AssignedToID}
	}

	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	return dto
}

// ToTaskDTOs converts a page of tasks
func ToTaskDTOs(tasks []*models.Task) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return items
}

// PresentTask renders a task for event payloads
func PresentTask(task *models.Task) any {
	return ToTaskDTO(task)
}
