package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskStatuses lists every status in reporting order
var TaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled}

// OpenTaskStatuses are the statuses that can become overdue
var OpenTaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Column names shared by predicates, sorting and in-memory matching
const (
	TaskColumnID          = "id"
	TaskColumnTitle       = "title"
	TaskColumnDescription = "description"
	TaskColumnStatus      = "status"
	TaskColumnPriority    = "priority"
	TaskColumnDueDate     = "due_date"
	TaskColumnCreatedBy   = "created_by_id"
	TaskColumnAssignedTo  = "assigned_to_id"
	TaskColumnCreatedAt   = "created_at"
	TaskColumnUpdatedAt   = "updated_at"
)

type Task struct {
	ID           uint64       `gorm:"primarykey" json:"id"`
	Title        string       `gorm:"type:varchar(200);not null" json:"title"`
	Description  string       `gorm:"type:varchar(1000)" json:"description"`
	DueDate      time.Time    `gorm:"not null" json:"dueDate"`
	Priority     TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Status       TaskStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedByID  uint64       `gorm:"not null" json:"createdById"`
	AssignedToID *uint64      `json:"assignedToId"`
	CompletedAt  *time.Time   `json:"completedAt"`
	Tags         []string     `gorm:"type:text;serializer:json" json:"tags"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`

	// Relations
	CreatedBy  *User `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	AssignedTo *User `gorm:"foreignKey:AssignedToID" json:"assignedTo,omitempty"`
}

// SetStatus moves the task to status, stamping or clearing the completion time
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	if status == TaskStatusCompleted && t.Status != TaskStatusCompleted {
		t.CompletedAt = &now
	}
	t.Status = status
	t.syncCompletion(now)
}

// syncCompletion keeps CompletedAt set exactly when the task is completed
func (t *Task) syncCompletion(now time.Time) {
	if t.Status != TaskStatusCompleted {
		t.CompletedAt = nil
		return
	}
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
}

// BeforeSave enforces the completion invariant for every write path
func (t *Task) BeforeSave(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	t.syncCompletion(time.Now())
	return nil
}

// IsOverdue reports whether an open task is past its due date
func (t *Task) IsOverdue(now time.Time) bool {
	return (t.Status == TaskStatusPending || t.Status == TaskStatusInProgress) && t.DueDate.Before(now)
}

// ResourceID returns the primary key
func (t *Task) ResourceID() uint64 { return t.ID }

// CreatorRef returns the creating user's id
func (t *Task) CreatorRef() uint64 { return t.CreatedByID }

// AssigneeRef returns the assigned user's id, if any
func (t *Task) AssigneeRef() *uint64 { return t.AssignedToID }

// StampCreator records the creating user
func (t *Task) StampCreator(userID uint64) { t.CreatedByID = userID }

// Field exposes column values for in-memory predicate evaluation
func (t *Task) Field(column string) (any, bool) {
	switch column {
	case TaskColumnID:
		return t.ID, true
	case TaskColumnTitle:
		return t.Title, true
	case TaskColumnDescription:
		return t.Description, true
	case TaskColumnStatus:
		return string(t.Status), true
	case TaskColumnPriority:
		return string(t.Priority), true
	case TaskColumnDueDate:
		return t.DueDate, true
	case TaskColumnCreatedBy:
		return t.CreatedByID, true
	case TaskColumnAssignedTo:
		if t.AssignedToID == nil {
			return nil, true
		}
		return *t.AssignedToID, true
	case TaskColumnCreatedAt:
		return t.CreatedAt, true
	case TaskColumnUpdatedAt:
		return t.UpdatedAt, true
	}
	return nil, false
}
