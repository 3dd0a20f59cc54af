package repository

import (
	"context"

	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/query"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	*GormStore[models.Task]
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{
		GormStore: NewGormStore[models.Task](db, "CreatedBy", "AssignedTo"),
		db:        db,
	}
}

// CountByStatus groups matching tasks by status. Statuses with no tasks are
// reported as zero.
func (r *GormTaskRepository) CountByStatus(ctx context.Context, p query.Predicate) (map[models.TaskStatus]int64, error) {
	var rows []struct {
		Status models.TaskStatus
		Count  int64
	}

	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("status, COUNT(*) AS count").
		Scopes(query.Scope(p)).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
