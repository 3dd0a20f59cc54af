package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
)

type index struct {
	name    string
	columns string
}

// taskIndexes back the scoped list queries, overdue counts and sorting
var taskIndexes = []index{
	{"idx_tasks_created_by_status", "created_by_id, status"},
	{"idx_tasks_assigned_to_status", "assigned_to_id, status"},
	{"idx_tasks_due_date", "due_date"},
	{"idx_tasks_priority", "priority"},
	{"idx_tasks_created_at", "created_at"},
}

// AddIndexes creates performance-critical indexes that are not expressed in
// model tags. Existing indexes are left alone.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range taskIndexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "columns", idx.columns)
	}

	return nil
}
