package access

import (
	"strconv"
	"strings"

	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/query"
)

// Filter holds the optional task filters a caller may supply
type Filter struct {
	UserID   *uint64
	Status   models.TaskStatus
	Priority models.TaskPriority
	Search   string
}

// FilterClauses converts f into a predicate. Every OR group is returned as a
// nested node so that combining it with a scope under And keeps both intact.
func FilterClauses(f Filter) query.Predicate {
	clauses := []query.Predicate{}
	if f.UserID != nil {
		clauses = append(clauses, query.Or(
			query.Eq(models.TaskColumnCreatedBy, *f.UserID),
			query.Eq(models.TaskColumnAssignedTo, *f.UserID),
		))
	}
	if f.Status != "" {
		clauses = append(clauses, query.Eq(models.TaskColumnStatus, string(f.Status)))
	}
	if f.Priority != "" {
		clauses = append(clauses, query.Eq(models.TaskColumnPriority, string(f.Priority)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		clauses = append(clauses, query.Or(
			query.Contains(models.TaskColumnTitle, search),
			query.Contains(models.TaskColumnDescription, search),
		))
	}
	return query.And(clauses...)
}

// Key renders f canonically for cache keys
func (f Filter) Key() string {
	parts := []string{}
	if f.UserID != nil {
		parts = append(parts, "user="+strconv.FormatUint(*f.UserID, 10))
	}
	if f.Status != "" {
		parts = append(parts, "status="+string(f.Status))
	}
	if f.Priority != "" {
		parts = append(parts, "priority="+string(f.Priority))
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		parts = append(parts, "q="+search)
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, ";")
}
