package repository

import (
	"context"
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/query"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a task without touching its relations
	Create(ctx context.Context, task *models.Task) error

	// Count returns the number of tasks matching p
	Count(ctx context.Context, p query.Predicate) (int64, error)

	// Find returns one page of tasks matching p with creator and assignee expanded
	Find(ctx context.Context, p query.Predicate, page utils.PaginationParams, order string) ([]*models.Task, error)

	// FindOne returns the first task matching p or gorm.ErrRecordNotFound
	FindOne(ctx context.Context, p query.Predicate) (*models.Task, error)

	// Save writes every column of the task
	Save(ctx context.Context, task *models.Task) error

	// Delete permanently removes a task, returning the number of rows removed
	Delete(ctx context.Context, id uint64) (int64, error)

	// CountByStatus groups matching tasks by status
	CountByStatus(ctx context.Context, p query.Predicate) (map[models.TaskStatus]int64, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email address
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindConflicting finds another user holding the email or username
	FindConflicting(ctx context.Context, email, username string, excludeID uint64) (*models.User, error)

	// Update writes the user's profile columns
	Update(ctx context.Context, user *models.User) error

	// TouchLastLogin stamps the last successful login
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error

	// TeamMemberIDs lists the ids of users in a team
	TeamMemberIDs(ctx context.Context, teamID uint64) ([]uint64, error)

	// SetTeam moves a user into a team, or out of any team when teamID is nil
	SetTeam(ctx context.Context, userID uint64, teamID *uint64) error
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	// Create creates a new team
	Create(ctx context.Context, team *models.Team) error

	// FindByID finds a team, optionally with its members
	FindByID(ctx context.Context, id uint64, withMembers bool) (*models.Team, error)

	// FindByName finds a team by its unique name
	FindByName(ctx context.Context, name string) (*models.Team, error)

	// List returns a page of teams ordered by name
	List(ctx context.Context, page utils.PaginationParams) ([]models.Team, int64, error)

	// Update updates a team
	Update(ctx context.Context, team *models.Team) error

	// Delete detaches all members and removes the team
	Delete(ctx context.Context, id uint64) error
}
