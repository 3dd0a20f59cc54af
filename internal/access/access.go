// Package access derives the task visibility predicate and assignment rules
// from a caller's role and team.
package access

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/query"
	"gorm.io/gorm"
)

// Caller is the authenticated identity a request acts as
type Caller struct {
	ID     uint64
	Role   models.Role
	TeamID *uint64
}

// CallerFromUser builds a Caller from a loaded user
func CallerFromUser(u *models.User) Caller {
	return Caller{ID: u.ID, Role: u.Role, TeamID: u.TeamID}
}

// IsAdmin reports whether the caller is unrestricted
func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

// IsManager reports whether the caller manages a team
func (c Caller) IsManager() bool { return c.Role == models.RoleManager }

// Key identifies the caller's visibility for cache keys
func (c Caller) Key() string {
	if c.IsAdmin() {
		return "admin"
	}
	return string(c.Role) + "-" + strconv.FormatUint(c.ID, 10)
}

// UserLookup is the part of the user store the resolver needs
type UserLookup interface {
	FindByID(ctx context.Context, id uint64) (*models.User, error)
	TeamMemberIDs(ctx context.Context, teamID uint64) ([]uint64, error)
}

// Resolver computes scope predicates and assignment permissions
type Resolver struct {
	users UserLookup
}

func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// TeamMemberIDs lists the members of the caller's team. A caller without a
// team has no team members.
func (r *Resolver) TeamMemberIDs(ctx context.Context, teamID *uint64) ([]uint64, error) {
	if teamID == nil {
		return nil, nil
	}
	ids, err := r.users.TeamMemberIDs(ctx, *teamID)
	if err != nil {
		return nil, apierrors.Internal(fmt.Errorf("failed to load team members: %w", err))
	}
	return ids, nil
}

// ResolveScope returns the predicate restricting the tasks a caller may see:
// everything for admins, own or team-assigned tasks for managers and own or
// assigned tasks for users
func (r *Resolver) ResolveScope(ctx context.Context, caller Caller) (query.Predicate, error) {
	switch caller.Role {
	case models.RoleAdmin:
		return query.All(), nil
	case models.RoleManager:
		members, err := r.TeamMemberIDs(ctx, caller.TeamID)
		if err != nil {
			return nil, err
		}
		return query.Or(
			query.Eq(models.TaskColumnCreatedBy, caller.ID),
			query.In(models.TaskColumnAssignedTo, members),
		), nil
	default:
		return query.Or(
			query.Eq(models.TaskColumnCreatedBy, caller.ID),
			query.Eq(models.TaskColumnAssignedTo, caller.ID),
		), nil
	}
}

// CanAssign checks that caller may assign a task to assigneeID and returns
// the assignee
func (r *Resolver) CanAssign(ctx context.Context, caller Caller, assigneeID uint64) (*models.User, error) {
	assignee, err := r.users.FindByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("User to assign not found")
		}
		return nil, apierrors.Internal(fmt.Errorf("failed to load assignee: %w", err))
	}

	switch caller.Role {
	case models.RoleAdmin:
		return assignee, nil
	case models.RoleManager:
		if !assignee.InTeam(caller.TeamID) {
			return nil, apierrors.Forbidden("You can only assign tasks to members of your team.")
		}
		return assignee, nil
	default:
		if assignee.ID != caller.ID {
			return nil, apierrors.Forbidden("You can only assign tasks to yourself.")
		}
		return assignee, nil
	}
}

// CanAccess checks that rec lies inside the caller's scope
func (r *Resolver) CanAccess(ctx context.Context, caller Caller, rec query.Fielder) error {
	scope, err := r.ResolveScope(ctx, caller)
	if err != nil {
		return err
	}
	if !query.Match(scope, rec) {
		return apierrors.Forbidden("Access denied. You do not have permission to access this task.")
	}
	return nil
}
