package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/query"
	"github.com/yukikurage/team-task-api/internal/repository"
)

// AnalyticsService computes read-only task rollups
type AnalyticsService struct {
	tasks    repository.TaskRepository
	resolver *access.Resolver
	cache    *cache.Cache
	ttl      time.Duration
	now      func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(tasks repository.TaskRepository, resolver *access.Resolver, c *cache.Cache, ttl time.Duration) *AnalyticsService {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	return &AnalyticsService{tasks: tasks, resolver: resolver, cache: c, ttl: ttl, now: time.Now}
}

// completionRate renders done/total as a percentage with two decimals
func completionRate(done, total int64) string {
	if total == 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(done)/float64(total)*100, 'f', 2, 64)
}

func optionalID(id *uint64) string {
	if id == nil {
		return "all"
	}
	return strconv.FormatUint(*id, 10)
}

func analyticsKey(parts ...string) string {
	key := constants.AnalyticsCacheKey
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// rollup holds the counts shared by every stats view
type rollup struct {
	byStatus map[models.TaskStatus]int64
	overdue  int64
}

func (r rollup) total() int64 {
	var n int64
	for _, c := range r.byStatus {
		n += c
	}
	return n
}

func (r rollup) open() int64 {
	return r.byStatus[models.TaskStatusPending] + r.byStatus[models.TaskStatusInProgress]
}

// count runs the status breakdown and the overdue count of p concurrently
func (s *AnalyticsService) count(ctx context.Context, p query.Predicate) (rollup, error) {
	var r rollup
	overdue := query.And(
		p,
		query.In(models.TaskColumnStatus, models.OpenTaskStatuses),
		query.Lt(models.TaskColumnDueDate, s.now()),
	)

	g := pool.New().WithContext(ctx).WithCancelOnError()
	g.Go(func(ctx context.Context) error {
		counts, err := s.tasks.CountByStatus(ctx, p)
		r.byStatus = counts
		return err
	})
	g.Go(func(ctx context.Context) error {
		n, err := s.tasks.Count(ctx, overdue)
		r.overdue = n
		return err
	})

	if err := g.Wait(); err != nil {
		return rollup{}, apierrors.Internal(fmt.Errorf("failed to compute task stats: %w", err))
	}
	return r, nil
}

// TaskStats summarizes the tasks inside the caller's scope, optionally
// narrowed to one user's tasks or to tasks assigned within one team
func (s *AnalyticsService) TaskStats(ctx context.Context, caller access.Caller, userID, teamID *uint64) (*dto.TaskStats, error) {
	key := analyticsKey("stats", caller.Key(), optionalID(userID), optionalID(teamID))

	var cached dto.TaskStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	scope, err := s.resolver.ResolveScope(ctx, caller)
	if err != nil {
		return nil, err
	}

	filters := []query.Predicate{scope}
	if userID != nil {
		filters = append(filters, query.Or(
			query.Eq(models.TaskColumnCreatedBy, *userID),
			query.Eq(models.TaskColumnAssignedTo, *userID),
		))
	}
	if teamID != nil {
		members, err := s.resolver.TeamMemberIDs(ctx, teamID)
		if err != nil {
			return nil, err
		}
		filters = append(filters, query.In(models.TaskColumnAssignedTo, members))
	}

	r, err := s.count(ctx, query.And(filters...))
	if err != nil {
		return nil, err
	}

	total := r.total()
	stats := &dto.TaskStats{
		Total: total,
		ByStatus: dto.StatusCounts{
			Pending:    r.byStatus[models.TaskStatusPending],
			InProgress: r.byStatus[models.TaskStatusInProgress],
			Completed:  r.byStatus[models.TaskStatusCompleted],
			Cancelled:  r.byStatus[models.TaskStatusCancelled],
		},
		Overdue:        r.overdue,
		CompletionRate: completionRate(r.byStatus[models.TaskStatusCompleted], total),
	}

	s.cache.Set(ctx, key, stats, s.ttl)
	return stats, nil
}

// UserStats summarizes the tasks a user created and is assigned. A plain
// user may only read their own stats.
func (s *AnalyticsService) UserStats(ctx context.Context, caller access.Caller, targetID *uint64) (*dto.UserStats, error) {
	target := caller.ID
	if targetID != nil {
		target = *targetID
	}
	if caller.Role == models.RoleUser && target != caller.ID {
		return nil, ErrUserStatsForbidden
	}

	key := analyticsKey("user", strconv.FormatUint(target, 10))

	var cached dto.UserStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	var created int64
	var assigned rollup

	g := pool.New().WithContext(ctx).WithCancelOnError()
	g.Go(func(ctx context.Context) error {
		n, err := s.tasks.Count(ctx, query.Eq(models.TaskColumnCreatedBy, target))
		created = n
		return err
	})
	g.Go(func(ctx context.Context) error {
		r, err := s.count(ctx, query.Eq(models.TaskColumnAssignedTo, target))
		assigned = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apierrors.Internal(fmt.Errorf("failed to compute user stats: %w", err))
	}

	total := assigned.total()
	stats := &dto.UserStats{
		Created:        created,
		Assigned:       total,
		Completed:      assigned.byStatus[models.TaskStatusCompleted],
		Pending:        assigned.open(),
		Overdue:        assigned.overdue,
		CompletionRate: completionRate(assigned.byStatus[models.TaskStatusCompleted], total),
	}

	s.cache.Set(ctx, key, stats, s.ttl)
	return stats, nil
}

// TeamStats summarizes the tasks assigned to a team's members. teamID
// defaults to the caller's own team.
func (s *AnalyticsService) TeamStats(ctx context.Context, caller access.Caller, teamID *uint64) (*dto.TeamStats, error) {
	if !caller.IsAdmin() && !caller.IsManager() {
		return nil, ErrTeamStatsForbidden
	}

	target := teamID
	if target == nil {
		target = caller.TeamID
	}
	if target == nil {
		return nil, ErrTeamIDRequired
	}

	key := analyticsKey("team", strconv.FormatUint(*target, 10))

	var cached dto.TeamStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	members, err := s.resolver.TeamMemberIDs(ctx, target)
	if err != nil {
		return nil, err
	}

	r, err := s.count(ctx, query.In(models.TaskColumnAssignedTo, members))
	if err != nil {
		return nil, err
	}

	total := r.total()
	stats := &dto.TeamStats{
		TeamID:         *target,
		TeamSize:       len(members),
		Total:          total,
		Completed:      r.byStatus[models.TaskStatusCompleted],
		Pending:        r.open(),
		Overdue:        r.overdue,
		CompletionRate: completionRate(r.byStatus[models.TaskStatusCompleted], total),
	}

	s.cache.Set(ctx, key, stats, s.ttl)
	return stats, nil
}
