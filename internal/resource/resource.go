// Package resource implements scoped, cached CRUD for any record type that
// carries a creator and an optional assignee.
package resource

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/events"
	"github.com/yukikurage/team-task-api/internal/query"
	"github.com/yukikurage/team-task-api/internal/utils"
	"gorm.io/gorm"
)

// Record is the capability a resource type must offer
type Record interface {
	query.Fielder
	ResourceID() uint64
	CreatorRef() uint64
	AssigneeRef() *uint64
	StampCreator(userID uint64)
}

// Store is the persistence a Service runs on. FindOne reports a miss with
// gorm.ErrRecordNotFound.
type Store[T Record] interface {
	Create(ctx context.Context, rec T) error
	Count(ctx context.Context, p query.Predicate) (int64, error)
	Find(ctx context.Context, p query.Predicate, page utils.PaginationParams, order string) ([]T, error)
	FindOne(ctx context.Context, p query.Predicate) (T, error)
	Save(ctx context.Context, rec T) error
	Delete(ctx context.Context, id uint64) (int64, error)
}

// Scoper resolves the records a caller may see
type Scoper interface {
	ResolveScope(ctx context.Context, caller access.Caller) (query.Predicate, error)
}

// Options names a resource and tunes its caching
type Options[T Record] struct {
	// Name prefixes event names, e.g. "task" gives "task:created"
	Name string
	// Label is used in messages, e.g. "Task not found"
	Label       string
	CachePrefix string
	IDColumn    string
	TTL         time.Duration
	// Present renders event payloads. The record itself is sent when nil.
	Present func(T) any
}

// ListQuery is a caller-supplied filter with its pagination
type ListQuery struct {
	Filter    query.Predicate
	FilterKey string
	Page      utils.PaginationParams
	Sort      string
}

// ListResult is one page of records
type ListResult[T Record] struct {
	Items      []T                      `json:"items"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// Service runs scoped CRUD for records of type T
type Service[T Record] struct {
	store  Store[T]
	scoper Scoper
	cache  *cache.Cache
	events events.Dispatcher
	opts   Options[T]
}

// NewService creates a Service for one resource type
func NewService[T Record](store Store[T], scoper Scoper, c *cache.Cache, d events.Dispatcher, opts Options[T]) *Service[T] {
	if opts.Label == "" {
		opts.Label = "Resource"
	}
	if opts.CachePrefix == "" {
		opts.CachePrefix = opts.Name
	}
	if opts.IDColumn == "" {
		opts.IDColumn = "id"
	}
	if opts.TTL <= 0 {
		opts.TTL = constants.DefaultCacheTTL
	}
	return &Service[T]{store: store, scoper: scoper, cache: c, events: d, opts: opts}
}

// Name returns the resource name used in events
func (s *Service[T]) Name() string { return s.opts.Name }

func (s *Service[T]) detailKey(id uint64) string {
	return s.opts.CachePrefix + ":" + strconv.FormatUint(id, 10)
}

func (s *Service[T]) listKey(view string, q ListQuery) string {
	return fmt.Sprintf("%s:list:%s:%s:p%d:l%d:s%s", s.opts.CachePrefix, view, q.FilterKey, q.Page.Page, q.Page.Limit, q.Sort)
}

func (s *Service[T]) byID(id uint64) query.Predicate {
	return query.Eq(s.opts.IDColumn, id)
}

func (s *Service[T]) present(rec T) any {
	if s.opts.Present == nil {
		return rec
	}
	return s.opts.Present(rec)
}

func (s *Service[T]) notFound() error {
	return apierrors.NotFound(s.opts.Label + " not found")
}

func (s *Service[T]) storeError(op string, err error) error {
	return apierrors.Internal(fmt.Errorf("failed to %s %s: %w", op, s.opts.Name, err))
}

// Create stamps the caller as creator, persists rec and returns it with its
// relations loaded
func (s *Service[T]) Create(ctx context.Context, caller access.Caller, rec T) (T, error) {
	var zero T
	rec.StampCreator(caller.ID)

	if err := s.store.Create(ctx, rec); err != nil {
		return zero, s.storeError("create", err)
	}

	created, err := s.store.FindOne(ctx, s.byID(rec.ResourceID()))
	if err != nil {
		return zero, s.storeError("load", err)
	}

	s.InvalidateAll(ctx)

	payload := s.present(created)
	out := []events.Event{events.Broadcast(s.opts.Name+":created", payload)}
	if assignee := created.AssigneeRef(); assignee != nil {
		out = append(out, events.ToUser(s.opts.Name+":assigned", *assignee, payload))
	}
	s.events.Emit(out...)

	return created, nil
}

// List returns the page of records inside the caller's scope that match the
// query filter
func (s *Service[T]) List(ctx context.Context, caller access.Caller, q ListQuery) (*ListResult[T], error) {
	scope, err := s.scoper.ResolveScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, caller.Key(), query.And(scope, q.Filter), q)
}

// Query returns a cached page of records matching p. view must identify
// every input p was derived from besides the query filter.
func (s *Service[T]) Query(ctx context.Context, view string, p query.Predicate, q ListQuery) (*ListResult[T], error) {
	key := s.listKey(view, q)

	var cached ListResult[T]
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	total, err := s.store.Count(ctx, p)
	if err != nil {
		return nil, s.storeError("count", err)
	}

	items, err := s.store.Find(ctx, p, q.Page, q.Sort)
	if err != nil {
		return nil, s.storeError("list", err)
	}

	result := &ListResult[T]{
		Items:      items,
		Pagination: utils.NewPaginationResponse(q.Page, total),
	}
	s.cache.Set(ctx, key, result, s.opts.TTL)
	return result, nil
}

// Get returns the record with id if it lies inside the caller's scope. A
// cached copy is checked against the scope before it is served.
func (s *Service[T]) Get(ctx context.Context, caller access.Caller, id uint64) (T, error) {
	var zero T
	scope, err := s.scoper.ResolveScope(ctx, caller)
	if err != nil {
		return zero, err
	}

	key := s.detailKey(id)
	var cached T
	if s.cache.Get(ctx, key, &cached) {
		if !query.Match(scope, cached) {
			return zero, s.notFound()
		}
		return cached, nil
	}

	rec, err := s.store.FindOne(ctx, query.And(scope, s.byID(id)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, s.notFound()
		}
		return zero, s.storeError("load", err)
	}

	s.cache.Set(ctx, key, rec, s.opts.TTL)
	return rec, nil
}

// Load fetches a record by id without applying any scope
func (s *Service[T]) Load(ctx context.Context, id uint64) (T, error) {
	var zero T
	rec, err := s.store.FindOne(ctx, s.byID(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, s.notFound()
		}
		return zero, s.storeError("load", err)
	}
	return rec, nil
}

// Apply loads a record, runs patch on it and saves it. It has no cache or
// event side effects; callers that use it directly own those.
func (s *Service[T]) Apply(ctx context.Context, id uint64, patch func(T) error) (T, error) {
	var zero T
	rec, err := s.Load(ctx, id)
	if err != nil {
		return zero, err
	}

	if err := patch(rec); err != nil {
		return zero, err
	}

	if err := s.store.Save(ctx, rec); err != nil {
		return zero, s.storeError("update", err)
	}

	// reload so replaced references are expanded
	updated, err := s.store.FindOne(ctx, s.byID(id))
	if err != nil {
		return zero, s.storeError("load", err)
	}
	return updated, nil
}

// Update patches the record with id. Access must be checked by the caller.
func (s *Service[T]) Update(ctx context.Context, id uint64, patch func(T) error) (T, error) {
	updated, err := s.Apply(ctx, id, patch)
	if err != nil {
		return updated, err
	}

	s.invalidate(ctx, id)
	s.Notify(s.opts.Name+":updated", updated)
	return updated, nil
}

// Delete permanently removes the record with id. Access must be checked by
// the caller.
func (s *Service[T]) Delete(ctx context.Context, id uint64) error {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return err
	}

	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return s.storeError("delete", err)
	}
	if n == 0 {
		return s.notFound()
	}

	s.invalidate(ctx, id)
	s.events.Emit(events.FanOut(s.opts.Name+":deleted", map[string]uint64{"id": id}, s.rooms(rec)...)...)
	return nil
}

// Notify emits name to every client, the record's creator and its assignee
func (s *Service[T]) Notify(name string, rec T) {
	s.events.Emit(events.FanOut(name, s.present(rec), s.rooms(rec)...)...)
}

// InvalidateAll drops every cached entry of the resource
func (s *Service[T]) InvalidateAll(ctx context.Context) {
	s.cache.DeletePattern(ctx, s.opts.CachePrefix+":*")
}

func (s *Service[T]) invalidate(ctx context.Context, id uint64) {
	s.cache.Delete(ctx, s.detailKey(id))
	s.cache.DeletePattern(ctx, s.opts.CachePrefix+":list:*")
}

func (s *Service[T]) rooms(rec T) []uint64 {
	ids := []uint64{}
	if assignee := rec.AssigneeRef(); assignee != nil {
		ids = append(ids, *assignee)
	}
	return append(ids, rec.CreatorRef())
}
