package repository

import (
	"context"

	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/query"
	"github.com/yukikurage/team-task-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements predicate-driven CRUD for any model M
type GormStore[M any] struct {
	db      *gorm.DB
	preload []string
}

// NewGormStore creates a store that expands the given relations on reads
func NewGormStore[M any](db *gorm.DB, preload ...string) *GormStore[M] {
	return &GormStore[M]{db: db, preload: preload}
}

func (s *GormStore[M]) reads(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	for _, p := range s.preload {
		q = q.Preload(p)
	}
	return q
}

// Create inserts rec without upserting its relations
func (s *GormStore[M]) Create(ctx context.Context, rec *M) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error
}

// Count returns the number of rows matching p
func (s *GormStore[M]) Count(ctx context.Context, p query.Predicate) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(new(M)).Scopes(query.Scope(p)).Count(&total).Error
	return total, err
}

// Find returns one page of rows matching p
func (s *GormStore[M]) Find(ctx context.Context, p query.Predicate, page utils.PaginationParams, order string) ([]*M, error) {
	rows := []*M{}
	err := s.reads(ctx).
		Scopes(query.Scope(p), database.Sorted(order), database.Paginate(page)).
		Find(&rows).Error
	return rows, err
}

// FindOne returns the first row matching p or gorm.ErrRecordNotFound
func (s *GormStore[M]) FindOne(ctx context.Context, p query.Predicate) (*M, error) {
	rec := new(M)
	if err := s.reads(ctx).Scopes(query.Scope(p)).Take(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// Save writes every column of rec without upserting its relations
func (s *GormStore[M]) Save(ctx context.Context, rec *M) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(rec).Error
}

// Delete removes the row with the given primary key
func (s *GormStore[M]) Delete(ctx context.Context, id uint64) (int64, error) {
	result := s.db.WithContext(ctx).Delete(new(M), id)
	return result.RowsAffected, result.Error
}
