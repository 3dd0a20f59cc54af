package repository

import (
	"context"

	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/utils"
	"gorm.io/gorm"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) *GormTeamRepository {
	return &GormTeamRepository{db: db}
}

// Create creates a new team
func (r *GormTeamRepository) Create(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Omit("Members").Create(team).Error
}

// FindByID finds a team, optionally with its members
func (r *GormTeamRepository) FindByID(ctx context.Context, id uint64, withMembers bool) (*models.Team, error) {
	var team models.Team
	q := r.db.WithContext(ctx)
	if withMembers {
		q = q.Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("users.id")
		})
	}
	if err := q.First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// FindByName finds a team by its unique name
func (r *GormTeamRepository) FindByName(ctx context.Context, name string) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// List returns a page of teams ordered by name
func (r *GormTeamRepository) List(ctx context.Context, page utils.PaginationParams) ([]models.Team, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Team{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	teams := []models.Team{}
	err := r.db.WithContext(ctx).
		Order("name").
		Scopes(database.Paginate(page)).
		Find(&teams).Error
	return teams, total, err
}

// Update updates a team
func (r *GormTeamRepository) Update(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Omit("Members").Save(team).Error
}

// Delete detaches all members and removes the team
func (r *GormTeamRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("team_id = ?", id).Update("team_id", nil).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Team{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
