package repository

import (
	"context"
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Team").Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email address
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindConflicting finds another user holding the email or username
func (r *GormUserRepository) FindConflicting(ctx context.Context, email, username string, excludeID uint64) (*models.User, error) {
	var user models.User
	q := r.db.WithContext(ctx).Where("(email = ? OR username = ?)", email, username)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update writes the user's profile columns
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Model(user).
		Select("username", "email", "role", "team_id").
		Updates(user).Error
}

// TouchLastLogin stamps the last successful login
func (r *GormUserRepository) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}

// TeamMemberIDs lists the ids of users in a team
func (r *GormUserRepository) TeamMemberIDs(ctx context.Context, teamID uint64) ([]uint64, error) {
	ids := []uint64{}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("team_id = ?", teamID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// SetTeam moves a user into a team, or out of any team when teamID is nil
func (r *GormUserRepository) SetTeam(ctx context.Context, userID uint64, teamID *uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("team_id", teamID).Error
}
