package dto

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
)

// UserSummary is the expanded form of a user referenced by another record
type UserSummary struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	TeamID    *uint64     `json:"teamId"`
	LastLogin *time.Time  `json:"lastLogin,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username string      `json:"username" binding:"required,username"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,strongpassword"`
	Role     models.Role `json:"role" binding:"omitempty,oneof=admin manager user"`
	TeamID   *uint64     `json:"teamId"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the body of PUT /api/auth/profile
type UpdateProfileRequest struct {
	Username *string `json:"username" binding:"omitempty,username"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	User UserDTO `json:"user"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// Conversion functions

// ToUserSummary converts a loaded relation, returning nil when it is absent
func ToUserSummary(user *models.User) *UserSummary {
	if user == nil || user.ID == 0 {
		return nil
	}
	return &UserSummary{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		TeamID:    user.TeamID,
		LastLogin: user.LastLogin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
