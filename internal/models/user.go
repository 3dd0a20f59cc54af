package models

import (
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID           uint64     `gorm:"primarykey" json:"id"`
	Username     string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	TeamID       *uint64    `gorm:"index" json:"teamId"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	// Relations
	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

// InTeam reports whether the user belongs to the given team
func (u *User) InTeam(teamID *uint64) bool {
	return u.TeamID != nil && teamID != nil && *u.TeamID == *teamID
}
