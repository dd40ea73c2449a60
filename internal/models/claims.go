package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// Moderator roles.
const (
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Moderator is an operator account for the release, rule-reload and
// feedback surfaces.
type Moderator struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	Role         string `gorm:"default:'moderator'"`
	TokenVersion int    `gorm:"default:1"`
	LastLoginAt  time.Time
}

// ModeratorClaims are the JWT claims carried by moderator tokens.
type ModeratorClaims struct {
	jwt.RegisteredClaims
	ModeratorID  uint   `json:"moderator_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// IsAdmin reports whether the claims carry the admin role.
func (c *ModeratorClaims) IsAdmin() bool { return c.Role == RoleAdmin }
