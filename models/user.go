package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// User represents an authenticated account, keyed by the token subject
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Nickname  string    `gorm:"size:100" json:"nickname"`
	Role      Role      `gorm:"not null;size:20;default:user" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
