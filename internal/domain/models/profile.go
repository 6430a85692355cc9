package models

import "time"

// Role gates which pages and mutations a user may reach.
type Role string

const (
	RoleManager  Role = "Manager"
	RoleWorker   Role = "Worker"
	RoleSalesRep Role = "Sales Rep"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleWorker, RoleSalesRep:
		return true
	}
	return false
}

// UserStatus marks whether a profile may sign in.
type UserStatus string

const (
	StatusActive   UserStatus = "Active"
	StatusInactive UserStatus = "Inactive"
)

// Profile is the application-side view of an authenticated user.
type Profile struct {
	ID           string     `json:"id" gorm:"column:id;primaryKey"`
	Email        string     `json:"email" gorm:"column:email"`
	FullName     string     `json:"full_name" gorm:"column:full_name"`
	Role         Role       `json:"role" gorm:"column:role"`
	AssignedShed string     `json:"assigned_shed" gorm:"column:assigned_shed"`
	Status       UserStatus `json:"status" gorm:"column:status"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at"`
}

func (Profile) TableName() string { return TableProfiles }

// DisplayName is the name stamped on records the user creates.
func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
