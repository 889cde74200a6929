package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleClient   = "client"
)

const (
	DigestDaily  = "daily"
	DigestWeekly = "weekly"
)

// Profile mirrors a Supabase auth user; ID is the auth user id.
type Profile struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string     `gorm:"type:text;not null;uniqueIndex" json:"email"`
	FullName        string     `gorm:"type:text;not null;default:''" json:"full_name"`
	Role            string     `gorm:"type:text;not null;default:'client';index" json:"role"`
	DigestEnabled   bool       `gorm:"not null;default:false" json:"digest_enabled"`
	DigestFrequency string     `gorm:"type:text;not null;default:'daily'" json:"digest_frequency"`
	LastDigestAt    *time.Time `json:"last_digest_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) IsStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleEmployee
}

func ValidProfileRole(r string) bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleClient:
		return true
	}
	return false
}

// DigestDue reports whether a digest should go out at now.
func (p *Profile) DigestDue(now time.Time) bool {
	if !p.DigestEnabled {
		return false
	}
	if p.LastDigestAt == nil {
		return true
	}
	interval := 24 * time.Hour
	if p.DigestFrequency == DigestWeekly {
		interval = 7 * 24 * time.Hour
	}
	return !now.Before(p.LastDigestAt.Add(interval))
}
