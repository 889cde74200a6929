package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MemberRoleAdmin    = "admin"
	MemberRoleEmployee = "employee"
	MemberRoleClient   = "client"
	MemberRoleViewer   = "viewer"
)

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusRejected = "rejected"
)

type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Project <-> ProjectMember
	Members []ProjectMember `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Project <-> PendingInvite
	Invites []PendingInvite `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Project <-> Ticket
	Tickets []Ticket `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Project) TableName() string { return "projects" }

type ProjectMember struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_project_member" json:"project_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_project_member;index" json:"user_id"`
	Role      string    `gorm:"type:text;not null;default:'viewer'" json:"role"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// ProjectMember <-> Profile
	Profile *Profile `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"profile,omitempty"`
}

func (ProjectMember) TableName() string { return "project_members" }

func ValidMemberRole(r string) bool {
	switch r {
	case MemberRoleAdmin, MemberRoleEmployee, MemberRoleClient, MemberRoleViewer:
		return true
	}
	return false
}

// PendingInvite moves only from pending to accepted or rejected.
type PendingInvite struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Email     string    `gorm:"type:text;not null;index" json:"email"`
	Role      string    `gorm:"type:text;not null" json:"role"`
	Status    string    `gorm:"type:text;not null;default:'pending';index" json:"status"`
	InvitedBy uuid.UUID `gorm:"type:uuid;not null" json:"invited_by"`

	TokenHMAC    string `gorm:"type:char(64);uniqueIndex" json:"-"`
	TokenHashPHC string `gorm:"type:text" json:"-"`

	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"project,omitempty"`
}

func (PendingInvite) TableName() string { return "pending_invites" }

// OpenInviteIndex allows one pending invite per project and address.
const OpenInviteIndex = "idx_pending_invites_open"
