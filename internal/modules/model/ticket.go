package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	SourceForm   = "form"
	SourceVoice  = "voice"
	SourceAIChat = "ai_chat"
)

// Statuses is the board column order.
var Statuses = []string{StatusNew, StatusInProgress, StatusResolved}

var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

type Ticket struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string     `gorm:"type:text;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Status      string     `gorm:"type:text;not null;default:'new';index" json:"status"`
	Priority    string     `gorm:"type:text;not null;default:'medium';index" json:"priority"`
	ProjectID   *uuid.UUID `gorm:"type:uuid;index" json:"project_id"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	AssigneeID  *uuid.UUID `gorm:"type:uuid;index" json:"assignee_id"`
	Source      string     `gorm:"type:text;not null;default:'form'" json:"source"`
	ArchivedAt  *time.Time `gorm:"index" json:"archived_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP;index:idx_ticket_created,priority:1" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Ticket <-> Profile
	Client   *Profile `gorm:"foreignKey:ClientID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"client,omitempty"`
	Assignee *Profile `gorm:"foreignKey:AssigneeID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"assignee,omitempty"`

	// Ticket <-> Activity
	Activities []Activity `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Ticket <-> Summary
	Summaries []Summary `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Ticket) TableName() string { return "tickets" }

func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func ValidSource(s string) bool {
	switch s {
	case SourceForm, SourceVoice, SourceAIChat:
		return true
	}
	return false
}
