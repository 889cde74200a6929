package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActivityComment = "comment"
	ActivityAudio   = "audio"
	ActivityVideo   = "video"
	ActivityScreen  = "screen"
	ActivityAIChat  = "ai_chat"
)

// metadata keys
const (
	MetaSessionID  = "session_id"
	MetaObjectKey  = "object_key"
	MetaMIME       = "mime"
	MetaSize       = "size_b"
	MetaMessages   = "messages"
	MetaTranscript = "transcript"
)

// Activity is inserted or deleted, never updated.
type Activity struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TicketID  uuid.UUID         `gorm:"type:uuid;not null;index:idx_activity_ticket_created,priority:1" json:"ticket_id"`
	Type      string            `gorm:"type:text;not null" json:"type"`
	Content   *string           `gorm:"type:text" json:"content"`
	MediaURL  *string           `gorm:"type:text" json:"media_url"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"metadata"`
	CreatedBy uuid.UUID         `gorm:"type:uuid;not null" json:"created_by"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP;index:idx_activity_ticket_created,priority:2" json:"created_at"`

	Ticket *Ticket `gorm:"foreignKey:TicketID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Activity) TableName() string { return "activities" }

func ValidActivityType(t string) bool {
	switch t {
	case ActivityComment, ActivityAudio, ActivityVideo, ActivityScreen, ActivityAIChat:
		return true
	}
	return false
}

// IsMedia reports whether the activity type carries a recording.
func IsMedia(t string) bool {
	return t == ActivityAudio || t == ActivityVideo || t == ActivityScreen
}

// Summary is append-only.
type Summary struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TicketID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"ticket_id"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	CreatorRole string     `gorm:"type:text;not null" json:"creator_role"`
	SessionID   *uuid.UUID `gorm:"type:uuid;index" json:"session_id"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Ticket *Ticket `gorm:"foreignKey:TicketID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Summary) TableName() string { return "summaries" }
