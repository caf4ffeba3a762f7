package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MeetingStatus is the forward-only lifecycle of a scheduled meeting.
type MeetingStatus string

const (
	MeetingScheduled  MeetingStatus = "scheduled"
	MeetingInProgress MeetingStatus = "in_progress"
	MeetingCompleted  MeetingStatus = "completed"
	MeetingFailed     MeetingStatus = "failed"
)

// Meeting is a scheduled calendar event created by an external ingest layer.
// The core only ever moves Status forward; completed/failed are terminal.
type Meeting struct {
	BaseModel
	CalendarEventID string    `gorm:"uniqueIndex;not null" json:"calendar_event_id"`
	LeadID          *uuid.UUID `gorm:"type:uuid;index" json:"lead_id,omitempty"`

	Title     string        `json:"title"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Attendees StringSlice   `gorm:"type:jsonb" json:"attendees"`
	Status    MeetingStatus `gorm:"default:scheduled" json:"status"`

	// Relation, loaded manually by the repository layer.
	CallBotSession *CallBotSession `gorm:"-" json:"call_bot_session,omitempty"`
}

// BeforeDelete cascades to the CallBotSession this meeting owns exclusively.
func (m *Meeting) BeforeDelete(tx *gorm.DB) error {
	var session CallBotSession
	if err := tx.Where("meeting_id = ?", m.ID).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	return tx.Delete(&session).Error
}
