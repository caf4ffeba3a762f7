package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Platform identifies the video-conferencing vendor a CallBotSession joined.
type Platform string

const (
	PlatformMeet  Platform = "meet"
	PlatformTeams Platform = "teams"
	PlatformZoom  Platform = "zoom"
)

// ConnectionStatus is the bot-connection half of CallBotSession state; it is
// distinct from (and reported alongside) the Session Manager's own
// lifecycle state enum.
type ConnectionStatus string

const (
	ConnConnecting   ConnectionStatus = "connecting"
	ConnConnected    ConnectionStatus = "connected"
	ConnTranscribing ConnectionStatus = "transcribing"
	ConnReconnecting ConnectionStatus = "reconnecting"
	ConnDisconnected ConnectionStatus = "disconnected"
	ConnError        ConnectionStatus = "error"
)

// AudioQuality is the Quality Monitor's rolled-up confidence grade.
type AudioQuality string

const (
	QualityExcellent AudioQuality = "excellent"
	QualityGood      AudioQuality = "good"
	QualityFair      AudioQuality = "fair"
	QualityPoor      AudioQuality = "poor"
	QualityUnusable  AudioQuality = "unusable"
)

// CallBotSession is one-to-one with a Meeting that actually runs a bot.
type CallBotSession struct {
	BaseModel
	MeetingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"meeting_id"`

	BotSessionID string   `gorm:"index" json:"bot_session_id"`
	Platform     Platform `gorm:"not null" json:"platform"`

	JoinTime  time.Time  `json:"join_time"`
	LeaveTime *time.Time `json:"leave_time,omitempty"`

	ConnectionStatus  ConnectionStatus `gorm:"default:connecting" json:"connection_status"`
	RawTranscript     string           `gorm:"type:text" json:"raw_transcript"`
	SpeakerMapping    StringMap        `gorm:"type:jsonb" json:"speaker_mapping"`
	AudioQuality      AudioQuality     `json:"audio_quality,omitempty"`
	ReconnectAttempts int              `gorm:"default:0" json:"reconnect_attempts"`
	ErrorMessage      string           `json:"error_message,omitempty"`

	// Relation, loaded manually by the repository layer.
	DraftSummary *DraftSummary `gorm:"-" json:"draft_summary,omitempty"`
}

// BeforeDelete cascades to the DraftSummary this session owns exclusively.
func (s *CallBotSession) BeforeDelete(tx *gorm.DB) error {
	var draft DraftSummary
	if err := tx.Where("call_bot_session_id = ?", s.ID).First(&draft).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	return tx.Delete(&draft).Error
}
