package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CRMStageUpdate is a single CRM system's suggested stage/field mutation,
// produced by the Summary Generator and keyed by CRM system name
// ("salesforce", "hubspot", "creatio") in DraftSummary.SuggestedCRMUpdates.
type CRMStageUpdate struct {
	Stage string `json:"stage"`
}

// DraftSummary is one-to-one with a CallBotSession, created exactly once on
// successful session end and immutable after validation completes.
type DraftSummary struct {
	BaseModel
	CallBotSessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"call_bot_session_id"`

	SummaryText          string                                  `gorm:"type:text" json:"summary_text"`
	KeyPoints            StringSlice                             `gorm:"type:jsonb" json:"key_points"`
	Decisions            StringSlice                             `gorm:"type:jsonb" json:"decisions"`
	NextSteps            StringSlice                             `gorm:"type:jsonb" json:"next_steps"`
	SuggestedCRMUpdates  JSONColumn[map[string]CRMStageUpdate]    `gorm:"type:jsonb" json:"suggested_crm_updates"`
	ConfidenceScore      float64                                 `json:"confidence_score"`
	ProcessingTimeMillis int64                                   `json:"processing_time_ms"`

	// Relations, loaded manually by the repository layer.
	ActionItems      []ActionItem      `gorm:"-" json:"action_items,omitempty"`
	ValidationSession *ValidationSession `gorm:"-" json:"validation_session,omitempty"`

	ValidatedAt *time.Time `json:"validated_at,omitempty"`
}

// BeforeDelete cascades to the ValidationSession and ActionItems this draft
// owns exclusively.
func (d *DraftSummary) BeforeDelete(tx *gorm.DB) error {
	if err := tx.Where("draft_summary_id = ?", d.ID).Delete(&ActionItem{}).Error; err != nil {
		return err
	}
	var validation ValidationSession
	if err := tx.Where("draft_summary_id = ?", d.ID).First(&validation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	return tx.Delete(&validation).Error
}
