package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ValidationStatus is the forward progression of a human review session.
type ValidationStatus string

const (
	ValidationPending    ValidationStatus = "pending"
	ValidationInProgress ValidationStatus = "in_progress"
	ValidationCompleted  ValidationStatus = "completed"
	ValidationExpired    ValidationStatus = "expired"
)

// QuestionType distinguishes the three review categories §4.5 requires.
type QuestionType string

const (
	QuestionConfirmation   QuestionType = "confirmation"
	QuestionActionItem     QuestionType = "action_item"
	QuestionCRMApproval    QuestionType = "crm_approval"
)

// Question is one review item generated for a validator.
type Question struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Prompt   string       `json:"prompt"`
	RefID    string       `json:"ref_id,omitempty"` // action item id or CRM system name, when applicable
	Required bool         `json:"required"`
}

// Response is a validator's answer to one Question.
type Response struct {
	QuestionID string `json:"question_id"`
	Approved   bool   `json:"approved"`
	EditedText string `json:"edited_text,omitempty"`
}

// ValidationSession gates CRM sync: no CRMSyncRecord may exist for a draft
// unless a ValidationSession reaches status=completed.
type ValidationSession struct {
	BaseModel
	DraftSummaryID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"draft_summary_id"`
	ValidatorIdentity string           `gorm:"not null" json:"validator_identity"`
	Status            ValidationStatus `gorm:"default:pending" json:"status"`

	Questions JSONColumn[[]Question]          `gorm:"type:jsonb" json:"questions"`
	Responses JSONColumn[map[string]Response] `gorm:"type:jsonb" json:"responses"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`

	ValidatedSummary   string                                 `gorm:"type:text" json:"validated_summary,omitempty"`
	ApprovedCRMUpdates JSONColumn[map[string]CRMStageUpdate] `gorm:"type:jsonb" json:"approved_crm_updates"`

	// Relation, loaded manually by the repository layer.
	CRMSyncRecords []CRMSyncRecord `gorm:"-" json:"crm_sync_records,omitempty"`
}

// BeforeDelete cascades to the CRMSyncRecords this validation session owns
// exclusively.
func (v *ValidationSession) BeforeDelete(tx *gorm.DB) error {
	return tx.Where("validation_session_id = ?", v.ID).Delete(&CRMSyncRecord{}).Error
}
