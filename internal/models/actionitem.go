package models

import "github.com/google/uuid"

// Priority is the urgency grade assigned to an ActionItem.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ActionItem is grouped under exactly one DraftSummary.
type ActionItem struct {
	BaseModel
	DraftSummaryID uuid.UUID `gorm:"type:uuid;not null;index" json:"draft_summary_id"`

	Description string   `gorm:"type:text;not null" json:"description"`
	Assignee    string   `json:"assignee,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	Priority    Priority `gorm:"default:medium" json:"priority"`
	Confidence  float64  `json:"confidence"`
	SourceText  string   `gorm:"type:text" json:"source_text"`
}
