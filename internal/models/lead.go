package models

// Lead is an external CRM contact record. The core never mutates it; it is
// referenced by Meeting for context only.
type Lead struct {
	BaseModel
	CRMID string `gorm:"uniqueIndex;not null" json:"crm_id"`

	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}
