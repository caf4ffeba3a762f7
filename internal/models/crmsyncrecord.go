package models

import (
	"time"

	"github.com/google/uuid"
)

// CRMSystem is one of the three pluggable CRM sync targets.
type CRMSystem string

const (
	CRMSalesforce CRMSystem = "salesforce"
	CRMHubSpot    CRMSystem = "hubspot"
	CRMCreatio    CRMSystem = "creatio"
)

// SyncStatus is the per-(validation_session, crm_system) sync outcome.
type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncInProgress SyncStatus = "in_progress"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// CRMSyncRecord tracks one idempotent write attempt to a target CRM. At most
// one record per (ValidationSessionID, CRMSystem) may reach completed.
type CRMSyncRecord struct {
	BaseModel
	ValidationSessionID uuid.UUID  `gorm:"type:uuid;not null;index:idx_validation_crm,unique" json:"validation_session_id"`
	CRMSystem           CRMSystem  `gorm:"not null;index:idx_validation_crm,unique" json:"crm_system"`
	SyncStatus          SyncStatus `gorm:"default:pending" json:"sync_status"`

	CRMRecordID string     `json:"crm_record_id,omitempty"`
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	SyncedAt    *time.Time `json:"synced_at,omitempty"`
}

// IdempotencyToken derives the stable dedupe key adapters use to avoid
// double-writing a CRM record across retries.
func (r *CRMSyncRecord) IdempotencyToken() string {
	return r.ValidationSessionID.String() + ":" + string(r.CRMSystem)
}
