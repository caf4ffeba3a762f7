// Package repository wraps *gorm.DB with one struct per domain entity.
// Relations are never GORM associations; each repository loads them
// explicitly following the ownership graph in SPEC §3, and deletes rely on
// the BeforeDelete hooks declared alongside each model for cascade behavior.
package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/meeting-intelligence/internal/models"
)

// Repositories aggregates one repository per persisted entity.
type Repositories struct {
	Lead              *LeadRepository
	Meeting           *MeetingRepository
	CallBotSession    *CallBotSessionRepository
	DraftSummary      *DraftSummaryRepository
	ActionItem        *ActionItemRepository
	ValidationSession *ValidationSessionRepository
	CRMSyncRecord     *CRMSyncRecordRepository
}

// NewRepositories wires all per-entity repositories against a shared DB
// handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Lead:              NewLeadRepository(db),
		Meeting:           NewMeetingRepository(db),
		CallBotSession:    NewCallBotSessionRepository(db),
		DraftSummary:      NewDraftSummaryRepository(db),
		ActionItem:        NewActionItemRepository(db),
		ValidationSession: NewValidationSessionRepository(db),
		CRMSyncRecord:     NewCRMSyncRecordRepository(db),
	}
}

// ==================== Lead Repository ====================

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(lead *models.Lead) error {
	return r.db.Create(lead).Error
}

func (r *LeadRepository) GetByID(id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.First(&lead, "id = ?", id).Error
	return &lead, err
}

func (r *LeadRepository) GetByCRMID(crmID string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.First(&lead, "crm_id = ?", crmID).Error
	return &lead, err
}

func (r *LeadRepository) Update(lead *models.Lead) error {
	return r.db.Save(lead).Error
}

// ==================== Meeting Repository ====================

type MeetingRepository struct {
	db *gorm.DB
}

func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

func (r *MeetingRepository) Create(meeting *models.Meeting) error {
	return r.db.Create(meeting).Error
}

func (r *MeetingRepository) GetByID(id uuid.UUID) (*models.Meeting, error) {
	var meeting models.Meeting
	if err := r.db.First(&meeting, "id = ?", id).Error; err != nil {
		return nil, err
	}
	r.loadMeetingRelations(&meeting)
	return &meeting, nil
}

func (r *MeetingRepository) GetByCalendarEventID(calendarEventID string) (*models.Meeting, error) {
	var meeting models.Meeting
	if err := r.db.First(&meeting, "calendar_event_id = ?", calendarEventID).Error; err != nil {
		return nil, err
	}
	r.loadMeetingRelations(&meeting)
	return &meeting, nil
}

// loadMeetingRelations attaches the CallBotSession this meeting owns, if any.
func (r *MeetingRepository) loadMeetingRelations(meeting *models.Meeting) {
	var session models.CallBotSession
	if err := r.db.Where("meeting_id = ?", meeting.ID).First(&session).Error; err == nil {
		meeting.CallBotSession = &session
	}
}

func (r *MeetingRepository) Update(meeting *models.Meeting) error {
	return r.db.Save(meeting).Error
}

// UpdateStatus moves Meeting.Status forward only: a meeting already in a
// terminal status (completed or failed) is left unchanged.
func (r *MeetingRepository) UpdateStatus(id uuid.UUID, status models.MeetingStatus) error {
	terminal := []models.MeetingStatus{models.MeetingCompleted, models.MeetingFailed}
	return r.db.Model(&models.Meeting{}).Where("id = ? AND status NOT IN ?", id, terminal).Update("status", status).Error
}

func (r *MeetingRepository) Delete(id uuid.UUID) error {
	var meeting models.Meeting
	if err := r.db.First(&meeting, "id = ?", id).Error; err != nil {
		return err
	}
	// BeforeDelete cascades to the owned CallBotSession.
	return r.db.Delete(&meeting).Error
}

// ==================== CallBotSession Repository ====================

type CallBotSessionRepository struct {
	db *gorm.DB
}

func NewCallBotSessionRepository(db *gorm.DB) *CallBotSessionRepository {
	return &CallBotSessionRepository{db: db}
}

func (r *CallBotSessionRepository) Create(session *models.CallBotSession) error {
	return r.db.Create(session).Error
}

func (r *CallBotSessionRepository) GetByID(id uuid.UUID) (*models.CallBotSession, error) {
	var session models.CallBotSession
	if err := r.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	r.loadRelations(&session)
	return &session, nil
}

func (r *CallBotSessionRepository) GetByMeetingID(meetingID uuid.UUID) (*models.CallBotSession, error) {
	var session models.CallBotSession
	if err := r.db.First(&session, "meeting_id = ?", meetingID).Error; err != nil {
		return nil, err
	}
	r.loadRelations(&session)
	return &session, nil
}

func (r *CallBotSessionRepository) loadRelations(session *models.CallBotSession) {
	var draft models.DraftSummary
	if err := r.db.Where("call_bot_session_id = ?", session.ID).First(&draft).Error; err == nil {
		session.DraftSummary = &draft
	}
}

func (r *CallBotSessionRepository) Update(session *models.CallBotSession) error {
	return r.db.Save(session).Error
}

// AppendTranscript appends newBytes to raw_transcript and updates audio
// quality in one write, following the Session Manager's partial-persist
// cadence (§4.1) which only ever writes new bytes, never rereads the whole
// column first.
func (r *CallBotSessionRepository) AppendTranscript(id uuid.UUID, newBytes string, quality models.AudioQuality) error {
	return r.db.Model(&models.CallBotSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"raw_transcript": gorm.Expr("raw_transcript || ?", newBytes),
			"audio_quality":  quality,
		}).Error
}

func (r *CallBotSessionRepository) UpdateConnectionStatus(id uuid.UUID, status models.ConnectionStatus) error {
	return r.db.Model(&models.CallBotSession{}).Where("id = ?", id).Update("connection_status", status).Error
}

// ==================== DraftSummary Repository ====================

type DraftSummaryRepository struct {
	db *gorm.DB
}

func NewDraftSummaryRepository(db *gorm.DB) *DraftSummaryRepository {
	return &DraftSummaryRepository{db: db}
}

func (r *DraftSummaryRepository) Create(draft *models.DraftSummary) error {
	return r.db.Create(draft).Error
}

func (r *DraftSummaryRepository) GetByID(id uuid.UUID) (*models.DraftSummary, error) {
	var draft models.DraftSummary
	if err := r.db.First(&draft, "id = ?", id).Error; err != nil {
		return nil, err
	}
	r.loadRelations(&draft)
	return &draft, nil
}

// GetByCallBotSessionID backs the Summary Generator's idempotence check
// (§4.4): return the existing draft unchanged rather than creating a second
// one. gorm.ErrRecordNotFound signals "no draft exists yet".
func (r *DraftSummaryRepository) GetByCallBotSessionID(sessionID uuid.UUID) (*models.DraftSummary, error) {
	var draft models.DraftSummary
	err := r.db.First(&draft, "call_bot_session_id = ?", sessionID).Error
	if err != nil {
		return nil, err
	}
	r.loadRelations(&draft)
	return &draft, nil
}

func (r *DraftSummaryRepository) loadRelations(draft *models.DraftSummary) {
	var items []models.ActionItem
	r.db.Where("draft_summary_id = ?", draft.ID).Order("created_at ASC").Find(&items)
	draft.ActionItems = items

	var validation models.ValidationSession
	if err := r.db.Where("draft_summary_id = ?", draft.ID).First(&validation).Error; err == nil {
		draft.ValidationSession = &validation
	}
}

func (r *DraftSummaryRepository) MarkValidated(id uuid.UUID, validatedAt time.Time) error {
	return r.db.Model(&models.DraftSummary{}).Where("id = ?", id).Update("validated_at", validatedAt).Error
}

// ==================== ActionItem Repository ====================

type ActionItemRepository struct {
	db *gorm.DB
}

func NewActionItemRepository(db *gorm.DB) *ActionItemRepository {
	return &ActionItemRepository{db: db}
}

func (r *ActionItemRepository) CreateBatch(items []models.ActionItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Create(&items).Error
}

func (r *ActionItemRepository) ListByDraftSummaryID(draftSummaryID uuid.UUID) ([]models.ActionItem, error) {
	var items []models.ActionItem
	err := r.db.Where("draft_summary_id = ?", draftSummaryID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *ActionItemRepository) GetByID(id uuid.UUID) (*models.ActionItem, error) {
	var item models.ActionItem
	err := r.db.First(&item, "id = ?", id).Error
	return &item, err
}

// ==================== ValidationSession Repository ====================

type ValidationSessionRepository struct {
	db *gorm.DB
}

func NewValidationSessionRepository(db *gorm.DB) *ValidationSessionRepository {
	return &ValidationSessionRepository{db: db}
}

func (r *ValidationSessionRepository) Create(session *models.ValidationSession) error {
	return r.db.Create(session).Error
}

func (r *ValidationSessionRepository) GetByID(id uuid.UUID) (*models.ValidationSession, error) {
	var session models.ValidationSession
	if err := r.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	r.loadRelations(&session)
	return &session, nil
}

func (r *ValidationSessionRepository) GetByDraftSummaryID(draftSummaryID uuid.UUID) (*models.ValidationSession, error) {
	var session models.ValidationSession
	if err := r.db.First(&session, "draft_summary_id = ?", draftSummaryID).Error; err != nil {
		return nil, err
	}
	r.loadRelations(&session)
	return &session, nil
}

func (r *ValidationSessionRepository) loadRelations(session *models.ValidationSession) {
	var records []models.CRMSyncRecord
	r.db.Where("validation_session_id = ?", session.ID).Order("created_at ASC").Find(&records)
	session.CRMSyncRecords = records
}

func (r *ValidationSessionRepository) Update(session *models.ValidationSession) error {
	return r.db.Save(session).Error
}

// IsCompleted is the CRM-sync gate check (§4.5): callers must verify this
// before any CRMSyncRecord is created.
func (r *ValidationSessionRepository) IsCompleted(draftSummaryID uuid.UUID) (bool, *models.ValidationSession, error) {
	session, err := r.GetByDraftSummaryID(draftSummaryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}
	return session.Status == models.ValidationCompleted, session, nil
}

// ==================== CRMSyncRecord Repository ====================

type CRMSyncRecordRepository struct {
	db *gorm.DB
}

func NewCRMSyncRecordRepository(db *gorm.DB) *CRMSyncRecordRepository {
	return &CRMSyncRecordRepository{db: db}
}

// GetOrCreate returns the existing (validation_session, crm_system) record,
// or creates a fresh pending one. This is the idempotency read-before-write
// the CRM Sync workflow (§4.6) relies on.
func (r *CRMSyncRecordRepository) GetOrCreate(validationSessionID uuid.UUID, crmSystem models.CRMSystem) (*models.CRMSyncRecord, error) {
	var record models.CRMSyncRecord
	err := r.db.Where("validation_session_id = ? AND crm_system = ?", validationSessionID, crmSystem).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	record = models.CRMSyncRecord{
		ValidationSessionID: validationSessionID,
		CRMSystem:           crmSystem,
		SyncStatus:          models.SyncPending,
	}
	if err := r.db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *CRMSyncRecordRepository) Update(record *models.CRMSyncRecord) error {
	return r.db.Save(record).Error
}

func (r *CRMSyncRecordRepository) GetByID(id uuid.UUID) (*models.CRMSyncRecord, error) {
	var record models.CRMSyncRecord
	err := r.db.First(&record, "id = ?", id).Error
	return &record, err
}
