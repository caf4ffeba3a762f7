package api

import (
	"net/http"

	"github.com/yourusername/meeting-intelligence/internal/apierrors"
	"github.com/yourusername/meeting-intelligence/internal/crmsync"
	"github.com/yourusername/meeting-intelligence/internal/models"
	"github.com/yourusername/meeting-intelligence/internal/repository"
)

// CRMHandler covers the post-validation sync trigger (§4.6/§6).
type CRMHandler struct {
	crm   *crmsync.Service
	repos *repository.Repositories
}

func NewCRMHandler(crm *crmsync.Service, repos *repository.Repositories) *CRMHandler {
	return &CRMHandler{crm: crm, repos: repos}
}

type syncCRMInput struct {
	// CRMSystem optionally restricts the sync to one target ("salesforce",
	// "hubspot", "creatio"). Omitted means sync every system the validator
	// approved an update for.
	CRMSystem string `json:"crm_system,omitempty"`
}

// SyncCRM handles POST /meetings/{id}/sync-crm: resolves the meeting's
// CallBotSession -> DraftSummary -> ValidationSession chain, confirms the
// gate (§4.5), and drives crmsync.Service.Sync for each approved target.
func (h *CRMHandler) SyncCRM(w http.ResponseWriter, r *http.Request) {
	meetingID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	var input syncCRMInput
	_ = parseJSON(r, &input) // body is optional

	meeting, err := h.repos.Meeting.GetByID(meetingID)
	if err != nil {
		respondError(w, http.StatusNotFound, "meeting not found")
		return
	}
	if meeting.LeadID == nil {
		respondError(w, http.StatusUnprocessableEntity, "meeting has no associated lead to sync")
		return
	}
	lead, err := h.repos.Lead.GetByID(*meeting.LeadID)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "lead not found for meeting")
		return
	}

	callBotSession, err := h.repos.CallBotSession.GetByMeetingID(meetingID)
	if err != nil {
		respondError(w, http.StatusNotFound, "no session found for this meeting")
		return
	}
	draft, err := h.repos.DraftSummary.GetByCallBotSessionID(callBotSession.ID)
	if err != nil {
		respondError(w, http.StatusNotFound, "no draft summary found for this session")
		return
	}
	validationSession, err := h.repos.ValidationSession.GetByDraftSummaryID(draft.ID)
	if err != nil {
		respondError(w, http.StatusNotFound, "no validation session found for this draft summary")
		return
	}

	if input.CRMSystem != "" {
		record, err := h.crm.Sync(r.Context(), validationSession.ID, lead.CRMID, models.CRMSystem(input.CRMSystem))
		if err != nil {
			respondErrFromDomain(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"sync_record": record})
		return
	}

	targets := approvedCRMSystems(validationSession)
	if len(targets) == 0 {
		respondErrFromDomain(w, apierrors.NewValidationGateError("no approved CRM updates to sync for validation session %s", validationSession.ID))
		return
	}

	records := make([]*models.CRMSyncRecord, 0, len(targets))
	for _, system := range targets {
		record, err := h.crm.Sync(r.Context(), validationSession.ID, lead.CRMID, system)
		if err != nil {
			respondErrFromDomain(w, err)
			return
		}
		records = append(records, record)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"sync_records": records})
}

// approvedCRMSystems returns the CRM systems a validator approved an update
// for, in a stable order.
func approvedCRMSystems(session *models.ValidationSession) []models.CRMSystem {
	order := []models.CRMSystem{models.CRMSalesforce, models.CRMHubSpot, models.CRMCreatio}
	systems := make([]models.CRMSystem, 0, len(order))
	for _, system := range order {
		if _, ok := session.ApprovedCRMUpdates.Data[string(system)]; ok {
			systems = append(systems, system)
		}
	}
	return systems
}
