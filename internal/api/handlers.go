// Package api implements the §6 HTTP surface: chi handlers that translate
// JSON requests into calls against the Session Manager, Transcription
// Service, Validation Workflow, and CRM Sync.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/yourusername/meeting-intelligence/internal/crmsync"
	"github.com/yourusername/meeting-intelligence/internal/logger"
	"github.com/yourusername/meeting-intelligence/internal/platformbot"
	"github.com/yourusername/meeting-intelligence/internal/repository"
	"github.com/yourusername/meeting-intelligence/internal/sessionmgr"
	"github.com/yourusername/meeting-intelligence/internal/transcription"
	"github.com/yourusername/meeting-intelligence/internal/validation"
)

// Handlers aggregates every per-resource handler, grounded on the teacher's
// NewHandlers aggregator shape.
type Handlers struct {
	Meeting    *MeetingHandler
	Validation *ValidationHandler
	CRM        *CRMHandler
	Health     *HealthHandler
}

func NewHandlers(
	sessions *sessionmgr.Manager,
	transcripts *transcription.Service,
	workflow *validation.Workflow,
	crm *crmsync.Service,
	repos *repository.Repositories,
) *Handlers {
	return &Handlers{
		Meeting:    NewMeetingHandler(sessions, transcripts, repos),
		Validation: NewValidationHandler(workflow, repos),
		CRM:        NewCRMHandler(crm, repos),
		Health:     NewHealthHandler(),
	}
}

// ==================== Meeting / Session Handler ====================

// MeetingHandler covers the session lifecycle endpoints: start, transcript
// push (test/sim), end, and status.
type MeetingHandler struct {
	sessions    *sessionmgr.Manager
	transcripts *transcription.Service
	repos       *repository.Repositories
}

func NewMeetingHandler(sessions *sessionmgr.Manager, transcripts *transcription.Service, repos *repository.Repositories) *MeetingHandler {
	return &MeetingHandler{sessions: sessions, transcripts: transcripts, repos: repos}
}

type startSessionInput struct {
	MeetingURL   string `json:"meeting_url"`
	Platform     string `json:"platform,omitempty"`
	BotSessionID string `json:"bot_session_id,omitempty"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Start handles POST /meetings/{id}/start.
func (h *MeetingHandler) Start(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api.meeting")
	requestID := middleware.GetReqID(r.Context())

	meetingID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	var input startSessionInput
	if err := parseJSON(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.MeetingURL == "" {
		respondError(w, http.StatusBadRequest, "meeting_url is required")
		return
	}

	snapshot, err := h.sessions.Start(sessionmgr.StartConfig{
		MeetingID:        meetingID,
		MeetingURL:       input.MeetingURL,
		PlatformOverride: platformbot.Platform(input.Platform),
		BotSessionID:     input.BotSessionID,
	})
	if err != nil {
		log.Warn().Str("request_id", requestID).Err(err).Msg("session start rejected")
		respondErrFromDomain(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, startSessionResponse{
		SessionID: snapshot.SessionID.String(),
		Status:    string(snapshot.State),
	})
}

type pushTranscriptInput struct {
	TranscriptChunk string `json:"transcript_chunk"`
}

// PushTranscript handles POST /meetings/sessions/{id}/transcript: a
// producer push used by tests/simulation to feed the audio queue without a
// live platform bot.
func (h *MeetingHandler) PushTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var input pushTranscriptInput
	if err := parseJSON(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.TranscriptChunk == "" {
		respondError(w, http.StatusBadRequest, "transcript_chunk is required")
		return
	}

	chunk := transcription.AudioChunk{
		ChunkID:    uuid.New(),
		AudioBytes: []byte(input.TranscriptChunk),
		Timestamp:  time.Now(),
		Duration:   2 * time.Second,
		SampleRate: 16000,
		Channels:   1,
	}
	if err := h.transcripts.ProcessAudioChunk(sessionID, chunk); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type endSessionInput struct {
	FinalTranscript string  `json:"final_transcript,omitempty"`
	MeetingDuration float64 `json:"meeting_duration,omitempty"`
}

type endSessionResponse struct {
	SummaryID string `json:"summary_id,omitempty"`
}

// End handles POST /meetings/{id}/end: externally end the session bound to
// this meeting, per §4.1's graceful Stop() contract.
func (h *MeetingHandler) End(w http.ResponseWriter, r *http.Request) {
	meetingID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	var input endSessionInput
	_ = parseJSON(r, &input) // body is optional per §6

	callBotSession, err := h.repos.CallBotSession.GetByMeetingID(meetingID)
	if err != nil {
		respondError(w, http.StatusNotFound, "no session found for this meeting")
		return
	}

	summary, err := h.sessions.Stop(callBotSession.ID, "external_end")
	if err != nil {
		respondErrFromDomain(w, err)
		return
	}

	resp := endSessionResponse{}
	if summary.DraftSummaryID != nil {
		resp.SummaryID = summary.DraftSummaryID.String()
	}
	respondJSON(w, http.StatusOK, resp)
}

type sessionStatusResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// Status handles GET /meetings/{id}/status.
func (h *MeetingHandler) Status(w http.ResponseWriter, r *http.Request) {
	meetingID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	callBotSession, err := h.repos.CallBotSession.GetByMeetingID(meetingID)
	if err != nil {
		respondError(w, http.StatusNotFound, "no session found for this meeting")
		return
	}

	snapshot, err := h.sessions.Status(callBotSession.ID)
	if err != nil {
		respondErrFromDomain(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionStatusResponse{
		SessionID: snapshot.SessionID.String(),
		State:     string(snapshot.State),
	})
}

// ==================== Health Handler ====================

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
