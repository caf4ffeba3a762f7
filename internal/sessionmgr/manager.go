package sessionmgr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/meeting-intelligence/internal/apierrors"
	"github.com/yourusername/meeting-intelligence/internal/cache"
	"github.com/yourusername/meeting-intelligence/internal/logger"
	"github.com/yourusername/meeting-intelligence/internal/metrics"
	"github.com/yourusername/meeting-intelligence/internal/models"
	"github.com/yourusername/meeting-intelligence/internal/platformbot"
	"github.com/yourusername/meeting-intelligence/internal/repository"
	"github.com/yourusername/meeting-intelligence/internal/summary"
	"github.com/yourusername/meeting-intelligence/internal/transcription"
	"github.com/yourusername/meeting-intelligence/internal/transcription/engine"
)

// Config tunes the retry budget, backoff base, and session timeout. Field
// names mirror the §6 environment variables directly.
type Config struct {
	MaxReconnectAttempts int
	ReconnectDelayBaseS  int
	SessionTimeoutS      int
	EngineType           string
	EngineAPIKey         string
}

func DefaultConfig() Config {
	return Config{MaxReconnectAttempts: 3, ReconnectDelayBaseS: 2, SessionTimeoutS: 7200, EngineType: "mock"}
}

// StartConfig is the per-call input to Start.
type StartConfig struct {
	MeetingID        uuid.UUID
	MeetingURL       string
	PlatformOverride platformbot.Platform
	BotSessionID     string
	Credentials      map[string]string
	EngineName       string // falls back to Manager's configured EngineType
}

// Snapshot is the read-only view Start/Status return.
type Snapshot struct {
	SessionID uuid.UUID
	MeetingID uuid.UUID
	State     State
}

// Summary is what Stop returns, and what a second, idempotent Stop call
// replays unchanged (§4.1 contract, §8 round-trip property).
type Summary struct {
	SessionID         uuid.UUID
	MeetingID         uuid.UUID
	State             State
	Reason            string
	Duration          time.Duration
	RetryCount        int
	ReconnectAttempts int
	TranscriptLength  int
	AudioQuality      string
	ErrorMessage      string
	DraftSummaryID    *uuid.UUID
}

// sessionState is one call's private lifecycle bookkeeping, owned
// exclusively by its own state-machine goroutine; only the fields under mu
// are touched from other goroutines (HandleDisconnection, Stop, Status).
type sessionState struct {
	id         uuid.UUID
	meetingID  uuid.UUID
	cfg        StartConfig
	engineName string

	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu                sync.Mutex
	state             State
	retryCount        int
	reconnectAttempts int
	errorMessage      string
	disconnected      bool
	stopRequested     bool
	stopReason        string
	lastChunkHighWater int

	summaryMu sync.Mutex
	summary   *Summary
}

func (s *sessionState) getState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *sessionState) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Manager owns the session registry and fans out to the Call Bot Service,
// the Transcription Service, and the Summary Generator. It holds no
// transcript or audio data itself — that lives in the Transcription
// Service, keyed by the same session id.
type Manager struct {
	cfg Config

	meetings        *repository.MeetingRepository
	callBotSessions *repository.CallBotSessionRepository
	bots            *platformbot.Service
	transcripts     *transcription.Service
	summaries       *summary.Generator
	sessionCache    *cache.SessionCache
	metrics         metrics.Recorder

	sinks []EventSink

	mu        sync.RWMutex
	sessions  map[uuid.UUID]*sessionState
	finalized map[uuid.UUID]*Summary

	rootCtx context.Context
}

// New constructs a Manager. sessionCache may be nil (cache warm/invalidate
// becomes a no-op) so unit tests don't need a live Redis.
func New(
	rootCtx context.Context,
	cfg Config,
	meetings *repository.MeetingRepository,
	callBotSessions *repository.CallBotSessionRepository,
	bots *platformbot.Service,
	transcripts *transcription.Service,
	summaries *summary.Generator,
	sessionCache *cache.SessionCache,
	rec metrics.Recorder,
) *Manager {
	if rec == nil {
		rec = metrics.Noop{}
	}
	m := &Manager{
		cfg:             cfg,
		meetings:        meetings,
		callBotSessions: callBotSessions,
		bots:            bots,
		transcripts:     transcripts,
		summaries:       summaries,
		sessionCache:    sessionCache,
		metrics:         rec,
		sessions:        make(map[uuid.UUID]*sessionState),
		finalized:       make(map[uuid.UUID]*Summary),
		rootCtx:         rootCtx,
	}
	m.sinks = []EventSink{newDefaultSink(rec)}
	return m
}

// RegisterSink adds an additional event sink (e.g. a test probe).
func (m *Manager) RegisterSink(sink EventSink) {
	m.sinks = append(m.sinks, sink)
}

// Start validates the meeting exists, rejects a duplicate active session
// for the same meeting, and spawns the state-machine goroutine.
func (m *Manager) Start(cfg StartConfig) (*Snapshot, error) {
	meeting, err := m.meetings.GetByID(cfg.MeetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NewValidationError("meeting %s not found", cfg.MeetingID)
		}
		return nil, fmt.Errorf("sessionmgr: loading meeting: %w", err)
	}

	if _, err := platformbot.DetectPlatform(cfg.MeetingURL, cfg.PlatformOverride); err != nil {
		return nil, apierrors.NewValidationError("%s", err.Error())
	}

	m.mu.Lock()
	for _, existing := range m.sessions {
		if existing.meetingID == cfg.MeetingID && !existing.getState().Terminal() {
			m.mu.Unlock()
			return nil, apierrors.NewValidationError("meeting %s already has an active session", cfg.MeetingID)
		}
	}

	engineName := cfg.EngineName
	if engineName == "" {
		engineName = m.cfg.EngineType
	}

	sessionID := uuid.New()
	sessCtx, cancel := context.WithCancel(m.rootCtx)
	sess := &sessionState{
		id:         sessionID,
		meetingID:  cfg.MeetingID,
		cfg:        cfg,
		engineName: engineName,
		startedAt:  time.Now(),
		ctx:        sessCtx,
		cancel:     cancel,
		state:      StateInitializing,
	}
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	record := &models.CallBotSession{
		MeetingID:        cfg.MeetingID,
		BotSessionID:     cfg.BotSessionID,
		ConnectionStatus: models.ConnConnecting,
		JoinTime:         time.Now(),
		SpeakerMapping:   models.StringMap{},
	}
	if err := m.callBotSessions.Create(record); err != nil {
		return nil, fmt.Errorf("sessionmgr: persisting call bot session: %w", err)
	}
	provisionalID := sessionID
	sessionID = record.ID
	sess.id = record.ID
	m.mu.Lock()
	delete(m.sessions, provisionalID) // re-key under the persisted id
	m.sessions[record.ID] = sess
	m.mu.Unlock()

	if m.sessionCache != nil {
		_ = m.sessionCache.Warm(sessCtx, record.ID, string(StateInitializing))
	}

	_ = m.meetings.UpdateStatus(meeting.ID, models.MeetingInProgress)

	m.emit(Event{Name: EventSessionStarted, SessionID: record.ID, MeetingID: cfg.MeetingID, State: StateInitializing})

	sess.wg.Add(1)
	go m.runLoop(sess, meeting)

	return &Snapshot{SessionID: record.ID, MeetingID: cfg.MeetingID, State: StateInitializing}, nil
}

// Status is a read-only snapshot of a session's current state. A session
// already removed from the registry by a completed Stop still answers from
// its retained Summary.
func (m *Manager) Status(sessionID uuid.UUID) (*Snapshot, error) {
	if sess, ok := m.get(sessionID); ok {
		return &Snapshot{SessionID: sess.id, MeetingID: sess.meetingID, State: sess.getState()}, nil
	}
	m.mu.RLock()
	summary, ok := m.finalized[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, apierrors.NewValidationError("session %s not found", sessionID)
	}
	return &Snapshot{SessionID: summary.SessionID, MeetingID: summary.MeetingID, State: summary.State}, nil
}

// Retry is the caller-initiated counterpart to the automatic
// DISCONNECTED->JOINING path: allowed only from FAILED (spec Open Question
// 4). A session's own goroutine sets FAILED and then finalizes; Retry waits
// for that goroutine to exit before restarting the loop, so there is no
// race with the running loop's own retry handling.
func (m *Manager) Retry(sessionID uuid.UUID) error {
	sess, ok := m.get(sessionID)
	if !ok {
		return apierrors.NewValidationError("session %s not found", sessionID)
	}

	if current := sess.getState(); current != StateFailed {
		return apierrors.NewValidationError("session %s cannot be retried from state %s", sessionID, current)
	}
	sess.wg.Wait()

	sess.mu.Lock()
	if sess.state != StateFailed {
		current := sess.state
		sess.mu.Unlock()
		return apierrors.NewValidationError("session %s cannot be retried from state %s", sessionID, current)
	}
	sess.state = StateInitializing
	sess.retryCount++
	sess.errorMessage = ""
	sess.stopRequested = false
	sess.disconnected = false
	sess.mu.Unlock()

	meeting, err := m.meetings.GetByID(sess.meetingID)
	if err != nil {
		return fmt.Errorf("sessionmgr: loading meeting for retry: %w", err)
	}

	sessCtx, cancel := context.WithCancel(m.rootCtx)
	sess.ctx = sessCtx
	sess.cancel = cancel
	sess.summaryMu.Lock()
	sess.summary = nil
	sess.summaryMu.Unlock()

	sess.wg.Add(1)
	go m.runLoop(sess, meeting)

	return nil
}

// HandleDisconnection implements platformbot.DisconnectHandler: the
// connection monitor calls this when it observes a session has gone
// DISCONNECTED. It only sets a flag the state-machine goroutine observes at
// its next check — the goroutine remains the sole mutator of state.
func (m *Manager) HandleDisconnection(sessionID uuid.UUID) {
	sess, ok := m.get(sessionID)
	if !ok {
		return
	}
	sess.mu.Lock()
	if sess.state == StateTranscribing || sess.state == StateConnected {
		sess.disconnected = true
	}
	sess.mu.Unlock()
}

// Stop gracefully drives a session to COMPLETED and returns its summary. It
// removes the session from the live registry only after its worker has
// terminated (§5's "remove on Stop after workers have terminated"), but
// retains the Summary so a repeated Stop on the same id stays idempotent
// instead of becoming "session not found".
func (m *Manager) Stop(sessionID uuid.UUID, reason string) (*Summary, error) {
	m.mu.RLock()
	if cached, ok := m.finalized[sessionID]; ok {
		m.mu.RUnlock()
		return cached, nil
	}
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, apierrors.NewValidationError("session %s not found", sessionID)
	}

	sess.mu.Lock()
	sess.stopRequested = true
	sess.stopReason = reason
	sess.mu.Unlock()
	sess.cancel()

	sess.wg.Wait()

	cached := sess.cachedSummary()
	if cached == nil {
		return nil, fmt.Errorf("sessionmgr: session %s finalized without a summary", sessionID)
	}

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.finalized[sessionID] = cached
	m.mu.Unlock()

	return cached, nil
}

func (s *sessionState) cachedSummary() *Summary {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	return s.summary
}

func (m *Manager) get(sessionID uuid.UUID) (*sessionState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// runLoop is the state-machine worker: one per active session, the sole
// mutator of sess.state. It runs until a terminal state is reached, then
// finalizes (bot leave, transcription stop, summary generation) exactly
// once before returning.
func (m *Manager) runLoop(sess *sessionState, meeting *models.Meeting) {
	defer sess.wg.Done()

	var eng engine.Engine
	for {
		state := sess.getState()
		if state.Terminal() {
			break
		}

		if m.checkTimeout(sess) {
			continue
		}

		switch state {
		case StateInitializing:
			eng = m.stepInitializing(sess)
		case StateJoining:
			m.stepJoining(sess)
		case StateConnected:
			m.stepConnected(sess, eng)
		case StateTranscribing:
			m.stepTranscribing(sess, meeting)
		case StateDisconnected:
			m.stepDisconnected(sess)
		}
	}

	m.finalize(sess, eng)
}

// checkTimeout forces COMPLETED if the session has run past
// SESSION_TIMEOUT_S, per §4.1's "at any state-machine check" rule.
func (m *Manager) checkTimeout(sess *sessionState) bool {
	limit := time.Duration(m.cfg.SessionTimeoutS) * time.Second
	if limit <= 0 || time.Since(sess.startedAt) <= limit {
		return false
	}
	sess.mu.Lock()
	alreadyTerminal := sess.state.Terminal()
	if !alreadyTerminal {
		sess.state = StateCompleted
		sess.stopReason = "timeout"
	}
	sess.mu.Unlock()
	return !alreadyTerminal
}

func (m *Manager) stepInitializing(sess *sessionState) engine.Engine {
	eng, err := engine.New(sess.engineName)
	if err != nil {
		m.failSession(sess, apierrors.NewEngineError("initializing transcription engine", err))
		return nil
	}
	if err := eng.Initialize(sess.ctx, engine.Config{APIKey: m.cfg.EngineAPIKey}); err != nil {
		m.failSession(sess, apierrors.NewEngineError("initializing transcription engine", err))
		return nil
	}
	sess.setState(StateJoining)
	m.emit(Event{Name: EventSessionInitialized, SessionID: sess.id, MeetingID: sess.meetingID, State: StateJoining})
	return eng
}

func (m *Manager) stepJoining(sess *sessionState) {
	platform, err := m.bots.Join(sess.ctx, sess.id, sess.cfg.MeetingURL, sess.cfg.PlatformOverride, sess.cfg.BotSessionID, sess.cfg.Credentials)
	if err != nil {
		if isRecoverable(err) {
			sess.setState(StateDisconnected)
			m.emit(Event{Name: EventSessionErrorRecoverable, SessionID: sess.id, MeetingID: sess.meetingID, State: StateDisconnected, Err: err})
			return
		}
		m.failSession(sess, apierrors.NewPermanentConnectionError("%s", err.Error()))
		return
	}

	now := time.Now()
	_ = m.callBotSessions.UpdateConnectionStatus(sess.id, models.ConnConnected)
	if rec, getErr := m.callBotSessions.GetByID(sess.id); getErr == nil {
		rec.JoinTime = now
		rec.Platform = models.Platform(platform)
		_ = m.callBotSessions.Update(rec)
	}

	sess.setState(StateConnected)
	m.emit(Event{Name: EventMeetingJoined, SessionID: sess.id, MeetingID: sess.meetingID, State: StateConnected})
}

func (m *Manager) stepConnected(sess *sessionState, eng engine.Engine) {
	if _, err := m.bots.StartTranscription(sess.ctx, sess.id); err != nil {
		m.failSession(sess, apierrors.NewEngineError("starting platform bot transcription", err))
		return
	}

	// A fresh transcription session numbers its chunks from 0, so the
	// flush high-water mark restarts below the first chunk id.
	sess.mu.Lock()
	sess.lastChunkHighWater = -1
	sess.mu.Unlock()
	m.transcripts.StartSession(sess.ctx, sess.id, eng)
	_ = m.callBotSessions.UpdateConnectionStatus(sess.id, models.ConnTranscribing)

	sess.setState(StateTranscribing)
	m.emit(Event{Name: EventTranscriptionStarted, SessionID: sess.id, MeetingID: sess.meetingID, State: StateTranscribing})
}

// stepTranscribing runs the partial-persistence monitoring loop (§4.1):
// poll every ~10s, append only new transcript bytes, capture audio
// quality, and watch for disconnection, an external stop request, the
// meeting's scheduled end_time, or session timeout.
func (m *Manager) stepTranscribing(sess *sessionState, meeting *models.Meeting) {
	log := logger.WithSessionID(sess.id.String())
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	defer m.flushTranscript(sess)

	for {
		sess.mu.Lock()
		disconnected := sess.disconnected
		stopRequested := sess.stopRequested
		sess.mu.Unlock()

		if disconnected {
			sess.setState(StateDisconnected)
			return
		}
		if stopRequested {
			sess.setState(StateCompleted)
			return
		}
		if !meeting.EndTime.IsZero() && time.Now().After(meeting.EndTime) {
			sess.setState(StateCompleted)
			return
		}
		if m.checkTimeout(sess) {
			return
		}

		select {
		case <-sess.ctx.Done():
			sess.setState(StateCompleted)
			return
		case <-ticker.C:
			m.flushTranscript(sess)
			log.Debug().Msg("partial transcript flushed")
		}
	}
}

// flushTranscript appends only bytes produced since the last flush,
// following the append-only persistence contract (§4.1).
func (m *Manager) flushTranscript(sess *sessionState) {
	sess.mu.Lock()
	highWater := sess.lastChunkHighWater
	sess.mu.Unlock()

	newBytes, newHighWater, err := m.transcripts.GetNewTranscriptBytes(sess.id, highWater)
	if err != nil {
		return
	}
	quality := m.transcripts.AudioQuality(sess.id)
	if newBytes == "" && quality == "" {
		return
	}
	if newBytes != "" {
		_ = m.callBotSessions.AppendTranscript(sess.id, " "+newBytes, models.AudioQuality(quality))
		sess.mu.Lock()
		sess.lastChunkHighWater = newHighWater
		sess.mu.Unlock()
	}
}

// stepDisconnected applies the retry budget: exponential backoff base 2^n
// seconds, up to MAX_RECONNECT_ATTEMPTS, before routing back to JOINING.
func (m *Manager) stepDisconnected(sess *sessionState) {
	sess.mu.Lock()
	attempts := sess.reconnectAttempts
	sess.disconnected = false
	sess.mu.Unlock()

	if attempts >= m.cfg.MaxReconnectAttempts {
		m.failSession(sess, apierrors.NewPermanentConnectionError("Max reconnection attempts exceeded"))
		return
	}

	delay := backoffDelay(m.cfg.ReconnectDelayBaseS, attempts)
	select {
	case <-sess.ctx.Done():
		sess.setState(StateCompleted)
		return
	case <-time.After(delay):
	}

	sess.mu.Lock()
	sess.reconnectAttempts++
	newAttempts := sess.reconnectAttempts
	sess.mu.Unlock()
	_ = m.callBotSessions.UpdateConnectionStatus(sess.id, models.ConnReconnecting)
	if rec, err := m.callBotSessions.GetByID(sess.id); err == nil {
		rec.ReconnectAttempts = newAttempts
		_ = m.callBotSessions.Update(rec)
	}

	sess.setState(StateJoining)
	m.emit(Event{Name: EventSessionReconnecting, SessionID: sess.id, MeetingID: sess.meetingID, State: StateJoining})
}

// backoffDelay is exponential base 2^n seconds: the nth reconnect attempt
// (0-indexed) sleeps base^(n+1) seconds, matching Scenario D (2s then 4s
// with base 2).
func backoffDelay(base, attempt int) time.Duration {
	if base <= 0 {
		base = 2
	}
	seconds := math.Pow(float64(base), float64(attempt+1))
	return time.Duration(seconds * float64(time.Second))
}

func (m *Manager) failSession(sess *sessionState, err error) {
	sess.mu.Lock()
	sess.state = StateFailed
	sess.errorMessage = err.Error()
	sess.mu.Unlock()
	m.emit(Event{Name: EventSessionErrorFatal, SessionID: sess.id, MeetingID: sess.meetingID, State: StateFailed, Err: err})
}

// finalize runs exactly once per session, whenever the loop exits a
// terminal state: leaves the platform bot, stops the transcription
// service's workers, generates the draft summary if there is a non-empty
// transcript, updates the Meeting's terminal status, invalidates the
// session cache entry, and caches the returned Summary for idempotent
// repeat Stop calls.
func (m *Manager) finalize(sess *sessionState, eng engine.Engine) {
	log := logger.WithSessionID(sess.id.String())

	m.flushTranscript(sess)

	// Every read from the Transcription Service must happen before
	// StopSession below, which drops the session's chunk/speaker/quality
	// state the moment it returns.
	finalState := sess.getState()
	audioQuality := m.transcripts.AudioQuality(sess.id)
	fullText, _ := m.transcripts.GetFullTranscript(sess.id)
	speakers := m.transcripts.Speakers(sess.id)
	transcriptLength := 0
	if chunks, err := m.transcripts.GetTranscriptChunks(sess.id, -1); err == nil {
		for _, c := range chunks {
			transcriptLength += len(c.Text)
		}
	}

	leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.bots.Leave(leaveCtx, sess.id); err != nil {
		log.Warn().Err(err).Msg("error leaving meeting during finalize")
	}
	m.transcripts.StopSession(sess.id)

	now := time.Now()

	var draftID *uuid.UUID
	if rec, err := m.callBotSessions.GetByID(sess.id); err == nil {
		rec.LeaveTime = &now
		rec.ConnectionStatus = connectionStatusFor(finalState)
		sess.mu.Lock()
		if sess.errorMessage != "" {
			rec.ErrorMessage = sess.errorMessage
		}
		sess.mu.Unlock()
		_ = m.callBotSessions.Update(rec)

		if finalState == StateCompleted && eng != nil && fullText != "" {
			draft, err := m.summaries.GenerateDraftSummary(context.Background(), eng, sess.id, fullText, speakers)
			if err != nil {
				log.Warn().Err(err).Msg("summary generation failed; transcript is preserved")
			} else {
				draftID = &draft.ID
			}
		}
	}

	meetingStatus := models.MeetingCompleted
	if finalState == StateFailed {
		meetingStatus = models.MeetingFailed
	}
	_ = m.meetings.UpdateStatus(sess.meetingID, meetingStatus)

	if m.sessionCache != nil {
		_ = m.sessionCache.Invalidate(context.Background(), sess.id)
	}

	sess.mu.Lock()
	reason := sess.stopReason
	if reason == "" {
		reason = string(finalState)
	}
	result := &Summary{
		SessionID:         sess.id,
		MeetingID:         sess.meetingID,
		State:             finalState,
		Reason:            reason,
		Duration:          time.Since(sess.startedAt),
		RetryCount:        sess.retryCount,
		ReconnectAttempts: sess.reconnectAttempts,
		ErrorMessage:      sess.errorMessage,
		AudioQuality:      audioQuality,
		DraftSummaryID:    draftID,
		TranscriptLength:  transcriptLength,
	}
	sess.mu.Unlock()

	sess.summaryMu.Lock()
	sess.summary = result
	sess.summaryMu.Unlock()

	m.emit(Event{Name: EventSessionStopped, SessionID: sess.id, MeetingID: sess.meetingID, State: finalState})
}

func connectionStatusFor(state State) models.ConnectionStatus {
	if state == StateFailed {
		return models.ConnError
	}
	return models.ConnDisconnected
}
