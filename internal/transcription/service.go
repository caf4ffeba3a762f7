package transcription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/meeting-intelligence/internal/logger"
	"github.com/yourusername/meeting-intelligence/internal/metrics"
	"github.com/yourusername/meeting-intelligence/internal/transcription/engine"
)

// Config tunes the per-session queue and worker cadences. Defaults mirror
// the enumerated §6 configuration values.
type Config struct {
	MaxChunkQueueSize     int
	ErrorThreshold        int
	QualityCheckIntervalS int
}

func DefaultConfig() Config {
	return Config{MaxChunkQueueSize: 100, ErrorThreshold: 5, QualityCheckIntervalS: 10}
}

// ringQueue is a mutex-guarded, bounded slice-backed queue with drop-oldest
// eviction — not a Go channel, because a channel's send-blocks-when-full
// semantics cannot implement "silently evict the oldest entry and keep
// going" without an extra goroutine juggling the overflow.
type ringQueue struct {
	mu      sync.Mutex
	items   []AudioChunk
	maxSize int
}

func newRingQueue(maxSize int) *ringQueue {
	return &ringQueue{maxSize: maxSize}
}

// push appends a chunk, dropping the oldest if the queue is full. Returns
// true if a drop occurred.
func (q *ringQueue) push(chunk AudioChunk) (dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.maxSize {
		q.items = q.items[1:]
		dropped = true
	}
	q.items = append(q.items, chunk)
	return dropped
}

func (q *ringQueue) pop() (AudioChunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return AudioChunk{}, false
	}
	chunk := q.items[0]
	q.items = q.items[1:]
	return chunk, true
}

// session is a single call's transcription state, owned exclusively by its
// processing worker and quality monitor.
type session struct {
	id     uuid.UUID
	queue  *ringQueue
	engine engine.Engine

	mu         sync.RWMutex
	chunks     []TranscriptChunk
	nextChunkID int

	speakersMu sync.Mutex
	speakers   map[string]Speaker // by signature/speaker id

	stateMu    sync.Mutex
	isActive   bool
	errorCount int

	audioQualityMu sync.Mutex
	audioQuality   string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Service is the Transcription Service: one session map, guarded by a
// mutex, shared across all active calls. Each session owns its own
// processing worker and quality-monitor goroutine.
type Service struct {
	cfg     Config
	metrics metrics.Recorder

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

func NewService(cfg Config, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{cfg: cfg, metrics: rec, sessions: make(map[uuid.UUID]*session)}
}

// StartSession registers a session and launches its processing worker and
// quality monitor. ctx is the session's root context (the Session Manager's
// per-session context) — canceling it is how StopSession is driven from the
// outside in addition to the explicit call below.
func (s *Service) StartSession(ctx context.Context, sessionID uuid.UUID, eng engine.Engine) {
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &session{
		id:       sessionID,
		queue:    newRingQueue(s.cfg.MaxChunkQueueSize),
		engine:   eng,
		speakers: make(map[string]Speaker),
		isActive: true,
		ctx:      sessCtx,
		cancel:   cancel,
	}

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	sess.wg.Add(2)
	go s.runProcessingWorker(sess)
	go s.runQualityMonitor(sess)
}

// StopSession cancels the session's workers and waits for them to exit.
func (s *Service) StopSession(sessionID uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.stateMu.Lock()
	sess.isActive = false
	sess.stateMu.Unlock()
	sess.cancel()
	sess.wg.Wait()
}

// ProcessAudioChunk is the producer contract (§4.3): never blocks, drops the
// oldest queued chunk under saturation.
func (s *Service) ProcessAudioChunk(sessionID uuid.UUID, audio AudioChunk) error {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transcription: session %s does not exist or is inactive", sessionID)
	}

	sess.stateMu.Lock()
	active := sess.isActive
	sess.stateMu.Unlock()
	if !active {
		return fmt.Errorf("transcription: session %s is inactive", sessionID)
	}

	if dropped := sess.queue.push(audio); dropped {
		log := logger.WithComponent("transcription")
		log.Info().Str("session_id", sessionID.String()).Msg("queue overflow: dropped oldest audio chunk")
		s.metrics.QueueChunkDropped(sessionID.String())
	}
	return nil
}

func (s *Service) runProcessingWorker(sess *session) {
	defer sess.wg.Done()
	log := logger.WithSessionID(sess.id.String())

	for {
		sess.stateMu.Lock()
		active := sess.isActive
		sess.stateMu.Unlock()
		if !active {
			return
		}

		chunk, ok := sess.queue.pop()
		if !ok {
			select {
			case <-sess.ctx.Done():
				return
			case <-time.After(time.Second):
				continue
			}
		}

		transcript, err := sess.engine.TranscribeChunk(sess.ctx, chunk)
		if err != nil {
			sess.stateMu.Lock()
			sess.errorCount++
			exceeded := sess.errorCount >= s.cfg.ErrorThreshold
			sess.stateMu.Unlock()
			log.Warn().Err(err).Msg("engine transcription error")
			if exceeded {
				log.Error().Int("error_count", sess.errorCount).Msg("error threshold exceeded, deactivating session")
				sess.stateMu.Lock()
				sess.isActive = false
				sess.stateMu.Unlock()
				return
			}
			continue
		}

		transcript.ChunkID = sess.nextChunkID
		sess.nextChunkID++

		sess.mu.Lock()
		sess.chunks = append(sess.chunks, transcript)
		sess.mu.Unlock()

		speaker, err := sess.engine.IdentifySpeaker(sess.ctx, chunk)
		if err == nil {
			s.registerSpeaker(sess, speaker)
		}
	}
}

// registerSpeaker assigns host/participant defaults per §4.3: the first
// distinct speaker encountered defaults to host unless the engine already
// set a role.
func (s *Service) registerSpeaker(sess *session, speaker Speaker) {
	sess.speakersMu.Lock()
	defer sess.speakersMu.Unlock()

	if existing, ok := sess.speakers[speaker.SpeakerID]; ok {
		existing.Confidence = speaker.Confidence
		sess.speakers[speaker.SpeakerID] = existing
		return
	}

	if speaker.Role == "" {
		if len(sess.speakers) == 0 {
			speaker.Role = RoleHost
		} else {
			speaker.Role = RoleParticipant
		}
	}
	sess.speakers[speaker.SpeakerID] = speaker
}

func (s *Service) runQualityMonitor(sess *session) {
	defer sess.wg.Done()

	interval := time.Duration(s.cfg.QualityCheckIntervalS) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			s.rollUpQuality(sess, interval)
		}
	}
}

func (s *Service) rollUpQuality(sess *session, window time.Duration) {
	cutoff := time.Now().Add(-window)

	sess.mu.RLock()
	var sum float64
	var n int
	for _, c := range sess.chunks {
		if c.EndTime.After(cutoff) {
			sum += c.Confidence
			n++
		}
	}
	sess.mu.RUnlock()

	if n == 0 {
		return
	}
	mean := sum / float64(n)

	sess.audioQualityMu.Lock()
	sess.audioQuality = gradeFromConfidence(mean)
	sess.audioQualityMu.Unlock()
}

func gradeFromConfidence(mean float64) string {
	switch {
	case mean >= 0.90:
		return "excellent"
	case mean >= 0.80:
		return "good"
	case mean >= 0.60:
		return "fair"
	case mean >= 0.40:
		return "poor"
	default:
		return "unusable"
	}
}

// AudioQuality returns the most recently computed quality grade for a
// session, or "" if none has been computed yet.
func (s *Service) AudioQuality(sessionID uuid.UUID) string {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return ""
	}
	sess.audioQualityMu.Lock()
	defer sess.audioQualityMu.Unlock()
	return sess.audioQuality
}

// GetTranscriptChunks returns chunks with ChunkID > since, in production
// order.
func (s *Service) GetTranscriptChunks(sessionID uuid.UUID, since int) ([]TranscriptChunk, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transcription: session %s does not exist", sessionID)
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	out := make([]TranscriptChunk, 0, len(sess.chunks))
	for _, c := range sess.chunks {
		if c.ChunkID > since {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetFullTranscript concatenates every chunk's text, in production order,
// space-separated.
func (s *Service) GetFullTranscript(sessionID uuid.UUID) (string, error) {
	chunks, err := s.GetTranscriptChunks(sessionID, -1)
	if err != nil {
		return "", err
	}
	return FormatTranscriptWithTimestamps(chunks, false), nil
}

// GetNewTranscriptBytes returns only the text produced since the last call
// for this session (tracked by chunk id high-water mark), for the Session
// Manager's append-only partial-persistence cadence.
func (s *Service) GetNewTranscriptBytes(sessionID uuid.UUID, sinceChunkID int) (string, int, error) {
	chunks, err := s.GetTranscriptChunks(sessionID, sinceChunkID)
	if err != nil {
		return "", sinceChunkID, err
	}
	if len(chunks) == 0 {
		return "", sinceChunkID, nil
	}
	var text string
	for i, c := range chunks {
		if i > 0 {
			text += " "
		}
		text += c.Text
	}
	return text, chunks[len(chunks)-1].ChunkID, nil
}

// Speakers returns the per-session speaker map.
func (s *Service) Speakers(sessionID uuid.UUID) []Speaker {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	sess.speakersMu.Lock()
	defer sess.speakersMu.Unlock()
	out := make([]Speaker, 0, len(sess.speakers))
	for _, sp := range sess.speakers {
		out = append(out, sp)
	}
	return out
}
