package platformbot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/yourusername/meeting-intelligence/internal/logger"
)

// activeSession tracks the bookkeeping the Call Bot Service needs per
// session: which adapter and breaker own it, and its last-observed
// bot_session_id for the "same bot_session_id rejected twice" tie-break.
type activeSession struct {
	platform     Platform
	adapter      Adapter
	breaker      *gobreaker.CircuitBreaker
	botSessionID string
}

// Service is the Call Bot Service: owns the platform registry lookups, a
// per-platform circuit breaker, and the shared connection-monitor
// background task.
type Service struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*activeSession
	breakers map[Platform]*gobreaker.CircuitBreaker

	disconnectHandler DisconnectHandler
	pollInterval       time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService constructs the Call Bot Service. handler is notified whenever
// the connection monitor observes a session has gone disconnected.
func NewService(handler DisconnectHandler) *Service {
	return &Service{
		sessions:          make(map[uuid.UUID]*activeSession),
		breakers:          make(map[Platform]*gobreaker.CircuitBreaker),
		disconnectHandler: handler,
		pollInterval:      10 * time.Second,
	}
}

// SetDisconnectHandler wires the handler after construction, for callers
// (cmd/server) that must build the Session Manager and the Call Bot
// Service in a cycle: the Manager needs a *Service to join/leave/poll
// through, and the Service needs the Manager as its DisconnectHandler.
func (s *Service) SetDisconnectHandler(handler DisconnectHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectHandler = handler
}

func (s *Service) breakerFor(platform Platform) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[platform]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(platform),
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	s.breakers[platform] = b
	return b
}

// Join authenticates (if credentials are supplied) and joins a meeting,
// rejecting a second session that reuses a bot_session_id already seen for
// the same platform.
func (s *Service) Join(ctx context.Context, sessionID uuid.UUID, meetingURL string, override Platform, botSessionID string, credentials map[string]string) (Platform, error) {
	platform, err := DetectPlatform(meetingURL, override)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	for id, existing := range s.sessions {
		if id != sessionID && existing.platform == platform && existing.botSessionID != "" && existing.botSessionID == botSessionID {
			s.mu.Unlock()
			return "", fmt.Errorf("platformbot: bot_session_id %q already active on platform %s", botSessionID, platform)
		}
	}
	s.mu.Unlock()

	adapter, err := New(platform)
	if err != nil {
		return "", err
	}

	if len(credentials) > 0 {
		if err := adapter.Authenticate(ctx, credentials); err != nil {
			return "", fmt.Errorf("platformbot: authenticate: %w", err)
		}
	}

	if err := adapter.Join(ctx, meetingURL, sessionID.String()); err != nil {
		return "", fmt.Errorf("platformbot: join: %w", err)
	}

	s.mu.Lock()
	s.sessions[sessionID] = &activeSession{
		platform:     platform,
		adapter:      adapter,
		breaker:      s.breakerFor(platform),
		botSessionID: botSessionID,
	}
	s.mu.Unlock()

	return platform, nil
}

// StartTranscription must be called after Join.
func (s *Service) StartTranscription(ctx context.Context, sessionID uuid.UUID) (string, error) {
	sess, ok := s.get(sessionID)
	if !ok {
		return "", fmt.Errorf("platformbot: unknown session %s", sessionID)
	}
	return sess.adapter.StartTranscription(ctx, sessionID.String())
}

// Leave instructs the adapter to leave and forgets the session.
func (s *Service) Leave(ctx context.Context, sessionID uuid.UUID) error {
	sess, ok := s.get(sessionID)
	if !ok {
		return nil
	}
	err := sess.adapter.Leave(ctx, sessionID.String())
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return err
}

func (s *Service) get(sessionID uuid.UUID) (*activeSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// StartMonitor launches the shared connection-monitor background task.
func (s *Service) StartMonitor(ctx context.Context) {
	monitorCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.runMonitor(monitorCtx)
}

// StopMonitor cancels and waits for the connection monitor to exit.
func (s *Service) StopMonitor() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Service) runMonitor(ctx context.Context) {
	defer s.wg.Done()
	log := logger.WithComponent("platformbot")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollAll(ctx, log)
		}
	}
}

// pollAll queries every active session's adapter status through its
// platform's circuit breaker, handing disconnected sessions to the Session
// Manager's retry policy.
func (s *Service) pollAll(ctx context.Context, log zerolog.Logger) {
	s.mu.RLock()
	snapshot := make(map[uuid.UUID]*activeSession, len(s.sessions))
	for id, sess := range s.sessions {
		snapshot[id] = sess
	}
	handler := s.disconnectHandler
	s.mu.RUnlock()

	for sessionID, sess := range snapshot {
		result, err := sess.breaker.Execute(func() (interface{}, error) {
			return sess.adapter.GetConnectionStatus(ctx, sessionID.String())
		})
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("connection status check failed")
			continue
		}
		status := result.(ConnectionStatus)
		if status == StatusDisconnected && handler != nil {
			handler.HandleDisconnection(sessionID)
		}
	}
}
