package sessionmgr

import (
	"github.com/google/uuid"

	"github.com/yourusername/meeting-intelligence/internal/logger"
	"github.com/yourusername/meeting-intelligence/internal/metrics"
)

// EventName enumerates the named events the manager emits (§4.1). Sinks are
// invoked strictly after the state has already been mutated.
type EventName string

const (
	EventSessionStarted         EventName = "session_started"
	EventSessionInitialized     EventName = "session_initialized"
	EventMeetingJoined          EventName = "meeting_joined"
	EventTranscriptionStarted   EventName = "transcription_started"
	EventSessionReconnecting    EventName = "session_reconnecting"
	EventSessionErrorRecoverable EventName = "session_error_recoverable"
	EventSessionErrorFatal      EventName = "session_error_fatal"
	EventSessionStopped         EventName = "session_stopped"
)

// Event carries a named occurrence plus the session and state it pertains
// to. Err is set for the two error events.
type Event struct {
	Name      EventName
	SessionID uuid.UUID
	MeetingID uuid.UUID
	State     State
	Err       error
}

// EventSink receives manager events. Implementations must not block state
// progress; the manager logs and swallows any panic/error from a sink.
type EventSink interface {
	Handle(Event)
}

// defaultSink logs every event via zerolog and records state transitions
// through MetricsRecorder — the concrete component the out-of-scope
// performance-monitoring sidecar would consume (§9/GLOSSARY).
type defaultSink struct {
	metrics metrics.Recorder
}

func newDefaultSink(rec metrics.Recorder) *defaultSink {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &defaultSink{metrics: rec}
}

func (d *defaultSink) Handle(e Event) {
	log := logger.WithSessionID(e.SessionID.String())
	entry := log.Info()
	if e.Name == EventSessionErrorRecoverable || e.Name == EventSessionErrorFatal {
		entry = log.Warn()
	}
	evt := entry.Str("event", string(e.Name)).Str("state", string(e.State))
	if e.Err != nil {
		evt = evt.Err(e.Err)
	}
	evt.Msg("session manager event")

	d.metrics.SessionTransition("", string(e.State))
}

// emit invokes every registered sink, logging and swallowing sink failures
// so a misbehaving sink never blocks state progress (§4.1).
func (m *Manager) emit(e Event) {
	for _, sink := range m.sinks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.WithComponent("sessionmgr").Error().
						Interface("panic", r).Str("event", string(e.Name)).
						Msg("event sink panicked; swallowed")
				}
			}()
			sink.Handle(e)
		}()
	}
}
