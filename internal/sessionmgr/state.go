// Package sessionmgr is the Session Manager (§4.1): the top-level per-call
// lifecycle state machine. One goroutine per active CallBotSession drives
// INITIALIZING -> JOINING -> CONNECTED -> TRANSCRIBING -> COMPLETED/FAILED,
// with DISCONNECTED as the recoverable detour the retry policy loops
// through. It binds a call to its transcription session and persists
// partial progress, fanning out to the Call Bot Service, the Transcription
// Service, and the Summary Generator.
package sessionmgr

// State is the Session Manager's lifecycle enum (§4.1). It is distinct from
// models.ConnectionStatus, which tracks the platform bot's own connection
// state; State is the manager's view of the whole session.
type State string

const (
	StateInitializing State = "initializing"
	StateJoining       State = "joining"
	StateConnected     State = "connected"
	StateTranscribing  State = "transcribing"
	StateDisconnected  State = "disconnected"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// validTransitions encodes the graph in §4.1. Neither the manager's loop nor
// its callers consult it or isValidTransition; the loop itself is the single
// source of truth for which edge to take.
var validTransitions = map[State][]State{
	StateInitializing: {StateJoining, StateFailed},
	StateJoining:       {StateConnected, StateDisconnected, StateFailed},
	StateConnected:     {StateTranscribing, StateFailed},
	StateTranscribing:  {StateDisconnected, StateCompleted},
	StateDisconnected:  {StateJoining, StateFailed},
}

func isValidTransition(from, to State) bool {
	for _, candidate := range validTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
