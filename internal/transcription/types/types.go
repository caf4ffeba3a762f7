// Package types holds the data shapes shared by the Transcription Service
// and the pluggable Transcription Engine contract. It depends on neither
// package, which is what lets `transcription` and `transcription/engine`
// both depend on it without forming a cycle between themselves.
package types

import (
	"time"

	"github.com/google/uuid"
)

// AudioChunk is an in-memory-only, immutable unit of producer-pushed audio.
type AudioChunk struct {
	ChunkID    uuid.UUID
	AudioBytes []byte
	Timestamp  time.Time
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// TranscriptChunk is one ordered, speaker-tagged fragment of a session's
// transcript. Once IsFinal is true it is never revised.
type TranscriptChunk struct {
	ChunkID    int // monotonic within a session
	Text       string
	SpeakerID  string
	StartTime  time.Time
	EndTime    time.Time
	Confidence float64
	IsFinal    bool
	Language   string
}

// SpeakerRole is the per-session role the service assigns a Speaker.
type SpeakerRole string

const (
	RoleHost        SpeakerRole = "host"
	RoleParticipant SpeakerRole = "participant"
	RoleUnknown     SpeakerRole = "unknown"
)

// Speaker is a per-session identified voice.
type Speaker struct {
	SpeakerID      string
	Name           string
	Role           SpeakerRole
	Confidence     float64
	VoiceSignature string
}

// MeetingSummary is the raw engine output handed to the Summary Generator;
// it is the seed from which a models.DraftSummary is built.
type MeetingSummary struct {
	SummaryText      string
	KeyPoints        []string
	Decisions        []string
	EngineConfidence float64
}

// ActionItemDraft is the engine's raw action-item extraction, prior to being
// attached to a specific DraftSummary by the Summary Generator.
type ActionItemDraft struct {
	Description string
	Assignee    string
	DueDate     string
	Priority    string
	Confidence  float64
	SourceText  string
}
