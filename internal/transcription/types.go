// Package transcription is the hardest concurrency core of the pipeline: it
// turns a per-session, producer-pushed stream of audio chunks into an
// ordered, speaker-tagged transcript under backpressure, with a quality
// monitor rolling up confidence into an audio-quality grade.
package transcription

import "github.com/yourusername/meeting-intelligence/internal/transcription/types"

// The data shapes below live in internal/transcription/types so that the
// Transcription Engine package (internal/transcription/engine) can depend
// on them without importing this package back — aliased here so every
// existing transcription.* reference keeps working unchanged.
type (
	AudioChunk      = types.AudioChunk
	TranscriptChunk = types.TranscriptChunk
	SpeakerRole     = types.SpeakerRole
	Speaker         = types.Speaker
	MeetingSummary  = types.MeetingSummary
	ActionItemDraft = types.ActionItemDraft
)

const (
	RoleHost        = types.RoleHost
	RoleParticipant = types.RoleParticipant
	RoleUnknown     = types.RoleUnknown
)
