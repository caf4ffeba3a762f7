package transcription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/meeting-intelligence/internal/metrics"
	"github.com/yourusername/meeting-intelligence/internal/transcription"
	"github.com/yourusername/meeting-intelligence/internal/transcription/engine/mock"
)

func TestServiceTranscribesChunksInOrder(t *testing.T) {
	svc := transcription.NewService(transcription.Config{MaxChunkQueueSize: 10, ErrorThreshold: 5, QualityCheckIntervalS: 1}, metrics.Noop{})
	sessionID := uuid.New()
	eng := mock.New()

	svc.StartSession(context.Background(), sessionID, eng)
	defer svc.StopSession(sessionID)

	for i := 0; i < 3; i++ {
		err := svc.ProcessAudioChunk(sessionID, transcription.AudioChunk{
			ChunkID:    uuid.New(),
			AudioBytes: []byte{1, 2, 3},
			Timestamp:  time.Now(),
			Duration:   time.Second,
			SampleRate: 16000,
			Channels:   1,
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		chunks, err := svc.GetTranscriptChunks(sessionID, -1)
		return err == nil && len(chunks) == 3
	}, 2*time.Second, 10*time.Millisecond)

	chunks, err := svc.GetTranscriptChunks(sessionID, -1)
	require.NoError(t, err)
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i-1].ChunkID, chunks[i].ChunkID)
	}
}

func TestProcessAudioChunkRejectsUnknownSession(t *testing.T) {
	svc := transcription.NewService(transcription.DefaultConfig(), metrics.Noop{})
	err := svc.ProcessAudioChunk(uuid.New(), transcription.AudioChunk{})
	assert.Error(t, err)
}

func TestMergeChunksConcatenatesSameSpeakerWithinThreshold(t *testing.T) {
	base := time.Now()
	chunks := []transcription.TranscriptChunk{
		{Text: "hello", SpeakerID: "s1", StartTime: base, EndTime: base.Add(time.Second), Confidence: 0.8},
		{Text: "world", SpeakerID: "s1", StartTime: base.Add(1100 * time.Millisecond), EndTime: base.Add(2 * time.Second), Confidence: 0.9, IsFinal: true},
		{Text: "hi there", SpeakerID: "s2", StartTime: base.Add(5 * time.Second), EndTime: base.Add(6 * time.Second), Confidence: 0.7},
	}

	merged := transcription.MergeChunks(chunks, 2*time.Second)
	require.Len(t, merged, 2)
	assert.Equal(t, "hello world", merged[0].Text)
	assert.InDelta(t, 0.85, merged[0].Confidence, 0.001)
	assert.True(t, merged[0].IsFinal)
	assert.Equal(t, "hi there", merged[1].Text)
}

func TestExtractSpeakerStatistics(t *testing.T) {
	base := time.Now()
	chunks := []transcription.TranscriptChunk{
		{Text: "one two", SpeakerID: "host", StartTime: base, EndTime: base.Add(time.Second), Confidence: 0.9},
		{Text: "three", SpeakerID: "host", StartTime: base.Add(time.Second), EndTime: base.Add(2 * time.Second), Confidence: 0.8},
	}
	stats := transcription.ExtractSpeakerStatistics(chunks)
	require.Contains(t, stats, "host")
	assert.Equal(t, 2, stats["host"].ChunkCount)
	assert.Equal(t, 3, stats["host"].TotalWords)
	assert.InDelta(t, 0.85, stats["host"].MeanConfidence, 0.001)
}
