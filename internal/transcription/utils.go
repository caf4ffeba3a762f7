package transcription

import (
	"fmt"
	"strings"
	"time"
)

// MergeChunks merges consecutive chunks from the same speaker whose gap is
// within threshold. Text is concatenated with a single space, confidence is
// averaged, bounds are taken from the outermost chunks, and is_final is
// taken from the last chunk in the run.
func MergeChunks(chunks []TranscriptChunk, threshold time.Duration) []TranscriptChunk {
	if len(chunks) == 0 {
		return nil
	}

	merged := make([]TranscriptChunk, 0, len(chunks))
	current := chunks[0]
	var confidenceSum float64 = current.Confidence
	var runLen = 1

	flush := func() {
		current.Confidence = confidenceSum / float64(runLen)
		merged = append(merged, current)
	}

	for i := 1; i < len(chunks); i++ {
		next := chunks[i]
		gap := next.StartTime.Sub(current.EndTime)
		if next.SpeakerID == current.SpeakerID && gap <= threshold {
			current.Text = current.Text + " " + next.Text
			current.EndTime = next.EndTime
			current.IsFinal = next.IsFinal
			confidenceSum += next.Confidence
			runLen++
			continue
		}
		flush()
		current = next
		confidenceSum = next.Confidence
		runLen = 1
	}
	flush()

	return merged
}

// FormatTranscriptWithTimestamps renders chunks as a human-readable
// transcript. When withTimestamps is true each line is prefixed with
// "[mm:ss] speaker: text" relative to the first chunk's start time;
// otherwise chunks are joined with a single space.
func FormatTranscriptWithTimestamps(chunks []TranscriptChunk, withTimestamps bool) string {
	if len(chunks) == 0 {
		return ""
	}
	if !withTimestamps {
		var b strings.Builder
		for i, c := range chunks {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(c.Text)
		}
		return b.String()
	}

	base := chunks[0].StartTime
	var b strings.Builder
	for _, c := range chunks {
		offset := c.StartTime.Sub(base)
		minutes := int(offset.Minutes())
		seconds := int(offset.Seconds()) % 60
		speaker := c.SpeakerID
		if speaker == "" {
			speaker = "unknown"
		}
		fmt.Fprintf(&b, "[%02d:%02d] %s: %s\n", minutes, seconds, speaker, c.Text)
	}
	return b.String()
}

// SpeakerStatistics summarizes one speaker's contribution to a transcript.
type SpeakerStatistics struct {
	SpeakerID      string
	ChunkCount     int
	TotalWords     int
	SpeakingTime   time.Duration
	MeanConfidence float64
}

// ExtractSpeakerStatistics aggregates per-speaker chunk counts, word counts,
// cumulative speaking time, and mean confidence.
func ExtractSpeakerStatistics(chunks []TranscriptChunk) map[string]SpeakerStatistics {
	stats := make(map[string]SpeakerStatistics)
	confidenceSums := make(map[string]float64)

	for _, c := range chunks {
		s := stats[c.SpeakerID]
		s.SpeakerID = c.SpeakerID
		s.ChunkCount++
		s.TotalWords += len(strings.Fields(c.Text))
		s.SpeakingTime += c.EndTime.Sub(c.StartTime)
		confidenceSums[c.SpeakerID] += c.Confidence
		stats[c.SpeakerID] = s
	}

	for id, s := range stats {
		if s.ChunkCount > 0 {
			s.MeanConfidence = confidenceSums[id] / float64(s.ChunkCount)
		}
		stats[id] = s
	}
	return stats
}
