// Package engine defines the pluggable Transcription Engine contract and a
// name-keyed registry ("mock", "remote") — no reflection-based dispatch.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourusername/meeting-intelligence/internal/transcription/types"
)

// Config is the engine configuration passed to Initialize; concrete engines
// read the fields they need.
type Config struct {
	APIKey string
	Model  string
}

// Engine is the pluggable transcription/summarization backend. Every method
// is context-aware so a session Stop() can cancel an in-flight RPC.
type Engine interface {
	Initialize(ctx context.Context, cfg Config) error
	TranscribeChunk(ctx context.Context, audio types.AudioChunk) (types.TranscriptChunk, error)
	IdentifySpeaker(ctx context.Context, audio types.AudioChunk) (types.Speaker, error)
	GenerateSummary(ctx context.Context, fullText string, speakers []types.Speaker) (types.MeetingSummary, error)
	ExtractActionItems(ctx context.Context, fullText string) ([]types.ActionItemDraft, error)
	SuggestNextSteps(ctx context.Context, fullText, summaryText string) ([]string, error)
}

// Factory builds a new, uninitialized Engine instance.
type Factory func() Engine

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds an engine factory under a stable name. Called from each
// engine subpackage's init().
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// New looks up a registered engine by name and constructs it.
func New(name string) (Engine, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: no engine registered under name %q", name)
	}
	return factory(), nil
}
