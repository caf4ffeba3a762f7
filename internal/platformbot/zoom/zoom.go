// Package zoom is the Zoom platform adapter. Like teams, it shares the
// registry/dispatch machinery without a live transport (§4.2).
package zoom

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/meeting-intelligence/internal/platformbot"
)

func init() {
	platformbot.Register(platformbot.PlatformZoom, func() platformbot.Adapter { return New() })
}

type Adapter struct {
	mu       sync.Mutex
	sessions map[string]platformbot.ConnectionStatus
}

func New() *Adapter {
	return &Adapter{sessions: make(map[string]platformbot.ConnectionStatus)}
}

func (a *Adapter) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (a *Adapter) Join(ctx context.Context, meetingURL, sessionID string) error {
	a.mu.Lock()
	if _, ok := a.sessions[sessionID]; ok {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}

	a.mu.Lock()
	a.sessions[sessionID] = platformbot.StatusConnected
	a.mu.Unlock()
	return nil
}

func (a *Adapter) StartTranscription(ctx context.Context, sessionID string) (string, error) {
	a.mu.Lock()
	status, ok := a.sessions[sessionID]
	if !ok || status != platformbot.StatusConnected {
		a.mu.Unlock()
		return "", fmt.Errorf("zoom adapter: session %s not connected", sessionID)
	}
	a.sessions[sessionID] = platformbot.StatusTranscribing
	a.mu.Unlock()
	return "zoom-stream-" + sessionID, nil
}

func (a *Adapter) Leave(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	delete(a.sessions, sessionID)
	a.mu.Unlock()
	return nil
}

func (a *Adapter) GetConnectionStatus(ctx context.Context, sessionID string) (platformbot.ConnectionStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	status, ok := a.sessions[sessionID]
	if !ok {
		return platformbot.StatusDisconnected, nil
	}
	return status, nil
}
