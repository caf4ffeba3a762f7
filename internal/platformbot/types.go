// Package platformbot is the Call Bot Service: dispatches per-session join/
// transcribe/leave calls to one of a name-keyed registry of platform
// adapters, and runs a single background connection monitor shared across
// every active session.
package platformbot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ConnectionStatus mirrors models.ConnectionStatus as a platform-adapter
// concept; the Call Bot Service never imports the persistence layer.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusTranscribing ConnectionStatus = "transcribing"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// Platform is one of the three supported conferencing vendors.
type Platform string

const (
	PlatformMeet  Platform = "meet"
	PlatformTeams Platform = "teams"
	PlatformZoom  Platform = "zoom"
)

// Adapter is the per-platform contract every vendor package implements.
type Adapter interface {
	Authenticate(ctx context.Context, credentials map[string]string) error
	Join(ctx context.Context, meetingURL, sessionID string) error
	StartTranscription(ctx context.Context, sessionID string) (streamID string, err error)
	Leave(ctx context.Context, sessionID string) error
	GetConnectionStatus(ctx context.Context, sessionID string) (ConnectionStatus, error)
}

// Factory builds a new, unconfigured Adapter instance.
type Factory func() Adapter

var (
	mu        sync.RWMutex
	factories = map[Platform]Factory{}
)

// Register adds an adapter factory under a platform name. Called from each
// vendor subpackage's init().
func Register(platform Platform, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[platform] = factory
}

// New looks up a registered adapter factory by platform and constructs it.
func New(platform Platform) (Adapter, error) {
	mu.RLock()
	factory, ok := factories[platform]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("platformbot: no adapter registered for platform %q", platform)
	}
	return factory(), nil
}

// DisconnectHandler is implemented by the Session Manager so the connection
// monitor can trigger the retry policy without the platformbot package
// importing sessionmgr.
type DisconnectHandler interface {
	HandleDisconnection(sessionID uuid.UUID)
}

// DetectPlatform maps a meeting URL's domain to a Platform. override, when
// non-empty, always wins over the URL per §4.2's tie-break rule.
func DetectPlatform(meetingURL string, override Platform) (Platform, error) {
	if override != "" {
		return override, nil
	}

	lower := strings.ToLower(meetingURL)
	switch {
	case strings.Contains(lower, "meet.google.com"):
		return PlatformMeet, nil
	case strings.Contains(lower, "teams.microsoft.com"), strings.Contains(lower, "teams.live.com"):
		return PlatformTeams, nil
	case strings.Contains(lower, "zoom.us"), strings.Contains(lower, "zoom.com"):
		return PlatformZoom, nil
	default:
		return "", fmt.Errorf("platformbot: unrecognized meeting URL domain: %s", meetingURL)
	}
}
