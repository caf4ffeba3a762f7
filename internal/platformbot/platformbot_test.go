package platformbot_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/meeting-intelligence/internal/platformbot"
	_ "github.com/yourusername/meeting-intelligence/internal/platformbot/meet"
	_ "github.com/yourusername/meeting-intelligence/internal/platformbot/teams"
	_ "github.com/yourusername/meeting-intelligence/internal/platformbot/zoom"
)

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		url      string
		override platformbot.Platform
		want     platformbot.Platform
		wantErr  bool
	}{
		{url: "https://meet.google.com/abc-defg-hij", want: platformbot.PlatformMeet},
		{url: "https://teams.microsoft.com/l/meetup-join/x", want: platformbot.PlatformTeams},
		{url: "https://teams.live.com/meet/x", want: platformbot.PlatformTeams},
		{url: "https://us02web.zoom.us/j/123", want: platformbot.PlatformZoom},
		{url: "https://meet.google.com/abc", override: platformbot.PlatformZoom, want: platformbot.PlatformZoom},
		{url: "https://example.com/join", wantErr: true},
	}

	for _, tc := range cases {
		got, err := platformbot.DetectPlatform(tc.url, tc.override)
		if tc.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestServiceJoinRejectsDuplicateBotSessionID(t *testing.T) {
	svc := platformbot.NewService(nil)
	ctx := context.Background()

	_, err := svc.Join(ctx, uuid.New(), "https://meet.google.com/abc", "", "bot-1", nil)
	require.NoError(t, err)

	_, err = svc.Join(ctx, uuid.New(), "https://meet.google.com/def", "", "bot-1", nil)
	assert.Error(t, err, "duplicate bot_session_id on the same platform should be rejected")
}

func TestServiceJoinAndStartTranscription(t *testing.T) {
	svc := platformbot.NewService(nil)
	ctx := context.Background()
	sessionID := uuid.New()

	platform, err := svc.Join(ctx, sessionID, "https://meet.google.com/abc", "", "bot-2", nil)
	require.NoError(t, err)
	assert.Equal(t, platformbot.PlatformMeet, platform)

	streamID, err := svc.StartTranscription(ctx, sessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, streamID)

	require.NoError(t, svc.Leave(ctx, sessionID))
}
