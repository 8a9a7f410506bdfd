package recall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testClient(handler http.Handler) (Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(
		Credentials{BaseURL: srv.URL, Token: "test-token"},
		WebhookEndpoints{
			Transcription: "https://app.example/webhook/transcription?secret=s",
			Events:        "https://app.example/webhook/events?secret=s",
			Chat:          "https://app.example/webhook/chat?secret=s",
		},
	)
	return c, srv
}

func TestCreateBotSendsWebhookDestinations(t *testing.T) {
	var got map[string]interface{}
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/bot", r.URL.Path)
		require.Equal(t, "Token test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "bot-1"})
	}))
	defer srv.Close()

	bot, err := c.CreateBot(context.Background(), CreateBotRequest{
		MeetingURL: "https://zoom.example/j/123",
		BotName:    "Notetaker # 1",
	})
	require.NoError(t, err)
	require.Equal(t, "bot-1", bot.ID)

	require.Equal(t, "Notetaker # 1", got["bot_name"])
	rtt, ok := got["real_time_transcription"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, true, rtt["partial_results"])
	require.Contains(t, rtt["destination_url"], "secret=")
}

func TestGetBotDecodesStatusHistory(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/bot/bot-1", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "bot-1",
			"status_changes": [{"code": "joining_call"}, {"code": "in_call_recording"}],
			"meeting_participants": [{"id": "p1", "name": "Alice", "is_host": true}]
		}`))
	}))
	defer srv.Close()

	bot, err := c.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	require.Equal(t, "in_call_recording", bot.CurrentStatus())
	require.Len(t, bot.MeetingParticipants, 1)
	require.True(t, bot.MeetingParticipants[0].IsHost)
}

func TestCurrentStatusWithoutHistory(t *testing.T) {
	b := &Bot{ID: "bot-1"}
	require.Equal(t, "unknown", b.CurrentStatus())
}

func TestLeaveCallSurfacesProviderError(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := c.LeaveCall(context.Background(), "bot-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
