// Package recall wraps the meeting-bot provider's REST API. The provider is
// opaque: it issues bot handles, pushes webhook notifications, and exposes a
// status history per bot.
package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Bot is the provider's view of one bot.
type Bot struct {
	ID                  string                 `json:"id"`
	StatusChanges       []StatusChange         `json:"status_changes"`
	MeetingParticipants []Participant          `json:"meeting_participants"`
	MeetingMetadata     map[string]interface{} `json:"meeting_metadata"`
}

type StatusChange struct {
	Code      string `json:"code"`
	CreatedAt string `json:"created_at"`
}

type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
}

// CurrentStatus is the code of the most recent status change, or "unknown"
// when the provider has not reported any yet.
func (b *Bot) CurrentStatus() string {
	if len(b.StatusChanges) == 0 {
		return "unknown"
	}
	return b.StatusChanges[len(b.StatusChanges)-1].Code
}

type CreateBotRequest struct {
	MeetingURL string
	BotName    string
}

type Client interface {
	CreateBot(ctx context.Context, req CreateBotRequest) (*Bot, error)
	GetBot(ctx context.Context, id string) (*Bot, error)
	LeaveCall(ctx context.Context, id string) error
}

// Credentials locate and authenticate against the provider API.
type Credentials struct {
	BaseURL string
	Token   string
}

// WebhookEndpoints are the destination URLs handed to every created bot,
// secret included.
type WebhookEndpoints struct {
	Transcription string
	Events        string
	Chat          string
}

type client struct {
	creds Credentials
	hooks WebhookEndpoints
	http  *http.Client
}

func NewClient(creds Credentials, hooks WebhookEndpoints) Client {
	return &client{
		creds: creds,
		hooks: hooks,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) CreateBot(ctx context.Context, req CreateBotRequest) (*Bot, error) {
	payload := map[string]interface{}{
		"bot_name":    req.BotName,
		"meeting_url": req.MeetingURL,
		"transcription_options": map[string]interface{}{
			"provider": "default",
		},
		"real_time_transcription": map[string]interface{}{
			"destination_url": c.hooks.Transcription,
			"partial_results": true,
		},
		"real_time_media": map[string]interface{}{
			"webhook_call_events_destination_url":   c.hooks.Events,
			"webhook_chat_messages_destination_url": c.hooks.Chat,
		},
	}

	var bot Bot
	if err := c.do(ctx, http.MethodPost, "/api/v1/bot", payload, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

func (c *client) GetBot(ctx context.Context, id string) (*Bot, error) {
	var bot Bot
	if err := c.do(ctx, http.MethodGet, "/api/v1/bot/"+id, nil, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

func (c *client) LeaveCall(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/bot/"+id+"/leave_call", nil, nil)
}

func (c *client) do(ctx context.Context, method string, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.creds.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.creds.Token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("provider returned %d for %s %s", res.StatusCode, method, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
