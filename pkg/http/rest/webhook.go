package rest

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/cloudgroundcontrol/botfleet/pkg/session"
	"github.com/cloudgroundcontrol/botfleet/pkg/talktime"
)

// webhookController receives the provider's push notifications. Deliveries
// are at-least-once and unordered, so handlers only parse and reduce before
// acknowledging; anything semantic that cannot apply is a 200 no-op to
// avoid redelivery storms.
type webhookController struct {
	store  session.Store
	secret string
}

func NewWebhookController(store session.Store, secret string) webhookController {
	return webhookController{store: store, secret: secret}
}

// authorised compares the caller's secret in constant time. The comparison
// must not leak length or prefix timing.
func (wc *webhookController) authorised(c echo.Context) bool {
	presented := c.QueryParam("secret")
	return subtle.ConstantTimeCompare([]byte(presented), []byte(wc.secret)) == 1
}

func success(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type TranscriptionNotification struct {
	Data struct {
		BotID      string             `json:"bot_id"`
		Transcript talktime.Utterance `json:"transcript"`
	} `json:"data"`
}

func (wc *webhookController) Transcription(c echo.Context) error {
	if !wc.authorised(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	data := new(TranscriptionNotification)
	if err := c.Bind(data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if data.Data.BotID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ErrEmptyFields)
	}

	bot, ok := wc.store.LookupBot(data.Data.BotID)
	if !ok {
		log.Warnf("transcript for unregistered bot | bot: %s", data.Data.BotID)
		return success(c)
	}

	bot.AppendUtterance(data.Data.Transcript)
	return success(c)
}

type EventNotification struct {
	BotID     string                  `json:"bot_id"`
	EventType string                  `json:"event_type"`
	Data      session.ParticipantInfo `json:"data"`
}

func (wc *webhookController) Events(c echo.Context) error {
	if !wc.authorised(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	data := new(EventNotification)
	if err := c.Bind(data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if data.BotID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ErrEmptyFields)
	}

	kind := session.ParseEventKind(data.EventType)
	if kind == session.EventUnknown {
		log.Warnf("unrecognised event type | bot: %s, event: %s", data.BotID, data.EventType)
		return success(c)
	}

	bot, ok := wc.store.LookupBot(data.BotID)
	if !ok {
		log.Warnf("event for unregistered bot | bot: %s, event: %s", data.BotID, data.EventType)
		return success(c)
	}

	log.Debugf("applying event | bot: %s, kind: %s, participant: %s", data.BotID, kind, data.Data.ID)
	bot.ApplyEvent(session.Event{Kind: kind, Participant: data.Data})
	return success(c)
}

type ChatNotification struct {
	BotID   string          `json:"bot_id"`
	Message json.RawMessage `json:"message"`
}

func (wc *webhookController) Chat(c echo.Context) error {
	if !wc.authorised(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	data := new(ChatNotification)
	if err := c.Bind(data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if data.BotID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ErrEmptyFields)
	}

	bot, ok := wc.store.LookupBot(data.BotID)
	if !ok {
		log.Warnf("chat for unregistered bot | bot: %s", data.BotID)
		return success(c)
	}

	bot.AppendChat(data.Message)
	return success(c)
}
