package rest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudgroundcontrol/botfleet/pkg/apperr"
	"github.com/cloudgroundcontrol/botfleet/pkg/fleet"
)

// SessionHeader carries the caller's session grouping key. Every control
// operation requires it before any side effect.
const SessionHeader = "X-Session-Key"

type fleetController struct {
	fleet.Service
}

func NewFleetController(service fleet.Service) fleetController {
	return fleetController{service}
}

var ErrEmptyFields = errors.New("one or more fields is empty")

func sessionKey(c echo.Context) (string, error) {
	key := c.Request().Header.Get(SessionHeader)
	if key == "" {
		return "", translate(&apperr.AuthError{Reason: "missing session key"})
	}
	return key, nil
}

type AddBotsRequest struct {
	MeetingURL string `json:"meetingUrl"`
	BotCount   int    `json:"botCount"`
	TotalBots  int    `json:"totalBots"`
}

type AddBotsResponse struct {
	Bots      []fleet.BotView `json:"bots"`
	TotalBots int             `json:"totalBots"`
}

func (fc *fleetController) AddBots(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return err
	}

	// Bind request data
	data := new(AddBotsRequest)
	if err := c.Bind(data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	// Sanitise request
	if data.MeetingURL == "" || data.BotCount < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, ErrEmptyFields)
	}

	// Call service
	result, err := fc.Service.AddBots(c.Request().Context(), fleet.AddBotsRequest{
		SessionKey:    key,
		MeetingURL:    data.MeetingURL,
		Count:         data.BotCount,
		ExistingTotal: data.TotalBots,
	})
	if err != nil {
		return translate(err)
	}

	return c.JSON(http.StatusOK, AddBotsResponse{Bots: result.Bots, TotalBots: result.Total})
}

func (fc *fleetController) StopRecording(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return err
	}

	if err := fc.Service.StopAll(c.Request().Context(), key); err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (fc *fleetController) ClearBots(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return err
	}

	fc.Service.Clear(key)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type ResetBotsResponse struct {
	Success bool            `json:"success"`
	Bots    []fleet.BotView `json:"bots"`
}

func (fc *fleetController) ResetBots(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return err
	}

	bots := fc.Service.Reset(key)
	return c.JSON(http.StatusOK, ResetBotsResponse{Success: true, Bots: bots})
}

func (fc *fleetController) RecordingState(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return err
	}

	state, err := fc.Service.RecordingState(c.Request().Context(), key)
	if err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, state)
}

type SummarizeRequest struct {
	BotID  string `json:"botId"`
	Prompt string `json:"prompt"`
}

type SummarizeResponse struct {
	Summary string `json:"summary"`
}

func (fc *fleetController) Summarize(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return err
	}

	// Bind request data
	data := new(SummarizeRequest)
	if err := c.Bind(data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	// Sanitise request
	if data.BotID == "" || data.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ErrEmptyFields)
	}

	// Call service
	summary, err := fc.Service.Summarize(c.Request().Context(), fleet.SummarizeRequest{
		SessionKey: key,
		BotID:      data.BotID,
		Prompt:     data.Prompt,
	})
	if err != nil {
		return translate(err)
	}

	return c.JSON(http.StatusOK, SummarizeResponse{Summary: summary})
}
