package fleet

import (
	"encoding/json"

	"github.com/cloudgroundcontrol/botfleet/pkg/talktime"
)

// BotView is the local ledger snapshot returned by add, reset and state
// queries.
type BotView struct {
	ID           string                    `json:"id"`
	Transcript   []talktime.Utterance      `json:"transcript"`
	Chat         []json.RawMessage         `json:"chat,omitempty"`
	Participants []ParticipantView         `json:"participants"`
	TalkTime     map[string]talktime.Share `json:"talkTime"`
	Summary      string                    `json:"summary"`
}

// ParticipantView merges the provider roster with the transcript-derived
// talk-time snapshot. TalkTime and TalkTimePercentage come from the
// snapshot; LiveTalkSeconds is the informational active-speaker
// accumulation from the ledger.
type ParticipantView struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	IsHost             bool    `json:"isHost"`
	TalkTime           float64 `json:"talkTime"`
	TalkTimePercentage string  `json:"talkTimePercentage"`
	LiveTalkSeconds    float64 `json:"liveTalkSeconds"`
}

// BotState is one bot's slice of the recording-state response.
type BotState struct {
	ID              string                 `json:"id"`
	State           BotStatus              `json:"state"`
	Transcript      []talktime.Utterance   `json:"transcript"`
	Participants    []ParticipantView      `json:"participants"`
	MeetingMetadata map[string]interface{} `json:"meeting_metadata,omitempty"`
	Summary         string                 `json:"summary,omitempty"`
	Error           string                 `json:"error,omitempty"`
}

// RecordingState is the consolidated session status. Degraded is set when
// at least one bot's live status could not be fetched.
type RecordingState struct {
	State    SessionStatus `json:"state"`
	Bots     []BotState    `json:"bots"`
	Degraded bool          `json:"degraded,omitempty"`
}
