package session

// EventKind is the closed set of lifecycle notifications the provider
// pushes. Anything else parses to EventUnknown, which callers log and
// acknowledge rather than drop silently.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventParticipantJoin
	EventParticipantLeave
	EventSpeakerStart
	EventSpeakerEnd
)

func (k EventKind) String() string {
	switch k {
	case EventParticipantJoin:
		return "participant_join"
	case EventParticipantLeave:
		return "participant_leave"
	case EventSpeakerStart:
		return "active_speaker_start"
	case EventSpeakerEnd:
		return "active_speaker_end"
	}
	return "unknown"
}

// ParseEventKind maps the provider's event discriminator strings.
func ParseEventKind(s string) EventKind {
	switch s {
	case "bot.participant_join":
		return EventParticipantJoin
	case "bot.participant_leave":
		return EventParticipantLeave
	case "bot.active_speaker_start":
		return EventSpeakerStart
	case "bot.active_speaker_end":
		return EventSpeakerEnd
	}
	return EventUnknown
}

// ParticipantInfo is the participant payload attached to lifecycle events.
type ParticipantInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
}

// Event is one parsed lifecycle notification.
type Event struct {
	Kind        EventKind
	Participant ParticipantInfo
}
