package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cloudgroundcontrol/botfleet/pkg/talktime"
	"github.com/labstack/gommon/log"
)

// BatchSize is the number of appended utterances between full recomputes
// of the talk-time snapshot.
const BatchSize = 10

// Bot is the local ledger for one provider bot: its transcript log, chat
// log, participant map and cached talk-time snapshot. Webhook notifications
// for the same bot race, so every mutation holds the bot lock.
type Bot struct {
	id string

	lock         sync.Mutex
	transcript   []talktime.Utterance
	chat         []json.RawMessage
	participants map[string]*ParticipantRecord
	shares       map[string]talktime.Share
	summary      string
}

func newBot(id string) *Bot {
	return &Bot{
		id:           id,
		participants: make(map[string]*ParticipantRecord),
		shares:       make(map[string]talktime.Share),
	}
}

func (b *Bot) ID() string {
	return b.id
}

// AppendUtterance adds one delivered utterance to the log, partials
// included. Every BatchSize appends the whole log is re-aggregated and the
// snapshot replaced; returns whether that happened.
func (b *Bot) AppendUtterance(u talktime.Utterance) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.transcript = append(b.transcript, u)
	if len(b.transcript)%BatchSize != 0 {
		return false
	}
	b.shares = talktime.Aggregate(b.transcript)
	log.Debugf("recomputed talk time | bot: %s, utterances: %d, speakers: %d", b.id, len(b.transcript), len(b.shares))
	return true
}

// AppendChat stores a chat message verbatim.
func (b *Bot) AppendChat(message json.RawMessage) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.chat = append(b.chat, message)
}

// ApplyEvent folds one lifecycle event into the participant map. Events
// arrive at least once and possibly out of order, so a leave without a join
// and an end without a start are no-ops, and a second start overwrites the
// open interval (last start wins).
func (b *Bot) ApplyEvent(e Event) {
	b.lock.Lock()
	defer b.lock.Unlock()

	switch e.Kind {
	case EventParticipantJoin:
		b.participants[e.Participant.ID] = &ParticipantRecord{
			ID:       e.Participant.ID,
			Name:     e.Participant.Name,
			IsHost:   e.Participant.IsHost,
			JoinedAt: time.Now(),
		}
	case EventParticipantLeave:
		delete(b.participants, e.Participant.ID)
	case EventSpeakerStart:
		p, ok := b.participants[e.Participant.ID]
		if !ok {
			return
		}
		now := time.Now()
		p.SpeakingSince = &now
	case EventSpeakerEnd:
		p, ok := b.participants[e.Participant.ID]
		if !ok || p.SpeakingSince == nil {
			return
		}
		p.TalkSeconds += time.Since(*p.SpeakingSince).Seconds()
		p.SpeakingSince = nil
	default:
		log.Warnf("ignoring unrecognised event | bot: %s", b.id)
	}
}

// Transcript returns a copy of the utterance log.
func (b *Bot) Transcript() []talktime.Utterance {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := make([]talktime.Utterance, len(b.transcript))
	copy(out, b.transcript)
	return out
}

// Chat returns a copy of the chat log.
func (b *Bot) Chat() []json.RawMessage {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := make([]json.RawMessage, len(b.chat))
	copy(out, b.chat)
	return out
}

// Shares returns a copy of the cached talk-time snapshot.
func (b *Bot) Shares() map[string]talktime.Share {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := make(map[string]talktime.Share, len(b.shares))
	for k, v := range b.shares {
		out[k] = v
	}
	return out
}

// Participants returns a copy of the participant records.
func (b *Bot) Participants() []ParticipantRecord {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := make([]ParticipantRecord, 0, len(b.participants))
	for _, p := range b.participants {
		out = append(out, *p)
	}
	return out
}

// Participant looks up one record by provider participant ID.
func (b *Bot) Participant(id string) (ParticipantRecord, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	p, ok := b.participants[id]
	if !ok {
		return ParticipantRecord{}, false
	}
	return *p, true
}

func (b *Bot) SetSummary(text string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.summary = text
}

func (b *Bot) Summary() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.summary
}

// reset zeroes the ledger while keeping the bot registered.
func (b *Bot) reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.transcript = nil
	b.chat = nil
	b.participants = make(map[string]*ParticipantRecord)
	b.shares = make(map[string]talktime.Share)
	b.summary = ""
}
