package session

import "time"

// ParticipantRecord tracks one participant seen by one bot. TalkSeconds is
// the live accumulation from active-speaker events; it is informational
// only, the reported talk share comes from the transcript snapshot.
type ParticipantRecord struct {
	ID            string
	Name          string
	IsHost        bool
	JoinedAt      time.Time
	TalkSeconds   float64
	SpeakingSince *time.Time
}
