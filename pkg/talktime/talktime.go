// Package talktime computes per-speaker speaking time from a transcript log.
package talktime

// Word is one transcribed word with provider-reported timing in seconds.
type Word struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Utterance is one unit of transcribed speech. Partial results arrive with
// IsFinal false and are kept in the log but never counted towards talk time.
type Utterance struct {
	Speaker string `json:"speaker"`
	Words   []Word `json:"words"`
	IsFinal bool   `json:"is_final"`
}

// Share is the derived talk-time slice for one speaker.
type Share struct {
	Seconds    float64 `json:"seconds"`
	Percentage float64 `json:"percentage"`
}

// UnknownSpeaker labels utterances the provider could not attribute.
const UnknownSpeaker = "Unknown"

// Aggregate folds a transcript log into per-speaker shares. Only final
// utterances with at least one word count; an utterance's duration is the
// span from its first word's start to its last word's end, and non-positive
// spans are ignored. When nothing counted, every percentage is 0.
func Aggregate(transcript []Utterance) map[string]Share {
	seconds := make(map[string]float64)
	var total float64

	for _, u := range transcript {
		if !u.IsFinal || len(u.Words) == 0 {
			continue
		}
		duration := u.Words[len(u.Words)-1].EndTime - u.Words[0].StartTime
		if duration <= 0 {
			continue
		}
		speaker := u.Speaker
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		seconds[speaker] += duration
		total += duration
	}

	shares := make(map[string]Share, len(seconds))
	for speaker, s := range seconds {
		share := Share{Seconds: s}
		if total > 0 {
			share.Percentage = s / total * 100
		}
		shares[speaker] = share
	}
	return shares
}
