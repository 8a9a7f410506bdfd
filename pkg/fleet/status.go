package fleet

// BotStatus is the provider-reported state of one bot, fetched live and
// never persisted.
type BotStatus string

const (
	StatusStarting        BotStatus = "starting"
	StatusJoiningCall     BotStatus = "joining_call"
	StatusRecording       BotStatus = "recording"
	StatusInCallRecording BotStatus = "in_call_recording"
	StatusStopping        BotStatus = "stopping"
	StatusLeavingCall     BotStatus = "leaving_call"
	StatusStopped         BotStatus = "stopped"
	StatusLeftCall        BotStatus = "left_call"
	StatusError           BotStatus = "error"
	StatusUnknown         BotStatus = "unknown"
)

// SessionStatus is the reduction of all bot statuses for one session.
type SessionStatus string

const (
	SessionRecording SessionStatus = "recording"
	SessionStarting  SessionStatus = "starting"
	SessionStopping  SessionStatus = "stopping"
	SessionStopped   SessionStatus = "stopped"
	SessionError     SessionStatus = "error"
	SessionUnknown   SessionStatus = "unknown"
)

// ReduceSessionState collapses the bot statuses into one session status.
// Rules are ordered and the first match wins: one recording bot makes the
// whole session recording, while "stopped" requires every bot to agree.
func ReduceSessionState(statuses []BotStatus) SessionStatus {
	if len(statuses) == 0 {
		return SessionStopped
	}
	if anyOf(statuses, StatusRecording, StatusInCallRecording) {
		return SessionRecording
	}
	if anyOf(statuses, StatusStarting, StatusJoiningCall) {
		return SessionStarting
	}
	if anyOf(statuses, StatusStopping, StatusLeavingCall) {
		return SessionStopping
	}
	if allOf(statuses, StatusStopped, StatusLeftCall) {
		return SessionStopped
	}
	if anyOf(statuses, StatusError) {
		return SessionError
	}
	return SessionUnknown
}

func anyOf(statuses []BotStatus, match ...BotStatus) bool {
	for _, s := range statuses {
		for _, m := range match {
			if s == m {
				return true
			}
		}
	}
	return false
}

func allOf(statuses []BotStatus, match ...BotStatus) bool {
	for _, s := range statuses {
		found := false
		for _, m := range match {
			if s == m {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
