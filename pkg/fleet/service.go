// Package fleet coordinates the bots attached to one recording session:
// creating them through the provider, polling their live status, and
// reducing the fleet into one session-level state.
package fleet

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/labstack/gommon/log"
	"github.com/lithammer/shortuuid/v4"

	"github.com/cloudgroundcontrol/botfleet/pkg/apperr"
	"github.com/cloudgroundcontrol/botfleet/pkg/recall"
	"github.com/cloudgroundcontrol/botfleet/pkg/session"
	"github.com/cloudgroundcontrol/botfleet/pkg/summarize"
	"github.com/cloudgroundcontrol/botfleet/pkg/talktime"
	"github.com/cloudgroundcontrol/botfleet/pkg/upload"
)

type AddBotsRequest struct {
	SessionKey    string
	MeetingURL    string
	Count         int
	ExistingTotal int
}

type AddBotsResult struct {
	Bots  []BotView
	Total int
}

type SummarizeRequest struct {
	SessionKey string
	BotID      string
	Prompt     string
}

type Service interface {
	AddBots(ctx context.Context, req AddBotsRequest) (AddBotsResult, error)
	StopAll(ctx context.Context, sessionKey string) error
	Clear(sessionKey string)
	Reset(sessionKey string) []BotView
	RecordingState(ctx context.Context, sessionKey string) (RecordingState, error)
	Summarize(ctx context.Context, req SummarizeRequest) (string, error)
	SetUploader(uploader upload.Uploader)
}

type service struct {
	lock        sync.Mutex
	store       session.Store
	provider    recall.Client
	completions summarize.Client
	uploader    upload.Uploader
	botName     string
}

func NewService(store session.Store, provider recall.Client, completions summarize.Client, botName string) Service {
	return &service{
		store:       store,
		provider:    provider,
		completions: completions,
		botName:     botName,
	}
}

func (s *service) SetUploader(uploader upload.Uploader) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.uploader = uploader
}

func (s *service) getUploader() upload.Uploader {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.uploader
}

// AddBots creates req.Count bots through the provider and registers each
// handle as it is issued. Creation stops at the first provider failure;
// bots created before the failure stay registered and the caller reconciles
// through a later state query.
func (s *service) AddBots(ctx context.Context, req AddBotsRequest) (AddBotsResult, error) {
	sess := s.store.Get(req.SessionKey)

	// Adding is only allowed while the session is empty or already
	// capturing audio.
	handles := sess.Handles()
	if len(handles) > 0 {
		statuses, _ := s.pollStatuses(ctx, handles)
		if state := ReduceSessionState(statuses); state != SessionRecording {
			return AddBotsResult{}, apperr.Validationf("session is %s, bots can only be added while recording", state)
		}
	}

	reqID := shortuuid.New()
	views := make([]BotView, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		number := req.ExistingTotal + i + 1
		bot, err := s.provider.CreateBot(ctx, recall.CreateBotRequest{
			MeetingURL: req.MeetingURL,
			BotName:    fmt.Sprintf("%s # %d", s.botName, number),
		})
		if err != nil {
			log.Errorf("bot creation failed | request: %s, number: %d, error: %v", reqID, number, err)
			return AddBotsResult{}, apperr.Upstream("create bot", err)
		}

		sess.Register(bot.ID)
		log.Infof("bot created | request: %s, bot: %s, number: %d", reqID, bot.ID, number)
		views = append(views, BotView{
			ID:         bot.ID,
			Transcript: []talktime.Utterance{},
			TalkTime:   map[string]talktime.Share{},
		})
	}

	return AddBotsResult{Bots: views, Total: req.ExistingTotal + req.Count}, nil
}

// StopAll asks every registered bot to leave the call, archives the
// transcripts if an uploader is configured, and clears the session. Local
// state is cleared even when some leave requests fail, since it must not
// leak into the next session; the failures are still reported.
func (s *service) StopAll(ctx context.Context, sessionKey string) error {
	sess := s.store.Get(sessionKey)
	handles := sess.Handles()
	if len(handles) == 0 {
		return apperr.Validationf("no active bots")
	}

	// Snapshot before clearing so the archive survives the wipe.
	snapshots := make(map[string][]talktime.Utterance, len(handles))
	for _, id := range handles {
		if b, ok := sess.Bot(id); ok {
			snapshots[id] = b.Transcript()
		}
	}

	var wg sync.WaitGroup
	failures := make([]error, len(handles))
	for i, id := range handles {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			failures[i] = s.provider.LeaveCall(ctx, id)
		}(i, id)
	}
	wg.Wait()

	failed := 0
	for i, err := range failures {
		if err != nil {
			failed++
			log.Errorf("leave call failed | bot: %s, error: %v", handles[i], err)
		}
	}

	go s.archive(sessionKey, snapshots)
	sess.Clear()
	log.Infof("session stopped | session: %s, bots: %d, failed: %d", sessionKey, len(handles), failed)

	if failed > 0 {
		return apperr.Upstream("leave call", fmt.Errorf("%d of %d bots did not acknowledge", failed, len(handles)))
	}
	return nil
}

// Clear drops every bot reference without contacting the provider.
func (s *service) Clear(sessionKey string) {
	s.store.Get(sessionKey).Clear()
}

// Reset keeps the bot handles but zeroes their transcripts, participants
// and talk-time, returning the emptied views.
func (s *service) Reset(sessionKey string) []BotView {
	bots := s.store.Get(sessionKey).Reset()
	views := make([]BotView, 0, len(bots))
	for _, b := range bots {
		views = append(views, BotView{
			ID:           b.ID(),
			Transcript:   []talktime.Utterance{},
			Participants: []ParticipantView{},
			TalkTime:     map[string]talktime.Share{},
		})
	}
	return views
}

// RecordingState fans out one status fetch per bot, merges the provider
// roster with the local ledger, and reduces the statuses into the session
// state. One unreachable bot degrades the result instead of failing it.
func (s *service) RecordingState(ctx context.Context, sessionKey string) (RecordingState, error) {
	sess := s.store.Get(sessionKey)
	handles := sess.Handles()
	if len(handles) == 0 {
		return RecordingState{State: SessionStopped, Bots: []BotState{}}, nil
	}

	fetches := s.fetchBots(ctx, handles)

	state := RecordingState{Bots: make([]BotState, 0, len(handles))}
	statuses := make([]BotStatus, 0, len(handles))
	for i, id := range handles {
		bs := BotState{ID: id, State: StatusUnknown, Transcript: []talktime.Utterance{}, Participants: []ParticipantView{}}
		if ledger, ok := sess.Bot(id); ok {
			bs.Transcript = ledger.Transcript()
			bs.Summary = ledger.Summary()
		}

		if fetches[i].err != nil {
			log.Warnf("bot status unavailable | bot: %s, error: %v", id, fetches[i].err)
			bs.Error = "status unavailable"
			state.Degraded = true
		} else {
			bot := fetches[i].bot
			bs.State = BotStatus(bot.CurrentStatus())
			bs.MeetingMetadata = bot.MeetingMetadata
			if ledger, ok := sess.Bot(id); ok {
				bs.Participants = mergeParticipants(bot.MeetingParticipants, ledger)
			}
		}

		statuses = append(statuses, bs.State)
		state.Bots = append(state.Bots, bs)
	}

	state.State = ReduceSessionState(statuses)
	return state, nil
}

// Summarize flattens a bot's final transcript into a prompt from the
// catalogue, asks the completion proxy, and caches the answer on the bot.
func (s *service) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	sess := s.store.Get(req.SessionKey)
	ledger, ok := sess.Bot(req.BotID)
	if !ok {
		return "", apperr.Validationf("unknown bot %q", req.BotID)
	}

	prompt, err := summarize.BuildPrompt(req.Prompt, ledger.Transcript())
	if err != nil {
		return "", apperr.Validationf("unknown prompt %q", req.Prompt)
	}

	text, err := s.completions.Complete(ctx, prompt)
	if err != nil {
		return "", apperr.Upstream("summarize", err)
	}

	ledger.SetSummary(text)
	return text, nil
}

type botFetch struct {
	bot *recall.Bot
	err error
}

// fetchBots queries the provider for every handle concurrently and waits
// for all results. A single bot's failure never blocks the others.
func (s *service) fetchBots(ctx context.Context, handles []string) []botFetch {
	fetches := make([]botFetch, len(handles))
	var wg sync.WaitGroup
	for i, id := range handles {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			bot, err := s.provider.GetBot(ctx, id)
			fetches[i] = botFetch{bot: bot, err: err}
		}(i, id)
	}
	wg.Wait()
	return fetches
}

func (s *service) pollStatuses(ctx context.Context, handles []string) ([]BotStatus, bool) {
	fetches := s.fetchBots(ctx, handles)
	statuses := make([]BotStatus, 0, len(handles))
	degraded := false
	for _, f := range fetches {
		if f.err != nil {
			statuses = append(statuses, StatusUnknown)
			degraded = true
			continue
		}
		statuses = append(statuses, BotStatus(f.bot.CurrentStatus()))
	}
	return statuses, degraded
}

// mergeParticipants joins the live roster with local talk-time data. The
// snapshot is keyed by speaker label, so the join is by name; the live
// accumulator is keyed by participant ID.
func mergeParticipants(roster []recall.Participant, ledger *session.Bot) []ParticipantView {
	shares := ledger.Shares()
	views := make([]ParticipantView, 0, len(roster))
	for _, p := range roster {
		share := shares[p.Name]
		view := ParticipantView{
			ID:                 p.ID,
			Name:               p.Name,
			IsHost:             p.IsHost,
			TalkTime:           share.Seconds,
			TalkTimePercentage: strconv.FormatFloat(share.Percentage, 'f', 2, 64),
		}
		if record, ok := ledger.Participant(p.ID); ok {
			view.LiveTalkSeconds = record.TalkSeconds
		}
		views = append(views, view)
	}
	return views
}
