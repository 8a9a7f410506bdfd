package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudgroundcontrol/botfleet/pkg/apperr"
	"github.com/cloudgroundcontrol/botfleet/pkg/recall"
	"github.com/cloudgroundcontrol/botfleet/pkg/session"
	"github.com/cloudgroundcontrol/botfleet/pkg/talktime"
)

type fakeProvider struct {
	mu        sync.Mutex
	created   []string
	failAfter int
	bots      map[string]*recall.Bot
	getErr    map[string]error
	leaveErr  map[string]error
	left      []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		failAfter: -1,
		bots:      make(map[string]*recall.Bot),
		getErr:    make(map[string]error),
		leaveErr:  make(map[string]error),
	}
}

func (f *fakeProvider) CreateBot(ctx context.Context, req recall.CreateBotRequest) (*recall.Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter >= 0 && len(f.created) >= f.failAfter {
		return nil, errors.New("quota exceeded")
	}
	id := fmt.Sprintf("bot-%d", len(f.created)+1)
	f.created = append(f.created, req.BotName)
	return &recall.Bot{ID: id}, nil
}

func (f *fakeProvider) GetBot(ctx context.Context, id string) (*recall.Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	if b, ok := f.bots[id]; ok {
		return b, nil
	}
	return &recall.Bot{ID: id}, nil
}

func (f *fakeProvider) LeaveCall(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.leaveErr[id]; err != nil {
		return err
	}
	f.left = append(f.left, id)
	return nil
}

func (f *fakeProvider) setStatus(id string, codes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bot := &recall.Bot{ID: id}
	for _, c := range codes {
		bot.StatusChanges = append(bot.StatusChanges, recall.StatusChange{Code: c})
	}
	f.bots[id] = bot
}

type fakeCompletions struct {
	text string
	err  error
}

func (f *fakeCompletions) Complete(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

type fakeUploader struct {
	uploaded chan string
}

func (f *fakeUploader) Upload(key string, body io.Reader) error {
	_, _ = io.ReadAll(body)
	f.uploaded <- key
	return nil
}

func (f *fakeUploader) GetDirectory() string {
	return "archives"
}

func newTestService(provider recall.Client) (Service, session.Store) {
	store := session.NewStore()
	return NewService(store, provider, &fakeCompletions{text: "a short meeting"}, "Notetaker"), store
}

func TestAddBotsNumbersFromExistingTotal(t *testing.T) {
	provider := newFakeProvider()
	svc, store := newTestService(provider)

	result, err := svc.AddBots(context.Background(), AddBotsRequest{
		SessionKey:    "meeting",
		MeetingURL:    "https://zoom.example/j/123",
		Count:         2,
		ExistingTotal: 3,
	})
	require.NoError(t, err)
	require.Equal(t, 5, result.Total)
	require.Len(t, result.Bots, 2)
	require.Equal(t, []string{"Notetaker # 4", "Notetaker # 5"}, provider.created)
	require.Equal(t, []string{"bot-1", "bot-2"}, store.Get("meeting").Handles())
}

func TestAddBotsPartialFailureKeepsCreatedBots(t *testing.T) {
	provider := newFakeProvider()
	provider.failAfter = 2
	svc, store := newTestService(provider)

	_, err := svc.AddBots(context.Background(), AddBotsRequest{
		SessionKey: "meeting",
		MeetingURL: "https://zoom.example/j/123",
		Count:      3,
	})
	require.Error(t, err)
	var upstream *apperr.UpstreamError
	require.ErrorAs(t, err, &upstream)

	// The two bots created before the failure stay registered.
	require.Equal(t, []string{"bot-1", "bot-2"}, store.Get("meeting").Handles())
}

func TestAddBotsRejectedUnlessSessionIsRecording(t *testing.T) {
	provider := newFakeProvider()
	svc, store := newTestService(provider)
	store.Get("meeting").Register("bot-1")
	provider.setStatus("bot-1", "starting")

	_, err := svc.AddBots(context.Background(), AddBotsRequest{
		SessionKey: "meeting",
		MeetingURL: "https://zoom.example/j/123",
		Count:      1,
	})
	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)

	provider.setStatus("bot-1", "starting", "in_call_recording")
	_, err = svc.AddBots(context.Background(), AddBotsRequest{
		SessionKey: "meeting",
		MeetingURL: "https://zoom.example/j/123",
		Count:      1,
	})
	require.NoError(t, err)
}

func TestStopAllClearsStateDespitePartialFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.leaveErr["bot-2"] = errors.New("timeout")
	svc, store := newTestService(provider)
	sess := store.Get("meeting")
	sess.Register("bot-1")
	sess.Register("bot-2")

	err := svc.StopAll(context.Background(), "meeting")
	var upstream *apperr.UpstreamError
	require.ErrorAs(t, err, &upstream)

	// Local state never leaks across sessions, acknowledged or not.
	require.Empty(t, sess.Handles())
	require.Equal(t, []string{"bot-1"}, provider.left)
}

func TestStopAllWithoutBots(t *testing.T) {
	svc, _ := newTestService(newFakeProvider())
	err := svc.StopAll(context.Background(), "meeting")
	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestStopAllArchivesTranscripts(t *testing.T) {
	provider := newFakeProvider()
	svc, store := newTestService(provider)
	uploader := &fakeUploader{uploaded: make(chan string, 1)}
	svc.SetUploader(uploader)

	bot := store.Get("meeting").Register("bot-1")
	bot.AppendUtterance(talktime.Utterance{Speaker: "Alice", IsFinal: true})

	require.NoError(t, svc.StopAll(context.Background(), "meeting"))

	select {
	case key := <-uploader.uploaded:
		require.Contains(t, key, "meeting/")
		require.Contains(t, key, ".json")
	case <-time.After(time.Second):
		t.Fatal("archive upload never happened")
	}
}

func TestRecordingStateEmptySessionIsStopped(t *testing.T) {
	svc, _ := newTestService(newFakeProvider())
	state, err := svc.RecordingState(context.Background(), "meeting")
	require.NoError(t, err)
	require.Equal(t, SessionStopped, state.State)
	require.Empty(t, state.Bots)
}

func TestRecordingStateMergesRosterWithTalkTime(t *testing.T) {
	provider := newFakeProvider()
	svc, store := newTestService(provider)
	bot := store.Get("meeting").Register("bot-1")

	// Fill one full batch so the snapshot is computed.
	for i := 0; i < session.BatchSize; i++ {
		bot.AppendUtterance(talktime.Utterance{
			Speaker: "Alice",
			IsFinal: true,
			Words:   []talktime.Word{{Text: "hi", StartTime: 0, EndTime: 2}},
		})
	}
	bot.ApplyEvent(session.Event{
		Kind:        session.EventParticipantJoin,
		Participant: session.ParticipantInfo{ID: "p1", Name: "Alice", IsHost: true},
	})

	provider.setStatus("bot-1", "in_call_recording")
	provider.bots["bot-1"].MeetingParticipants = []recall.Participant{
		{ID: "p1", Name: "Alice", IsHost: true},
		{ID: "p2", Name: "Bob"},
	}

	state, err := svc.RecordingState(context.Background(), "meeting")
	require.NoError(t, err)
	require.Equal(t, SessionRecording, state.State)
	require.False(t, state.Degraded)
	require.Len(t, state.Bots, 1)

	participants := state.Bots[0].Participants
	require.Len(t, participants, 2)
	require.Equal(t, "Alice", participants[0].Name)
	require.True(t, participants[0].IsHost)
	require.InDelta(t, float64(2*session.BatchSize), participants[0].TalkTime, 1e-9)
	require.Equal(t, "100.00", participants[0].TalkTimePercentage)
	require.Zero(t, participants[1].TalkTime)
	require.Equal(t, "0.00", participants[1].TalkTimePercentage)
}

func TestRecordingStateDegradesOnUnreachableBot(t *testing.T) {
	provider := newFakeProvider()
	provider.getErr["bot-2"] = errors.New("timeout")
	svc, store := newTestService(provider)
	sess := store.Get("meeting")
	sess.Register("bot-1")
	sess.Register("bot-2")
	provider.setStatus("bot-1", "stopped")

	state, err := svc.RecordingState(context.Background(), "meeting")
	require.NoError(t, err)
	require.True(t, state.Degraded)
	require.Equal(t, StatusUnknown, state.Bots[1].State)
	require.NotEmpty(t, state.Bots[1].Error)
	require.Equal(t, SessionUnknown, state.State)
}

func TestSummarizeCachesResult(t *testing.T) {
	svc, store := newTestService(newFakeProvider())
	bot := store.Get("meeting").Register("bot-1")
	bot.AppendUtterance(talktime.Utterance{
		Speaker: "Alice",
		IsFinal: true,
		Words:   []talktime.Word{{Text: "hello"}},
	})

	text, err := svc.Summarize(context.Background(), SummarizeRequest{
		SessionKey: "meeting",
		BotID:      "bot-1",
		Prompt:     "general_summary",
	})
	require.NoError(t, err)
	require.Equal(t, "a short meeting", text)
	require.Equal(t, "a short meeting", bot.Summary())
}

func TestSummarizeUnknownPromptOrBot(t *testing.T) {
	svc, store := newTestService(newFakeProvider())
	store.Get("meeting").Register("bot-1")

	var validation *apperr.ValidationError
	_, err := svc.Summarize(context.Background(), SummarizeRequest{SessionKey: "meeting", BotID: "bot-1", Prompt: "roast"})
	require.ErrorAs(t, err, &validation)

	_, err = svc.Summarize(context.Background(), SummarizeRequest{SessionKey: "meeting", BotID: "ghost", Prompt: "general_summary"})
	require.ErrorAs(t, err, &validation)
}
