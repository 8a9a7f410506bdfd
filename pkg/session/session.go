// Package session holds the per-session bot ledgers that webhook
// notifications fold into. State lives for the duration of one recording
// session and is never shared across sessions or persisted.
package session

import "sync"

// Store keeps one Session per caller session key and a reverse index from
// bot ID to its ledger, since webhook notifications carry only the bot ID.
type Store interface {
	Get(key string) *Session
	LookupBot(botID string) (*Bot, bool)
}

type store struct {
	lock     sync.Mutex
	sessions map[string]*Session
	bots     map[string]*Bot
}

func NewStore() Store {
	return &store{
		sessions: make(map[string]*Session),
		bots:     make(map[string]*Bot),
	}
}

func (s *store) Get(key string) *Session {
	s.lock.Lock()
	defer s.lock.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &Session{key: key, owner: s, bots: make(map[string]*Bot)}
		s.sessions[key] = sess
	}
	return sess
}

func (s *store) LookupBot(botID string) (*Bot, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	b, ok := s.bots[botID]
	return b, ok
}

func (s *store) index(b *Bot) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.bots[b.id] = b
}

func (s *store) unindex(ids []string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, id := range ids {
		delete(s.bots, id)
	}
}

// Session owns the ordered set of bot handles registered for one recording
// session, plus each bot's ledger.
type Session struct {
	key   string
	owner *store

	lock    sync.Mutex
	handles []string
	bots    map[string]*Bot
}

func (s *Session) Key() string {
	return s.key
}

// Register adds a bot handle issued by the provider and creates its ledger.
// Registering an already-known handle returns the existing ledger.
func (s *Session) Register(botID string) *Bot {
	s.lock.Lock()
	defer s.lock.Unlock()

	if b, ok := s.bots[botID]; ok {
		return b
	}
	b := newBot(botID)
	s.handles = append(s.handles, botID)
	s.bots[botID] = b
	s.owner.index(b)
	return b
}

// Handles returns the registered bot IDs in registration order.
func (s *Session) Handles() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]string, len(s.handles))
	copy(out, s.handles)
	return out
}

// Bot returns the ledger for a registered handle.
func (s *Session) Bot(botID string) (*Bot, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	b, ok := s.bots[botID]
	return b, ok
}

// Clear drops every bot reference. Local state must not leak into the next
// recording session, so this runs unconditionally on stop.
func (s *Session) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.owner.unindex(s.handles)
	s.handles = nil
	s.bots = make(map[string]*Bot)
}

// Reset keeps the bot handles but zeroes every ledger, returning the
// now-empty ledgers in registration order.
func (s *Session) Reset() []*Bot {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]*Bot, 0, len(s.handles))
	for _, id := range s.handles {
		b := s.bots[id]
		b.reset()
		out = append(out, b)
	}
	return out
}
