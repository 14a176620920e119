// Package store keeps one signed-in user's view of sessions, topics and votes
// in sync with the backend.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/model"
)

type (
	TopicSubmission = model.SubmitTopicParams
	SessionDraft    = model.CreateSessionParams
	SessionUpdate   = model.UpdateSessionParams
)

// Backend is the remote data source. Every mutation is authorized again on
// the backend side; the store's own checks only fail fast.
type Backend interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	ListSessions(ctx context.Context) ([]model.Session, error)
	ListTopics(ctx context.Context) ([]model.Topic, error)
	VotedTopicIDs(ctx context.Context, userID string) ([]string, error)
	CastVote(ctx context.Context, userID, topicID string) error
	RetractVote(ctx context.Context, userID, topicID string) error
	SubmitTopic(ctx context.Context, user *model.User, params model.SubmitTopicParams) (*model.Topic, error)
	UpdateTopic(ctx context.Context, actorID, id string, patch model.TopicPatch) error
	DeleteTopic(ctx context.Context, actorID, id string) error
	CreateSession(ctx context.Context, actorID string, params model.CreateSessionParams) (*model.Session, error)
	UpdateSession(ctx context.Context, actorID string, params model.UpdateSessionParams) error
}

type Option func(*Store)

// WithClock overrides the time source used to split upcoming and past sessions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds the state for a single user. The mutex is never held across a
// backend or cache call.
type Store struct {
	backend Backend
	cache   VoteCache
	user    *model.User
	now     func() time.Time

	mu        sync.RWMutex
	upcoming  []model.Session
	past      []model.Session
	topics    []model.Topic
	voted     map[string]bool
	isAdmin   bool
	isLoading bool
	lastErr   error
	inFlight  map[string]struct{}
}

func New(backend Backend, cache VoteCache, user *model.User, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		cache:    cache,
		user:     user,
		now:      time.Now,
		voted:    map[string]bool{},
		inFlight: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) User() *model.User {
	return s.user
}

func (s *Store) userID() string {
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Init loads everything the user sees. The vote cache is read first as a
// hint, then admin status, sessions, topics and the user's votes load
// concurrently. A failing subtask does not cancel the others; the first
// failure is kept as the store's last error and returned.
func (s *Store) Init(ctx context.Context) error {
	if s.user == nil {
		s.mu.Lock()
		s.upcoming, s.past, s.topics = nil, nil, nil
		s.voted = map[string]bool{}
		s.isAdmin = false
		s.isLoading = false
		s.lastErr = nil
		s.mu.Unlock()
		return nil
	}

	if hint, err := s.cache.Load(ctx, s.user.ID); err != nil {
		log.Warn().Err(err).Str("userId", s.user.ID).Msg("vote cache unavailable")
	} else if hint != nil {
		s.mu.Lock()
		s.voted = hint
		s.mu.Unlock()
	}

	return s.load(ctx)
}

// Refresh reloads from the backend without consulting the vote cache.
func (s *Store) Refresh(ctx context.Context) error {
	if s.user == nil {
		return nil
	}
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	s.mu.Lock()
	s.isLoading = true
	s.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { return s.reload(ctx, "admin", s.reloadAdmin) })
	g.Go(func() error { return s.reload(ctx, "sessions", s.reloadSessions) })
	g.Go(func() error { return s.reload(ctx, "topics", s.reloadTopics) })
	g.Go(func() error { return s.reload(ctx, "votes", s.reloadVotes) })
	err := g.Wait()

	s.mu.Lock()
	s.isLoading = false
	s.lastErr = err
	s.mu.Unlock()

	return err
}

func (s *Store) reload(ctx context.Context, task string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Str("userId", s.userID()).Str("task", task).Msg("store reload failed")
	}
	return err
}

func (s *Store) reloadAdmin(ctx context.Context) error {
	ok, err := s.backend.IsAdmin(ctx, s.user.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.isAdmin = ok
	s.mu.Unlock()
	return nil
}

func (s *Store) reloadSessions(ctx context.Context) error {
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		return err
	}
	upcoming, past := Partition(sessions, s.now())
	s.mu.Lock()
	s.upcoming, s.past = upcoming, past
	s.mu.Unlock()
	return nil
}

func (s *Store) reloadTopics(ctx context.Context) error {
	topics, err := s.backend.ListTopics(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.topics = topics
	s.mu.Unlock()
	return nil
}

// reloadVotes replaces the voted set with the backend's rows and rewrites
// the cache from them.
func (s *Store) reloadVotes(ctx context.Context) error {
	ids, err := s.backend.VotedTopicIDs(ctx, s.user.ID)
	if err != nil {
		return err
	}

	voted := make(map[string]bool, len(ids))
	for _, id := range ids {
		voted[id] = true
	}

	s.mu.Lock()
	s.voted = voted
	s.mu.Unlock()

	s.saveCache(ctx, voted)
	return nil
}

func (s *Store) saveCache(ctx context.Context, voted map[string]bool) {
	if err := s.cache.Save(ctx, s.user.ID, voted); err != nil {
		log.Warn().Err(err).Str("userId", s.user.ID).Msg("vote cache write failed")
	}
}

// refreshAfter runs reloads that follow a mutation. Their failures are
// recorded but do not turn a successful mutation into an error.
func (s *Store) refreshAfter(ctx context.Context, tasks ...string) {
	for _, task := range tasks {
		var fn func(context.Context) error
		switch task {
		case "sessions":
			fn = s.reloadSessions
		case "topics":
			fn = s.reloadTopics
		case "votes":
			fn = s.reloadVotes
		default:
			continue
		}
		if err := s.reload(ctx, task, fn); err != nil {
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
		}
	}
}

// ToggleVote flips the user's vote on topicID and returns the new state. The
// backend is written first; the local set and cache change only after it
// succeeds. A second toggle on the same topic while one is running is
// rejected with VOTE_IN_FLIGHT.
func (s *Store) ToggleVote(ctx context.Context, topicID string) (bool, error) {
	if s.user == nil {
		return false, apperrors.NotAuthenticated()
	}

	s.mu.Lock()
	if _, busy := s.inFlight[topicID]; busy {
		s.mu.Unlock()
		return false, apperrors.VoteInFlight()
	}
	s.inFlight[topicID] = struct{}{}
	wasVoted := s.voted[topicID]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, topicID)
		s.mu.Unlock()
	}()

	var err error
	if wasVoted {
		err = s.backend.RetractVote(ctx, s.user.ID, topicID)
	} else {
		err = s.backend.CastVote(ctx, s.user.ID, topicID)
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("userId", s.user.ID).
			Str("topicId", topicID).
			Bool("retract", wasVoted).
			Msg("vote toggle failed")
		s.refreshAfter(ctx, "topics", "votes")
		return s.IsVoted(topicID), err
	}

	s.mu.Lock()
	if wasVoted {
		delete(s.voted, topicID)
	} else {
		s.voted[topicID] = true
	}
	voted := copySet(s.voted)
	s.mu.Unlock()

	s.saveCache(ctx, voted)
	s.refreshAfter(ctx, "topics")

	return !wasVoted, nil
}

func (s *Store) SubmitTopic(ctx context.Context, params TopicSubmission) (*model.Topic, error) {
	if s.user == nil {
		return nil, apperrors.NotAuthenticated()
	}

	topic, err := s.backend.SubmitTopic(ctx, s.user, params)
	if err != nil {
		return nil, err
	}

	s.refreshAfter(ctx, "topics")
	return topic, nil
}

// requireAdmin fails fast without a backend round trip.
func (s *Store) requireAdmin() error {
	if s.user == nil {
		return apperrors.NotAuthenticated()
	}
	if !s.IsAdmin() {
		return apperrors.NotAdmin()
	}
	return nil
}

func (s *Store) UpdateTopic(ctx context.Context, id string, patch model.TopicPatch) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if err := s.backend.UpdateTopic(ctx, s.user.ID, id, patch); err != nil {
		return err
	}

	s.refreshAfter(ctx, "topics")
	return nil
}

// DeleteTopic removes a topic. The backend drops its votes with it, so the
// voted set is reloaded too.
func (s *Store) DeleteTopic(ctx context.Context, id string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if err := s.backend.DeleteTopic(ctx, s.user.ID, id); err != nil {
		return err
	}

	s.refreshAfter(ctx, "topics", "votes")
	return nil
}

// CreateSession schedules a session, converting draft.TopicID when set.
// Sessions and topics are reloaded whether or not the backend succeeded.
func (s *Store) CreateSession(ctx context.Context, draft SessionDraft) (*model.Session, error) {
	if s.user == nil {
		return nil, apperrors.NotAuthenticated()
	}

	session, err := s.backend.CreateSession(ctx, s.user.ID, draft)
	s.refreshAfter(ctx, "sessions", "topics")
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateSession has no local admin check; the backend decides.
func (s *Store) UpdateSession(ctx context.Context, update SessionUpdate) error {
	if s.user == nil {
		return apperrors.NotAuthenticated()
	}
	if err := s.backend.UpdateSession(ctx, s.user.ID, update); err != nil {
		return err
	}

	s.refreshAfter(ctx, "sessions")
	return nil
}

func (s *Store) IsVoted(topicID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voted[topicID]
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAdmin
}

// Leaderboard returns the n most voted active topics.
func (s *Store) Leaderboard(n int) []model.Topic {
	active := s.activeTopics()
	sortByVotes(active)
	if n >= 0 && len(active) > n {
		active = active[:n]
	}
	return active
}

// VotableTopics returns active topics whose title or description contains
// query, ignoring case.
func (s *Store) VotableTopics(query string, order model.TopicSort) []model.Topic {
	query = strings.ToLower(strings.TrimSpace(query))

	active := s.activeTopics()
	matches := active[:0]
	for _, t := range active {
		if query == "" ||
			strings.Contains(strings.ToLower(t.Title), query) ||
			strings.Contains(strings.ToLower(t.Description), query) {
			matches = append(matches, t)
		}
	}

	if order == model.TopicSortNewest {
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		})
	} else {
		sortByVotes(matches)
	}
	return matches
}

func (s *Store) activeTopics() []model.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]model.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		if t.IsVotable() {
			active = append(active, t)
		}
	}
	return active
}

func sortByVotes(topics []model.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Votes > topics[j].Votes
	})
}

// Snapshot is a copy of the store's state, safe to hand to a renderer.
type Snapshot struct {
	User          *model.User     `json:"user"`
	Upcoming      []model.Session `json:"upcoming"`
	Past          []model.Session `json:"past"`
	Topics        []model.Topic   `json:"topics"`
	VotedTopicIDs []string        `json:"votedTopicIds"`
	IsAdmin       bool            `json:"isAdmin"`
	IsLoading     bool            `json:"isLoading"`
	LastError     string          `json:"lastError,omitempty"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		User:          s.user,
		Upcoming:      append([]model.Session{}, s.upcoming...),
		Past:          append([]model.Session{}, s.past...),
		Topics:        append([]model.Topic{}, s.topics...),
		VotedTopicIDs: make([]string, 0, len(s.voted)),
		IsAdmin:       s.isAdmin,
		IsLoading:     s.isLoading,
	}
	for id, ok := range s.voted {
		if ok {
			snap.VotedTopicIDs = append(snap.VotedTopicIDs, id)
		}
	}
	sort.Strings(snap.VotedTopicIDs)

	if s.lastErr != nil {
		if appErr, ok := apperrors.AsAppError(s.lastErr); ok {
			snap.LastError = appErr.Message
		} else {
			snap.LastError = "failed to load data"
		}
	}
	return snap
}

// LastError returns the most recent load failure, or nil.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
