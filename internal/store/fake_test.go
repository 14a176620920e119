package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/model"
)

// fakeBackend is an in-memory backend that enforces the same rules as the
// Postgres services: one vote per user and topic, admin-only edits and
// atomic session creation from a topic.
type fakeBackend struct {
	mu       sync.Mutex
	seq      int
	admins   map[string]bool
	sessions []model.Session
	topics   []*model.Topic
	votes    map[string]map[string]bool
	calls    map[string]int
	fail     map[string]error

	// castGate, when set, blocks CastVote until closed. castStarted is
	// signalled when a blocked cast begins.
	castGate    chan struct{}
	castStarted chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		admins: map[string]bool{},
		votes:  map[string]map[string]bool{},
		calls:  map[string]int{},
		fail:   map[string]error{},
	}
}

func (b *fakeBackend) enter(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name]++
	return b.fail[name]
}

func (b *fakeBackend) callCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *fakeBackend) setFail(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.fail, name)
		return
	}
	b.fail[name] = err
}

func (b *fakeBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func (b *fakeBackend) addTopic(title string, createdAt time.Time) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID("topic")
	b.topics = append(b.topics, &model.Topic{
		ID:          id,
		Title:       title,
		Description: "About " + title,
		Status:      model.TopicStatusActive,
		CreatedAt:   createdAt,
	})
	return id
}

func (b *fakeBackend) addSession(title string, date time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = append(b.sessions, model.Session{ID: b.nextID("session"), Title: title, Date: date})
}

func (b *fakeBackend) addVote(topicID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.votes[topicID] == nil {
		b.votes[topicID] = map[string]bool{}
	}
	b.votes[topicID][userID] = true
}

func (b *fakeBackend) voteRows(topicID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.votes[topicID])
}

func (b *fakeBackend) findTopic(id string) *model.Topic {
	for _, t := range b.topics {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (b *fakeBackend) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if err := b.enter("IsAdmin"); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.admins[userID], nil
}

func (b *fakeBackend) ListSessions(ctx context.Context) ([]model.Session, error) {
	if err := b.enter("ListSessions"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]model.Session{}, b.sessions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (b *fakeBackend) ListTopics(ctx context.Context) ([]model.Topic, error) {
	if err := b.enter("ListTopics"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Topic, 0, len(b.topics))
	for _, t := range b.topics {
		topic := *t
		topic.Votes = len(b.votes[t.ID])
		out = append(out, topic)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (b *fakeBackend) VotedTopicIDs(ctx context.Context, userID string) ([]string, error) {
	if err := b.enter("VotedTopicIDs"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for topicID, users := range b.votes {
		if users[userID] {
			ids = append(ids, topicID)
		}
	}
	return ids, nil
}

func (b *fakeBackend) CastVote(ctx context.Context, userID, topicID string) error {
	if err := b.enter("CastVote"); err != nil {
		return err
	}

	b.mu.Lock()
	gate, started := b.castGate, b.castStarted
	b.mu.Unlock()
	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	topic := b.findTopic(topicID)
	if topic == nil {
		return apperrors.NotFound("Topic")
	}
	if !topic.IsVotable() {
		return apperrors.TopicConverted()
	}
	if b.votes[topicID][userID] {
		return apperrors.AlreadyVoted()
	}
	if b.votes[topicID] == nil {
		b.votes[topicID] = map[string]bool{}
	}
	b.votes[topicID][userID] = true
	return nil
}

func (b *fakeBackend) RetractVote(ctx context.Context, userID, topicID string) error {
	if err := b.enter("RetractVote"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.votes[topicID][userID] {
		return apperrors.NotFound("Vote")
	}
	delete(b.votes[topicID], userID)
	return nil
}

func (b *fakeBackend) SubmitTopic(ctx context.Context, user *model.User, params model.SubmitTopicParams) (*model.Topic, error) {
	if err := b.enter("SubmitTopic"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	topic := &model.Topic{
		ID:          b.nextID("topic"),
		Title:       params.Title,
		Description: params.Description,
		Speaker:     params.Speaker,
		IsExternal:  params.IsExternal,
		KnowsExpert: params.KnowsExpert,
		UserID:      user.ID,
		UserName:    user.Name,
		UserEmail:   user.Email,
		Status:      model.TopicStatusActive,
		CreatedAt:   time.Now(),
	}
	b.topics = append(b.topics, topic)
	out := *topic
	return &out, nil
}

func (b *fakeBackend) UpdateTopic(ctx context.Context, actorID, id string, patch model.TopicPatch) error {
	if err := b.enter("UpdateTopic"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.admins[actorID] {
		return apperrors.NotAdmin()
	}
	topic := b.findTopic(id)
	if topic == nil {
		return apperrors.NotFound("Topic")
	}
	if patch.Title != nil {
		topic.Title = *patch.Title
	}
	if patch.Description != nil {
		topic.Description = *patch.Description
	}
	return nil
}

func (b *fakeBackend) DeleteTopic(ctx context.Context, actorID, id string) error {
	if err := b.enter("DeleteTopic"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.admins[actorID] {
		return apperrors.NotAdmin()
	}
	for i, t := range b.topics {
		if t.ID == id {
			b.topics = append(b.topics[:i], b.topics[i+1:]...)
			delete(b.votes, id)
			return nil
		}
	}
	return apperrors.NotFound("Topic")
}

func (b *fakeBackend) CreateSession(ctx context.Context, actorID string, params model.CreateSessionParams) (*model.Session, error) {
	if err := b.enter("CreateSession"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.admins[actorID] {
		return nil, apperrors.NotAdmin()
	}

	var topic *model.Topic
	if params.TopicID != nil {
		topic = b.findTopic(*params.TopicID)
		if topic == nil {
			return nil, apperrors.NotFound("Topic")
		}
		if !topic.IsVotable() {
			return nil, apperrors.TopicConverted()
		}
	}

	session := model.Session{
		ID:          b.nextID("session"),
		Title:       params.Title,
		Description: params.Description,
		Speaker:     params.Speaker,
		Date:        params.Date,
		TopicID:     params.TopicID,
		CreatedBy:   &actorID,
	}
	b.sessions = append(b.sessions, session)

	if topic != nil {
		topic.Status = model.TopicStatusConverted
		sessionID := session.ID
		topic.SessionID = &sessionID
	}
	return &session, nil
}

func (b *fakeBackend) UpdateSession(ctx context.Context, actorID string, params model.UpdateSessionParams) error {
	if err := b.enter("UpdateSession"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.admins[actorID] {
		return apperrors.NotAdmin()
	}
	for i := range b.sessions {
		if b.sessions[i].ID == params.ID {
			if params.Title != nil {
				b.sessions[i].Title = *params.Title
			}
			if params.Date != nil {
				b.sessions[i].Date = *params.Date
			}
			return nil
		}
	}
	return apperrors.NotFound("Session")
}

type memoryCache struct {
	mu      sync.Mutex
	data    map[string]map[string]bool
	loadErr error
	saveErr error
	saves   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]map[string]bool{}}
}

func (c *memoryCache) Load(ctx context.Context, userID string) (map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return copySet(c.data[userID]), nil
}

func (c *memoryCache) Save(ctx context.Context, userID string, voted map[string]bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	c.data[userID] = copySet(voted)
	return nil
}

func (c *memoryCache) get(userID string) map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copySet(c.data[userID])
}

var errBackendDown = errors.New("backend unavailable")
