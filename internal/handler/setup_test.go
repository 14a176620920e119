package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/middleware"
	"github.com/aisessions/server/internal/model"
	"github.com/aisessions/server/internal/store"
)

var (
	anaUser   = &model.User{ID: uuid.NewString(), Email: "ana@example.com", Name: "Ana"}
	adminUser = &model.User{ID: uuid.NewString(), Email: "admin@example.com", Name: "Admin"}
)

// memoryBackend is a small in-memory store.Backend with the same admin and
// vote rules as the Postgres services.
type memoryBackend struct {
	mu       sync.Mutex
	admins   map[string]bool
	sessions []model.Session
	topics   []*model.Topic
	votes    map[string]map[string]bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		admins: map[string]bool{adminUser.ID: true},
		votes:  map[string]map[string]bool{},
	}
}

func (b *memoryBackend) addTopic(title string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.topics = append(b.topics, &model.Topic{
		ID:        id,
		Title:     title,
		Status:    model.TopicStatusActive,
		CreatedAt: time.Now(),
	})
	return id
}

func (b *memoryBackend) topic(id string) *model.Topic {
	for _, t := range b.topics {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (b *memoryBackend) IsAdmin(ctx context.Context, userID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.admins[userID], nil
}

func (b *memoryBackend) ListSessions(ctx context.Context) ([]model.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Session{}, b.sessions...), nil
}

func (b *memoryBackend) ListTopics(ctx context.Context) ([]model.Topic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Topic, 0, len(b.topics))
	for _, t := range b.topics {
		topic := *t
		topic.Votes = len(b.votes[t.ID])
		out = append(out, topic)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	return out, nil
}

func (b *memoryBackend) VotedTopicIDs(ctx context.Context, userID string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for id, users := range b.votes {
		if users[userID] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (b *memoryBackend) CastVote(ctx context.Context, userID, topicID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topic(topicID)
	if t == nil {
		return apperrors.NotFound("Topic")
	}
	if !t.IsVotable() {
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

func (b *memoryBackend) RetractVote(ctx context.Context, userID, topicID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.votes[topicID][userID] {
		return apperrors.NotFound("Vote")
	}
	delete(b.votes[topicID], userID)
	return nil
}

func (b *memoryBackend) SubmitTopic(ctx context.Context, user *model.User, params model.SubmitTopicParams) (*model.Topic, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, apperrors.MissingRequired("title")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &model.Topic{
		ID:          uuid.NewString(),
		Title:       title,
		Description: params.Description,
		UserID:      user.ID,
		UserName:    user.Name,
		Status:      model.TopicStatusActive,
		CreatedAt:   time.Now(),
	}
	b.topics = append(b.topics, t)
	out := *t
	return &out, nil
}

func (b *memoryBackend) UpdateTopic(ctx context.Context, actorID, id string, patch model.TopicPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.admins[actorID] {
		return apperrors.NotAdmin()
	}
	t := b.topic(id)
	if t == nil {
		return apperrors.NotFound("Topic")
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	return nil
}

func (b *memoryBackend) DeleteTopic(ctx context.Context, actorID, id string) error {
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

func (b *memoryBackend) CreateSession(ctx context.Context, actorID string, params model.CreateSessionParams) (*model.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.admins[actorID] {
		return nil, apperrors.NotAdmin()
	}
	var t *model.Topic
	if params.TopicID != nil {
		if t = b.topic(*params.TopicID); t == nil {
			return nil, apperrors.NotFound("Topic")
		}
		if !t.IsVotable() {
			return nil, apperrors.TopicConverted()
		}
	}
	session := model.Session{
		ID:      uuid.NewString(),
		Title:   params.Title,
		Speaker: params.Speaker,
		Date:    params.Date,
		TopicID: params.TopicID,
	}
	b.sessions = append(b.sessions, session)
	if t != nil {
		t.Status = model.TopicStatusConverted
		t.SessionID = &session.ID
	}
	return &session, nil
}

func (b *memoryBackend) UpdateSession(ctx context.Context, actorID string, params model.UpdateSessionParams) error {
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
			return nil
		}
	}
	return apperrors.NotFound("Session")
}

type nopVoteCache struct{}

func (nopVoteCache) Load(ctx context.Context, userID string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (nopVoteCache) Save(ctx context.Context, userID string, voted map[string]bool) error {
	return nil
}

// spyRegistry records which users had their store dropped.
type spyRegistry struct {
	*store.Registry
	mu      sync.Mutex
	dropped []string
}

func newSpyRegistry(backend store.Backend) *spyRegistry {
	return &spyRegistry{Registry: store.NewRegistry(backend, nopVoteCache{}, time.Minute)}
}

func (r *spyRegistry) Drop(userID string) {
	r.mu.Lock()
	r.dropped = append(r.dropped, userID)
	r.mu.Unlock()
	r.Registry.Drop(userID)
}

// tokenResolver maps session cookie values straight to users.
type tokenResolver map[string]*model.User

func (t tokenResolver) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	return t[token], nil
}

var testTokens = tokenResolver{
	"ana-token":   anaUser,
	"admin-token": adminUser,
}

func passThrough(next http.Handler) http.Handler { return next }

func newAPIRouter(registry StoreRegistry, roster AdminRoster) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewUserSessionMiddleware(testTokens).Handler)
	r.Get("/", Root)
	r.Mount("/api/admins", NewAdminHandler(roster, registry).Routes(passThrough))
	r.Mount("/api", NewStoreHandler(registry).Routes(passThrough))
	return r
}

func apiRequest(method, path, token, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
	return req
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) AuthURL() (string, string, error) {
	args := m.Called()
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockAuthenticator) HandleCallback(ctx context.Context, code, state, expectedNonce string) (*model.User, string, error) {
	args := m.Called(ctx, code, state, expectedNonce)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*model.User), args.String(1), args.Error(2)
}

func (m *mockAuthenticator) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type mockRoster struct {
	mock.Mock
}

func (m *mockRoster) List(ctx context.Context, actorID string) ([]model.AdminListing, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AdminListing), args.Error(1)
}

func (m *mockRoster) Grant(ctx context.Context, actorID, email string) (*model.AdminUser, error) {
	args := m.Called(ctx, actorID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminUser), args.Error(1)
}

func (m *mockRoster) Revoke(ctx context.Context, actorID, userID string) error {
	args := m.Called(ctx, actorID, userID)
	return args.Error(0)
}
