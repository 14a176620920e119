package service

import (
	"context"

	"github.com/aisessions/server/internal/model"
	"github.com/aisessions/server/internal/store"
)

// Backend bundles the data services behind the narrow surface the per-user
// stores talk to.
type Backend struct {
	Sessions *SessionService
	Topics   *TopicService
	Votes    *VoteService
	Admins   *AdminService
}

var _ store.Backend = (*Backend)(nil)

func NewBackend(sessions *SessionService, topics *TopicService, votes *VoteService, admins *AdminService) *Backend {
	return &Backend{
		Sessions: sessions,
		Topics:   topics,
		Votes:    votes,
		Admins:   admins,
	}
}

func (b *Backend) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return b.Admins.IsAdmin(ctx, userID)
}

func (b *Backend) ListSessions(ctx context.Context) ([]model.Session, error) {
	return b.Sessions.List(ctx)
}

func (b *Backend) ListTopics(ctx context.Context) ([]model.Topic, error) {
	return b.Topics.List(ctx)
}

func (b *Backend) VotedTopicIDs(ctx context.Context, userID string) ([]string, error) {
	return b.Votes.VotedTopicIDs(ctx, userID)
}

func (b *Backend) CastVote(ctx context.Context, userID, topicID string) error {
	return b.Votes.Cast(ctx, userID, topicID)
}

func (b *Backend) RetractVote(ctx context.Context, userID, topicID string) error {
	return b.Votes.Retract(ctx, userID, topicID)
}

func (b *Backend) SubmitTopic(ctx context.Context, user *model.User, params model.SubmitTopicParams) (*model.Topic, error) {
	return b.Topics.Submit(ctx, user, params)
}

func (b *Backend) UpdateTopic(ctx context.Context, actorID, id string, patch model.TopicPatch) error {
	return b.Topics.Update(ctx, actorID, id, patch)
}

func (b *Backend) DeleteTopic(ctx context.Context, actorID, id string) error {
	return b.Topics.Delete(ctx, actorID, id)
}

func (b *Backend) CreateSession(ctx context.Context, actorID string, params model.CreateSessionParams) (*model.Session, error) {
	return b.Sessions.Create(ctx, actorID, params)
}

func (b *Backend) UpdateSession(ctx context.Context, actorID string, params model.UpdateSessionParams) error {
	return b.Sessions.Update(ctx, actorID, params)
}
