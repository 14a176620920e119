package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/aisessions/server/internal/database"
	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/repository"
)

type VoteService struct {
	db        database.TxRunner
	voteRepo  repository.VoteRepository
	topicRepo repository.TopicRepository
}

func NewVoteService(db database.TxRunner, voteRepo repository.VoteRepository, topicRepo repository.TopicRepository) *VoteService {
	return &VoteService{
		db:        db,
		voteRepo:  voteRepo,
		topicRepo: topicRepo,
	}
}

// VotedTopicIDs returns the ids of every topic userID currently votes for.
func (s *VoteService) VotedTopicIDs(ctx context.Context, userID string) ([]string, error) {
	votes, err := s.voteRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list votes: %w", err))
	}

	ids := make([]string, 0, len(votes))
	for _, v := range votes {
		ids = append(ids, v.TopicID)
	}
	return ids, nil
}

// Cast records a vote. Converted topics no longer accept votes. The topic
// row stays locked until the vote is written, so a concurrent conversion
// or delete lands either before the check or after the insert.
func (s *VoteService) Cast(ctx context.Context, userID, topicID string) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		topic, err := s.topicRepo.WithTx(tx).FindByIDForUpdate(ctx, topicID)
		if err != nil {
			return apperrors.Database(fmt.Errorf("lock topic: %w", err))
		}
		if topic == nil {
			return apperrors.NotFound("Topic")
		}
		if !topic.IsVotable() {
			return apperrors.TopicConverted()
		}

		_, err = s.voteRepo.WithTx(tx).Create(ctx, topicID, userID)
		switch {
		case repository.IsUniqueViolation(err):
			return apperrors.AlreadyVoted()
		case repository.IsForeignKeyViolation(err):
			return apperrors.NotFound("Topic")
		case err != nil:
			return apperrors.Database(fmt.Errorf("create vote: %w", err))
		}
		return nil
	})
}

// Retract removes a vote. It is allowed on converted topics.
func (s *VoteService) Retract(ctx context.Context, userID, topicID string) error {
	removed, err := s.voteRepo.Delete(ctx, topicID, userID)
	if err != nil {
		return apperrors.Database(fmt.Errorf("delete vote: %w", err))
	}
	if !removed {
		return apperrors.NotFound("Vote")
	}
	return nil
}
