package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/aisessions/server/internal/database"
	"github.com/aisessions/server/internal/model"
)

type VoteRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.Vote, error)
	// Create fails with a unique violation when the user already voted.
	Create(ctx context.Context, topicID, userID string) (*model.Vote, error)
	Delete(ctx context.Context, topicID, userID string) (bool, error)
	WithTx(tx *sqlx.Tx) VoteRepository
}

type voteRepo struct {
	db database.DBTX
}

func NewVoteRepository(db *sqlx.DB) VoteRepository {
	return &voteRepo{db: db}
}

func (r *voteRepo) WithTx(tx *sqlx.Tx) VoteRepository {
	return &voteRepo{db: tx}
}

func (r *voteRepo) ListByUser(ctx context.Context, userID string) ([]model.Vote, error) {
	var votes []model.Vote
	err := r.db.SelectContext(ctx, &votes, `
		SELECT * FROM votes WHERE user_id = $1 ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *voteRepo) Create(ctx context.Context, topicID, userID string) (*model.Vote, error) {
	var vote model.Vote
	err := r.db.GetContext(ctx, &vote, `
		INSERT INTO votes (topic_id, user_id)
		VALUES ($1, $2)
		RETURNING *
	`, topicID, userID)
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepo) Delete(ctx context.Context, topicID, userID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		DELETE FROM votes WHERE topic_id = $1 AND user_id = $2
	`, topicID, userID))
}
