package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/aisessions/server/internal/database"
	"github.com/aisessions/server/internal/model"
)

// Vote counts are never stored; every read aggregates the vote rows.
const topicSelect = `
	SELECT t.*, COUNT(v.id) AS votes
	FROM topics t
	LEFT JOIN votes v ON v.topic_id = t.id
`

type TopicRepository interface {
	// List returns every topic with its live vote count, most voted first.
	List(ctx context.Context) ([]model.Topic, error)
	// FindByIDForUpdate locks the topic row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, id string) (*model.Topic, error)
	Create(ctx context.Context, params model.CreateTopicParams) (*model.Topic, error)
	Update(ctx context.Context, id string, patch model.TopicPatch) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	// MarkConverted links an active topic to the session created from it.
	MarkConverted(ctx context.Context, id, sessionID string) (bool, error)
	WithTx(tx *sqlx.Tx) TopicRepository
}

type topicRepo struct {
	db database.DBTX
}

func NewTopicRepository(db *sqlx.DB) TopicRepository {
	return &topicRepo{db: db}
}

func (r *topicRepo) WithTx(tx *sqlx.Tx) TopicRepository {
	return &topicRepo{db: tx}
}

func (r *topicRepo) List(ctx context.Context) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.db.SelectContext(ctx, &topics, topicSelect+`
		GROUP BY t.id
		ORDER BY votes DESC, t.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *topicRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Topic, error) {
	var topic model.Topic
	err := r.db.GetContext(ctx, &topic, `
		SELECT *, 0 AS votes FROM topics WHERE id = $1 FOR UPDATE
	`, id)
	return HandleNotFound(&topic, err)
}

func (r *topicRepo) Create(ctx context.Context, params model.CreateTopicParams) (*model.Topic, error) {
	var topic model.Topic
	err := r.db.GetContext(ctx, &topic, `
		INSERT INTO topics (title, description, speaker, is_external, knows_expert, user_id, user_name, user_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *, 0 AS votes
	`, params.Title, params.Description, params.Speaker, params.IsExternal, params.KnowsExpert,
		params.UserID, params.UserName, params.UserEmail)
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepo) Update(ctx context.Context, id string, patch model.TopicPatch) (bool, error) {
	q := psql.Update("topics").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})

	if patch.Title != nil {
		q = q.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		q = q.Set("description", *patch.Description)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build topic update: %w", err)
	}
	return affected(r.db.ExecContext(ctx, query, args...))
}

func (r *topicRepo) Delete(ctx context.Context, id string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM topics WHERE id = $1`, id))
}

func (r *topicRepo) MarkConverted(ctx context.Context, id, sessionID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		UPDATE topics SET
			status = 'converted',
			session_id = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id, sessionID))
}
