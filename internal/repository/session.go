package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/aisessions/server/internal/database"
	"github.com/aisessions/server/internal/model"
)

type SessionRepository interface {
	List(ctx context.Context) ([]model.Session, error)
	Create(ctx context.Context, createdBy string, params model.CreateSessionParams) (*model.Session, error)
	// Update applies the non-nil fields of params. It reports false when no
	// session has the given id.
	Update(ctx context.Context, params model.UpdateSessionParams) (bool, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db database.DBTX
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) List(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions ORDER BY date ASC
	`)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) Create(ctx context.Context, createdBy string, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (title, description, speaker, date, calendar_link, topic_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.Title, params.Description, params.Speaker, params.Date.UTC(),
		params.CalendarLink, params.TopicID, createdBy)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, params model.UpdateSessionParams) (bool, error) {
	q := psql.Update("sessions").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": params.ID})

	if params.Title != nil {
		q = q.Set("title", *params.Title)
	}
	if params.Description != nil {
		q = q.Set("description", *params.Description)
	}
	if params.Speaker != nil {
		q = q.Set("speaker", *params.Speaker)
	}
	if params.Date != nil {
		q = q.Set("date", params.Date.UTC())
	}
	if params.CalendarLink != nil {
		q = q.Set("calendar_link", *params.CalendarLink)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build session update: %w", err)
	}
	return affected(r.db.ExecContext(ctx, query, args...))
}
