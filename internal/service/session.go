package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/aisessions/server/internal/database"
	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/model"
	"github.com/aisessions/server/internal/repository"
)

type SessionService struct {
	db          database.TxRunner
	sessionRepo repository.SessionRepository
	topicRepo   repository.TopicRepository
	admins      *AdminService
}

func NewSessionService(
	db database.TxRunner,
	sessionRepo repository.SessionRepository,
	topicRepo repository.TopicRepository,
	admins *AdminService,
) *SessionService {
	return &SessionService{
		db:          db,
		sessionRepo: sessionRepo,
		topicRepo:   topicRepo,
		admins:      admins,
	}
}

// List returns every session ordered by date ascending.
func (s *SessionService) List(ctx context.Context) ([]model.Session, error) {
	sessions, err := s.sessionRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list sessions: %w", err))
	}
	return sessions, nil
}

// Create schedules a session. When params.TopicID is set the topic is
// converted in the same transaction, so a failed conversion leaves no session
// behind.
func (s *SessionService) Create(ctx context.Context, actorID string, params model.CreateSessionParams) (*model.Session, error) {
	if err := validateSessionDraft(params); err != nil {
		return nil, err
	}
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	var session *model.Session
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if params.TopicID != nil {
			topic, err := s.topicRepo.WithTx(tx).FindByIDForUpdate(ctx, *params.TopicID)
			if err != nil {
				return apperrors.Database(fmt.Errorf("lock topic: %w", err))
			}
			if topic == nil {
				return apperrors.NotFound("Topic")
			}
			if !topic.IsVotable() {
				return apperrors.TopicConverted()
			}
		}

		created, err := s.sessionRepo.WithTx(tx).Create(ctx, actorID, params)
		if err != nil {
			return apperrors.Database(fmt.Errorf("create session: %w", err))
		}

		if params.TopicID != nil {
			converted, err := s.topicRepo.WithTx(tx).MarkConverted(ctx, *params.TopicID, created.ID)
			if err != nil {
				return apperrors.Database(fmt.Errorf("convert topic: %w", err))
			}
			if !converted {
				return apperrors.TopicConverted()
			}
		}

		session = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logEvent := log.Info().Str("sessionId", session.ID).Str("createdBy", actorID)
	if params.TopicID != nil {
		logEvent = logEvent.Str("topicId", *params.TopicID)
	}
	logEvent.Msg("session created")

	return session, nil
}

func (s *SessionService) Update(ctx context.Context, actorID string, params model.UpdateSessionParams) error {
	if params.IsEmpty() {
		return apperrors.ValidationError("no fields to update")
	}
	if params.Title != nil && strings.TrimSpace(*params.Title) == "" {
		return apperrors.MissingRequired("title")
	}
	if params.Date != nil && params.Date.IsZero() {
		return apperrors.MissingRequired("date")
	}
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return err
	}

	found, err := s.sessionRepo.Update(ctx, params)
	if err != nil {
		return apperrors.Database(fmt.Errorf("update session: %w", err))
	}
	if !found {
		return apperrors.NotFound("Session")
	}
	return nil
}

func validateSessionDraft(params model.CreateSessionParams) error {
	if strings.TrimSpace(params.Title) == "" {
		return apperrors.MissingRequired("title")
	}
	if strings.TrimSpace(params.Speaker) == "" {
		return apperrors.MissingRequired("speaker")
	}
	if params.Date.IsZero() {
		return apperrors.MissingRequired("date")
	}
	return nil
}
