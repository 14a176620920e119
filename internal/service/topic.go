package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/model"
	"github.com/aisessions/server/internal/repository"
)

type TopicService struct {
	topicRepo repository.TopicRepository
	admins    *AdminService
}

func NewTopicService(topicRepo repository.TopicRepository, admins *AdminService) *TopicService {
	return &TopicService{
		topicRepo: topicRepo,
		admins:    admins,
	}
}

// List returns all topics with live vote counts, most voted first.
func (s *TopicService) List(ctx context.Context) ([]model.Topic, error) {
	topics, err := s.topicRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list topics: %w", err))
	}
	return topics, nil
}

func (s *TopicService) Submit(ctx context.Context, user *model.User, params model.SubmitTopicParams) (*model.Topic, error) {
	if user == nil {
		return nil, apperrors.NotAuthenticated()
	}

	params.Title = strings.TrimSpace(params.Title)
	params.Description = strings.TrimSpace(params.Description)
	if params.Title == "" {
		return nil, apperrors.MissingRequired("title")
	}
	if params.Description == "" {
		return nil, apperrors.MissingRequired("description")
	}
	if params.Speaker != nil {
		speaker := strings.TrimSpace(*params.Speaker)
		if speaker == "" {
			params.Speaker = nil
		} else {
			params.Speaker = &speaker
		}
	}

	topic, err := s.topicRepo.Create(ctx, model.CreateTopicParams{
		SubmitTopicParams: params,
		UserID:            user.ID,
		UserName:          user.Name,
		UserEmail:         user.Email,
	})
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("create topic: %w", err))
	}

	log.Info().Str("topicId", topic.ID).Str("userId", user.ID).Msg("topic submitted")
	return topic, nil
}

func (s *TopicService) Update(ctx context.Context, actorID, id string, patch model.TopicPatch) error {
	if patch.IsEmpty() {
		return apperrors.ValidationError("no fields to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return apperrors.MissingRequired("title")
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return apperrors.MissingRequired("description")
	}
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return err
	}

	found, err := s.topicRepo.Update(ctx, id, patch)
	if err != nil {
		return apperrors.Database(fmt.Errorf("update topic: %w", err))
	}
	if !found {
		return apperrors.NotFound("Topic")
	}
	return nil
}

// Delete removes a topic and, through the foreign key, all of its votes.
func (s *TopicService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return err
	}

	deleted, err := s.topicRepo.Delete(ctx, id)
	if err != nil {
		return apperrors.Database(fmt.Errorf("delete topic: %w", err))
	}
	if !deleted {
		return apperrors.NotFound("Topic")
	}
	return nil
}
