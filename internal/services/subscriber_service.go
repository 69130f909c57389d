package services

import (
	"context"
	"errors"
	"strings"

	"launchpad_backend/internal/feed"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/internal/validator"
	"launchpad_backend/pkg/apperrors"
)

type SubscriberService interface {
	Subscribe(ctx context.Context, req *dto.SubscribeRequest) (*models.NewsletterSubscriber, error)
	ListPending(ctx context.Context) ([]models.NewsletterSubscriber, error)
	Confirm(ctx context.Context, id string) error
}

type SubscriberServiceImpl struct {
	subscribers repositories.SubscriberRepository
	publisher   feed.Publisher
	validator   *validator.Validator
}

func NewSubscriberService(subscribers repositories.SubscriberRepository, publisher feed.Publisher, v *validator.Validator) SubscriberService {
	if publisher == nil {
		publisher = feed.NoopPublisher{}
	}
	return &SubscriberServiceImpl{subscribers: subscribers, publisher: publisher, validator: v}
}

func (s *SubscriberServiceImpl) Subscribe(ctx context.Context, req *dto.SubscribeRequest) (*models.NewsletterSubscriber, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	sub := &models.NewsletterSubscriber{
		Email:  strings.ToLower(strings.TrimSpace(req.Email)),
		Name:   strings.TrimSpace(req.Name),
		Status: models.SubscriberStatusPending,
	}
	if err := s.subscribers.Create(ctx, sub); err != nil {
		if errors.Is(err, repositories.ErrSubscriberExists) {
			return nil, apperrors.ErrConflict(err, "newsletter", "Email is already subscribed")
		}
		return nil, apperrors.DatabaseError(err)
	}

	s.publish(ctx, sub.ID, sub.Status)
	return sub, nil
}

func (s *SubscriberServiceImpl) ListPending(ctx context.Context) ([]models.NewsletterSubscriber, error) {
	subs, err := s.subscribers.ListPending(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return subs, nil
}

func (s *SubscriberServiceImpl) Confirm(ctx context.Context, id string) error {
	if err := s.subscribers.Confirm(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrSubscriberNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.DatabaseError(err)
	}
	s.publish(ctx, id, models.SubscriberStatusConfirmed)
	return nil
}

func (s *SubscriberServiceImpl) publish(ctx context.Context, id string, status models.SubscriberStatus) {
	ev := feed.Event{Topic: feed.TopicSubscribers, ID: id, State: string(status)}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.CtxWarn(ctx, "feed publish failed", "topic", ev.Topic, "id", id, "error", err)
	}
}
