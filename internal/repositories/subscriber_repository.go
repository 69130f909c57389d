package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"launchpad_backend/internal/models"
)

var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrSubscriberExists   = errors.New("subscriber already exists")
)

type SubscriberRepository interface {
	Create(ctx context.Context, sub *models.NewsletterSubscriber) error
	ListPending(ctx context.Context) ([]models.NewsletterSubscriber, error)
	Confirm(ctx context.Context, id string) error
}

type SubscriberRepositoryImpl struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &SubscriberRepositoryImpl{db: db}
}

func (r *SubscriberRepositoryImpl) Create(ctx context.Context, sub *models.NewsletterSubscriber) error {
	err := r.db.WithContext(ctx).Create(sub).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSubscriberExists
	}
	return err
}

func (r *SubscriberRepositoryImpl) ListPending(ctx context.Context) ([]models.NewsletterSubscriber, error) {
	var subs []models.NewsletterSubscriber
	err := r.db.WithContext(ctx).
		Where("status = ?", models.SubscriberStatusPending).
		Order("created_at ASC, id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriberRepositoryImpl) Confirm(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.NewsletterSubscriber{}).
		Where("id = ? AND status = ?", id, models.SubscriberStatusPending).
		Updates(map[string]interface{}{
			"status":       models.SubscriberStatusConfirmed,
			"confirmed_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}
