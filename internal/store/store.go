package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"journal-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// UpsertSubscription saves a push subscription keyed by (user_id, endpoint).
	// A renewal with the same pair rotates the keys and user agent in place;
	// created_at is never updated.
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error

	// SubscriptionsForUser returns all subscriptions owned by the user.
	SubscriptionsForUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)

	// DeleteSubscription removes one subscription by its row identifier.
	DeleteSubscription(ctx context.Context, id string) error

	// DeleteSubscriptionByEndpoint removes the user's subscription for the
	// given endpoint, leaving other users' rows for that endpoint alone.
	DeleteSubscriptionByEndpoint(ctx context.Context, userID int64, endpoint string) error

	// OptedInUsers returns all users with push reminders enabled. Profile rows
	// are owned by the main application; this is a read-only view.
	OptedInUsers(ctx context.Context) ([]model.User, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_agent", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription for user %d: %w", sub.UserID, err)
	}
	return nil
}

func (s *gormStore) SubscriptionsForUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for user %d: %w", userID, err)
	}
	return subs, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", id, err)
	}
	return nil
}

func (s *gormStore) DeleteSubscriptionByEndpoint(ctx context.Context, userID int64, endpoint string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&model.PushSubscription{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete subscription for user %d: %w", userID, err)
	}
	return nil
}

func (s *gormStore) OptedInUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Where("push_opt_in = ?", true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch opted-in users: %w", err)
	}
	return users, nil
}
