package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PushSubscription holds one browser's push endpoint and encryption keys.
// A user may have several rows, one per device; the (user_id, endpoint) pair
// is the natural identity and renewals upsert against it.
type PushSubscription struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    int64     `gorm:"not null;index;uniqueIndex:idx_user_endpoint"`
	Endpoint  string    `gorm:"size:500;not null;uniqueIndex:idx_user_endpoint"`
	P256DH    string    `gorm:"column:p256dh;type:text;not null"`
	Auth      string    `gorm:"type:text;not null"`
	UserAgent string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	User User `gorm:"constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns the opaque row identifier.
func (s *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
