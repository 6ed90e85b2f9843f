package model

import "time"

// User carries the slice of the user profile the reminder system reads. The
// profile itself (account data, journaling preferences) is owned by the main
// application; the dispatcher only ever reads these rows.
type User struct {
	ID        int64  `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;size:255;not null"`
	PushOptIn bool   `gorm:"not null;default:false"`
	// Timezone is an IANA zone name, e.g. "America/New_York".
	Timezone string `gorm:"size:64"`
	// ReminderTime is the local wall-clock time the user wants a reminder,
	// formatted "15:04".
	ReminderTime string    `gorm:"size:5"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
