package gorm

import "time"

// WaitlistEntry queues a user until inventory arrives. At most one per user.
type WaitlistEntry struct {
	ID            uint      `gorm:"column:id;primaryKey"`
	UserID        int64     `gorm:"column:user_id;not null;uniqueIndex"`
	EnqueuedAt    time.Time `gorm:"column:enqueued_at;not null;index"`
	NotifiedAdmin bool      `gorm:"column:notified_admin;not null;default:false"`
}

// TableName specifies the table name for GORM
func (WaitlistEntry) TableName() string {
	return "waitlist_entries"
}
