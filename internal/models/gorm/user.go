package gorm

import "time"

// User is a chat user known to the bot. ID is the chat platform's numeric user id.
type User struct {
	ID               int64      `gorm:"column:id;primaryKey;autoIncrement:false"`
	Username         string     `gorm:"column:username"`
	Verified         bool       `gorm:"column:verified;not null;default:false"`
	LastKeyTime      *time.Time `gorm:"column:last_key_time"`
	TotalKeysClaimed int        `gorm:"column:total_keys_claimed;not null;default:0"`
	FirstSeen        time.Time  `gorm:"column:first_seen;not null"`
	Blocked          bool       `gorm:"column:blocked;not null;default:false"`
	BlockReason      *string    `gorm:"column:block_reason"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	Sales []Sale `gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// DisplayName returns @username when known, the numeric id otherwise
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return formatID(u.ID)
}
