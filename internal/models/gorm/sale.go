package gorm

import "time"

// Sale records one key handed to one user
type Sale struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	UserID      int64     `gorm:"column:user_id;not null;index"`
	Username    string    `gorm:"column:username"`
	KeyID       uint      `gorm:"column:key_id;not null;uniqueIndex"`
	KeyToken    string    `gorm:"column:key_token;not null"`
	AssignedAt  time.Time `gorm:"column:assigned_at;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null"`
	Active      bool      `gorm:"column:active;not null;default:true"`
	LeftChannel bool      `gorm:"column:left_channel;not null;default:false"`
}

// TableName specifies the table name for GORM
func (Sale) TableName() string {
	return "sales"
}
