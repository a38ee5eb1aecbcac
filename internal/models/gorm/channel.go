package gorm

import "time"

// Channel is a chat channel users must belong to before claiming
type Channel struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Handle    string    `gorm:"column:handle;uniqueIndex;not null"`
	JoinLink  string    `gorm:"column:join_link"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Channel) TableName() string {
	return "channels"
}

// Mention renders the handle the way chat clients expect it
func (c *Channel) Mention() string {
	return "@" + c.Handle
}
