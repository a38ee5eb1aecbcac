package gorm

import "time"

// Key is a single-use token in the distribution inventory.
// Used flips false->true exactly once, in the same transaction that creates its Sale.
type Key struct {
	ID            uint      `gorm:"column:id;primaryKey"`
	Token         string    `gorm:"column:token;uniqueIndex;not null"`
	DurationValue int       `gorm:"column:duration_value;not null"`
	DurationUnit  string    `gorm:"column:duration_unit;type:varchar(10);not null"`
	ProductName   string    `gorm:"column:product_name;not null;default:'Premium'"`
	ProductLink   string    `gorm:"column:product_link"`
	Used          bool      `gorm:"column:used;not null;default:false;index:idx_keys_fifo,priority:1"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;index:idx_keys_fifo,priority:2"`
}

// TableName specifies the table name for GORM
func (Key) TableName() string {
	return "keys"
}
