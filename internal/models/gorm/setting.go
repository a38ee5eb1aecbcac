package gorm

// Setting is one row of the flat key/value settings table
type Setting struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;not null"`
}

// TableName specifies the table name for GORM
func (Setting) TableName() string {
	return "settings"
}
