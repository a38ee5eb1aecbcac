package gorm

import (
	"strconv"
	"time"
)

// JobRun tracks executions of background jobs
type JobRun struct {
	ID         uint       `gorm:"column:id;primaryKey"`
	Job        string     `gorm:"column:job;type:varchar(50);not null;index"`
	Status     string     `gorm:"column:status;type:varchar(20);not null"`
	Processed  int        `gorm:"column:processed;not null;default:0"`
	Flagged    int        `gorm:"column:flagged;not null;default:0"`
	StartedAt  time.Time  `gorm:"column:started_at;not null"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
}

// TableName specifies the table name for GORM
func (JobRun) TableName() string {
	return "job_runs"
}

// AllModels lists every table managed by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&Channel{},
		&User{},
		&Key{},
		&Sale{},
		&WaitlistEntry{},
		&Setting{},
		&JobRun{},
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
