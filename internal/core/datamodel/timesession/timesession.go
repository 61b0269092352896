package timesession

import "time"

// TimeSession allows a single ACTIVE row per user through a partial unique index.
type TimeSession struct {
	ID              string     `gorm:"primaryKey;column:id"`
	UserID          string     `gorm:"column:user_id;not null;index:idx_time_sessions_user_entry,priority:1;uniqueIndex:idx_time_sessions_one_active,where:status = 'ACTIVE'"`
	CompanyID       string     `gorm:"column:company_id;not null"`
	GateIDEntry     string     `gorm:"column:gate_id_entry;not null"`
	GateIDExit      *string    `gorm:"column:gate_id_exit"`
	EntryTime       time.Time  `gorm:"column:entry_time;not null;index:idx_time_sessions_user_entry,priority:2"`
	ExitTime        *time.Time `gorm:"column:exit_time"`
	DurationSeconds *int64     `gorm:"column:duration_seconds"`
	Status          string     `gorm:"column:status;not null"`
}

func (TimeSession) TableName() string {
	return "time_sessions"
}
