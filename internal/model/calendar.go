package model

import "time"

// CalendarEntry 学期日历表 — 对应 semester_calendar（与项目无关）
type CalendarEntry struct {
	EntryID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"entry_id"`
	AcademicYear   string    `gorm:"type:varchar(9);not null;uniqueIndex:idx_calendar_year_parity,priority:1" json:"academic_year"`
	SemesterParity int       `gorm:"type:smallint;not null;uniqueIndex:idx_calendar_year_parity,priority:2"   json:"semester_parity"`
	StartDate      time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate        time.Time `gorm:"type:date;not null"                             json:"end_date"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (CalendarEntry) TableName() string { return "semester_calendar" }
