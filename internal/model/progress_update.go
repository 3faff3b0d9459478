package model

import (
	"time"

	"gorm.io/datatypes"
)

// ProgressUpdate 进度更新事件表 — 对应 progress_updates（只追加，不修改不删除）
// EventID 为单调递增序列，用于同一时间戳事件的排序
type ProgressUpdate struct {
	EventID        int64          `gorm:"primaryKey;autoIncrement"                        json:"event_id"`
	StudentID      string         `gorm:"type:uuid;not null;index:idx_progress_student_lineage,priority:1" json:"student_id"`
	LineageID      string         `gorm:"type:uuid;not null;index:idx_progress_student_lineage,priority:2" json:"lineage_id"`
	UpdateType     string         `gorm:"type:varchar(40);not null"                       json:"update_type"`
	Timestamp      time.Time      `gorm:"not null"                                        json:"timestamp"`
	CompletionDate *string        `gorm:"type:varchar(10)"                                json:"completion_date,omitempty"` // 2006-01-02
	ProgressStatus *string        `gorm:"type:varchar(20)"                                json:"progress_status,omitempty"` // Pending | In Progress | Completed
	Payload        datatypes.JSON `gorm:"type:jsonb"                                      json:"payload,omitempty"`
	AdminName      string         `gorm:"type:varchar(100)"                               json:"admin_name,omitempty"`
}

// TableName 指定表名
func (ProgressUpdate) TableName() string { return "progress_updates" }
