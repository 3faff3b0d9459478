package dto

import "encoding/json"

// ── 进度与状态模块 DTO ──

// AppendProgressRequest 追加进度更新请求
type AppendProgressRequest struct {
	StudentID      string          `json:"student_id"      binding:"required,uuid"`
	LineageID      string          `json:"lineage_id"      binding:"required,uuid"`
	UpdateType     string          `json:"update_type"     binding:"required"`
	CompletionDate *string         `json:"completion_date" binding:"omitempty,datetime=2006-01-02"`
	ProgressStatus *string         `json:"progress_status"`
	Payload        json.RawMessage `json:"payload"`
}

// ProgressUpdateResponse 进度更新响应
type ProgressUpdateResponse struct {
	EventID        int64           `json:"event_id"`
	StudentID      string          `json:"student_id"`
	LineageID      string          `json:"lineage_id"`
	UpdateType     string          `json:"update_type"`
	Timestamp      string          `json:"timestamp"`
	CompletionDate *string         `json:"completion_date,omitempty"`
	ProgressStatus *string         `json:"progress_status,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	AdminName      string          `json:"admin_name,omitempty"`
}

// TaskStatusResponse 学生-任务状态响应
type TaskStatusResponse struct {
	StudentID   string `json:"student_id"`
	LineageID   string `json:"lineage_id"`
	Status      string `json:"status"`
	DueSemester int    `json:"due_semester,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// StudentSemesterResponse 学生当前学期
type StudentSemesterResponse struct {
	StudentID      string `json:"student_id"`
	Semester       int    `json:"semester"`
	AcademicYear   string `json:"academic_year"`
	SemesterParity int    `json:"semester_parity"`
}
