package dto

// ── 入学批次模块 DTO ──

// CreateIntakeRequest 创建批次请求
type CreateIntakeRequest struct {
	ProgramID      string `json:"program_id"      binding:"required,max=50"`
	SemesterParity int    `json:"semester_parity" binding:"required,oneof=1 2"`
	AcademicYear   string `json:"academic_year"   binding:"required,len=9"` // "2023/2024"
	Label          string `json:"label"           binding:"omitempty,max=100"`
}

// UpdateIntakeRequest 更新批次请求（parity/year 不可修改）
type UpdateIntakeRequest struct {
	Label string `json:"label" binding:"required,max=100"`
}

// IntakeResponse 批次响应
type IntakeResponse struct {
	ID             string `json:"id"`
	ProgramID      string `json:"program_id"`
	SemesterParity int    `json:"semester_parity"`
	AcademicYear   string `json:"academic_year"`
	Label          string `json:"label,omitempty"`
	CreatedAt      string `json:"created_at"`
}
