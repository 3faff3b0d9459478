package model

// Intake 入学批次表 — 对应 intakes
// ProgramID + SemesterParity + AcademicYear 为关联键，创建后不可修改，仅 Label 可编辑
type Intake struct {
	IntakeID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"intake_id"`
	ProgramID      string `gorm:"type:varchar(50);not null;index"                json:"program_id"`
	SemesterParity int    `gorm:"type:smallint;not null"                         json:"semester_parity"` // 1 | 2
	AcademicYear   string `gorm:"type:varchar(9);not null"                       json:"academic_year"`   // 2023/2024
	Label          string `gorm:"type:varchar(100)"                              json:"label,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Intake) TableName() string { return "intakes" }
