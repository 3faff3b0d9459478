package model

// Student 学生表 — 对应 students（由学生名册维护）
type Student struct {
	StudentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	IntakeID  string `gorm:"type:uuid;not null;index"                       json:"intake_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	MatricNo  string `gorm:"type:varchar(30);not null"                      json:"matric_no"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// StudyPlanEntry 学习计划条目 — 对应 study_plan_entries
// Semester 为学生学期序号（从 1 开始），表示该任务在该学期处于进行中
type StudyPlanEntry struct {
	StudentID string `gorm:"type:uuid;primaryKey" json:"student_id"`
	LineageID string `gorm:"type:uuid;primaryKey" json:"lineage_id"`
	Semester  int    `gorm:"primaryKey"           json:"semester"`
}

// TableName 指定表名
func (StudyPlanEntry) TableName() string { return "study_plan_entries" }
