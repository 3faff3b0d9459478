package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Intake   IntakeRepository
	Task     TaskRepository
	Calendar CalendarRepository
	Student  StudentRepository
	Progress ProgressRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Intake:   NewIntakeRepo(db),
		Task:     NewTaskRepo(db),
		Calendar: NewCalendarRepo(db),
		Student:  NewStudentRepo(db),
		Progress: NewProgressRepo(db),
	}
}
