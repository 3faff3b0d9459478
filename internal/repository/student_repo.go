package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ssebin/pandagrad-sub000/internal/model"
)

// StudentRepository 学生名册数据访问接口
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Student, error)
	ListByLineage(ctx context.Context, lineageID string) ([]model.Student, error)
	ListPlan(ctx context.Context, studentID string) ([]model.StudyPlanEntry, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByLineage 学习计划中包含该谱系的学生
func (r *studentRepo) ListByLineage(ctx context.Context, lineageID string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Where("student_id IN (?)",
			r.db.Model(&model.StudyPlanEntry{}).Select("student_id").Where("lineage_id = ?", lineageID),
		).
		Order("matric_no ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepo) ListPlan(ctx context.Context, studentID string) ([]model.StudyPlanEntry, error) {
	var entries []model.StudyPlanEntry
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("semester ASC").
		Find(&entries).Error
	return entries, err
}
