package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ssebin/pandagrad-sub000/internal/model"
)

// IntakeRepository 入学批次数据访问接口
type IntakeRepository interface {
	Create(ctx context.Context, intake *model.Intake) error
	GetByID(ctx context.Context, id string) (*model.Intake, error)
	List(ctx context.Context) ([]model.Intake, error)
	ListByProgram(ctx context.Context, programID string) ([]model.Intake, error)
	UpdateLabel(ctx context.Context, id, label, updatedBy string) error
}

type intakeRepo struct {
	db *gorm.DB
}

// NewIntakeRepo 创建 IntakeRepository 实例
func NewIntakeRepo(db *gorm.DB) IntakeRepository {
	return &intakeRepo{db: db}
}

func (r *intakeRepo) Create(ctx context.Context, intake *model.Intake) error {
	return r.db.WithContext(ctx).Create(intake).Error
}

func (r *intakeRepo) GetByID(ctx context.Context, id string) (*model.Intake, error) {
	var intake model.Intake
	err := r.db.WithContext(ctx).
		Where("intake_id = ?", id).
		First(&intake).Error
	if err != nil {
		return nil, err
	}
	return &intake, nil
}

func (r *intakeRepo) List(ctx context.Context) ([]model.Intake, error) {
	var intakes []model.Intake
	err := r.db.WithContext(ctx).
		Order("program_id ASC, academic_year DESC, semester_parity DESC").
		Find(&intakes).Error
	return intakes, err
}

func (r *intakeRepo) ListByProgram(ctx context.Context, programID string) ([]model.Intake, error) {
	var intakes []model.Intake
	err := r.db.WithContext(ctx).
		Where("program_id = ?", programID).
		Order("academic_year ASC, semester_parity ASC").
		Find(&intakes).Error
	return intakes, err
}

// UpdateLabel 仅允许修改展示名称；parity/year 为关联键不可修改
func (r *intakeRepo) UpdateLabel(ctx context.Context, id, label, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Intake{}).
		Where("intake_id = ?", id).
		Updates(map[string]interface{}{
			"label":      label,
			"updated_by": updatedBy,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
