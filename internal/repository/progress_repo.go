package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ssebin/pandagrad-sub000/internal/model"
)

// ProgressRepository 进度更新账本数据访问接口（只追加）
type ProgressRepository interface {
	Append(ctx context.Context, update *model.ProgressUpdate) error
	ListByStudentLineage(ctx context.Context, studentID, lineageID string) ([]model.ProgressUpdate, error)
}

type progressRepo struct {
	db *gorm.DB
}

// NewProgressRepo 创建 ProgressRepository 实例
func NewProgressRepo(db *gorm.DB) ProgressRepository {
	return &progressRepo{db: db}
}

func (r *progressRepo) Append(ctx context.Context, update *model.ProgressUpdate) error {
	return r.db.WithContext(ctx).Create(update).Error
}

func (r *progressRepo) ListByStudentLineage(ctx context.Context, studentID, lineageID string) ([]model.ProgressUpdate, error) {
	var updates []model.ProgressUpdate
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND lineage_id = ?", studentID, lineageID).
		Order("event_id ASC").
		Find(&updates).Error
	return updates, err
}
