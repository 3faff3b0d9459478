package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ssebin/pandagrad-sub000/internal/model"
	pkgerrors "github.com/ssebin/pandagrad-sub000/pkg/errors"
)

// TaskRepository 任务谱系与版本数据访问接口
//
// 谱系行上的 version 字段即 head 版本号，推进 head 时以乐观锁条件更新，
// 版本行只追加不修改。
type TaskRepository interface {
	CreateLineage(ctx context.Context, lineage *model.TaskLineage, first *model.TaskVersion) error
	GetLineage(ctx context.Context, id string) (*model.TaskLineage, error)
	GetLineageUnscoped(ctx context.Context, id string) (*model.TaskLineage, error)
	FindActiveByName(ctx context.Context, intakeID, name string) (*model.TaskLineage, error)
	ListByIntake(ctx context.Context, intakeID string) ([]model.TaskLineage, error)
	AppendVersion(ctx context.Context, lineage *model.TaskLineage, version *model.TaskVersion) error
	SoftDelete(ctx context.Context, lineage *model.TaskLineage, deletedBy string) error
	GetVersion(ctx context.Context, lineageID string, number int) (*model.TaskVersion, error)
	ListVersions(ctx context.Context, lineageID string) ([]model.TaskVersion, error)
}

type taskRepo struct {
	db *gorm.DB
}

// NewTaskRepo 创建 TaskRepository 实例
func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

// CreateLineage 在同一事务内创建谱系及其第 1 版
func (r *taskRepo) CreateLineage(ctx context.Context, lineage *model.TaskLineage, first *model.TaskVersion) error {
	lineage.NameKey = model.TaskNameKey(lineage.Name)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lineage).Error; err != nil {
			return err
		}
		first.LineageID = lineage.LineageID
		return tx.Create(first).Error
	})
}

func (r *taskRepo) GetLineage(ctx context.Context, id string) (*model.TaskLineage, error) {
	var lineage model.TaskLineage
	err := r.db.WithContext(ctx).
		Where("lineage_id = ?", id).
		First(&lineage).Error
	if err != nil {
		return nil, err
	}
	return &lineage, nil
}

// GetLineageUnscoped 包含已删除谱系（用于审计与删除重放）
func (r *taskRepo) GetLineageUnscoped(ctx context.Context, id string) (*model.TaskLineage, error) {
	var lineage model.TaskLineage
	err := r.db.WithContext(ctx).
		Unscoped().
		Where("lineage_id = ?", id).
		First(&lineage).Error
	if err != nil {
		return nil, err
	}
	return &lineage, nil
}

// FindActiveByName 按名称比较键查找批次内有效谱系
func (r *taskRepo) FindActiveByName(ctx context.Context, intakeID, name string) (*model.TaskLineage, error) {
	var lineage model.TaskLineage
	err := r.db.WithContext(ctx).
		Where("intake_id = ? AND name_key = ?", intakeID, model.TaskNameKey(name)).
		First(&lineage).Error
	if err != nil {
		return nil, err
	}
	return &lineage, nil
}

func (r *taskRepo) ListByIntake(ctx context.Context, intakeID string) ([]model.TaskLineage, error) {
	var lineages []model.TaskLineage
	err := r.db.WithContext(ctx).
		Where("intake_id = ?", intakeID).
		Order("category ASC, name ASC").
		Find(&lineages).Error
	return lineages, err
}

// AppendVersion 追加新版本并推进 head
// version.VersionNumber 必须等于 lineage.Version+1，head 已被他人推进时返回 ErrOptimisticLock
func (r *taskRepo) AppendVersion(ctx context.Context, lineage *model.TaskLineage, version *model.TaskVersion) error {
	oldVersion := lineage.Version
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.TaskLineage{}).
			Where("lineage_id = ? AND version = ?", lineage.LineageID, oldVersion).
			Updates(map[string]interface{}{
				"name":       version.Name,
				"name_key":   model.TaskNameKey(version.Name),
				"category":   version.Category,
				"weight":     version.Weight,
				"updated_by": version.CreatedBy,
				"updated_at": gorm.Expr("NOW()"),
				"version":    oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		version.LineageID = lineage.LineageID
		return tx.Create(version).Error
	})
	if err != nil {
		return err
	}
	lineage.Name = version.Name
	lineage.NameKey = model.TaskNameKey(version.Name)
	lineage.Category = version.Category
	lineage.Weight = version.Weight
	lineage.UpdatedBy = version.CreatedBy
	lineage.Version = oldVersion + 1
	return nil
}

// SoftDelete 软删除谱系，版本记录保留
func (r *taskRepo) SoftDelete(ctx context.Context, lineage *model.TaskLineage, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.TaskLineage{}).
		Where("lineage_id = ? AND version = ?", lineage.LineageID, lineage.Version).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *taskRepo) GetVersion(ctx context.Context, lineageID string, number int) (*model.TaskVersion, error) {
	var version model.TaskVersion
	err := r.db.WithContext(ctx).
		Where("lineage_id = ? AND version_number = ?", lineageID, number).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// ListVersions 按版本号倒序返回全部版本
func (r *taskRepo) ListVersions(ctx context.Context, lineageID string) ([]model.TaskVersion, error) {
	var versions []model.TaskVersion
	err := r.db.WithContext(ctx).
		Where("lineage_id = ?", lineageID).
		Order("version_number DESC").
		Find(&versions).Error
	return versions, err
}
