package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/ssebin/pandagrad-sub000/config"
	"github.com/ssebin/pandagrad-sub000/internal/academic"
	"github.com/ssebin/pandagrad-sub000/internal/model"
	"github.com/ssebin/pandagrad-sub000/internal/repository"
	pkgerrors "github.com/ssebin/pandagrad-sub000/pkg/errors"
)

// ── 任务目录模块业务错误 ──

var (
	ErrDuplicateLineage       = errors.New("该批次已存在同名任务")
	ErrLineageNotFound        = errors.New("任务不存在或已删除")
	ErrVersionNotFound        = errors.New("任务版本不存在")
	ErrIntakeNotFound         = errors.New("入学批次不存在")
	ErrConcurrentModification = errors.New("任务正在被并发修改，请稍后重试")
	ErrInvalidTaskFields      = errors.New("任务字段无效")

	// ErrCalendarEntryMissing 非致命：状态推导回退为按期
	ErrCalendarEntryMissing = academic.ErrCalendarEntryMissing
)

const (
	maxTaskNameLen     = 200
	maxTaskCategoryLen = 50
	maxTaskWeight      = 100
)

// TaskDefinition 任务定义的完整字段
type TaskDefinition struct {
	Name     string
	Category string
	Weight   int
}

func (d TaskDefinition) normalized() (TaskDefinition, error) {
	d.Name = norm.NFC.String(strings.TrimSpace(d.Name))
	d.Category = norm.NFC.String(strings.TrimSpace(d.Category))
	switch {
	case d.Name == "" || utf8.RuneCountInString(d.Name) > maxTaskNameLen:
		return d, fmt.Errorf("%w: name 长度须为 1-%d", ErrInvalidTaskFields, maxTaskNameLen)
	case d.Category == "" || utf8.RuneCountInString(d.Category) > maxTaskCategoryLen:
		return d, fmt.Errorf("%w: category 长度须为 1-%d", ErrInvalidTaskFields, maxTaskCategoryLen)
	case d.Weight < 0 || d.Weight > maxTaskWeight:
		return d, fmt.Errorf("%w: weight 须在 0-%d 之间", ErrInvalidTaskFields, maxTaskWeight)
	}
	return d, nil
}

func definitionOf(l *model.TaskLineage) TaskDefinition {
	return TaskDefinition{Name: l.Name, Category: l.Category, Weight: l.Weight}
}

// TaskFields 部分字段修改，nil 表示不修改
type TaskFields struct {
	Name     *string
	Category *string
	Weight   *int
}

// Empty 是否未提供任何字段
func (f TaskFields) Empty() bool {
	return f.Name == nil && f.Category == nil && f.Weight == nil
}

// ApplyTo 将修改叠加到已有定义上
func (f TaskFields) ApplyTo(d TaskDefinition) TaskDefinition {
	if f.Name != nil {
		d.Name = *f.Name
	}
	if f.Category != nil {
		d.Category = *f.Category
	}
	if f.Weight != nil {
		d.Weight = *f.Weight
	}
	return d
}

// fieldsOf 把完整定义转为全字段修改
func fieldsOf(d TaskDefinition) TaskFields {
	return TaskFields{Name: &d.Name, Category: &d.Category, Weight: &d.Weight}
}

// LineageStore 任务谱系存储：维护每个批次内独立的版本链
//
// 同一谱系的变更通过 keyedLocker 串行化，保证版本号严格递增且不重复；
// 跨进程的并发由仓储层乐观锁兜底，冲突超过重试次数返回 ErrConcurrentModification。
type LineageStore struct {
	tasks      repository.TaskRepository
	directory  IntakeDirectory
	locks      *keyedLocker
	maxRetries int
	logger     *zap.Logger
}

// NewLineageStore 创建 LineageStore
func NewLineageStore(tasks repository.TaskRepository, directory IntakeDirectory, cfg *config.CatalogConfig, logger *zap.Logger) *LineageStore {
	return &LineageStore{
		tasks:      tasks,
		directory:  directory,
		locks:      newKeyedLocker(cfg.LockWait),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

func lineageKey(lineageID string) string { return "lineage:" + lineageID }

func nameKey(intakeID, name string) string {
	return "intake:" + intakeID + ":" + foldName(name)
}

func foldName(name string) string { return model.TaskNameKey(name) }

func sameName(a, b string) bool { return foldName(a) == foldName(b) }

// ────────────────────── CreateLineage ──────────────────────

// CreateLineage 在批次内创建新谱系及其第 1 版
func (s *LineageStore) CreateLineage(ctx context.Context, intakeID string, def TaskDefinition, actor string, scope ApplyScope) (*model.TaskLineage, *model.TaskVersion, error) {
	def, err := def.normalized()
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.directory.GetIntake(ctx, intakeID); err != nil {
		return nil, nil, err
	}

	unlock, err := s.locks.Lock(ctx, nameKey(intakeID, def.Name))
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	if _, err := s.tasks.FindActiveByName(ctx, intakeID, def.Name); err == nil {
		return nil, nil, ErrDuplicateLineage
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询同名任务失败", zap.String("intake_id", intakeID), zap.Error(err))
		return nil, nil, err
	}

	lineage := &model.TaskLineage{
		IntakeID: intakeID,
		Name:     def.Name,
		Category: def.Category,
		Weight:   def.Weight,
	}
	lineage.Version = 1
	lineage.CreatedBy = actor
	lineage.UpdatedBy = actor

	first := newVersion(def, 1, model.TaskActionCreate, nil, scope, actor)
	if err := s.tasks.CreateLineage(ctx, lineage, first); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, ErrDuplicateLineage
		}
		s.logger.Error("创建任务谱系失败", zap.String("intake_id", intakeID), zap.Error(err))
		return nil, nil, err
	}

	return lineage, first, nil
}

// ────────────────────── AmendHead ──────────────────────

// AmendHead 以 head+1 追加新版本；原 head 保留可读
func (s *LineageStore) AmendHead(ctx context.Context, lineageID string, fields TaskFields, actor string, scope ApplyScope) (*model.TaskVersion, error) {
	_, version, err := s.amend(ctx, lineageID, fields, actor, scope, false)
	return version, err
}

// amendIfChanged head 已与请求一致时不追加版本，返回 nil 版本
func (s *LineageStore) amendIfChanged(ctx context.Context, lineageID string, fields TaskFields, actor string, scope ApplyScope) (*model.TaskLineage, *model.TaskVersion, error) {
	return s.amend(ctx, lineageID, fields, actor, scope, true)
}

func (s *LineageStore) amend(ctx context.Context, lineageID string, fields TaskFields, actor string, scope ApplyScope, skipUnchanged bool) (*model.TaskLineage, *model.TaskVersion, error) {
	if fields.Empty() {
		return nil, nil, fmt.Errorf("%w: 至少提供一个字段", ErrInvalidTaskFields)
	}

	unlock, err := s.locks.Lock(ctx, lineageKey(lineageID))
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	return s.appendWithRetry(ctx, lineageID, func(head *model.TaskLineage) (*model.TaskVersion, error) {
		def, err := fields.ApplyTo(definitionOf(head)).normalized()
		if err != nil {
			return nil, err
		}
		if skipUnchanged && def == definitionOf(head) {
			return nil, nil
		}
		if err := s.checkRename(ctx, head, def.Name); err != nil {
			return nil, err
		}
		return newVersion(def, head.Version+1, model.TaskActionAmend, nil, scope, actor), nil
	})
}

// ────────────────────── Revert ──────────────────────

// Revert 以目标版本的字段追加新 head（追加而非回滚，版本号继续递增）
func (s *LineageStore) Revert(ctx context.Context, lineageID string, target int, actor string) (*model.TaskVersion, error) {
	unlock, err := s.locks.Lock(ctx, lineageKey(lineageID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, version, err := s.appendWithRetry(ctx, lineageID, func(head *model.TaskLineage) (*model.TaskVersion, error) {
		src, err := s.tasks.GetVersion(ctx, lineageID, target)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrVersionNotFound
			}
			return nil, err
		}
		def := TaskDefinition{Name: src.Name, Category: src.Category, Weight: src.Weight}
		if err := s.checkRename(ctx, head, def.Name); err != nil {
			return nil, err
		}
		return newVersion(def, head.Version+1, model.TaskActionRevert, &target, ThisIntakeOnly(), actor), nil
	})
	return version, err
}

// ────────────────────── DeleteLineage ──────────────────────

// DeleteLineage 软删除谱系（仅当前批次），版本保留用于审计
func (s *LineageStore) DeleteLineage(ctx context.Context, lineageID string, actor string) error {
	unlock, err := s.locks.Lock(ctx, lineageKey(lineageID))
	if err != nil {
		return err
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		head, err := s.head(ctx, lineageID)
		if err != nil {
			return err
		}
		err = s.tasks.SoftDelete(ctx, head, actor)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("删除任务谱系失败", zap.String("lineage_id", lineageID), zap.Error(err))
			return err
		}
		if attempt >= s.maxRetries {
			return ErrConcurrentModification
		}
	}
}

// ────────────────────── 读取 ──────────────────────

// History 按版本号倒序返回全部版本；已删除谱系同样可读
func (s *LineageStore) History(ctx context.Context, lineageID string) ([]model.TaskVersion, error) {
	if _, err := s.Get(ctx, lineageID, true); err != nil {
		return nil, err
	}
	versions, err := s.tasks.ListVersions(ctx, lineageID)
	if err != nil {
		s.logger.Error("查询任务版本失败", zap.String("lineage_id", lineageID), zap.Error(err))
		return nil, err
	}
	return versions, nil
}

// Get 读取谱系；includeDeleted 为 true 时包含已删除谱系
func (s *LineageStore) Get(ctx context.Context, lineageID string, includeDeleted bool) (*model.TaskLineage, error) {
	if !includeDeleted {
		return s.head(ctx, lineageID)
	}
	lineage, err := s.tasks.GetLineageUnscoped(ctx, lineageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineageNotFound
		}
		return nil, err
	}
	return lineage, nil
}

// FindByNames 按候选名称顺序在批次内查找有效谱系
func (s *LineageStore) FindByNames(ctx context.Context, intakeID string, names []string) (*model.TaskLineage, error) {
	for _, name := range names {
		lineage, err := s.tasks.FindActiveByName(ctx, intakeID, name)
		if err == nil {
			return lineage, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrLineageNotFound
}

// ── 内部辅助方法 ──

func (s *LineageStore) head(ctx context.Context, lineageID string) (*model.TaskLineage, error) {
	lineage, err := s.tasks.GetLineage(ctx, lineageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineageNotFound
		}
		s.logger.Error("查询任务谱系失败", zap.String("lineage_id", lineageID), zap.Error(err))
		return nil, err
	}
	return lineage, nil
}

// appendWithRetry 读取 head → 构造新版本 → 条件写入；乐观锁冲突时重读重试
// build 返回 nil 版本表示无需变更
func (s *LineageStore) appendWithRetry(ctx context.Context, lineageID string, build func(head *model.TaskLineage) (*model.TaskVersion, error)) (*model.TaskLineage, *model.TaskVersion, error) {
	for attempt := 0; ; attempt++ {
		head, err := s.head(ctx, lineageID)
		if err != nil {
			return nil, nil, err
		}
		version, err := build(head)
		if err != nil || version == nil {
			return head, nil, err
		}

		err = s.tasks.AppendVersion(ctx, head, version)
		switch {
		case err == nil:
			return head, version, nil
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			s.logger.Warn("任务版本写入冲突，重试",
				zap.String("lineage_id", lineageID),
				zap.Int("attempt", attempt+1),
			)
			if attempt >= s.maxRetries {
				return nil, nil, ErrConcurrentModification
			}
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, nil, ErrDuplicateLineage
		default:
			s.logger.Error("追加任务版本失败", zap.String("lineage_id", lineageID), zap.Error(err))
			return nil, nil, err
		}
	}
}

// checkRename 改名时确认批次内没有其他同名有效谱系
func (s *LineageStore) checkRename(ctx context.Context, head *model.TaskLineage, newName string) error {
	if sameName(head.Name, newName) {
		return nil
	}
	other, err := s.tasks.FindActiveByName(ctx, head.IntakeID, newName)
	if err == nil && other.LineageID != head.LineageID {
		return ErrDuplicateLineage
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func newVersion(def TaskDefinition, number int, action string, revertedFrom *int, scope ApplyScope, actor string) *model.TaskVersion {
	v := &model.TaskVersion{
		VersionNumber: number,
		Name:          def.Name,
		Category:      def.Category,
		Weight:        def.Weight,
		Action:        action,
		RevertedFrom:  revertedFrom,
		ScopeKind:     string(scope.Kind),
		CreatedBy:     actor,
	}
	if scope.Kind == ScopeCustom && len(scope.IntakeIDs) > 0 {
		v.ScopeIntakeIDs = model.StringArray(scope.IntakeIDs)
	}
	return v
}
