package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/ssebin/pandagrad-sub000/internal/model"
)

// Op 传播操作类型
type Op string

const (
	OpCreate Op = "create"
	OpAmend  Op = "amend"
	OpDelete Op = "delete"
)

// Outcome 单个批次的传播结果
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeAmended   Outcome = "amended"
	OutcomeUnchanged Outcome = "unchanged" // head 已与请求一致，未追加版本
	OutcomeDeleted   Outcome = "deleted"
	OutcomeSkipped   Outcome = "skipped" // 删除时批次内无匹配谱系
	OutcomeFailed    Outcome = "failed"
)

// ErrorKind 对外暴露的错误类别
type ErrorKind string

const (
	KindDuplicateLineage       ErrorKind = "duplicate_lineage"
	KindLineageNotFound        ErrorKind = "lineage_not_found"
	KindVersionNotFound        ErrorKind = "version_not_found"
	KindIntakeNotFound         ErrorKind = "intake_not_found"
	KindConcurrentModification ErrorKind = "concurrent_modification"
	KindCalendarEntryMissing   ErrorKind = "calendar_entry_missing"
	KindStudentNotFound        ErrorKind = "student_not_found"
	KindInvalidScope           ErrorKind = "invalid_scope"
	KindInvalidTaskFields      ErrorKind = "invalid_task_fields"
	KindInvalidProgressUpdate  ErrorKind = "invalid_progress_update"
	KindInternal               ErrorKind = "internal"
)

// ErrorKindOf 将业务错误映射为错误类别
func ErrorKindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateLineage):
		return KindDuplicateLineage
	case errors.Is(err, ErrLineageNotFound):
		return KindLineageNotFound
	case errors.Is(err, ErrVersionNotFound):
		return KindVersionNotFound
	case errors.Is(err, ErrIntakeNotFound):
		return KindIntakeNotFound
	case errors.Is(err, ErrConcurrentModification):
		return KindConcurrentModification
	case errors.Is(err, ErrCalendarEntryMissing):
		return KindCalendarEntryMissing
	case errors.Is(err, ErrStudentNotFound):
		return KindStudentNotFound
	case errors.Is(err, ErrInvalidScope):
		return KindInvalidScope
	case errors.Is(err, ErrInvalidTaskFields):
		return KindInvalidTaskFields
	case errors.Is(err, ErrInvalidProgressUpdate):
		return KindInvalidProgressUpdate
	}
	return KindInternal
}

// IntakeResult 单个目标批次的执行结果
type IntakeResult struct {
	IntakeID      string
	Outcome       Outcome
	LineageID     string
	VersionNumber int
	ErrorKind     ErrorKind
	Err           error
}

// Failed 是否失败
func (r *IntakeResult) Failed() bool { return r.Outcome == OutcomeFailed }

// PropagationRequest 一次传播请求
//
// Create 时 Fields 必须完整，SourceIntakeID 为源批次；
// Amend/Delete 时以 LineageID 定位源谱系，源批次取自谱系。
type PropagationRequest struct {
	Op             Op
	SourceIntakeID string
	LineageID      string
	Fields         TaskFields
	Scope          ApplyScope
	Actor          string
}

// Propagator 将一次变更按传播范围应用到多个批次
//
// 各批次相互独立、并发执行、互不回滚；结果逐批次记录。
type Propagator struct {
	store     *LineageStore
	directory IntakeDirectory
	workers   int
	logger    *zap.Logger
}

// NewPropagator 创建 Propagator
func NewPropagator(store *LineageStore, directory IntakeDirectory, workers int, logger *zap.Logger) *Propagator {
	if workers < 1 {
		workers = 1
	}
	return &Propagator{store: store, directory: directory, workers: workers, logger: logger}
}

// plan 解析出的执行计划
type plan struct {
	source  *model.Intake
	targets []string
	// 源谱系（Amend/Delete）
	lineage *model.TaskLineage
	// 用于跨批次匹配的名称：当前名称、历史名称、请求的新名称
	names []string
	// 新建谱系时的基础定义
	base TaskDefinition
}

// Propagate 执行传播，返回 intake_id → 结果
// 仅当请求本身无效（范围、字段、源批次或源谱系不存在）时返回 error
func (p *Propagator) Propagate(ctx context.Context, req PropagationRequest) (map[string]*IntakeResult, error) {
	if err := req.Scope.Validate(); err != nil {
		return nil, err
	}

	pl, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make(map[string]*IntakeResult, len(pl.targets))
	)
	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for _, intakeID := range pl.targets {
		g.Go(func() error {
			res := p.apply(ctx, req, pl, intakeID)
			if res.Err != nil {
				res.Outcome = OutcomeFailed
				res.ErrorKind = ErrorKindOf(res.Err)
				p.logger.Warn("批次传播失败",
					zap.String("op", string(req.Op)),
					zap.String("intake_id", intakeID),
					zap.Error(res.Err),
				)
			}
			mu.Lock()
			results[intakeID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info("传播完成",
		zap.String("op", string(req.Op)),
		zap.String("source_intake_id", pl.source.IntakeID),
		zap.String("scope", string(req.Scope.Kind)),
		zap.Int("targets", len(pl.targets)),
		zap.Int("failed", countFailed(results)),
	)
	return results, nil
}

func (p *Propagator) prepare(ctx context.Context, req PropagationRequest) (*plan, error) {
	pl := &plan{}
	switch req.Op {
	case OpCreate:
		def, err := req.Fields.ApplyTo(TaskDefinition{}).normalized()
		if err != nil || req.Fields.Name == nil || req.Fields.Category == nil || req.Fields.Weight == nil {
			if err == nil {
				err = fmt.Errorf("%w: 新建任务须提供 name、category、weight", ErrInvalidTaskFields)
			}
			return nil, err
		}
		pl.base = def
		pl.names = []string{def.Name}
		req.SourceIntakeID = strings.TrimSpace(req.SourceIntakeID)

	case OpAmend, OpDelete:
		includeDeleted := req.Op == OpDelete
		lineage, err := p.store.Get(ctx, req.LineageID, includeDeleted)
		if err != nil {
			return nil, err
		}
		if req.Op == OpAmend {
			if req.Fields.Empty() {
				return nil, fmt.Errorf("%w: 至少提供一个字段", ErrInvalidTaskFields)
			}
			if _, err := req.Fields.ApplyTo(definitionOf(lineage)).normalized(); err != nil {
				return nil, err
			}
		}
		names, err := p.lineageNames(ctx, lineage)
		if err != nil {
			return nil, err
		}
		if req.Fields.Name != nil {
			names = appendName(names, *req.Fields.Name)
		}
		pl.lineage = lineage
		pl.names = names
		pl.base = definitionOf(lineage)
		req.SourceIntakeID = lineage.IntakeID

	default:
		return nil, fmt.Errorf("未知传播操作: %q", req.Op)
	}

	source, err := p.directory.GetIntake(ctx, req.SourceIntakeID)
	if err != nil {
		return nil, err
	}
	pl.source = source

	targets, err := p.resolveTargets(ctx, source, req.Scope)
	if err != nil {
		return nil, err
	}
	pl.targets = targets
	return pl, nil
}

// resolveTargets 计算目标批次集合，源批次总在其中
func (p *Propagator) resolveTargets(ctx context.Context, source *model.Intake, scope ApplyScope) ([]string, error) {
	targets := []string{source.IntakeID}
	seen := map[string]bool{source.IntakeID: true}
	add := func(id string) {
		id = strings.TrimSpace(id)
		if !seen[id] {
			seen[id] = true
			targets = append(targets, id)
		}
	}

	switch scope.Kind {
	case ScopeAllIntakesOfProgram:
		intakes, err := p.directory.ListIntakesForProgram(ctx, source.ProgramID)
		if err != nil {
			p.logger.Error("查询项目批次失败", zap.String("program_id", source.ProgramID), zap.Error(err))
			return nil, err
		}
		for _, in := range intakes {
			add(in.IntakeID)
		}
	case ScopeCustom:
		for _, id := range scope.IntakeIDs {
			add(id)
		}
	}
	return targets, nil
}

func (p *Propagator) apply(ctx context.Context, req PropagationRequest, pl *plan, intakeID string) *IntakeResult {
	res := &IntakeResult{IntakeID: intakeID}
	if intakeID != pl.source.IntakeID {
		if _, err := p.directory.GetIntake(ctx, intakeID); err != nil {
			res.Err = err
			return res
		}
	}

	switch req.Op {
	case OpDelete:
		p.applyDelete(ctx, req, pl, res)
	default:
		p.applyUpsert(ctx, req, pl, res)
	}
	return res
}

func (p *Propagator) applyUpsert(ctx context.Context, req PropagationRequest, pl *plan, res *IntakeResult) {
	fields := req.Fields
	var target *model.TaskLineage
	if pl.lineage != nil && res.IntakeID == pl.lineage.IntakeID {
		target = pl.lineage
	} else {
		found, err := p.store.FindByNames(ctx, res.IntakeID, pl.names)
		if err != nil && !errors.Is(err, ErrLineageNotFound) {
			res.Err = err
			return
		}
		target = found
	}

	if target == nil {
		lineage, first, err := p.store.CreateLineage(ctx, res.IntakeID, fields.ApplyTo(pl.base), req.Actor, req.Scope)
		if err == nil {
			res.Outcome = OutcomeCreated
			res.LineageID = lineage.LineageID
			res.VersionNumber = first.VersionNumber
			return
		}
		if !errors.Is(err, ErrDuplicateLineage) {
			res.Err = err
			return
		}
		// 并发创建了同名谱系，转为修改
		target, err = p.store.FindByNames(ctx, res.IntakeID, []string{fields.ApplyTo(pl.base).Name})
		if err != nil {
			res.Err = err
			return
		}
	}

	head, version, err := p.store.amendIfChanged(ctx, target.LineageID, fields, req.Actor, req.Scope)
	if err != nil {
		res.Err = err
		return
	}
	res.LineageID = head.LineageID
	if version == nil {
		res.Outcome = OutcomeUnchanged
		res.VersionNumber = head.Version
		return
	}
	res.Outcome = OutcomeAmended
	res.VersionNumber = version.VersionNumber
}

func (p *Propagator) applyDelete(ctx context.Context, req PropagationRequest, pl *plan, res *IntakeResult) {
	var target *model.TaskLineage
	if res.IntakeID == pl.lineage.IntakeID {
		if pl.lineage.DeletedAt.Valid {
			res.Outcome = OutcomeSkipped
			res.LineageID = pl.lineage.LineageID
			return
		}
		target = pl.lineage
	} else {
		found, err := p.store.FindByNames(ctx, res.IntakeID, pl.names)
		if errors.Is(err, ErrLineageNotFound) {
			res.Outcome = OutcomeSkipped
			return
		}
		if err != nil {
			res.Err = err
			return
		}
		target = found
	}

	res.LineageID = target.LineageID
	if err := p.store.DeleteLineage(ctx, target.LineageID, req.Actor); err != nil {
		if errors.Is(err, ErrLineageNotFound) {
			// 其他请求已删除
			res.Outcome = OutcomeSkipped
			return
		}
		res.Err = err
		return
	}
	res.Outcome = OutcomeDeleted
}

// lineageNames 源谱系历史上使用过的全部名称，当前名称在前、不区分大小写去重
func (p *Propagator) lineageNames(ctx context.Context, lineage *model.TaskLineage) ([]string, error) {
	names := []string{lineage.Name}
	versions, err := p.store.History(ctx, lineage.LineageID)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		names = appendName(names, v.Name)
	}
	return names, nil
}

func appendName(names []string, name string) []string {
	name = norm.NFC.String(strings.TrimSpace(name))
	for _, n := range names {
		if sameName(n, name) {
			return names
		}
	}
	return append(names, name)
}

func countFailed(results map[string]*IntakeResult) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}
