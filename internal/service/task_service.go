package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ssebin/pandagrad-sub000/internal/dto"
	"github.com/ssebin/pandagrad-sub000/internal/model"
	"github.com/ssebin/pandagrad-sub000/internal/repository"
)

const timeLayout = "2006-01-02T15:04:05Z"

// TaskService 任务目录业务接口
type TaskService interface {
	CreateTask(ctx context.Context, intakeID string, req *dto.CreateTaskRequest, actor string) (*dto.PropagationResponse, error)
	AmendTask(ctx context.Context, lineageID string, req *dto.AmendTaskRequest, actor string) (*dto.PropagationResponse, error)
	DeleteTask(ctx context.Context, lineageID string, req *dto.DeleteTaskRequest, actor string) (*dto.PropagationResponse, error)
	RevertTask(ctx context.Context, lineageID string, req *dto.RevertTaskRequest, actor string) (*dto.TaskVersionResponse, error)
	GetHistory(ctx context.Context, lineageID string) ([]dto.TaskVersionResponse, error)
	GetTask(ctx context.Context, lineageID string) (*dto.TaskResponse, error)
	ListTasks(ctx context.Context, intakeID string) ([]dto.TaskResponse, error)
}

type taskService struct {
	tasks      repository.TaskRepository
	store      *LineageStore
	propagator *Propagator
	directory  IntakeDirectory
	roster     StudentRoster
	logger     *zap.Logger
}

// NewTaskService 创建 TaskService 实例
func NewTaskService(tasks repository.TaskRepository, store *LineageStore, propagator *Propagator, directory IntakeDirectory, roster StudentRoster, logger *zap.Logger) TaskService {
	return &taskService{
		tasks:      tasks,
		store:      store,
		propagator: propagator,
		directory:  directory,
		roster:     roster,
		logger:     logger,
	}
}

// ────────────────────── CreateTask ──────────────────────

func (s *taskService) CreateTask(ctx context.Context, intakeID string, req *dto.CreateTaskRequest, actor string) (*dto.PropagationResponse, error) {
	var weight int
	if req.Weight != nil {
		weight = *req.Weight
	}
	results, err := s.propagator.Propagate(ctx, PropagationRequest{
		Op:             OpCreate,
		SourceIntakeID: intakeID,
		Fields:         fieldsOf(TaskDefinition{Name: req.Name, Category: req.Category, Weight: weight}),
		Scope:          scopeFromRequest(req.ApplyScope),
		Actor:          actor,
	})
	if err != nil {
		return nil, err
	}
	return s.toPropagationResponse(ctx, results), nil
}

// ────────────────────── AmendTask ──────────────────────

func (s *taskService) AmendTask(ctx context.Context, lineageID string, req *dto.AmendTaskRequest, actor string) (*dto.PropagationResponse, error) {
	results, err := s.propagator.Propagate(ctx, PropagationRequest{
		Op:        OpAmend,
		LineageID: lineageID,
		Fields:    TaskFields{Name: req.Name, Category: req.Category, Weight: req.Weight},
		Scope:     scopeFromRequest(req.ApplyScope),
		Actor:     actor,
	})
	if err != nil {
		return nil, err
	}
	return s.toPropagationResponse(ctx, results), nil
}

// ────────────────────── DeleteTask ──────────────────────

func (s *taskService) DeleteTask(ctx context.Context, lineageID string, req *dto.DeleteTaskRequest, actor string) (*dto.PropagationResponse, error) {
	var scope *dto.ApplyScopeRequest
	if req != nil {
		scope = req.ApplyScope
	}
	results, err := s.propagator.Propagate(ctx, PropagationRequest{
		Op:        OpDelete,
		LineageID: lineageID,
		Scope:     scopeFromRequest(scope),
		Actor:     actor,
	})
	if err != nil {
		return nil, err
	}
	return s.toPropagationResponse(ctx, results), nil
}

// ────────────────────── RevertTask ──────────────────────

func (s *taskService) RevertTask(ctx context.Context, lineageID string, req *dto.RevertTaskRequest, actor string) (*dto.TaskVersionResponse, error) {
	version, err := s.store.Revert(ctx, lineageID, req.VersionNumber, actor)
	if err != nil {
		return nil, err
	}
	s.logger.Info("任务已回退",
		zap.String("lineage_id", lineageID),
		zap.Int("reverted_from", req.VersionNumber),
		zap.Int("version", version.VersionNumber),
		zap.String("actor", actor),
	)
	resp := toVersionResponse(version)
	return &resp, nil
}

// ────────────────────── 读取 ──────────────────────

func (s *taskService) GetHistory(ctx context.Context, lineageID string) ([]dto.TaskVersionResponse, error) {
	versions, err := s.store.History(ctx, lineageID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.TaskVersionResponse, len(versions))
	for i := range versions {
		result[i] = toVersionResponse(&versions[i])
	}
	return result, nil
}

func (s *taskService) GetTask(ctx context.Context, lineageID string) (*dto.TaskResponse, error) {
	lineage, err := s.store.Get(ctx, lineageID, true)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(lineage)
	return &resp, nil
}

func (s *taskService) ListTasks(ctx context.Context, intakeID string) ([]dto.TaskResponse, error) {
	if _, err := s.directory.GetIntake(ctx, intakeID); err != nil {
		return nil, err
	}
	lineages, err := s.tasks.ListByIntake(ctx, intakeID)
	if err != nil {
		s.logger.Error("列出批次任务失败", zap.String("intake_id", intakeID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.TaskResponse, len(lineages))
	for i := range lineages {
		result[i] = toTaskResponse(&lineages[i])
	}
	return result, nil
}

// ── 内部辅助方法 ──

// toPropagationResponse 汇总传播结果，并统计每个批次需重新计算状态的学生数
func (s *taskService) toPropagationResponse(ctx context.Context, results map[string]*IntakeResult) *dto.PropagationResponse {
	resp := &dto.PropagationResponse{Results: make(map[string]dto.IntakeResultResponse, len(results))}
	for id, r := range results {
		item := dto.IntakeResultResponse{
			IntakeID:      r.IntakeID,
			Outcome:       string(r.Outcome),
			LineageID:     r.LineageID,
			VersionNumber: r.VersionNumber,
		}
		if r.Failed() {
			resp.Failed++
			item.ErrorKind = string(r.ErrorKind)
			item.Error = r.Err.Error()
		} else {
			resp.Succeeded++
			item.AffectedStudents = s.countAffected(ctx, r)
		}
		resp.Results[id] = item
	}
	return resp
}

func (s *taskService) countAffected(ctx context.Context, r *IntakeResult) int {
	if r.LineageID == "" || r.Outcome == OutcomeUnchanged || r.Outcome == OutcomeSkipped {
		return 0
	}
	students, err := s.roster.ListStudentsOnLineage(ctx, r.LineageID)
	if err != nil {
		s.logger.Warn("查询任务学生失败", zap.String("lineage_id", r.LineageID), zap.Error(err))
		return 0
	}
	return len(students)
}

func toTaskResponse(l *model.TaskLineage) dto.TaskResponse {
	return dto.TaskResponse{
		ID:          l.LineageID,
		IntakeID:    l.IntakeID,
		Name:        l.Name,
		Category:    l.Category,
		Weight:      l.Weight,
		HeadVersion: l.Version,
		Deleted:     l.DeletedAt.Valid,
		UpdatedBy:   l.UpdatedBy,
		CreatedAt:   l.CreatedAt.Format(timeLayout),
		UpdatedAt:   l.UpdatedAt.Format(timeLayout),
	}
}

func toVersionResponse(v *model.TaskVersion) dto.TaskVersionResponse {
	resp := dto.TaskVersionResponse{
		LineageID:     v.LineageID,
		VersionNumber: v.VersionNumber,
		Name:          v.Name,
		Category:      v.Category,
		Weight:        v.Weight,
		Action:        v.Action,
		RevertedFrom:  v.RevertedFrom,
		ScopeKind:     v.ScopeKind,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt.Format(timeLayout),
	}
	if len(v.ScopeIntakeIDs) > 0 {
		resp.ScopeIntakeIDs = append([]string(nil), v.ScopeIntakeIDs...)
		sort.Strings(resp.ScopeIntakeIDs)
	}
	return resp
}
