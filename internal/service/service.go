package service

import (
	"go.uber.org/zap"

	"github.com/ssebin/pandagrad-sub000/config"
	"github.com/ssebin/pandagrad-sub000/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Task     TaskService
	Status   StatusService
	Intake   IntakeService
	Calendar CalendarService
	Export   ExportService
}

// NewService 创建 Service 聚合；cache 可为 nil（不使用日历缓存）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache CalendarCache,
	logger *zap.Logger,
) *Service {
	directory := NewIntakeDirectory(repo.Intake, repo.Calendar, cache, cfg.Calendar.CacheTTL, logger)
	roster := NewStudentRoster(repo.Student)
	ledger := NewProgressLedger(repo.Progress)
	store := NewLineageStore(repo.Task, directory, &cfg.Catalog, logger)
	propagator := NewPropagator(store, directory, cfg.Catalog.PropagationWorkers, logger)
	loc := cfg.Calendar.Location()

	return &Service{
		Task:     NewTaskService(repo.Task, store, propagator, directory, roster, logger),
		Status:   NewStatusService(store, directory, roster, ledger, loc, logger),
		Intake:   NewIntakeService(repo.Intake, logger),
		Calendar: NewCalendarService(repo.Calendar, directory, loc, logger),
		Export:   NewExportService(repo.Task, directory, logger),
	}
}
