package handler

import "github.com/ssebin/pandagrad-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Task     *TaskHandler
	Status   *StatusHandler
	Intake   *IntakeHandler
	Calendar *CalendarHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Task:     NewTaskHandler(svc.Task),
		Status:   NewStatusHandler(svc.Status),
		Intake:   NewIntakeHandler(svc.Intake),
		Calendar: NewCalendarHandler(svc.Calendar),
		Export:   NewExportHandler(svc.Export),
	}
}
