package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ssebin/pandagrad-sub000/internal/dto"
	"github.com/ssebin/pandagrad-sub000/internal/service"
	"github.com/ssebin/pandagrad-sub000/pkg/response"
)

// StatusHandler 进度与状态模块 HTTP 处理器
type StatusHandler struct {
	statusSvc service.StatusService
}

// NewStatusHandler 创建 StatusHandler
func NewStatusHandler(statusSvc service.StatusService) *StatusHandler {
	return &StatusHandler{statusSvc: statusSvc}
}

// GetStatus 推导学生在某任务上的状态
// GET /api/v1/students/:id/tasks/:lineage_id/status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	studentID, ok := MustGetIDParam(c, "id", "学生ID")
	if !ok {
		return
	}
	lineageID, ok := MustGetIDParam(c, "lineage_id", "任务ID")
	if !ok {
		return
	}

	status, err := h.statusSvc.GetStatus(c.Request.Context(), studentID, lineageID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, status)
}

// ListProgress 获取学生在某任务上的进度事件
// GET /api/v1/students/:id/tasks/:lineage_id/progress
func (h *StatusHandler) ListProgress(c *gin.Context) {
	studentID, ok := MustGetIDParam(c, "id", "学生ID")
	if !ok {
		return
	}
	lineageID, ok := MustGetIDParam(c, "lineage_id", "任务ID")
	if !ok {
		return
	}

	updates, err := h.statusSvc.ListProgress(c.Request.Context(), studentID, lineageID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, updates, len(updates))
}

// CurrentSemester 获取学生当前所在学期序号
// GET /api/v1/students/:id/semester
func (h *StatusHandler) CurrentSemester(c *gin.Context) {
	studentID, ok := MustGetIDParam(c, "id", "学生ID")
	if !ok {
		return
	}

	sem, err := h.statusSvc.CurrentSemester(c.Request.Context(), studentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, sem)
}

// ListLineageStatuses 获取任务上所有学生的状态
// GET /api/v1/tasks/:id/statuses
func (h *StatusHandler) ListLineageStatuses(c *gin.Context) {
	lineageID, ok := MustGetIDParam(c, "id", "任务ID")
	if !ok {
		return
	}

	statuses, err := h.statusSvc.ListLineageStatuses(c.Request.Context(), lineageID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, statuses, len(statuses))
}

// AppendProgress 追加进度更新事件
// POST /api/v1/progress-updates
func (h *StatusHandler) AppendProgress(c *gin.Context) {
	var req dto.AppendProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	update, err := h.statusSvc.AppendProgress(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, update)
}
