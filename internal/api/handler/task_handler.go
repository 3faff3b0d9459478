package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ssebin/pandagrad-sub000/internal/dto"
	"github.com/ssebin/pandagrad-sub000/internal/service"
	"github.com/ssebin/pandagrad-sub000/pkg/response"
)

// TaskHandler 任务目录模块 HTTP 处理器
type TaskHandler struct {
	taskSvc service.TaskService
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(taskSvc service.TaskService) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc}
}

// ListTasks 获取批次任务目录
// GET /api/v1/intakes/:id/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	intakeID, ok := MustGetIDParam(c, "id", "批次ID")
	if !ok {
		return
	}

	tasks, err := h.taskSvc.ListTasks(c.Request.Context(), intakeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, tasks, len(tasks))
}

// CreateTask 在批次下创建任务并按范围传播
// POST /api/v1/intakes/:id/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	intakeID, ok := MustGetIDParam(c, "id", "批次ID")
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.CreateTask(c.Request.Context(), intakeID, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// GetTask 获取任务 head（含已删除）
// GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "任务ID")
	if !ok {
		return
	}

	task, err := h.taskSvc.GetTask(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, task)
}

// AmendTask 修改任务并按范围传播
// PUT /api/v1/tasks/:id
func (h *TaskHandler) AmendTask(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "任务ID")
	if !ok {
		return
	}

	var req dto.AmendTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.AmendTask(c.Request.Context(), id, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteTask 删除任务并按范围传播
// DELETE /api/v1/tasks/:id
//
// 范围可放在 JSON 请求体，或使用查询参数 ?scope=custom&intake_ids=a,b
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "任务ID")
	if !ok {
		return
	}

	var req dto.DeleteTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	} else if kind := c.Query("scope"); kind != "" {
		req.ApplyScope = &dto.ApplyScopeRequest{Kind: kind}
		if ids := c.Query("intake_ids"); ids != "" {
			for _, intakeID := range strings.Split(ids, ",") {
				intakeID = strings.TrimSpace(intakeID)
				if _, err := uuid.Parse(intakeID); err != nil {
					response.BadRequest(c, 10003, "批次ID格式无效")
					return
				}
				req.ApplyScope.IntakeIDs = append(req.ApplyScope.IntakeIDs, intakeID)
			}
		}
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.DeleteTask(c.Request.Context(), id, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// RevertTask 将任务回退到指定版本（仅影响本批次）
// POST /api/v1/tasks/:id/revert
func (h *TaskHandler) RevertTask(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "任务ID")
	if !ok {
		return
	}

	var req dto.RevertTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	version, err := h.taskSvc.RevertTask(c.Request.Context(), id, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, version)
}

// GetHistory 获取任务完整版本历史（新版本在前）
// GET /api/v1/tasks/:id/history
func (h *TaskHandler) GetHistory(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "任务ID")
	if !ok {
		return
	}

	versions, err := h.taskSvc.GetHistory(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, versions, len(versions))
}
