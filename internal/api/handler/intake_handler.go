package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ssebin/pandagrad-sub000/internal/dto"
	"github.com/ssebin/pandagrad-sub000/internal/service"
	"github.com/ssebin/pandagrad-sub000/pkg/response"
)

// IntakeHandler 批次模块 HTTP 处理器
type IntakeHandler struct {
	intakeSvc service.IntakeService
}

// NewIntakeHandler 创建 IntakeHandler
func NewIntakeHandler(intakeSvc service.IntakeService) *IntakeHandler {
	return &IntakeHandler{intakeSvc: intakeSvc}
}

// ListIntakes 获取批次列表
// GET /api/v1/intakes?program_id=xxx
func (h *IntakeHandler) ListIntakes(c *gin.Context) {
	intakes, err := h.intakeSvc.List(c.Request.Context(), c.Query("program_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, intakes, len(intakes))
}

// GetIntake 获取批次详情
// GET /api/v1/intakes/:id
func (h *IntakeHandler) GetIntake(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "批次ID")
	if !ok {
		return
	}

	intake, err := h.intakeSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, intake)
}

// CreateIntake 创建批次
// POST /api/v1/intakes
func (h *IntakeHandler) CreateIntake(c *gin.Context) {
	var req dto.CreateIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	intake, err := h.intakeSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, intake)
}

// UpdateIntake 修改批次标签
// PUT /api/v1/intakes/:id
func (h *IntakeHandler) UpdateIntake(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", "批次ID")
	if !ok {
		return
	}

	var req dto.UpdateIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	intake, err := h.intakeSvc.UpdateLabel(c.Request.Context(), id, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, intake)
}
