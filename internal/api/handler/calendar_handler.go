package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ssebin/pandagrad-sub000/internal/dto"
	"github.com/ssebin/pandagrad-sub000/internal/service"
	"github.com/ssebin/pandagrad-sub000/pkg/response"
)

// CalendarHandler 学期日历模块 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// ListEntries 获取学期日历
// GET /api/v1/calendar
func (h *CalendarHandler) ListEntries(c *gin.Context) {
	entries, err := h.calendarSvc.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKList(c, entries, len(entries))
}

// UpsertEntry 新增或覆盖一个学期窗口
// PUT /api/v1/calendar
func (h *CalendarHandler) UpsertEntry(c *gin.Context) {
	var req dto.UpsertCalendarEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	entry, err := h.calendarSvc.Upsert(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, entry)
}

// ImportICS 导入 ICS 学期日历
// POST /api/v1/calendar/import
//
// 支持 multipart 文件上传（字段 file）或 JSON {"url": "..."}
func (h *CalendarHandler) ImportICS(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		resp, err := h.calendarSvc.ImportICS(c.Request.Context(), file)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	var req dto.ImportCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 22004, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	body, err := service.FetchICSContent(req.URL)
	if err != nil {
		response.ErrorWithKind(c, http.StatusBadRequest, 22005, "ICS URL 获取失败", "", err.Error())
		return
	}
	defer body.Close()

	resp, err := h.calendarSvc.ImportICS(c.Request.Context(), body)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, resp)
}
