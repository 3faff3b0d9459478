package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ssebin/pandagrad-sub000/internal/service"
	"github.com/ssebin/pandagrad-sub000/pkg/response"
)

// handleServiceError 将业务错误映射为 HTTP 状态码与业务码
//
// 业务码分段：200xx 任务目录，210xx 进度与状态，220xx 批次与日历，230xx 导出
func handleServiceError(c *gin.Context, err error) {
	kind := string(service.ErrorKindOf(err))
	switch {
	case errors.Is(err, service.ErrLineageNotFound):
		response.ErrorWithKind(c, http.StatusNotFound, 20001, "任务不存在", kind, err.Error())
	case errors.Is(err, service.ErrVersionNotFound):
		response.ErrorWithKind(c, http.StatusNotFound, 20002, "任务版本不存在", kind, err.Error())
	case errors.Is(err, service.ErrDuplicateLineage):
		response.ErrorWithKind(c, http.StatusConflict, 20003, "该批次已存在同名任务", kind, err.Error())
	case errors.Is(err, service.ErrConcurrentModification):
		response.ErrorWithKind(c, http.StatusConflict, 20004, "任务正被并发修改，请重试", kind, err.Error())
	case errors.Is(err, service.ErrInvalidScope):
		response.ErrorWithKind(c, http.StatusBadRequest, 20005, "传播范围无效", kind, err.Error())
	case errors.Is(err, service.ErrInvalidTaskFields):
		response.ErrorWithKind(c, http.StatusBadRequest, 20006, "任务字段无效", kind, err.Error())
	case errors.Is(err, service.ErrStudentNotFound):
		response.ErrorWithKind(c, http.StatusNotFound, 21001, "学生不存在", kind, err.Error())
	case errors.Is(err, service.ErrInvalidProgressUpdate):
		response.ErrorWithKind(c, http.StatusBadRequest, 21002, "进度更新无效", kind, err.Error())
	case errors.Is(err, service.ErrIntakeNotFound):
		response.ErrorWithKind(c, http.StatusNotFound, 22001, "批次不存在", kind, err.Error())
	case errors.Is(err, service.ErrInvalidIntake):
		response.BadRequest(c, 22002, "批次学年或学期无效")
	case errors.Is(err, service.ErrInvalidCalendarEntry):
		response.BadRequest(c, 22003, "日历条目无效")
	case errors.Is(err, service.ErrExportNoTasks):
		response.NotFound(c, 23001, "该批次暂无任务")
	default:
		response.InternalError(c)
	}
}
