package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/ssebin/pandagrad-sub000/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportCatalog 导出批次任务目录
// GET /api/v1/export/intakes/:id/catalog
func (h *ExportHandler) ExportCatalog(c *gin.Context) {
	intakeID, ok := MustGetIDParam(c, "id", "批次ID")
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCatalog(c.Request.Context(), intakeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
