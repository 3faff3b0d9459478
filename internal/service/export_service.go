package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ssebin/pandagrad-sub000/internal/model"
	"github.com/ssebin/pandagrad-sub000/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoTasks      = errors.New("该批次暂无任务")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportCatalog 导出批次任务目录及全部版本历史
	ExportCatalog(ctx context.Context, intakeID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	tasks     repository.TaskRepository
	directory IntakeDirectory
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(tasks repository.TaskRepository, directory IntakeDirectory, logger *zap.Logger) ExportService {
	return &exportService{tasks: tasks, directory: directory, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportCatalog — 导出任务目录为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "任务目录"：每个有效谱系的 head
//   - Sheet "版本历史"：按任务、版本号倒序列出全部版本
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportCatalog(ctx context.Context, intakeID string) (*bytes.Buffer, string, error) {
	intake, err := s.directory.GetIntake(ctx, intakeID)
	if err != nil {
		return nil, "", err
	}
	lineages, err := s.tasks.ListByIntake(ctx, intakeID)
	if err != nil {
		s.logger.Error("查询批次任务失败", zap.String("intake_id", intakeID), zap.Error(err))
		return nil, "", err
	}
	if len(lineages) == 0 {
		return nil, "", ErrExportNoTasks
	}

	history := make(map[string][]model.TaskVersion, len(lineages))
	for _, l := range lineages {
		versions, err := s.tasks.ListVersions(ctx, l.LineageID)
		if err != nil {
			s.logger.Error("查询任务版本失败", zap.String("lineage_id", l.LineageID), zap.Error(err))
			return nil, "", err
		}
		history[l.LineageID] = versions
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 任务目录
	catalog := "任务目录"
	idx, _ := f.NewSheet(catalog)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	writeHeader(f, catalog, headerStyle, []string{"任务", "类别", "权重", "当前版本", "修改人", "修改时间"})
	f.SetColWidth(catalog, "A", "A", 36)
	f.SetColWidth(catalog, "B", "B", 18)
	f.SetColWidth(catalog, "E", "F", 20)
	for i, l := range lineages {
		row := i + 2
		f.SetCellValue(catalog, cell("A", row), l.Name)
		f.SetCellValue(catalog, cell("B", row), l.Category)
		f.SetCellValue(catalog, cell("C", row), l.Weight)
		f.SetCellValue(catalog, cell("D", row), l.Version)
		f.SetCellValue(catalog, cell("E", row), l.UpdatedBy)
		f.SetCellValue(catalog, cell("F", row), l.UpdatedAt.Format(timeLayout))
	}

	// 版本历史
	hist := "版本历史"
	f.NewSheet(hist)
	writeHeader(f, hist, headerStyle, []string{"任务", "版本", "名称", "类别", "权重", "动作", "回退自", "传播范围", "操作人", "时间"})
	f.SetColWidth(hist, "A", "A", 36)
	f.SetColWidth(hist, "C", "C", 36)
	f.SetColWidth(hist, "H", "J", 22)
	row := 2
	for _, l := range lineages {
		for _, v := range history[l.LineageID] {
			f.SetCellValue(hist, cell("A", row), l.Name)
			f.SetCellValue(hist, cell("B", row), v.VersionNumber)
			f.SetCellValue(hist, cell("C", row), v.Name)
			f.SetCellValue(hist, cell("D", row), v.Category)
			f.SetCellValue(hist, cell("E", row), v.Weight)
			f.SetCellValue(hist, cell("F", row), v.Action)
			if v.RevertedFrom != nil {
				f.SetCellValue(hist, cell("G", row), *v.RevertedFrom)
			} else {
				f.SetCellValue(hist, cell("G", row), "-")
			}
			f.SetCellValue(hist, cell("H", row), scopeLabel(&v))
			f.SetCellValue(hist, cell("I", row), v.CreatedBy)
			f.SetCellValue(hist, cell("J", row), v.CreatedAt.Format(timeLayout))
			row++
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("任务目录_%s_%s-%d.xlsx",
		intake.ProgramID, strings.ReplaceAll(intake.AcademicYear, "/", "-"), intake.SemesterParity)
	return buf, filename, nil
}

// ── 辅助函数 ──

func writeHeader(f *excelize.File, sheet string, style int, titles []string) {
	for i, title := range titles {
		f.SetCellValue(sheet, cell(colName(i), 1), title)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(titles)-1), 1), style)
}

func scopeLabel(v *model.TaskVersion) string {
	if len(v.ScopeIntakeIDs) == 0 {
		return v.ScopeKind
	}
	return v.ScopeKind + ": " + strings.Join(v.ScopeIntakeIDs, ",")
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
