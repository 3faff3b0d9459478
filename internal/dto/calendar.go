package dto

// ── 学期日历模块 DTO ──

// UpsertCalendarEntryRequest 新增或覆盖日历条目
type UpsertCalendarEntryRequest struct {
	AcademicYear   string `json:"academic_year"   binding:"required,len=9"`
	SemesterParity int    `json:"semester_parity" binding:"required,oneof=1 2"`
	StartDate      string `json:"start_date"      binding:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date"        binding:"required,datetime=2006-01-02"`
}

// CalendarEntryResponse 日历条目响应
type CalendarEntryResponse struct {
	AcademicYear   string `json:"academic_year"`
	SemesterParity int    `json:"semester_parity"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
}

// CalendarImportResponse ICS 导入结果
type CalendarImportResponse struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"` // 无法识别的事件摘要
}

// ImportCalendarRequest 通过 URL 导入 ICS 日历
type ImportCalendarRequest struct {
	URL string `json:"url" binding:"required,url"`
}
