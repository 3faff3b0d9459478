package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ssebin/pandagrad-sub000/internal/academic"
	"github.com/ssebin/pandagrad-sub000/internal/dto"
	"github.com/ssebin/pandagrad-sub000/internal/model"
	"github.com/ssebin/pandagrad-sub000/internal/repository"
)

// ErrInvalidCalendarEntry 日历条目无效
var ErrInvalidCalendarEntry = errors.New("日历条目无效")

// CalendarService 学期日历业务接口
type CalendarService interface {
	List(ctx context.Context) ([]dto.CalendarEntryResponse, error)
	Upsert(ctx context.Context, req *dto.UpsertCalendarEntryRequest) (*dto.CalendarEntryResponse, error)
	ImportICS(ctx context.Context, r io.Reader) (*dto.CalendarImportResponse, error)
}

// calendarInvalidator 日历变更后清除读缓存
type calendarInvalidator interface {
	InvalidateCalendar(ctx context.Context)
}

type calendarService struct {
	repo        repository.CalendarRepository
	invalidator calendarInvalidator
	loc         *time.Location
	logger      *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo repository.CalendarRepository, invalidator calendarInvalidator, loc *time.Location, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, invalidator: invalidator, loc: loc, logger: logger}
}

func (s *calendarService) List(ctx context.Context) ([]dto.CalendarEntryResponse, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("查询学期日历失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.CalendarEntryResponse, len(rows))
	for i := range rows {
		result[i] = toCalendarResponse(&rows[i])
	}
	return result, nil
}

func (s *calendarService) Upsert(ctx context.Context, req *dto.UpsertCalendarEntryRequest) (*dto.CalendarEntryResponse, error) {
	term, err := academic.ParseTerm(req.AcademicYear, req.SemesterParity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCalendarEntry, err)
	}
	start, err := time.Parse(academic.DateLayout, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date", ErrInvalidCalendarEntry)
	}
	end, err := time.Parse(academic.DateLayout, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date", ErrInvalidCalendarEntry)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date 早于 start_date", ErrInvalidCalendarEntry)
	}

	entry := model.CalendarEntry{
		AcademicYear:   term.Year.String(),
		SemesterParity: int(term.Parity),
		StartDate:      start,
		EndDate:        end,
	}
	if err := s.save(ctx, []model.CalendarEntry{entry}); err != nil {
		return nil, err
	}
	resp := toCalendarResponse(&entry)
	return &resp, nil
}

// ImportICS 导入 ICS 日历，已存在的学期被覆盖
func (s *calendarService) ImportICS(ctx context.Context, r io.Reader) (*dto.CalendarImportResponse, error) {
	entries, skipped, err := ParseCalendarICS(r, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCalendarEntry, err)
	}
	if len(entries) > 0 {
		if err := s.save(ctx, entries); err != nil {
			return nil, err
		}
	}

	s.logger.Info("学期日历导入完成",
		zap.Int("imported", len(entries)),
		zap.Int("skipped", len(skipped)),
	)
	return &dto.CalendarImportResponse{Imported: len(entries), Skipped: skipped}, nil
}

func (s *calendarService) save(ctx context.Context, entries []model.CalendarEntry) error {
	if err := s.repo.Upsert(ctx, entries); err != nil {
		s.logger.Error("保存学期日历失败", zap.Error(err))
		return err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateCalendar(ctx)
	}
	return nil
}

func toCalendarResponse(e *model.CalendarEntry) dto.CalendarEntryResponse {
	return dto.CalendarEntryResponse{
		AcademicYear:   e.AcademicYear,
		SemesterParity: e.SemesterParity,
		StartDate:      e.StartDate.Format(academic.DateLayout),
		EndDate:        e.EndDate.Format(academic.DateLayout),
	}
}
