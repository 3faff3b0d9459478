package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ssebin/pandagrad-sub000/internal/academic"
	"github.com/ssebin/pandagrad-sub000/internal/model"
	"github.com/ssebin/pandagrad-sub000/internal/repository"
)

// ErrStudentNotFound 学生不存在
var ErrStudentNotFound = errors.New("学生不存在")

// calendarCacheKey 学期日历缓存键
const calendarCacheKey = "calendar:entries"

// IntakeDirectory 入学批次目录
type IntakeDirectory interface {
	GetIntake(ctx context.Context, intakeID string) (*model.Intake, error)
	ListIntakesForProgram(ctx context.Context, programID string) ([]model.Intake, error)
	GetSemesterCalendar(ctx context.Context) (*academic.Calendar, error)
}

// StudentRoster 学生名册
type StudentRoster interface {
	ListStudentsOnLineage(ctx context.Context, lineageID string) ([]model.Student, error)
	GetStudent(ctx context.Context, studentID string) (*model.Student, error)
	GetStudyPlan(ctx context.Context, studentID string) ([]model.StudyPlanEntry, error)
}

// ProgressLedger 进度事件账本（只追加）
type ProgressLedger interface {
	AppendUpdate(ctx context.Context, update *model.ProgressUpdate) (int64, error)
	ListUpdatesForStudentLineage(ctx context.Context, studentID, lineageID string) ([]model.ProgressUpdate, error)
}

// CalendarCache 日历缓存，由 pkg/redis.Client 实现；为 nil 时直接读库
type CalendarCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ────────────────────── IntakeDirectory ──────────────────────

// RepoDirectory 仓储实现的 IntakeDirectory
type RepoDirectory struct {
	intakes  repository.IntakeRepository
	calendar repository.CalendarRepository
	cache    CalendarCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewIntakeDirectory 基于仓储的批次目录，学期日历经缓存读取
func NewIntakeDirectory(intakes repository.IntakeRepository, calendar repository.CalendarRepository, cache CalendarCache, cacheTTL time.Duration, logger *zap.Logger) *RepoDirectory {
	return &RepoDirectory{
		intakes:  intakes,
		calendar: calendar,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (d *RepoDirectory) GetIntake(ctx context.Context, intakeID string) (*model.Intake, error) {
	intake, err := d.intakes.GetByID(ctx, intakeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntakeNotFound
		}
		d.logger.Error("查询入学批次失败", zap.String("intake_id", intakeID), zap.Error(err))
		return nil, err
	}
	return intake, nil
}

func (d *RepoDirectory) ListIntakesForProgram(ctx context.Context, programID string) ([]model.Intake, error) {
	return d.intakes.ListByProgram(ctx, programID)
}

// GetSemesterCalendar 优先读缓存，缓存故障不影响读取
func (d *RepoDirectory) GetSemesterCalendar(ctx context.Context) (*academic.Calendar, error) {
	var rows []model.CalendarEntry
	if d.cache != nil {
		if err := d.cache.GetJSON(ctx, calendarCacheKey, &rows); err == nil {
			return toCalendar(rows, d.logger), nil
		}
	}

	rows, err := d.calendar.List(ctx)
	if err != nil {
		d.logger.Error("查询学期日历失败", zap.Error(err))
		return nil, err
	}
	if d.cache != nil {
		if err := d.cache.SetJSON(ctx, calendarCacheKey, rows, d.cacheTTL); err != nil {
			d.logger.Warn("写入日历缓存失败", zap.Error(err))
		}
	}
	return toCalendar(rows, d.logger), nil
}

// InvalidateCalendar 日历变更后清除缓存
func (d *RepoDirectory) InvalidateCalendar(ctx context.Context) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Delete(ctx, calendarCacheKey); err != nil {
		d.logger.Warn("清除日历缓存失败", zap.Error(err))
	}
}

func toCalendar(rows []model.CalendarEntry, logger *zap.Logger) *academic.Calendar {
	entries := make([]academic.CalendarEntry, 0, len(rows))
	for _, r := range rows {
		term, err := academic.ParseTerm(r.AcademicYear, r.SemesterParity)
		if err != nil {
			logger.Warn("忽略无效日历条目",
				zap.String("academic_year", r.AcademicYear),
				zap.Int("semester_parity", r.SemesterParity),
			)
			continue
		}
		entries = append(entries, academic.CalendarEntry{Term: term, Start: r.StartDate, End: r.EndDate})
	}
	return academic.NewCalendar(entries)
}

// ────────────────────── StudentRoster ──────────────────────

// RepoRoster 仓储实现的 StudentRoster
type RepoRoster struct {
	students repository.StudentRepository
}

// NewStudentRoster 基于仓储的学生名册
func NewStudentRoster(students repository.StudentRepository) *RepoRoster {
	return &RepoRoster{students: students}
}

func (r *RepoRoster) ListStudentsOnLineage(ctx context.Context, lineageID string) ([]model.Student, error) {
	return r.students.ListByLineage(ctx, lineageID)
}

func (r *RepoRoster) GetStudent(ctx context.Context, studentID string) (*model.Student, error) {
	s, err := r.students.GetByID(ctx, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStudentNotFound
	}
	return s, err
}

func (r *RepoRoster) GetStudyPlan(ctx context.Context, studentID string) ([]model.StudyPlanEntry, error) {
	return r.students.ListPlan(ctx, studentID)
}

// ────────────────────── ProgressLedger ──────────────────────

// RepoLedger 仓储实现的 ProgressLedger
type RepoLedger struct {
	progress repository.ProgressRepository
}

// NewProgressLedger 基于仓储的进度账本
func NewProgressLedger(progress repository.ProgressRepository) *RepoLedger {
	return &RepoLedger{progress: progress}
}

func (l *RepoLedger) AppendUpdate(ctx context.Context, update *model.ProgressUpdate) (int64, error) {
	if err := l.progress.Append(ctx, update); err != nil {
		return 0, err
	}
	return update.EventID, nil
}

func (l *RepoLedger) ListUpdatesForStudentLineage(ctx context.Context, studentID, lineageID string) ([]model.ProgressUpdate, error) {
	return l.progress.ListByStudentLineage(ctx, studentID, lineageID)
}
