package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/ssebin/pandagrad-sub000/internal/academic"
	"github.com/ssebin/pandagrad-sub000/internal/dto"
	"github.com/ssebin/pandagrad-sub000/internal/model"
	"github.com/ssebin/pandagrad-sub000/internal/progress"
)

// ErrInvalidProgressUpdate 进度更新内容无效
var ErrInvalidProgressUpdate = errors.New("进度更新无效")

// StatusService 进度与状态业务接口
// 状态不落库，每次读取时由进度事件与学期日历重新推导
type StatusService interface {
	GetStatus(ctx context.Context, studentID, lineageID string) (*dto.TaskStatusResponse, error)
	ListLineageStatuses(ctx context.Context, lineageID string) ([]dto.TaskStatusResponse, error)
	CurrentSemester(ctx context.Context, studentID string) (*dto.StudentSemesterResponse, error)
	AppendProgress(ctx context.Context, req *dto.AppendProgressRequest, actor string) (*dto.ProgressUpdateResponse, error)
	ListProgress(ctx context.Context, studentID, lineageID string) ([]dto.ProgressUpdateResponse, error)
}

type statusService struct {
	store     *LineageStore
	directory IntakeDirectory
	roster    StudentRoster
	ledger    ProgressLedger
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewStatusService 创建 StatusService 实例；loc 决定"今天"的日历日
func NewStatusService(store *LineageStore, directory IntakeDirectory, roster StudentRoster, ledger ProgressLedger, loc *time.Location, logger *zap.Logger) StatusService {
	if loc == nil {
		loc = time.UTC
	}
	return &statusService{
		store:     store,
		directory: directory,
		roster:    roster,
		ledger:    ledger,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// ────────────────────── GetStatus ──────────────────────

func (s *statusService) GetStatus(ctx context.Context, studentID, lineageID string) (*dto.TaskStatusResponse, error) {
	student, err := s.roster.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, lineageID, true); err != nil {
		return nil, err
	}

	cal := s.calendar(ctx)
	resp, err := s.statusFor(ctx, student, lineageID, cal)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ────────────────────── ListLineageStatuses ──────────────────────

// ListLineageStatuses 计算任务上全部学生的状态（传播后重新计算）
func (s *statusService) ListLineageStatuses(ctx context.Context, lineageID string) ([]dto.TaskStatusResponse, error) {
	if _, err := s.store.Get(ctx, lineageID, true); err != nil {
		return nil, err
	}
	students, err := s.roster.ListStudentsOnLineage(ctx, lineageID)
	if err != nil {
		s.logger.Error("查询任务学生失败", zap.String("lineage_id", lineageID), zap.Error(err))
		return nil, err
	}

	cal := s.calendar(ctx)
	result := make([]dto.TaskStatusResponse, 0, len(students))
	for i := range students {
		resp, err := s.statusFor(ctx, &students[i], lineageID, cal)
		if err != nil {
			return nil, err
		}
		result = append(result, resp)
	}
	return result, nil
}

// ────────────────────── CurrentSemester ──────────────────────

func (s *statusService) CurrentSemester(ctx context.Context, studentID string) (*dto.StudentSemesterResponse, error) {
	student, err := s.roster.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	intakeTerm, err := s.intakeTerm(ctx, student.IntakeID)
	if err != nil {
		return nil, err
	}
	cal, err := s.directory.GetSemesterCalendar(ctx)
	if err != nil {
		return nil, err
	}
	current, err := cal.Current(s.now().In(s.loc))
	if err != nil {
		return nil, err
	}
	ordinal, err := academic.StudentSemester(intakeTerm, current)
	if err != nil {
		return nil, err
	}
	return &dto.StudentSemesterResponse{
		StudentID:      studentID,
		Semester:       ordinal,
		AcademicYear:   current.Year.String(),
		SemesterParity: int(current.Parity),
	}, nil
}

// ────────────────────── AppendProgress ──────────────────────

func (s *statusService) AppendProgress(ctx context.Context, req *dto.AppendProgressRequest, actor string) (*dto.ProgressUpdateResponse, error) {
	kind := progress.Kind(req.UpdateType)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProgressUpdate, progress.ErrUnknownKind)
	}
	if err := progress.CheckStatusField(kind, req.ProgressStatus); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProgressUpdate, err)
	}
	if req.CompletionDate != nil {
		if _, err := time.Parse(academic.DateLayout, *req.CompletionDate); err != nil {
			return nil, fmt.Errorf("%w: completion_date 格式须为 YYYY-MM-DD", ErrInvalidProgressUpdate)
		}
	}
	if _, err := progress.DecodePayload(kind, req.Payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProgressUpdate, err)
	}

	student, err := s.roster.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	lineage, err := s.store.Get(ctx, req.LineageID, false)
	if err != nil {
		return nil, err
	}
	if lineage.IntakeID != student.IntakeID {
		return nil, fmt.Errorf("%w: 任务不属于该学生的入学批次", ErrInvalidProgressUpdate)
	}

	update := &model.ProgressUpdate{
		StudentID:      req.StudentID,
		LineageID:      req.LineageID,
		UpdateType:     string(kind),
		Timestamp:      s.now().UTC(),
		CompletionDate: req.CompletionDate,
		ProgressStatus: req.ProgressStatus,
		AdminName:      actor,
	}
	if len(req.Payload) > 0 {
		update.Payload = datatypes.JSON(req.Payload)
	}

	eventID, err := s.ledger.AppendUpdate(ctx, update)
	if err != nil {
		s.logger.Error("追加进度更新失败",
			zap.String("student_id", req.StudentID),
			zap.String("lineage_id", req.LineageID),
			zap.Error(err),
		)
		return nil, err
	}
	update.EventID = eventID

	resp := toProgressResponse(update)
	return &resp, nil
}

// ────────────────────── ListProgress ──────────────────────

func (s *statusService) ListProgress(ctx context.Context, studentID, lineageID string) ([]dto.ProgressUpdateResponse, error) {
	if _, err := s.roster.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	updates, err := s.ledger.ListUpdatesForStudentLineage(ctx, studentID, lineageID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ProgressUpdateResponse, len(updates))
	for i := range updates {
		result[i] = toProgressResponse(&updates[i])
	}
	return result, nil
}

// ── 内部辅助方法 ──

// calendar 日历读取失败不阻断状态推导，按缺失处理
func (s *statusService) calendar(ctx context.Context) *academic.Calendar {
	cal, err := s.directory.GetSemesterCalendar(ctx)
	if err != nil {
		s.logger.Warn("读取学期日历失败，状态按期处理", zap.Error(err))
		return academic.NewCalendar(nil)
	}
	return cal
}

func (s *statusService) statusFor(ctx context.Context, student *model.Student, lineageID string, cal *academic.Calendar) (dto.TaskStatusResponse, error) {
	resp := dto.TaskStatusResponse{StudentID: student.StudentID, LineageID: lineageID}

	due, dueSemester, err := s.dueWindow(ctx, student, lineageID, cal)
	if err != nil {
		return resp, err
	}
	updates, err := s.ledger.ListUpdatesForStudentLineage(ctx, student.StudentID, lineageID)
	if err != nil {
		s.logger.Error("查询进度更新失败",
			zap.String("student_id", student.StudentID),
			zap.String("lineage_id", lineageID),
			zap.Error(err),
		)
		return resp, err
	}

	resp.Status = string(progress.DeriveStatus(toEvents(updates), due, s.now().In(s.loc)))
	resp.DueSemester = dueSemester
	if due.End != nil {
		resp.DueDate = due.End.Format(academic.DateLayout)
	}
	return resp, nil
}

// dueWindow 截止日 = 学习计划中该任务最后一个学期的结束日
// 计划中无该任务或日历缺失时返回空窗口
func (s *statusService) dueWindow(ctx context.Context, student *model.Student, lineageID string, cal *academic.Calendar) (progress.DueWindow, int, error) {
	plan, err := s.roster.GetStudyPlan(ctx, student.StudentID)
	if err != nil {
		s.logger.Error("查询学习计划失败", zap.String("student_id", student.StudentID), zap.Error(err))
		return progress.DueWindow{}, 0, err
	}
	last := 0
	for _, e := range plan {
		if e.LineageID == lineageID && e.Semester > last {
			last = e.Semester
		}
	}
	if last == 0 {
		return progress.DueWindow{}, 0, nil
	}

	intakeTerm, err := s.intakeTerm(ctx, student.IntakeID)
	if err != nil {
		return progress.DueWindow{}, 0, err
	}
	term, err := academic.SemesterAt(intakeTerm, last)
	if err != nil {
		return progress.DueWindow{}, last, nil
	}
	window, err := cal.Window(term)
	if err != nil {
		s.logger.Debug("日历缺少学期条目",
			zap.String("student_id", student.StudentID),
			zap.String("term", term.String()),
		)
		return progress.DueWindow{}, last, nil
	}
	end := window.End
	return progress.DueWindow{End: &end}, last, nil
}

func (s *statusService) intakeTerm(ctx context.Context, intakeID string) (academic.Term, error) {
	intake, err := s.directory.GetIntake(ctx, intakeID)
	if err != nil {
		return academic.Term{}, err
	}
	return academic.ParseTerm(intake.AcademicYear, intake.SemesterParity)
}

func toEvents(updates []model.ProgressUpdate) []progress.Event {
	events := make([]progress.Event, len(updates))
	for i, u := range updates {
		events[i] = progress.Event{
			EventID:        u.EventID,
			Timestamp:      u.Timestamp,
			ProgressStatus: u.ProgressStatus,
			CompletionDate: u.CompletionDate,
		}
	}
	return events
}

func toProgressResponse(u *model.ProgressUpdate) dto.ProgressUpdateResponse {
	resp := dto.ProgressUpdateResponse{
		EventID:        u.EventID,
		StudentID:      u.StudentID,
		LineageID:      u.LineageID,
		UpdateType:     u.UpdateType,
		Timestamp:      u.Timestamp.UTC().Format(timeLayout),
		CompletionDate: u.CompletionDate,
		ProgressStatus: u.ProgressStatus,
		AdminName:      u.AdminName,
	}
	if len(u.Payload) > 0 {
		resp.Payload = json.RawMessage(u.Payload)
	}
	return resp
}
