package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ssebin/pandagrad-sub000/internal/academic"
	"github.com/ssebin/pandagrad-sub000/internal/dto"
	"github.com/ssebin/pandagrad-sub000/internal/model"
	"github.com/ssebin/pandagrad-sub000/internal/repository"
)

// ErrInvalidIntake 批次学年或学期无效
var ErrInvalidIntake = errors.New("批次学年或学期无效")

// IntakeService 入学批次业务接口
// 学年与学期奇偶是传播与学期计算的关联键，创建后只允许修改 label
type IntakeService interface {
	Create(ctx context.Context, req *dto.CreateIntakeRequest, actor string) (*dto.IntakeResponse, error)
	GetByID(ctx context.Context, id string) (*dto.IntakeResponse, error)
	List(ctx context.Context, programID string) ([]dto.IntakeResponse, error)
	UpdateLabel(ctx context.Context, id string, req *dto.UpdateIntakeRequest, actor string) (*dto.IntakeResponse, error)
}

type intakeService struct {
	repo   repository.IntakeRepository
	logger *zap.Logger
}

// NewIntakeService 创建 IntakeService 实例
func NewIntakeService(repo repository.IntakeRepository, logger *zap.Logger) IntakeService {
	return &intakeService{repo: repo, logger: logger}
}

func (s *intakeService) Create(ctx context.Context, req *dto.CreateIntakeRequest, actor string) (*dto.IntakeResponse, error) {
	term, err := academic.ParseTerm(strings.TrimSpace(req.AcademicYear), req.SemesterParity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIntake, err)
	}

	intake := &model.Intake{
		ProgramID:      strings.TrimSpace(req.ProgramID),
		SemesterParity: int(term.Parity),
		AcademicYear:   term.Year.String(),
		Label:          req.Label,
	}
	intake.CreatedBy = actor
	intake.UpdatedBy = actor

	if err := s.repo.Create(ctx, intake); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: 该项目同学年同学期的批次已存在", ErrInvalidIntake)
		}
		s.logger.Error("创建入学批次失败", zap.Error(err))
		return nil, err
	}
	return toIntakeResponse(intake), nil
}

func (s *intakeService) GetByID(ctx context.Context, id string) (*dto.IntakeResponse, error) {
	intake, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntakeNotFound
		}
		s.logger.Error("查询入学批次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toIntakeResponse(intake), nil
}

func (s *intakeService) List(ctx context.Context, programID string) ([]dto.IntakeResponse, error) {
	var (
		intakes []model.Intake
		err     error
	)
	if programID != "" {
		intakes, err = s.repo.ListByProgram(ctx, programID)
	} else {
		intakes, err = s.repo.List(ctx)
	}
	if err != nil {
		s.logger.Error("列出入学批次失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.IntakeResponse, len(intakes))
	for i := range intakes {
		result[i] = *toIntakeResponse(&intakes[i])
	}
	return result, nil
}

func (s *intakeService) UpdateLabel(ctx context.Context, id string, req *dto.UpdateIntakeRequest, actor string) (*dto.IntakeResponse, error) {
	if err := s.repo.UpdateLabel(ctx, id, req.Label, actor); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntakeNotFound
		}
		s.logger.Error("更新入学批次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func toIntakeResponse(in *model.Intake) *dto.IntakeResponse {
	return &dto.IntakeResponse{
		ID:             in.IntakeID,
		ProgramID:      in.ProgramID,
		SemesterParity: in.SemesterParity,
		AcademicYear:   in.AcademicYear,
		Label:          in.Label,
		CreatedAt:      in.CreatedAt.Format(timeLayout),
	}
}
