package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ssebin/pandagrad-sub000/internal/dto"
)

// ErrInvalidScope 传播范围无效
var ErrInvalidScope = errors.New("传播范围无效")

// ScopeKind 传播范围类型
type ScopeKind string

const (
	ScopeThisIntake          ScopeKind = "this_intake"
	ScopeAllIntakesOfProgram ScopeKind = "all_intakes_of_program"
	ScopeCustom              ScopeKind = "custom"
)

// ApplyScope 一次变更请求的传播范围，仅在变更时用于计算目标批次，不作为持久约束
type ApplyScope struct {
	Kind      ScopeKind
	IntakeIDs []string // 仅 ScopeCustom 使用
}

// ThisIntakeOnly 仅当前批次
func ThisIntakeOnly() ApplyScope { return ApplyScope{Kind: ScopeThisIntake} }

// AllIntakesOfProgram 同项目的全部批次
func AllIntakesOfProgram() ApplyScope { return ApplyScope{Kind: ScopeAllIntakesOfProgram} }

// CustomIntakeSet 自定义批次集合（源批次总是包含在内）
func CustomIntakeSet(ids ...string) ApplyScope {
	return ApplyScope{Kind: ScopeCustom, IntakeIDs: ids}
}

// Validate 校验范围
func (s ApplyScope) Validate() error {
	switch s.Kind {
	case ScopeThisIntake, ScopeAllIntakesOfProgram:
		if len(s.IntakeIDs) > 0 {
			return fmt.Errorf("%w: %s 不接受 intake_ids", ErrInvalidScope, s.Kind)
		}
		return nil
	case ScopeCustom:
		for _, id := range s.IntakeIDs {
			if strings.TrimSpace(id) == "" {
				return fmt.Errorf("%w: intake_ids 含空值", ErrInvalidScope)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidScope, s.Kind)
}

// scopeFromRequest 请求未指定范围时默认仅当前批次
func scopeFromRequest(req *dto.ApplyScopeRequest) ApplyScope {
	if req == nil {
		return ThisIntakeOnly()
	}
	return ApplyScope{Kind: ScopeKind(req.Kind), IntakeIDs: req.IntakeIDs}
}
