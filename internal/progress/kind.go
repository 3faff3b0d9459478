package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ── 进度更新类型错误 ──

var (
	ErrUnknownKind     = errors.New("未知的进度更新类型")
	ErrInvalidPayload  = errors.New("进度更新内容校验失败")
	ErrStatusRequired  = errors.New("该类型的进度更新必须提供 progress_status")
	ErrStatusForbidden = errors.New("该类型的进度更新不使用 progress_status")
	ErrInvalidStatus   = errors.New("progress_status 取值无效")
)

// Kind 需求类型（封闭枚举），决定 payload 的结构
type Kind string

const (
	KindCoursework          Kind = "coursework"
	KindResearchMethodology Kind = "research_methodology"
	KindProposalDefense     Kind = "proposal_defense"
	KindCandidatureDefense  Kind = "candidature_defense"
	KindPublication         Kind = "publication"
	KindWorkshop            Kind = "workshop"
	KindLanguageRequirement Kind = "language_requirement"
	KindThesisSubmission    Kind = "thesis_submission"
	KindVivaVoce            Kind = "viva_voce"
	KindOther               Kind = "other"
)

// Kinds 全部类型，按展示顺序
var Kinds = []Kind{
	KindCoursework,
	KindResearchMethodology,
	KindProposalDefense,
	KindCandidatureDefense,
	KindPublication,
	KindWorkshop,
	KindLanguageRequirement,
	KindThesisSubmission,
	KindVivaVoce,
	KindOther,
}

// Payload 各类型专属内容
type Payload interface {
	Kind() Kind
}

// CourseworkPayload 课程学分
type CourseworkPayload struct {
	CourseCode string `json:"course_code" validate:"required,max=20"`
	Grade      string `json:"grade,omitempty" validate:"omitempty,max=3"`
}

func (CourseworkPayload) Kind() Kind { return KindCoursework }

// ResearchMethodologyPayload 研究方法课程
type ResearchMethodologyPayload struct {
	Grade string `json:"grade,omitempty" validate:"omitempty,max=3"`
}

func (ResearchMethodologyPayload) Kind() Kind { return KindResearchMethodology }

// DefensePayload 开题/中期答辩
type DefensePayload struct {
	kind        Kind
	DefenseDate string `json:"defense_date" validate:"required,datetime=2006-01-02"`
	Result      string `json:"result"       validate:"required,oneof=pass pass_with_corrections fail"`
}

func (p DefensePayload) Kind() Kind { return p.kind }

// PublicationPayload 论文发表
type PublicationPayload struct {
	Title    string `json:"title"              validate:"required,max=300"`
	Venue    string `json:"venue"              validate:"required,max=200"`
	Indexing string `json:"indexing,omitempty" validate:"omitempty,oneof=scopus wos mycite other"`
}

func (PublicationPayload) Kind() Kind { return KindPublication }

// WorkshopPayload 工作坊/研讨会
type WorkshopPayload struct {
	WorkshopName string `json:"workshop_name" validate:"required,max=200"`
	AttendedOn   string `json:"attended_on"   validate:"required,datetime=2006-01-02"`
}

func (WorkshopPayload) Kind() Kind { return KindWorkshop }

// LanguageRequirementPayload 语言要求
type LanguageRequirementPayload struct {
	TestName string  `json:"test_name" validate:"required,max=50"`
	Score    float64 `json:"score"     validate:"gte=0"`
}

func (LanguageRequirementPayload) Kind() Kind { return KindLanguageRequirement }

// ThesisSubmissionPayload 论文提交
type ThesisSubmissionPayload struct {
	SubmissionType string `json:"submission_type" validate:"required,oneof=draft final"`
}

func (ThesisSubmissionPayload) Kind() Kind { return KindThesisSubmission }

// VivaVocePayload 论文口试
type VivaVocePayload struct {
	VivaDate string `json:"viva_date" validate:"required,datetime=2006-01-02"`
	Result   string `json:"result"    validate:"required,oneof=pass minor_corrections major_corrections fail"`
}

func (VivaVocePayload) Kind() Kind { return KindVivaVoce }

// OtherPayload 其他
type OtherPayload struct {
	Note string `json:"note,omitempty" validate:"max=500"`
}

func (OtherPayload) Kind() Kind { return KindOther }

// TracksProgressStatus 该类型是否使用 progress_status 字段
func (k Kind) TracksProgressStatus() bool {
	switch k {
	case KindCoursework, KindResearchMethodology, KindPublication, KindThesisSubmission, KindOther:
		return true
	default:
		return false
	}
}

// Valid 是否属于封闭枚举
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) newPayload() (Payload, bool) {
	switch k {
	case KindCoursework:
		return &CourseworkPayload{}, true
	case KindResearchMethodology:
		return &ResearchMethodologyPayload{}, true
	case KindProposalDefense, KindCandidatureDefense:
		return &DefensePayload{kind: k}, true
	case KindPublication:
		return &PublicationPayload{}, true
	case KindWorkshop:
		return &WorkshopPayload{}, true
	case KindLanguageRequirement:
		return &LanguageRequirementPayload{}, true
	case KindThesisSubmission:
		return &ThesisSubmissionPayload{}, true
	case KindVivaVoce:
		return &VivaVocePayload{}, true
	case KindOther:
		return &OtherPayload{}, true
	}
	return nil, false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DecodePayload 按类型严格解码并校验 payload；未知字段视为错误
func DecodePayload(kind Kind, raw []byte) (Payload, error) {
	p, ok := kind.newPayload()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := payloadValidator().Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}

// CheckStatusField 校验 progress_status 是否与类型匹配
func CheckStatusField(kind Kind, status *string) error {
	if !kind.TracksProgressStatus() {
		if status != nil {
			return ErrStatusForbidden
		}
		return nil
	}
	if status == nil {
		return ErrStatusRequired
	}
	switch ProgressStatus(*status) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, *status)
}
