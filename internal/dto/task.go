package dto

// ── 任务目录模块 DTO ──

// ApplyScopeRequest 传播范围
// kind=custom 时 intake_ids 为额外目标批次（源批次总是包含在内）
type ApplyScopeRequest struct {
	Kind      string   `json:"kind"       binding:"required,oneof=this_intake all_intakes_of_program custom"`
	IntakeIDs []string `json:"intake_ids" binding:"omitempty,dive,uuid"`
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Name       string             `json:"name"        binding:"required,min=1,max=200"`
	Category   string             `json:"category"    binding:"required,min=1,max=50"`
	Weight     *int               `json:"weight"      binding:"required,min=0,max=100"`
	ApplyScope *ApplyScopeRequest `json:"apply_scope"`
}

// AmendTaskRequest 修改任务请求（仅修改提供的字段）
type AmendTaskRequest struct {
	Name       *string            `json:"name"        binding:"omitempty,min=1,max=200"`
	Category   *string            `json:"category"    binding:"omitempty,min=1,max=50"`
	Weight     *int               `json:"weight"      binding:"omitempty,min=0,max=100"`
	ApplyScope *ApplyScopeRequest `json:"apply_scope"`
}

// DeleteTaskRequest 删除任务请求
type DeleteTaskRequest struct {
	ApplyScope *ApplyScopeRequest `json:"apply_scope"`
}

// RevertTaskRequest 回退任务请求
type RevertTaskRequest struct {
	VersionNumber int `json:"version_number" binding:"required,min=1"`
}

// TaskResponse 任务（谱系 head）响应
type TaskResponse struct {
	ID          string `json:"id"`
	IntakeID    string `json:"intake_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Weight      int    `json:"weight"`
	HeadVersion int    `json:"head_version"`
	Deleted     bool   `json:"deleted"`
	UpdatedBy   string `json:"updated_by"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// TaskVersionResponse 任务版本响应
type TaskVersionResponse struct {
	LineageID      string   `json:"lineage_id"`
	VersionNumber  int      `json:"version_number"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Weight         int      `json:"weight"`
	Action         string   `json:"action"`
	RevertedFrom   *int     `json:"reverted_from,omitempty"`
	ScopeKind      string   `json:"scope_kind"`
	ScopeIntakeIDs []string `json:"scope_intake_ids,omitempty"`
	CreatedBy      string   `json:"created_by"`
	CreatedAt      string   `json:"created_at"`
}

// IntakeResultResponse 单个批次的传播结果
type IntakeResultResponse struct {
	IntakeID         string `json:"intake_id"`
	Outcome          string `json:"outcome"` // created | amended | unchanged | deleted | skipped | failed
	LineageID        string `json:"lineage_id,omitempty"`
	VersionNumber    int    `json:"version_number,omitempty"`
	AffectedStudents int    `json:"affected_students"`
	ErrorKind        string `json:"error_kind,omitempty"`
	Error            string `json:"error,omitempty"`
}

// PropagationResponse 传播结果汇总
type PropagationResponse struct {
	Results   map[string]IntakeResultResponse `json:"results"`
	Succeeded int                             `json:"succeeded"`
	Failed    int                             `json:"failed"`
}
