package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// 版本动作
const (
	TaskActionCreate = "create"
	TaskActionAmend  = "amend"
	TaskActionRevert = "revert"
)

// TaskLineage 任务谱系表 — 对应 task_lineages
// Name/Category/Weight 为 head 版本的冗余字段，Version 即 head 版本号
type TaskLineage struct {
	LineageID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"lineage_id"`
	IntakeID  string `gorm:"type:uuid;not null;index"                       json:"intake_id"`
	Name      string `gorm:"type:varchar(200);not null"                     json:"name"`
	NameKey   string `gorm:"type:varchar(200);not null"                     json:"-"` // TaskNameKey(Name)，批次内有效谱系唯一
	Category  string `gorm:"type:varchar(50);not null"                      json:"category"`
	Weight    int    `gorm:"not null;default:0"                             json:"weight"`
	VersionedModel
}

// TaskNameKey 任务名称的比较键：NFC 规范化后做 Unicode 大小写折叠
// 名称唯一约束、锁键与跨批次匹配都以此为准
func TaskNameKey(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// TableName 指定表名
func (TaskLineage) TableName() string { return "task_lineages" }

// TaskVersion 任务版本快照表 — 对应 task_versions（只追加）
type TaskVersion struct {
	VersionID      string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"version_id"`
	LineageID      string      `gorm:"type:uuid;not null;uniqueIndex:idx_task_versions_lineage_number,priority:1" json:"lineage_id"`
	VersionNumber  int         `gorm:"not null;uniqueIndex:idx_task_versions_lineage_number,priority:2"           json:"version_number"`
	Name           string      `gorm:"type:varchar(200);not null"                     json:"name"`
	Category       string      `gorm:"type:varchar(50);not null"                      json:"category"`
	Weight         int         `gorm:"not null"                                       json:"weight"`
	Action         string      `gorm:"type:varchar(10);not null"                      json:"action"` // create | amend | revert
	RevertedFrom   *int        `json:"reverted_from,omitempty"`
	ScopeKind      string      `gorm:"type:varchar(30);not null"                      json:"scope_kind"` // this_intake | all_intakes_of_program | custom
	ScopeIntakeIDs StringArray `gorm:"type:text[]"                                    json:"scope_intake_ids,omitempty"`
	CreatedBy      string      `gorm:"type:varchar(100);not null"                     json:"created_by"`
	CreatedAt      time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (TaskVersion) TableName() string { return "task_versions" }
