// Package progress 进度更新的类型体系与任务状态推导。
package progress

import (
	"time"

	"github.com/ssebin/pandagrad-sub000/internal/academic"
)

// ProgressStatus 进度更新中记录的状态
type ProgressStatus string

const (
	StatusPending    ProgressStatus = "Pending"
	StatusInProgress ProgressStatus = "In Progress"
	StatusCompleted  ProgressStatus = "Completed"
)

// Status 推导出的任务展示状态
type Status string

const (
	PendingOnTrack   Status = "pending_on_track"
	PendingDelayed   Status = "pending_delayed"
	CompletedOnTrack Status = "completed_on_track"
	CompletedDelayed Status = "completed_delayed"
)

// Event 推导所需的进度事件视图
// Timestamp 为零值表示时间戳缺失或无法解析
type Event struct {
	EventID        int64
	Timestamp      time.Time
	ProgressStatus *string
	CompletionDate *string
}

// DueWindow 任务截止窗口；End 为 nil 表示无法从日历解析
type DueWindow struct {
	End *time.Time
}

// DeriveStatus 根据进度事件与截止窗口推导任务状态，任何输入都返回确定状态
func DeriveStatus(events []Event, due DueWindow, now time.Time) Status {
	// 日历缺失时一律视为按期，只损失延期精度
	if due.End == nil {
		return PendingOnTrack
	}
	end := academic.DateOf(*due.End)

	latest, ok := latestEvent(events)
	if !ok {
		return pendingAt(now, end)
	}

	if latest.ProgressStatus != nil {
		switch ProgressStatus(*latest.ProgressStatus) {
		case StatusPending, StatusInProgress:
			return pendingAt(now, end)
		}
	}

	if completed, ok := parseDate(latest.CompletionDate); ok {
		if completed.After(end) {
			return CompletedDelayed
		}
		return CompletedOnTrack
	}
	return pendingAt(now, end)
}

func pendingAt(now, end time.Time) Status {
	if academic.DateOf(now).After(end) {
		return PendingDelayed
	}
	return PendingOnTrack
}

// latestEvent 选取时间戳最新的事件；时间戳相同时取 EventID 最大者
func latestEvent(events []Event) (Event, bool) {
	var (
		best  Event
		found bool
	)
	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		if !found ||
			e.Timestamp.After(best.Timestamp) ||
			(e.Timestamp.Equal(best.Timestamp) && e.EventID > best.EventID) {
			best = e
			found = true
		}
	}
	return best, found
}

var completionLayouts = []string{academic.DateLayout, time.RFC3339}

func parseDate(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	for _, layout := range completionLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return academic.DateOf(t), true
		}
	}
	return time.Time{}, false
}
