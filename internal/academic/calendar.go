package academic

import (
	"fmt"
	"sort"
	"time"
)

// Window 学期日期窗口（按日比较，首尾均包含）
type Window struct {
	Start time.Time
	End   time.Time
}

// CalendarEntry 日历条目的最小视图
type CalendarEntry struct {
	Term  Term
	Start time.Time
	End   time.Time
}

// Calendar 学期日历，按 Term 索引
type Calendar struct {
	entries map[Term]CalendarEntry
	terms   []Term // 由新到旧
}

// NewCalendar 构造日历；同一 Term 出现多次时以后者为准
func NewCalendar(entries []CalendarEntry) *Calendar {
	c := &Calendar{entries: make(map[Term]CalendarEntry, len(entries))}
	for _, e := range entries {
		c.entries[e.Term] = e
	}
	c.terms = make([]Term, 0, len(c.entries))
	for t := range c.entries {
		c.terms = append(c.terms, t)
	}
	sort.Slice(c.terms, func(i, j int) bool { return c.terms[i].index() > c.terms[j].index() })
	return c
}

// Len 条目数量
func (c *Calendar) Len() int { return len(c.entries) }

// Window 查询某学期的日期窗口
func (c *Calendar) Window(t Term) (Window, error) {
	e, ok := c.entries[t]
	if !ok {
		return Window{}, fmt.Errorf("%w: %s", ErrCalendarEntryMissing, t)
	}
	return Window{Start: e.Start, End: e.End}, nil
}

// Current 返回包含 now 的学期；条目重叠时取较新的学期
func (c *Calendar) Current(now time.Time) (Term, error) {
	day := DateOf(now)
	for _, t := range c.terms {
		e := c.entries[t]
		if !day.Before(DateOf(e.Start)) && !day.After(DateOf(e.End)) {
			return t, nil
		}
	}
	return Term{}, fmt.Errorf("%w: no semester contains %s", ErrCalendarEntryMissing, day.Format(DateLayout))
}

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// DateOf 截取到日（保留时区对应的日历日，以 UTC 零点表示）
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
