package service

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/ssebin/pandagrad-sub000/internal/academic"
	"github.com/ssebin/pandagrad-sub000/internal/model"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将教务处发布的学期日历（iCalendar）解析为 semester_calendar 条目。
//
//   - SUMMARY 中识别学年 "2023/2024" 与学期 "Semester 1" / "Sem 2"
//   - DTSTART 为学期首日；DTEND 为全天事件时按 RFC 5545 视为不含当日
//   - 无法识别的事件跳过并返回其 SUMMARY
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
)

var (
	icsYearPattern     = regexp.MustCompile(`(\d{4})\s*/\s*(\d{4})`)
	icsSemesterPattern = regexp.MustCompile(`(?i)\bsem(?:ester)?\.?\s*([12])\b`)
)

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseCalendarICS 解析 ICS 内容为学期日历条目
// 同一学期出现多次时以最后一个事件为准
func ParseCalendarICS(reader io.Reader, loc *time.Location) ([]model.CalendarEntry, []string, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}
	if len(cal.Events()) == 0 {
		return nil, nil, fmt.Errorf("ICS 中没有事件")
	}
	if loc == nil {
		loc = time.UTC
	}

	var (
		entries []model.CalendarEntry
		skipped []string
		index   = make(map[academic.Term]int)
	)
	for _, evt := range cal.Events() {
		entry, ok := parseSemesterEvent(evt, loc)
		if !ok {
			skipped = append(skipped, eventSummary(evt))
			continue
		}
		term, _ := academic.ParseTerm(entry.AcademicYear, entry.SemesterParity)
		if i, dup := index[term]; dup {
			entries[i] = entry
			continue
		}
		index[term] = len(entries)
		entries = append(entries, entry)
	}
	return entries, skipped, nil
}

// parseSemesterEvent 解析单个 VEVENT 为日历条目
func parseSemesterEvent(evt *ics.VEvent, loc *time.Location) (model.CalendarEntry, bool) {
	summary := eventSummary(evt)
	year := icsYearPattern.FindStringSubmatch(summary)
	sem := icsSemesterPattern.FindStringSubmatch(summary)
	if year == nil || sem == nil {
		return model.CalendarEntry{}, false
	}
	term, err := academic.ParseTerm(year[1]+"/"+year[2], int(sem[1][0]-'0'))
	if err != nil {
		return model.CalendarEntry{}, false
	}

	start, _, err := parseICSDate(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return model.CalendarEntry{}, false
	}
	end, dateOnly, err := parseICSDate(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		return model.CalendarEntry{}, false
	}
	if dateOnly {
		end = end.AddDate(0, 0, -1)
	}
	if end.Before(start) {
		return model.CalendarEntry{}, false
	}

	return model.CalendarEntry{
		AcademicYear:   term.Year.String(),
		SemesterParity: int(term.Parity),
		StartDate:      start,
		EndDate:        end,
	}, true
}

func eventSummary(evt *ics.VEvent) string {
	if prop := evt.GetProperty(ics.ComponentPropertySummary); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

// parseICSDate 解析日期属性并截取到日；dateOnly 表示 VALUE=DATE 形式
func parseICSDate(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	if t, err := time.Parse("20060102", val); err == nil {
		return academic.DateOf(t), true, nil
	}

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}
	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		switch {
		case strings.HasSuffix(layout, "Z"):
			t = t.In(loc)
		case tzid != "":
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc)
			}
		}
		return academic.DateOf(t), false, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}
