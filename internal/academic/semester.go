// Package academic 学期算术：学年解析、学生学期序号换算以及学期日历窗口查询。
// 全部为纯函数，不做任何 I/O。
package academic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ── 学期算术错误 ──

var (
	ErrInvalidAcademicYear  = errors.New("学年格式无效，应为 YYYY/YYYY 且相差一年")
	ErrInvalidParity        = errors.New("学期奇偶值必须为 1 或 2")
	ErrSemesterBeforeIntake = errors.New("当前学期早于入学学期")
	ErrCalendarEntryMissing = errors.New("学期日历缺少对应条目")
)

// Parity 学期奇偶：1 为第一学期，2 为第二学期
type Parity int

const (
	ParityFirst  Parity = 1
	ParitySecond Parity = 2
)

// Valid 判断奇偶值是否合法
func (p Parity) Valid() bool { return p == ParityFirst || p == ParitySecond }

// AcademicYear 学年，如 2023/2024（Start=2023）
type AcademicYear struct {
	Start int
}

// ParseAcademicYear 解析 "2023/2024" 格式的学年
func ParseAcademicYear(s string) (AcademicYear, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 4 {
		return AcademicYear{}, fmt.Errorf("%w: %q", ErrInvalidAcademicYear, s)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return AcademicYear{}, fmt.Errorf("%w: %q", ErrInvalidAcademicYear, s)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || end != start+1 {
		return AcademicYear{}, fmt.Errorf("%w: %q", ErrInvalidAcademicYear, s)
	}
	return AcademicYear{Start: start}, nil
}

// String 格式化为 "2023/2024"
func (y AcademicYear) String() string {
	return fmt.Sprintf("%04d/%04d", y.Start, y.Start+1)
}

// Term 学年 + 学期奇偶，唯一确定一个日历学期
type Term struct {
	Year   AcademicYear
	Parity Parity
}

func (t Term) String() string {
	return fmt.Sprintf("%s-%d", t.Year, t.Parity)
}

// index 将学期映射为连续整数，便于做差
func (t Term) index() int {
	return t.Year.Start*2 + int(t.Parity) - 1
}

// StudentSemester 计算学生当前所处的学期序号（入学学期为第 1 学期）
//
//	序号 = 2*(当前学年 - 入学学年) + (当前奇偶 - 入学奇偶) + 1
func StudentSemester(intake, current Term) (int, error) {
	if !intake.Parity.Valid() || !current.Parity.Valid() {
		return 0, ErrInvalidParity
	}
	n := current.index() - intake.index() + 1
	if n < 1 {
		return 0, fmt.Errorf("%w: intake=%s current=%s", ErrSemesterBeforeIntake, intake, current)
	}
	return n, nil
}

// SemesterAt 为 StudentSemester 的逆运算：根据入学学期与学期序号得到日历学期
func SemesterAt(intake Term, ordinal int) (Term, error) {
	if !intake.Parity.Valid() {
		return Term{}, ErrInvalidParity
	}
	if ordinal < 1 {
		return Term{}, fmt.Errorf("%w: ordinal=%d", ErrSemesterBeforeIntake, ordinal)
	}
	idx := intake.index() + ordinal - 1
	return Term{
		Year:   AcademicYear{Start: idx / 2},
		Parity: Parity(idx%2 + 1),
	}, nil
}

// ParseTerm 由学年字符串与奇偶值构造 Term
func ParseTerm(academicYear string, parity int) (Term, error) {
	y, err := ParseAcademicYear(academicYear)
	if err != nil {
		return Term{}, err
	}
	p := Parity(parity)
	if !p.Valid() {
		return Term{}, ErrInvalidParity
	}
	return Term{Year: y, Parity: p}, nil
}
