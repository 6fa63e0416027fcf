package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 设置项名称
const (
	SettingTimeWindow = "time_window"
	SettingTimeLimit  = "time_limit"
	SettingMaxDaily   = "max_daily"
)

// 默认值
const (
	DefaultTimeWindow = "08:00-22:00"
	DefaultTimeLimit  = 7
	DefaultMaxDaily   = 3
)

// Settings 一次请求内使用的只读设置快照
type Settings struct {
	WindowStart   time.Duration // 每日可预约开始时刻
	WindowEnd     time.Duration // 每日可预约结束时刻
	TimeLimitDays int           // 最多提前天数，负数不限
	MaxDaily      int           // 每人每天有效预约上限，<=0 不限
	Location      *time.Location
}

// DefaultSettings 默认设置
func DefaultSettings(loc *time.Location) *Settings {
	ws, we, _ := parseWindow(DefaultTimeWindow)
	return &Settings{
		WindowStart:   ws,
		WindowEnd:     we,
		TimeLimitDays: DefaultTimeLimit,
		MaxDaily:      DefaultMaxDaily,
		Location:      loc,
	}
}

// ParseSettings 由 name → value 构造快照；缺失项取默认值，非法值返回错误
func ParseSettings(values map[string]string, loc *time.Location) (*Settings, error) {
	s := DefaultSettings(loc)

	if v, ok := values[SettingTimeWindow]; ok {
		ws, we, err := parseWindow(v)
		if err != nil {
			return nil, err
		}
		s.WindowStart, s.WindowEnd = ws, we
	}
	if v, ok := values[SettingTimeLimit]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%s 必须为整数: %q", SettingTimeLimit, v)
		}
		s.TimeLimitDays = n
	}
	if v, ok := values[SettingMaxDaily]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%s 必须为整数: %q", SettingMaxDaily, v)
		}
		s.MaxDaily = n
	}
	return s, nil
}

func parseWindow(v string) (time.Duration, time.Duration, error) {
	parts := strings.Split(v, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%s 格式应为 HH:MM-HH:MM: %q", SettingTimeWindow, v)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, fmt.Errorf("%s 开始时刻必须早于结束时刻: %q", SettingTimeWindow, v)
	}
	return start, end, nil
}

// InTimeWindow 每个区间都位于每日可预约时间范围内（且不跨日）
func (s *Settings) InTimeWindow(slots []Slot) bool {
	for _, slot := range slots {
		start, end, ok := clockRange(slot, s.Location)
		if !ok || start < s.WindowStart || end > s.WindowEnd {
			return false
		}
	}
	return true
}

// InTimeLimit 每个区间开始于 now 之后，且不晚于今天起第 TimeLimitDays 天结束
func (s *Settings) InTimeLimit(slots []Slot, now time.Time) bool {
	var deadline time.Time
	if s.TimeLimitDays >= 0 {
		deadline = midnight(now.In(s.Location)).AddDate(0, 0, s.TimeLimitDays+1)
	}
	for _, slot := range slots {
		if slot.Start.Before(now) {
			return false
		}
		if !deadline.IsZero() && !slot.Start.Before(deadline) {
			return false
		}
	}
	return true
}

// BelowMaxDaily 今日已创建的有效预约数是否低于上限
func (s *Settings) BelowMaxDaily(count int64) bool {
	if s.MaxDaily <= 0 {
		return true
	}
	return count < int64(s.MaxDaily)
}

// DayBounds 返回 t 所在日期（本地时区）的 [00:00, 次日 00:00)
func (s *Settings) DayBounds(t time.Time) (time.Time, time.Time) {
	start := midnight(t.In(s.Location))
	return start, start.AddDate(0, 0, 1)
}
