package policy

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Period 每日重复的节次，以当天零点起的偏移表示
type Period struct {
	Start time.Duration
	End   time.Duration
}

// ParseClock 解析 "HH:MM" 或 "HH:MM:SS"（数据库 time 类型的文本形式）
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	if s == "24:00" || s == "24:00:00" {
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("无效的时间格式: %q", s)
}

// ParsePeriod 由起止时间文本构造节次
func ParsePeriod(start, end string) (Period, error) {
	st, err := ParseClock(start)
	if err != nil {
		return Period{}, err
	}
	en, err := ParseClock(end)
	if err != nil {
		return Period{}, err
	}
	if st >= en {
		return Period{}, fmt.Errorf("节次开始时间必须早于结束时间: %s-%s", start, end)
	}
	return Period{Start: st, End: en}, nil
}

// IsCombinationOfPeriods 每个区间是否恰好等于若干首尾相接的完整节次
// 空输入返回 false；跨日区间返回 false
func IsCombinationOfPeriods(periods []Period, slots []Slot, loc *time.Location) bool {
	if len(slots) == 0 || len(periods) == 0 {
		return false
	}

	sorted := make([]Period, len(periods))
	copy(sorted, periods)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	next := make(map[time.Duration]time.Duration, len(sorted))
	for _, p := range sorted {
		next[p.Start] = p.End
	}

	for _, s := range slots {
		start, end, ok := clockRange(s, loc)
		if !ok {
			return false
		}
		cur := start
		for cur < end {
			e, found := next[cur]
			if !found {
				return false
			}
			cur = e
		}
		if cur != end {
			return false
		}
	}
	return true
}
