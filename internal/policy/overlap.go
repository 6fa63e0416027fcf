package policy

import "time"

// Slot 一个具体的时间区间，左闭右开 [Start, End)
type Slot struct {
	Start time.Time
	End   time.Time
}

// Valid 开始时间早于结束时间
func (s Slot) Valid() bool { return s.Start.Before(s.End) }

// Overlaps 两个区间是否重叠；首尾相接不算重叠
func Overlaps(a, b Slot) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// FirstConflict 返回第一个与已有区间重叠的候选区间下标及对应已有区间下标
func FirstConflict(proposed, existing []Slot) (int, int, bool) {
	for i, p := range proposed {
		for j, e := range existing {
			if Overlaps(p, e) {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

// HasSelfOverlap 同一请求内的区间是否两两有重叠
func HasSelfOverlap(slots []Slot) bool {
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if Overlaps(slots[i], slots[j]) {
				return true
			}
		}
	}
	return false
}

// Contains outer 是否完整包含 inner（允许边界重合）
func Contains(outer, inner Slot) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}

// ContainsAll outer 是否包含全部区间
func ContainsAll(outer Slot, slots []Slot) bool {
	for _, s := range slots {
		if !Contains(outer, s) {
			return false
		}
	}
	return true
}

// clockRange 把区间换算为 loc 时区下当天零点起的偏移
// 区间跨越日期时 ok=false；恰好结束于次日零点视为当天 24:00
func clockRange(s Slot, loc *time.Location) (start, end time.Duration, ok bool) {
	if !s.Valid() {
		return 0, 0, false
	}
	st := s.Start.In(loc)
	en := s.End.In(loc)

	day := midnight(st)
	start = st.Sub(day)
	end = en.Sub(day)

	if en.Year() == st.Year() && en.YearDay() == st.YearDay() {
		return start, end, true
	}
	if en.Equal(midnight(st).AddDate(0, 0, 1)) {
		return start, end, true
	}
	return 0, 0, false
}

// SameDay 区间是否位于 loc 时区下的同一天
func SameDay(s Slot, loc *time.Location) bool {
	_, _, ok := clockRange(s, loc)
	return ok
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
