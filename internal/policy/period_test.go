package policy

import (
	"testing"
	"time"
)

func hourlyPeriods() []Period {
	var ps []Period
	for h := 8; h < 22; h++ {
		ps = append(ps, Period{Start: time.Duration(h) * time.Hour, End: time.Duration(h+1) * time.Hour})
	}
	return ps
}

func TestParseClock(t *testing.T) {
	cases := map[string]time.Duration{
		"08:00":    8 * time.Hour,
		"08:30:00": 8*time.Hour + 30*time.Minute,
		" 22:00 ":  22 * time.Hour,
		"24:00":    24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Errorf("ParseClock(%q) 期望 %v，实际 %v (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseClock("8点"); err == nil {
		t.Error("非法格式应返回错误")
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("08:00:00", "09:45:00")
	if err != nil {
		t.Fatalf("ParsePeriod 应成功: %v", err)
	}
	if p.End-p.Start != 105*time.Minute {
		t.Errorf("期望时长 105m，实际 %v", p.End-p.Start)
	}
	if _, err := ParsePeriod("10:00", "09:00"); err == nil {
		t.Error("开始晚于结束应返回错误")
	}
}

func TestIsCombinationOfPeriods(t *testing.T) {
	periods := hourlyPeriods()

	cases := []struct {
		name  string
		slots []Slot
		want  bool
	}{
		{"空输入", nil, false},
		{"单个完整节次", []Slot{slot(2, 8, 0, 9, 0)}, true},
		{"连续多节", []Slot{slot(2, 10, 0, 13, 0)}, true},
		{"多个独立时段", []Slot{slot(2, 8, 0, 9, 0), slot(2, 14, 0, 16, 0)}, true},
		{"部分节次", []Slot{slot(2, 8, 30, 9, 0)}, false},
		{"结束不在边界", []Slot{slot(2, 8, 0, 9, 30)}, false},
		{"超出最后一节", []Slot{slot(2, 21, 0, 23, 0)}, false},
		{"早于第一节", []Slot{slot(2, 7, 0, 9, 0)}, false},
		{"其中一个无效", []Slot{slot(2, 8, 0, 9, 0), slot(2, 9, 15, 10, 0)}, false},
		{"跨日", []Slot{{Start: at(2, 21, 0), End: at(3, 9, 0)}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCombinationOfPeriods(periods, tc.slots, shanghai); got != tc.want {
				t.Errorf("期望 %v，实际 %v", tc.want, got)
			}
		})
	}
}

func TestIsCombinationOfPeriods_Gap(t *testing.T) {
	// 午休 12:00-13:00 不是节次
	periods := []Period{
		{Start: 11 * time.Hour, End: 12 * time.Hour},
		{Start: 13 * time.Hour, End: 14 * time.Hour},
	}
	if IsCombinationOfPeriods(periods, []Slot{slot(2, 11, 0, 14, 0)}, shanghai) {
		t.Error("跨越节次空隙的时段不应通过")
	}
	if IsCombinationOfPeriods(nil, []Slot{slot(2, 11, 0, 12, 0)}, shanghai) {
		t.Error("没有节次时应返回 false")
	}
}
