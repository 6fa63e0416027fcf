package policy

import "resv-system/backend/internal/model"

// AdmissionInput 准入判定所需的全部事实
type AdmissionInput struct {
	Role         model.Role
	SlotCount    int
	InTimeWindow bool
	InTimeLimit  bool
}

// Decision 准入结果；Rule 为命中的规则名，便于日志追踪
type Decision struct {
	Status model.ResvStatus
	Type   model.ResvType
	Rule   string
}

// Forbidden 是否拒绝
func (d Decision) Forbidden() bool { return d.Status == model.StatusForbidden }

// ── 判定表元素 ──

type tri int8

const (
	anyValue tri = iota
	yes
	no
)

func (t tri) match(v bool) bool {
	switch t {
	case yes:
		return v
	case no:
		return !v
	default:
		return true
	}
}

type slotCount int8

const (
	anyCount slotCount = iota
	single
	multiple
)

func (c slotCount) match(n int) bool {
	switch c {
	case single:
		return n == 1
	case multiple:
		return n > 1
	default:
		return true
	}
}

type kind int8

const (
	kindNature kind = iota // 由请求本身性质决定
	kindBasic
	kindAdvanced
)

type rule struct {
	name   string
	role   func(model.Role) bool
	count  slotCount
	window tri
	limit  tri
	status model.ResvStatus
	kind   kind
}

func roleIs(r model.Role) func(model.Role) bool {
	return func(v model.Role) bool { return v == r }
}

func roleAtMost(r model.Role) func(model.Role) bool {
	return func(v model.Role) bool { return v <= r }
}

func roleAtLeast(r model.Role) func(model.Role) bool {
	return func(v model.Role) bool { return v >= r }
}

// admissionTable 自上而下匹配，首条命中生效
var admissionTable = []rule{
	{"blocked", roleAtMost(model.RoleBlocked), anyCount, anyValue, anyValue, model.StatusForbidden, kindNature},

	{"restricted-basic", roleIs(model.RoleRestricted), single, yes, yes, model.StatusPending, kindBasic},
	{"restricted-multi-slot", roleIs(model.RoleRestricted), multiple, anyValue, anyValue, model.StatusForbidden, kindAdvanced},
	{"restricted-outside-window", roleIs(model.RoleRestricted), anyCount, no, anyValue, model.StatusForbidden, kindAdvanced},
	{"restricted-outside-limit", roleIs(model.RoleRestricted), anyCount, anyValue, no, model.StatusForbidden, kindAdvanced},

	{"basic-basic", roleIs(model.RoleBasic), single, yes, yes, model.StatusConfirmed, kindBasic},
	{"basic-multi-slot", roleIs(model.RoleBasic), multiple, anyValue, anyValue, model.StatusPending, kindAdvanced},
	{"basic-outside-window", roleIs(model.RoleBasic), anyCount, no, anyValue, model.StatusPending, kindAdvanced},
	{"basic-outside-limit", roleIs(model.RoleBasic), anyCount, anyValue, no, model.StatusPending, kindAdvanced},

	{"advanced", roleAtLeast(model.RoleAdvanced), anyCount, anyValue, anyValue, model.StatusConfirmed, kindNature},
}

// Classify 按判定表计算预约状态与类型；无规则命中时拒绝
func Classify(in AdmissionInput) Decision {
	for _, r := range admissionTable {
		if !r.role(in.Role) || !r.count.match(in.SlotCount) ||
			!r.window.match(in.InTimeWindow) || !r.limit.match(in.InTimeLimit) {
			continue
		}
		return Decision{Status: r.status, Type: r.resolve(in), Rule: r.name}
	}
	return Decision{Status: model.StatusForbidden, Type: nature(in), Rule: "no-match"}
}

func (r rule) resolve(in AdmissionInput) model.ResvType {
	switch r.kind {
	case kindBasic:
		return model.TypeBasic
	case kindAdvanced:
		return model.TypeAdvanced
	default:
		return nature(in)
	}
}

// nature 单时段且在窗口、期限内为 BASIC，否则为 ADVANCED
func nature(in AdmissionInput) model.ResvType {
	if in.SlotCount == 1 && in.InTimeWindow && in.InTimeLimit {
		return model.TypeBasic
	}
	return model.TypeAdvanced
}
