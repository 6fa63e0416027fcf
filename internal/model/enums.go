package model

// ── 用户角色（有序，按数值比较） ──

// Role 用户角色，数值越大权限越高
type Role int

const (
	RoleBlocked    Role = -1
	RoleRestricted Role = 0
	RoleBasic      Role = 1
	RoleAdvanced   Role = 2
	RoleAdmin      Role = 3
)

var roleNames = map[Role]string{
	RoleBlocked:    "BLOCKED",
	RoleRestricted: "RESTRICTED",
	RoleBasic:      "BASIC",
	RoleAdvanced:   "ADVANCED",
	RoleAdmin:      "ADMIN",
}

// String 角色名称
func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "UNKNOWN"
}

// Valid 是否为已定义角色
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast 是否不低于指定角色
func (r Role) AtLeast(min Role) bool { return r >= min }

// ── 预约状态 ──

// ResvStatus 预约状态；Forbidden 仅用于准入判定结果，不会落库
type ResvStatus int

const (
	StatusForbidden ResvStatus = -1
	StatusPending   ResvStatus = 0
	StatusConfirmed ResvStatus = 1
	StatusCancelled ResvStatus = 2
)

var statusNames = map[ResvStatus]string{
	StatusForbidden: "FORBIDDEN",
	StatusPending:   "PENDING",
	StatusConfirmed: "CONFIRMED",
	StatusCancelled: "CANCELLED",
}

// String 状态名称
func (s ResvStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// Persistable 可写入数据库的状态
func (s ResvStatus) Persistable() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCancelled
}

// Active 占用房间的状态（PENDING / CONFIRMED）
func (s ResvStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// ── 预约类型 ──

// ResvType 预约性质：单时段窗口内为 BASIC，否则为 ADVANCED
type ResvType int

const (
	TypeBasic    ResvType = 0
	TypeAdvanced ResvType = 1
)

// String 类型名称
func (t ResvType) String() string {
	if t == TypeAdvanced {
		return "ADVANCED"
	}
	return "BASIC"
}

// ── 隐私级别 ──

// Privacy 预约在公开列表中的可见程度（secu_level）
type Privacy int

const (
	PrivacyPublic    Privacy = 0
	PrivacyPrivate   Privacy = 1
	PrivacyAnonymous Privacy = 2
)

var privacyNames = map[Privacy]string{
	PrivacyPublic:    "PUBLIC",
	PrivacyPrivate:   "PRIVATE",
	PrivacyAnonymous: "ANONYMOUS",
}

// String 隐私级别名称
func (p Privacy) String() string {
	if n, ok := privacyNames[p]; ok {
		return n
	}
	return "UNKNOWN"
}

// Valid 是否为已定义隐私级别
func (p Privacy) Valid() bool {
	_, ok := privacyNames[p]
	return ok
}

// ── 房间状态 ──

// RoomStatus 房间是否可预约
type RoomStatus int

const (
	RoomUnavailable RoomStatus = 0
	RoomAvailable   RoomStatus = 1
)

// String 房间状态名称
func (s RoomStatus) String() string {
	if s == RoomAvailable {
		return "AVAILABLE"
	}
	return "UNAVAILABLE"
}

// Valid 是否为已定义房间状态
func (s RoomStatus) Valid() bool {
	return s == RoomAvailable || s == RoomUnavailable
}

// ── 枚举目录（供公开查询接口） ──

// EnumEntry 枚举值与名称
type EnumEntry struct {
	Value int    `json:"value"`
	Name  string `json:"name"`
}

// RoleCatalog 全部角色，按权限升序
func RoleCatalog() []EnumEntry {
	return []EnumEntry{
		{int(RoleBlocked), RoleBlocked.String()},
		{int(RoleRestricted), RoleRestricted.String()},
		{int(RoleBasic), RoleBasic.String()},
		{int(RoleAdvanced), RoleAdvanced.String()},
		{int(RoleAdmin), RoleAdmin.String()},
	}
}

// StatusCatalog 可持久化的预约状态
func StatusCatalog() []EnumEntry {
	return []EnumEntry{
		{int(StatusPending), StatusPending.String()},
		{int(StatusConfirmed), StatusConfirmed.String()},
		{int(StatusCancelled), StatusCancelled.String()},
	}
}

// PrivacyCatalog 隐私级别
func PrivacyCatalog() []EnumEntry {
	return []EnumEntry{
		{int(PrivacyPublic), PrivacyPublic.String()},
		{int(PrivacyPrivate), PrivacyPrivate.String()},
		{int(PrivacyAnonymous), PrivacyAnonymous.String()},
	}
}

// RoomStatusCatalog 房间状态
func RoomStatusCatalog() []EnumEntry {
	return []EnumEntry{
		{int(RoomUnavailable), RoomUnavailable.String()},
		{int(RoomAvailable), RoomAvailable.String()},
	}
}
