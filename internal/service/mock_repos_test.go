package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"resv-system/backend/internal/model"
	"resv-system/backend/internal/repository"
	"resv-system/backend/pkg/mq"
)

// newMockRepository 组装未绑定数据库的 Repository 聚合（RunInTx 直接执行回调）
func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		User:        newMockUserRepo(),
		Room:        newMockRoomRepo(),
		Session:     newMockSessionRepo(),
		Period:      newMockPeriodRepo(),
		Setting:     newMockSettingRepo(),
		Notice:      newMockNoticeRepo(),
		Language:    &mockLanguageRepo{},
		Reservation: newMockReservationRepo(),
	}
	repo := &repository.Repository{
		User:        m.User,
		Room:        m.Room,
		Session:     m.Session,
		Period:      m.Period,
		Setting:     m.Setting,
		Notice:      m.Notice,
		Language:    m.Language,
		Reservation: m.Reservation,
	}
	return repo, m
}

type mockRepos struct {
	User        *mockUserRepo
	Room        *mockRoomRepo
	Session     *mockSessionRepo
	Period      *mockPeriodRepo
	Setting     *mockSettingRepo
	Notice      *mockNoticeRepo
	Language    *mockLanguageRepo
	Reservation *mockReservationRepo
}

// uuidColumn 模拟 PostgreSQL uuid 列对非法输入的报错（22P02 invalid_text_representation）
func uuidColumn(id string) error {
	if uuid.Validate(id) != nil {
		return &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}
	}
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	// locked 按顺序记录 GetByUsernameForUpdate 锁定的用户
	locked []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.Username]; ok {
		return gorm.ErrDuplicatedKey
	}
	u := *user
	m.users[user.Username] = &u
	return nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if u, ok := m.users[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsernameForUpdate(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = append(m.locked, username)
	return m.GetByUsername(ctx, username)
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	u := *user
	m.users[user.Username] = &u
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if filter.Username != "" && u.Username != filter.Username {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Name)) {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	rooms map[string]*model.Room
	types map[int]model.RoomType
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{
		rooms: make(map[string]*model.Room),
		types: map[int]model.RoomType{
			0: {TypeID: 0, Name: "会议室"},
			1: {TypeID: 1, Name: "教室"},
		},
	}
}

func (m *mockRoomRepo) Create(_ context.Context, room *model.Room) error {
	if _, ok := m.rooms[room.RoomID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r := *room
	m.rooms[room.RoomID] = &r
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, roomID string) (*model.Room, error) {
	if r, ok := m.rooms[roomID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) GetByIDForUpdate(ctx context.Context, roomID string) (*model.Room, error) {
	return m.GetByID(ctx, roomID)
}

func (m *mockRoomRepo) List(_ context.Context, filter repository.RoomFilter) ([]model.Room, error) {
	var result []model.Room
	for _, r := range m.rooms {
		if filter.Type != nil && r.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoomID < result[j].RoomID })
	return result, nil
}

func (m *mockRoomRepo) Update(_ context.Context, room *model.Room) error {
	r := *room
	m.rooms[room.RoomID] = &r
	return nil
}

func (m *mockRoomRepo) ListTypes(_ context.Context) ([]model.RoomType, error) {
	var result []model.RoomType
	for _, t := range m.types {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TypeID < result[j].TypeID })
	return result, nil
}

func (m *mockRoomRepo) TypeExists(_ context.Context, typeID int) (bool, error) {
	_, ok := m.types[typeID]
	return ok, nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	sessions map[string]*model.Session
	// referenced 被预约引用的会话，删除时返回外键错误
	referenced map[string]bool
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{
		sessions:   make(map[string]*model.Session),
		referenced: make(map[string]bool),
	}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.Session) error {
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	s := *session
	m.sessions[session.SessionID] = &s
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.Session, error) {
	if err := uuidColumn(id); err != nil {
		return nil, err
	}
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) List(_ context.Context, currentOnly bool) ([]model.Session, error) {
	var result []model.Session
	for _, s := range m.sessions {
		if currentOnly && !s.IsCurrent {
			continue
		}
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	if err := uuidColumn(id); err != nil {
		return err
	}
	if _, ok := m.sessions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	if m.referenced[id] {
		return &pgconn.PgError{Code: "23503"}
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) ClearCurrent(_ context.Context) error {
	for _, s := range m.sessions {
		s.IsCurrent = false
	}
	return nil
}

// ── Mock PeriodRepository ──

type mockPeriodRepo struct {
	periods map[string]*model.Period
}

func newMockPeriodRepo() *mockPeriodRepo {
	return &mockPeriodRepo{periods: make(map[string]*model.Period)}
}

// seedHourly 写入 07:00-23:00 的整点节次
func (m *mockPeriodRepo) seedHourly() {
	for h := 7; h < 23; h++ {
		id := uuid.NewString()
		m.periods[id] = &model.Period{
			PeriodID:  id,
			Name:      "p" + time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15"),
			StartTime: time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04:05"),
			EndTime:   time.Date(0, 1, 1, h+1, 0, 0, 0, time.UTC).Format("15:04:05"),
		}
	}
}

func (m *mockPeriodRepo) Create(_ context.Context, period *model.Period) error {
	for _, p := range m.periods {
		if p.StartTime == period.StartTime {
			return gorm.ErrDuplicatedKey
		}
	}
	if period.PeriodID == "" {
		period.PeriodID = uuid.NewString()
	}
	p := *period
	m.periods[period.PeriodID] = &p
	return nil
}

func (m *mockPeriodRepo) List(_ context.Context) ([]model.Period, error) {
	var result []model.Period
	for _, p := range m.periods {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result, nil
}

func (m *mockPeriodRepo) Delete(_ context.Context, id string) error {
	if err := uuidColumn(id); err != nil {
		return err
	}
	if _, ok := m.periods[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.periods, id)
	return nil
}

// ── Mock SettingRepository ──

type mockSettingRepo struct {
	mu       sync.Mutex
	settings map[int]*model.Setting
	listHits int
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{settings: make(map[int]*model.Setting)}
}

func (m *mockSettingRepo) put(id int, name, value string) {
	m.settings[id] = &model.Setting{ID: id, Name: name, Value: value}
}

func (m *mockSettingRepo) List(_ context.Context) ([]model.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listHits++
	var result []model.Setting
	for _, s := range m.settings {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockSettingRepo) GetByID(_ context.Context, id int) (*model.Setting, error) {
	if s, ok := m.settings[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSettingRepo) Update(_ context.Context, setting *model.Setting) error {
	s := *setting
	m.settings[setting.ID] = &s
	return nil
}

// ── Mock NoticeRepository / LanguageRepository ──

type mockNoticeRepo struct {
	notices map[string]*model.Notice
}

func newMockNoticeRepo() *mockNoticeRepo {
	return &mockNoticeRepo{notices: make(map[string]*model.Notice)}
}

func (m *mockNoticeRepo) Create(_ context.Context, notice *model.Notice) error {
	notice.NoticeID = uuid.NewString()
	n := *notice
	m.notices[notice.NoticeID] = &n
	return nil
}

func (m *mockNoticeRepo) GetByID(_ context.Context, id string) (*model.Notice, error) {
	if err := uuidColumn(id); err != nil {
		return nil, err
	}
	if n, ok := m.notices[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNoticeRepo) List(_ context.Context) ([]model.Notice, error) {
	var result []model.Notice
	for _, n := range m.notices {
		result = append(result, *n)
	}
	return result, nil
}

func (m *mockNoticeRepo) Update(_ context.Context, notice *model.Notice) error {
	n := *notice
	m.notices[notice.NoticeID] = &n
	return nil
}

func (m *mockNoticeRepo) Delete(_ context.Context, id string) error {
	if err := uuidColumn(id); err != nil {
		return err
	}
	if _, ok := m.notices[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.notices, id)
	return nil
}

type mockLanguageRepo struct {
	langs []model.Language
}

func (m *mockLanguageRepo) List(_ context.Context) ([]model.Language, error) {
	return m.langs, nil
}

// ── Mock ReservationRepository ──

// mockReservationRepo 以互斥锁模拟数据库：写入时检查同房间有效时段重叠，
// 冲突时返回与排他约束相同的 23P01 错误
type mockReservationRepo struct {
	mu      sync.Mutex
	resvs   map[string]*model.Reservation
	now     func() time.Time
	creates int
}

func newMockReservationRepo() *mockReservationRepo {
	return &mockReservationRepo{
		resvs: make(map[string]*model.Reservation),
		now:   time.Now,
	}
}

func cloneReservation(r *model.Reservation) model.Reservation {
	cp := *r
	cp.TimeSlots = append([]model.TimeSlot(nil), r.TimeSlots...)
	return cp
}

// overlapsActive 调用方需持有锁
func (m *mockReservationRepo) overlapsActive(roomID, exceptResv string, slots []model.TimeSlot) bool {
	for _, r := range m.resvs {
		if r.RoomID != roomID || r.ResvID == exceptResv {
			continue
		}
		for _, existing := range r.TimeSlots {
			if !existing.IsActive {
				continue
			}
			for _, s := range slots {
				if s.StartTime.Before(existing.EndTime) && s.EndTime.After(existing.StartTime) {
					return true
				}
			}
		}
	}
	return false
}

func (m *mockReservationRepo) Create(_ context.Context, resv *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range resv.TimeSlots {
		resv.TimeSlots[i].ResvID = resv.ResvID
		resv.TimeSlots[i].RoomID = resv.RoomID
		resv.TimeSlots[i].IsActive = resv.Status.Active()
	}
	if resv.Status.Active() && m.overlapsActive(resv.RoomID, "", resv.TimeSlots) {
		return &pgconn.PgError{Code: "23P01", ConstraintName: "excl_time_slots_room_overlap"}
	}

	now := m.now()
	resv.CreatedAt, resv.UpdatedAt = now, now
	cp := cloneReservation(resv)
	m.resvs[resv.ResvID] = &cp
	m.creates++
	return nil
}

func (m *mockReservationRepo) GetByID(_ context.Context, resvID string) (*model.Reservation, error) {
	if err := uuidColumn(resvID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.resvs[resvID]; ok {
		cp := cloneReservation(r)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func inRange(t time.Time, rng repository.TimeRange) bool {
	if !rng.From.IsZero() && t.Before(rng.From) {
		return false
	}
	if !rng.To.IsZero() && !t.Before(rng.To) {
		return false
	}
	return true
}

func (m *mockReservationRepo) List(_ context.Context, filter repository.ReservationFilter) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.Reservation
	for _, r := range m.resvs {
		if filter.RoomID != "" && r.RoomID != filter.RoomID {
			continue
		}
		if filter.Username != "" && r.Username != filter.Username {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if !inRange(r.CreatedAt, filter.Created) || !inRange(r.UpdatedAt, filter.Updated) {
			continue
		}
		cp := cloneReservation(r)
		if !filter.SlotStart.IsZero() || !filter.SlotEnd.IsZero() {
			var kept []model.TimeSlot
			for _, s := range cp.TimeSlots {
				if inRange(s.StartTime, filter.SlotStart) && inRange(s.EndTime, filter.SlotEnd) {
					kept = append(kept, s)
				}
			}
			if len(kept) == 0 {
				continue
			}
			cp.TimeSlots = kept
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockReservationRepo) CountActiveCreated(_ context.Context, username string, created repository.TimeRange) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, r := range m.resvs {
		if r.Username == username && r.Status.Active() && inRange(r.CreatedAt, created) {
			n++
		}
	}
	return n, nil
}

func (m *mockReservationRepo) ListActiveSlots(_ context.Context, roomID string, within repository.TimeRange) ([]model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.TimeSlot
	for _, r := range m.resvs {
		if r.RoomID != roomID {
			continue
		}
		for _, s := range r.TimeSlots {
			if !s.IsActive {
				continue
			}
			if !within.To.IsZero() && !s.StartTime.Before(within.To) {
				continue
			}
			if !within.From.IsZero() && !s.EndTime.After(within.From) {
				continue
			}
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockReservationRepo) UpdateFields(_ context.Context, resvID string, fields map[string]interface{}) error {
	if err := uuidColumn(resvID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.resvs[resvID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["title"].(string); ok {
		r.Title = v
	}
	if v, ok := fields["note"].(string); ok {
		r.Note = v
	}
	r.UpdatedAt = m.now()
	return nil
}

func (m *mockReservationRepo) UpdateStatus(_ context.Context, resvID string, status model.ResvStatus) error {
	if err := uuidColumn(resvID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.resvs[resvID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status.Active() && !r.Status.Active() && m.overlapsActive(r.RoomID, r.ResvID, r.TimeSlots) {
		return &pgconn.PgError{Code: "23P01"}
	}
	r.Status = status
	r.UpdatedAt = m.now()
	for i := range r.TimeSlots {
		r.TimeSlots[i].IsActive = status.Active()
	}
	return nil
}

func (m *mockReservationRepo) DeleteSlot(_ context.Context, resvID, slotID string) (int64, error) {
	if err := uuidColumn(resvID); err != nil {
		return 0, err
	}
	if err := uuidColumn(slotID); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.resvs[resvID]
	if !ok {
		return 0, nil
	}
	for i, s := range r.TimeSlots {
		if s.SlotID == slotID {
			r.TimeSlots = append(r.TimeSlots[:i], r.TimeSlots[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockReservationRepo) CountSlots(_ context.Context, resvID string) (int64, error) {
	if err := uuidColumn(resvID); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.resvs[resvID]; ok {
		return int64(len(r.TimeSlots)), nil
	}
	return 0, nil
}

// ── 其他依赖的测试替身 ──

type fakePublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (p *fakePublisher) Publish(_ context.Context, evt mq.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var result []string
	for _, e := range p.events {
		result = append(result, e.Type)
	}
	return result
}

type fakeSettingsCache struct {
	values      map[string]string
	invalidated int
}

func (c *fakeSettingsCache) GetSettings(_ context.Context) (map[string]string, error) {
	return c.values, nil
}

func (c *fakeSettingsCache) SetSettings(_ context.Context, values map[string]string, _ time.Duration) error {
	c.values = values
	return nil
}

func (c *fakeSettingsCache) InvalidateSettings(_ context.Context) error {
	c.values = nil
	c.invalidated++
	return nil
}

type fakeBlacklist struct {
	revoked map[string]time.Duration
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: make(map[string]time.Duration)}
}

func (b *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.revoked[jti] = ttl
	return nil
}

func (b *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := b.revoked[jti]
	return ok, nil
}
