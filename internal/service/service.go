package service

import (
	"time"

	"go.uber.org/zap"

	"resv-system/backend/config"
	"resv-system/backend/internal/repository"
	"resv-system/backend/pkg/jwt"
	"resv-system/backend/pkg/mq"
	"resv-system/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth        AuthService
	User        UserService
	Room        RoomService
	Catalog     CatalogService
	Setting     SettingService
	Reservation ReservationService
	Export      ExportService
}

// NewService 创建 Service 聚合
// rdb、publisher 可为 nil：缓存与黑名单降级，事件不发布
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	publisher *mq.Publisher,
	logger *zap.Logger,
) *Service {
	loc, err := cfg.Reservation.Location()
	if err != nil {
		loc = time.Local
	}

	// 避免 typed-nil 接口：未连接时保持接口为 nil
	var (
		cache     SettingsCache
		blacklist TokenBlacklist
		events    EventPublisher
	)
	if rdb != nil {
		cache, blacklist = rdb, rdb
	}
	if publisher != nil {
		events = publisher
	}

	settings := NewSettingService(repo, cache, cfg.Reservation.SettingsCacheTTL, loc, logger)
	return &Service{
		Auth:        NewAuthService(repo, jwtMgr, blacklist, loc, logger),
		User:        NewUserService(repo, loc, logger),
		Room:        NewRoomService(repo, logger),
		Catalog:     NewCatalogService(repo, loc, logger),
		Setting:     settings,
		Reservation: NewReservationService(repo, settings, events, loc, logger),
		Export:      NewExportService(repo, loc, logger),
	}
}
