package handler

import (
	"resv-system/backend/config"
	"resv-system/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	User        *UserHandler
	Reservation *ReservationHandler
	Public      *PublicHandler
	Admin       *AdminHandler
	Export      *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth, &cfg.Auth),
		User:        NewUserHandler(svc.User),
		Reservation: NewReservationHandler(svc.Reservation),
		Public:      NewPublicHandler(svc),
		Admin:       NewAdminHandler(svc),
		Export:      NewExportHandler(svc.Export),
	}
}
