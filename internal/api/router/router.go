package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resv-system/backend/config"
	"resv-system/backend/internal/api/handler"
	"resv-system/backend/internal/api/middleware"
	"resv-system/backend/internal/model"
	"resv-system/backend/pkg/jwt"
	"resv-system/backend/pkg/redis"
)

// importBodyLimit 用户导入文件上限
const importBodyLimit = 5 << 20

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, cfg.Reservation.LoginRateLimit, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 当前用户
			user := authorized.Group("/user")
			{
				user.GET("", h.User.GetProfile)
				user.PATCH("", h.User.UpdateProfile)

				user.POST("/reservation", h.Reservation.Create)
				user.PATCH("/reservation", h.Reservation.Patch)
				user.DELETE("/reservation", h.Reservation.DeleteSlot)
				user.GET("/reservation", h.Reservation.ListMine)
				user.GET("/reservation/today", h.Reservation.Today)
				user.GET("/reservation/ics", h.Export.ExportCalendar)
			}

			// 公开查询（登录即可）
			authorized.GET("/reservations", h.Public.ListReservations)
			authorized.GET("/reservations/status", h.Public.ReservationStatuses)
			authorized.GET("/reservations/privacy", h.Public.ReservationPrivacies)
			authorized.GET("/users", h.Public.ListUsers)
			authorized.GET("/users/roles", h.Public.UserRoles)
			authorized.GET("/rooms", h.Public.ListRooms)
			authorized.GET("/rooms/types", h.Public.ListRoomTypes)
			authorized.GET("/rooms/status", h.Public.RoomStatuses)
			authorized.GET("/periods", h.Public.ListPeriods)
			authorized.GET("/sessions", h.Public.ListSessions)
			authorized.GET("/notices", h.Public.ListNotices)
			authorized.GET("/settings", h.Public.ListSettings)
			authorized.GET("/languages", h.Public.ListLanguages)

			// 管理模块
			admin := authorized.Group("/admin")
			admin.Use(middleware.MinRole(model.RoleAdmin))
			{
				admin.POST("/rooms", h.Admin.CreateRoom)
				admin.PATCH("/rooms/:id", h.Admin.UpdateRoom)

				admin.POST("/users", h.Admin.CreateUser)
				admin.PATCH("/users/:username/role", h.Admin.SetRole)
				admin.POST("/users/:username/reset-password", h.Admin.ResetPassword)

				admin.PATCH("/settings/:id", h.Admin.UpdateSetting)

				admin.POST("/notices", h.Admin.CreateNotice)
				admin.PATCH("/notices/:id", h.Admin.UpdateNotice)
				admin.DELETE("/notices/:id", h.Admin.DeleteNotice)

				admin.POST("/sessions", h.Admin.CreateSession)
				admin.DELETE("/sessions/:id", h.Admin.DeleteSession)
				admin.POST("/periods", h.Admin.CreatePeriod)
				admin.DELETE("/periods/:id", h.Admin.DeletePeriod)

				admin.PATCH("/reservations/:id/status", h.Admin.SetReservationStatus)
				admin.GET("/export/reservations", h.Export.ExportReservations)
			}
		}
	}

	// 用户导入走独立分组，MaxBytesReader 嵌套后无法放宽上限
	upload := r.Group("/api/v1/admin")
	upload.Use(middleware.BodyLimit(importBodyLimit), middleware.JWTAuth(jwtMgr, rdb), middleware.MinRole(model.RoleAdmin))
	{
		upload.POST("/users/import", h.Admin.ImportUsers)
	}

	return r
}
