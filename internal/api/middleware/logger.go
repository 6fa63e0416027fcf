package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resv-system/backend/internal/model"
	"resv-system/backend/pkg/response"
)

// Logger 请求访问日志
//
// route 记录路由模板（/api/v1/admin/reservations/:id），未命中路由时退回原始路径；
// 已认证请求附带 username 与 role，错误响应附带业务码 code。
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		// 路径参数：预约 / 房间 / 公告等资源 ID，以及被管理的用户名
		for _, p := range c.Params {
			fields = append(fields, zap.String("param_"+p.Key, p.Value))
		}
		if username := c.GetString(CtxUsername); username != "" {
			fields = append(fields, zap.String("username", username))
			if role, ok := c.Get(CtxRole); ok {
				if r, ok := role.(model.Role); ok {
					fields = append(fields, zap.String("role", r.String()))
				}
			}
		}
		if code, ok := c.Get(response.CodeKey); ok {
			fields = append(fields, zap.Any("code", code))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		switch {
		case status >= 500:
			logger.Error("请求处理失败", fields...)
		case status == 429:
			logger.Warn("请求被限流", fields...)
		case status >= 400:
			logger.Warn("请求被拒绝", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}
