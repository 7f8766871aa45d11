package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorKey is where handlers leave an unexpected error for the request log.
const ErrorKey = "handler_error"

// RequestLogger writes one line per request.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("route", c.Path()),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("client_ip", c.RealIP()),
			}
			if rid := req.Header.Get(HeaderRequestID); rid != "" {
				fields = append(fields, zap.String("request_id", rid))
			}
			if herr, ok := c.Get(ErrorKey).(error); ok {
				logger.Error("HTTP Request", append(fields, zap.Error(herr))...)
				return nil
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			logger.Info("HTTP Request", fields...)
			return nil
		}
	}
}
