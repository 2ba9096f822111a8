package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"IEXCast/pkg/logger"
)

// RequestLogging logs one line per request. 5xx responses log at error
// level, requests slower than slow at warn, everything else at debug.
func RequestLogging(l *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			took := time.Since(start)
			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", c.Request().Method),
				logger.String("route", c.Path()),
				logger.String("remote", c.RealIP()),
				logger.Int("status", status),
				logger.Duration("duration_ms", took),
				logger.Int64("bytes", c.Response().Size),
			}

			switch {
			case status >= 500:
				l.Error("http request failed", fields...)
			case slow > 0 && took >= slow:
				l.Warn("http request slow", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
