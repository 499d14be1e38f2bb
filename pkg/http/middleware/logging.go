package middleware

import (
	"time"

	applogger "SignalEngine/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request. A nil logger disables it.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			if l != nil {
				req := c.Request()
				l.Info("http request",
					applogger.String("method", req.Method),
					applogger.String("uri", req.RequestURI),
					applogger.String("remote", req.RemoteAddr),
					applogger.Int("status", c.Response().Status),
					applogger.Duration("latency", time.Since(start)),
				)
			}
			return err
		}
	}
}
