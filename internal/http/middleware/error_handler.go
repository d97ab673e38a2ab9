package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/arbiter-backend/internal/logger"
	"github.com/ignatzorin/arbiter-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно: AppError превращается в
// ответ со статусом и машинно-читаемым кодом, всё остальное маскируется.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			body := gin.H{
				"error": appErr.Message,
				"code":  appErr.Code,
			}
			// Отказ по квоте несёт причину и остаток — клиент показывает paywall.
			if appErr.Reason != "" {
				body["reason"] = appErr.Reason
			}
			if appErr.Remaining != nil {
				body["remaining"] = *appErr.Remaining
			}
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
	}
}
