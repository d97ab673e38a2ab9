package goroutine

import (
	"runtime/debug"

	"github.com/ignatzorin/arbiter-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic: уведомления и рассылки не
// должны ронять процесс, в котором идут разбирательства.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorf("panic в горутине: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}
