package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic.
// Используется для фоновых задач (доставка уведомлений, закрытие
// медленных ws-клиентов), падение которых не должно ронять процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic("")
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
// Контекст передаётся явно: фоновая задача не должна наследовать
// контекст HTTP-запроса, который отменится при закрытии соединения.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic("with context")
		fn(ctx)
	}()
}

func recoverPanic(kind string) {
	r := recover()
	if r == nil {
		return
	}
	msg := fmt.Sprintf("Panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
	if kind != "" {
		msg = fmt.Sprintf("Panic in goroutine (%s): %v\nStack trace:\n%s", kind, r, debug.Stack())
	}
	if logger.Log != nil {
		logger.Log.Error(msg)
		return
	}
	fmt.Println("[ERROR] " + msg)
}
