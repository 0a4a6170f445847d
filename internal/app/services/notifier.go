package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/dto"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/usecases"
)

// DefaultNotificationCapacity is the ring size of NewMemoryNotifier(0)
const DefaultNotificationCapacity = 50

// LogNotifier writes notifications to a zap logger
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs destructive notifications at
// warn level and the rest at info.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, note dto.Notification) {
	fields := []zap.Field{
		zap.String("title", note.Title),
		zap.String("description", note.Description),
		zap.String("severity", string(note.Severity)),
	}
	if note.Severity == dto.SeverityDestructive {
		n.logger.Warn("notification", fields...)
		return
	}
	n.logger.Info("notification", fields...)
}

// MemoryNotifier keeps the most recent notifications in a ring buffer so the
// API can serve them to the canvas.
type MemoryNotifier struct {
	mu    sync.RWMutex
	buf   []dto.Notification
	next  int
	count int
}

// NewMemoryNotifier creates a ring buffer notifier holding up to capacity
// entries.
func NewMemoryNotifier(capacity int) *MemoryNotifier {
	if capacity <= 0 {
		capacity = DefaultNotificationCapacity
	}
	return &MemoryNotifier{buf: make([]dto.Notification, capacity)}
}

func (n *MemoryNotifier) Notify(_ context.Context, note dto.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.buf[n.next] = note
	n.next = (n.next + 1) % len(n.buf)
	if n.count < len(n.buf) {
		n.count++
	}
}

// Recent returns up to limit notifications, newest first. A limit of zero or
// less returns everything buffered.
func (n *MemoryNotifier) Recent(limit int) []dto.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if limit <= 0 || limit > n.count {
		limit = n.count
	}
	out := make([]dto.Notification, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (n.next - i + len(n.buf)) % len(n.buf)
		out = append(out, n.buf[idx])
	}
	return out
}

// Len returns the number of buffered notifications
func (n *MemoryNotifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.count
}

// MultiNotifier fans a notification out to several notifiers in order
type MultiNotifier []usecases.Notifier

func (m MultiNotifier) Notify(ctx context.Context, note dto.Notification) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, note)
		}
	}
}
