package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trajector/portal/internal/model"
)

// Notifier receives transient, user-facing messages.
type Notifier interface {
	Notify(kind model.NotificationKind, message string)
}

// Queue holds notifications until the next view drains them. When full, the
// oldest entry is dropped.
type Queue struct {
	mu    sync.Mutex
	items []model.Notification
	limit int
	now   func() time.Time
}

func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 20
	}
	return &Queue{limit: limit, now: time.Now}
}

func (q *Queue) Notify(kind model.NotificationKind, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, model.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: q.now().UTC(),
	})
	if over := len(q.items) - q.limit; over > 0 {
		q.items = append(q.items[:0:0], q.items[over:]...)
	}
}

// Drain returns pending notifications oldest first and empties the queue.
func (q *Queue) Drain() []model.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
