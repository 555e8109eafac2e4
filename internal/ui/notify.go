package ui

import (
	"sync"
	"time"
)

const noticeDuration = 3 * time.Second

// Notices is the timed overlay-message notifier. Notify never blocks,
// so reader goroutines can post from anywhere.
type Notices struct {
	mu      sync.Mutex
	message string
	shownAt time.Time
}

func NewNotices() *Notices {
	return &Notices{}
}

func (n *Notices) Notify(message string) {
	n.mu.Lock()
	n.message = message
	n.shownAt = time.Now()
	n.mu.Unlock()
}

// Current returns the message still inside its display window, or "".
func (n *Notices) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.message == "" || time.Since(n.shownAt) > noticeDuration {
		return ""
	}
	return n.message
}
