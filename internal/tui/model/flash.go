package model

import (
	"sync"
	"time"
)

// Level classifies a flash message. The status bar picks its color from it:
// info for send/queue progress, warn for recoverable conditions, error for
// failed deliveries and fetches.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Flash holds one transient notification with a severity and an expiry.
// A newer message always replaces the current one regardless of severity;
// send progress is more useful than a stale error.
type Flash struct {
	mu      sync.RWMutex
	message string
	level   Level
	expires time.Time
}

// Set stores an info-level flash message that expires after d.
func (f *Flash) Set(msg string, d time.Duration) {
	f.set(msg, LevelInfo, d)
}

// SetWarn stores a warn-level flash message.
func (f *Flash) SetWarn(msg string, d time.Duration) {
	f.set(msg, LevelWarn, d)
}

// SetError stores an error-level flash message.
func (f *Flash) SetError(msg string, d time.Duration) {
	f.set(msg, LevelError, d)
}

func (f *Flash) set(msg string, level Level, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = msg
	f.level = level
	f.expires = time.Now().Add(d)
}

// Get returns the current flash message and its level, or empty if expired.
func (f *Flash) Get() (string, Level) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if time.Now().After(f.expires) {
		return "", LevelInfo
	}
	return f.message, f.level
}
