package model

import (
	"testing"
	"time"
)

func TestFlashLevelsAndReplacement(t *testing.T) {
	var f Flash

	f.SetError("Send failed: 503", time.Minute)
	if msg, level := f.Get(); msg != "Send failed: 503" || level != LevelError {
		t.Errorf("Get() = (%q, %v), want error-level message", msg, level)
	}

	// A newer message replaces the old one regardless of severity.
	f.Set("Sending...", time.Minute)
	if msg, level := f.Get(); msg != "Sending..." || level != LevelInfo {
		t.Errorf("Get() = (%q, %v), want info replacement", msg, level)
	}

	f.SetWarn("Select a conversation first", time.Minute)
	if _, level := f.Get(); level != LevelWarn {
		t.Errorf("level = %v, want warn", level)
	}
}

func TestFlashExpires(t *testing.T) {
	var f Flash

	f.SetError("gone soon", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if msg, level := f.Get(); msg != "" || level != LevelInfo {
		t.Errorf("Get() after expiry = (%q, %v), want empty info", msg, level)
	}
}
