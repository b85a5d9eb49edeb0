package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir(t *testing.T) {
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".gigwire", "profiles", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestDBPath(t *testing.T) {
	got := DBPath("test")
	if !strings.HasSuffix(got, filepath.Join("profiles", "test", "gigwire.db")) {
		t.Errorf("DBPath(test) = %q, want suffix profiles/test/gigwire.db", got)
	}
}

func TestLockPath(t *testing.T) {
	got := LockPath("test")
	if !strings.HasSuffix(got, filepath.Join("profiles", "test", "LOCK")) {
		t.Errorf("LockPath(test) = %q, want suffix profiles/test/LOCK", got)
	}
}

func TestLogPath(t *testing.T) {
	got := LogPath("test")
	if !strings.HasSuffix(got, filepath.Join("logs", "gigwire.log")) {
		t.Errorf("LogPath(test) = %q, want suffix logs/gigwire.log", got)
	}
}
