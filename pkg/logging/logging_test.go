package logging

import "testing"

func TestNoOpLoggerDoesNotPanic(t *testing.T) {
	var l Logger = &NoOpLogger{}
	l.Debug("x")
	l.Info("y", "k", "v")
	l.Warn("z")
	l.Error("w", "err", "boom")
}

func TestNewSlogDefaultsToInfoLevel(t *testing.T) {
	l := NewSlog("")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	l.Info("hello", "x", 1)
}

func TestSlogLoggerWithAttachesFields(t *testing.T) {
	l := NewSlog("debug").With("session", "abc123")
	l.Debug("scoped")
}
