package logger

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNamedNilBase(t *testing.T) {
	l := Named(nil, "stockcount")
	if l == nil {
		t.Fatal("expected no-op logger")
	}
	l.Info("discarded")
}

func TestNewDebug(t *testing.T) {
	l := Must(New("debug"))
	if !l.Core().Enabled(-1) {
		t.Fatal("expected debug level to be enabled")
	}
}
