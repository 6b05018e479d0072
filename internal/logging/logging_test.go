package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	original := L()
	defer SetLogger(original)

	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))

	L().Info("hello", zap.Int("n", 1))
	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if logs.All()[0].Message != "hello" {
		t.Errorf("unexpected message %q", logs.All()[0].Message)
	}

	SetLogger(nil)
	if L() == nil {
		t.Fatal("L() must never be nil")
	}
	L().Info("dropped")
	if logs.Len() != 1 {
		t.Error("no-op logger should not write to the previous core")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		json    bool
		wantErr bool
	}{
		{"debug", false, false},
		{"info", true, false},
		{"warn", false, false},
		{"loud", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(tt.level, tt.json)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if err == nil && l == nil {
				t.Error("expected logger")
			}
		})
	}
}
