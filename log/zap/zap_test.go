package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/netbound"
)

func TestLoggerWritesFieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("job superseded", netbound.Fields{"slot": "login"})
	l.Warn("cache read failed", netbound.Fields{"err": errors.New("disk gone")})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	if e := entries[0]; e.Level != zapcore.DebugLevel || e.LoggerName != "netbound" || e.ContextMap()["slot"] != "login" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if got := entries[1].ContextMap()["err"]; got != "disk gone" {
		t.Fatalf("error field = %v", got)
	}
}

func TestNilFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	New(zap.New(core)).Info("ok", nil)
	if logs.Len() != 1 || len(logs.All()[0].Context) != 0 {
		t.Fatalf("unexpected %v", logs.All())
	}
}
