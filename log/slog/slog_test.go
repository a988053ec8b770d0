package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/netbound"
)

func TestFieldsAreSortedAndLeveled(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}

	l.Debug("hidden", nil)
	l.Warn("job superseded", netbound.Fields{"slot": "login", "new": "b", "old": "a"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %s", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Fatalf("missing level: %s", out)
	}
	iNew, iOld, iSlot := strings.Index(out, "new=b"), strings.Index(out, "old=a"), strings.Index(out, "slot=login")
	if iNew < 0 || iOld < 0 || iSlot < 0 || !(iNew < iOld && iOld < iSlot) {
		t.Fatalf("fields not sorted: %s", out)
	}
}
