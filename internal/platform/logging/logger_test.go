package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetMirror_ReceivesWrittenRecords(t *testing.T) {
	core, logs := observer.New(LevelInfo)
	logger := FromZap(zap.New(core))

	type mirrored struct {
		level Level
		msg   string
		args  []any
	}
	var got []mirrored
	SetMirror(func(_ context.Context, level Level, msg string, args ...any) {
		got = append(got, mirrored{level: level, msg: msg, args: args})
	})
	t.Cleanup(func() { SetMirror(nil) })

	logger.InfoContext(context.Background(), "team imported", "user_id", "user-1")
	logger.Debug("below level, not written")

	if logs.Len() != 1 {
		t.Fatalf("core observed %d records, want 1", logs.Len())
	}
	if len(got) != 1 {
		t.Fatalf("mirror received %d records, want 1", len(got))
	}
	if got[0].level != LevelInfo || got[0].msg != "team imported" {
		t.Fatalf("unexpected mirrored record: %+v", got[0])
	}
	if len(got[0].args) != 2 || got[0].args[0] != "user_id" || got[0].args[1] != "user-1" {
		t.Fatalf("mirrored args not preserved: %v", got[0].args)
	}

	SetMirror(nil)
	logger.Info("after clear")
	if len(got) != 1 {
		t.Fatal("cleared mirror still receiving records")
	}
}
