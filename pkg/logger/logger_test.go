package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat(FormatJSON)); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after json initialization")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat(FormatJSON), WithOutput(&buf), WithSource(false)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("engine").Info(context.Background(), "training finished",
		Int("records", 10),
		Duration("took", time.Second),
		Bool("swapped", true),
	)

	out := buf.String()
	for _, want := range []string{`"msg":"training finished"`, `"engine":{`, `"records":10`, `"swapped":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
	if strings.Contains(out, `"source"`) {
		t.Errorf("source attribute should be disabled: %s", out)
	}
}

func TestLoggerSourceField(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Warn(context.Background(), "caller check")
	if !strings.Contains(buf.String(), "logger_test.go") {
		t.Errorf("expected caller file in output, got %s", buf.String())
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug).With(String("run_id", "abc"))

	l.Debug(context.Background(), "epoch", Error(errors.New("boom")))
	out := buf.String()
	if !strings.Contains(out, "run_id=abc") || !strings.Contains(out, "error=boom") {
		t.Errorf("unexpected output %s", out)
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf), WithSource(false)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	if err := SetLevelString("error"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at error level, got %s", buf.String())
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestNop(t *testing.T) {
	// must not panic
	Nop().Error(context.Background(), "discarded")
	Nop().Named("x").With(Any("k", 1)).Info(nil, "discarded") //nolint:staticcheck // nil ctx is tolerated
}
