package cli

import (
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandlerCancelsOnSIGTERM(t *testing.T) {
	ctx := SetupSignalHandler()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after SIGTERM")
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("policy.path", "required")
	if got := err.Error(); got != "config error in policy.path: required" {
		t.Errorf("Error() = %q", got)
	}

	err = NewConfigError("", "file missing")
	if got := err.Error(); got != "config error: file missing" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCommandError(t *testing.T) {
	inner := errors.New("boom")
	err := NewCommandError("run", inner)

	if !strings.Contains(err.Error(), "command run failed") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("Unwrap does not reach inner error")
	}
}

func TestFormatters(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var sb strings.Builder
		if err := NewFormatter(FormatText).FormatTo(&sb, "hello"); err != nil {
			t.Fatalf("FormatTo: %v", err)
		}
		if sb.String() != "hello\n" {
			t.Errorf("output = %q", sb.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var sb strings.Builder
		data := map[string]int{"n": 3}
		if err := NewFormatter(FormatJSON).FormatTo(&sb, data); err != nil {
			t.Fatalf("FormatTo: %v", err)
		}
		if !strings.Contains(sb.String(), `"n": 3`) {
			t.Errorf("output = %q", sb.String())
		}
	})

	t.Run("unknown falls back to text", func(t *testing.T) {
		if _, ok := NewFormatter("yaml").(*TextFormatter); !ok {
			t.Error("unknown format did not fall back to text")
		}
	})
}
