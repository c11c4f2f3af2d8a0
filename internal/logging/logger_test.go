package logging

import (
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewFallsBackToDefault(t *testing.T) {
	log := New(logr.Logger{})
	if log.Logr().GetSink() == nil {
		t.Fatalf("expected default sink")
	}
}

func TestWarnTagsSeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := New(zapr.NewLogger(zap.New(core)))

	log.Warn(errors.New("boom"), "stage degraded", "stage", "evidence")
	log.Info("unrelated")

	warnings := logs.FilterField(zap.String("severity", "warning"))
	if warnings.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", warnings.Len())
	}
	fields := warnings.All()[0].ContextMap()
	if fields["reason"] != "boom" {
		t.Fatalf("unexpected reason %v", fields["reason"])
	}
	if fields["stage"] != "evidence" {
		t.Fatalf("unexpected stage %v", fields["stage"])
	}
}

func TestDebugRespectsVerbosity(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := New(zapr.NewLogger(zap.New(core)))

	log.Debug("hidden")
	if logs.Len() != 0 {
		t.Fatalf("expected debug to be suppressed at info level")
	}
}

func TestBuildUnknownLevelFallsBack(t *testing.T) {
	l := Build("chatty", FormatConsole)
	if l.V(1).Enabled() {
		t.Fatalf("expected debug disabled for fallback info level")
	}
	if !Build("debug", FormatConsole).V(1).Enabled() {
		t.Fatalf("expected debug enabled")
	}
}

func TestBuildFormats(t *testing.T) {
	for _, format := range []Format{FormatConsole, FormatJSON, Format("xml")} {
		l := Build("debug", format)
		if l.GetSink() == nil {
			t.Fatalf("format %q: expected a sink", format)
		}
		if !l.V(1).Enabled() {
			t.Fatalf("format %q: expected debug enabled", format)
		}
	}
}
