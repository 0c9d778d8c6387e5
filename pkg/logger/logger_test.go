package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level Level) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	log, err := NewLogger(&Config{
		Level:            level,
		Format:           JSONFormat,
		Output:           WriterOutput,
		Writer:           buf,
		DisableTimestamp: true,
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	return log, buf
}

func TestDerivedLoggerKeepsFields(t *testing.T) {
	log, buf := newBufferLogger(t, InfoLevel)

	log.WithComponent(ComponentMatcher).
		WithRun("abc").
		WithError(errors.New("boom")).
		Info("reconciled")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}

	want := map[string]string{
		"component": "matcher",
		"run_id":    "abc",
		"error":     "boom",
		"msg":       "reconciled",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Errorf("field %s = %v, want %v", key, entry[key], value)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger(t, WarnLevel)

	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn line should be written")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", *DefaultConfig(), false},
		{"debug", *DebugConfig(), false},
		{"bad level", Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, true},
		{"bad format", Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, true},
		{"file without path", Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput}, true},
		{"writer without writer", Config{Level: InfoLevel, Format: TextFormat, Output: WriterOutput}, true},
		{"discard", Config{Level: InfoLevel, Format: TextFormat, Output: DiscardOutput}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTimedOperation(t *testing.T) {
	log, buf := newBufferLogger(t, InfoLevel)

	wantErr := errors.New("export failed")
	err := TimedOperation("export", log, func() error { return wantErr })
	if err != wantErr {
		t.Fatalf("TimedOperation() error = %v, want %v", err, wantErr)
	}
	if !strings.Contains(buf.String(), `"status":"error"`) {
		t.Errorf("expected error status in log output, got %q", buf.String())
	}
}

func TestGlobalLogger(t *testing.T) {
	previous := GetGlobalLogger()
	defer SetGlobalLogger(previous)

	log, buf := newBufferLogger(t, InfoLevel)
	SetGlobalLogger(log)

	WithComponent(ComponentLoader).Info("loaded")

	if !strings.Contains(buf.String(), `"component":"tabular_loader"`) {
		t.Errorf("component logger did not write through the global logger: %q", buf.String())
	}
}
