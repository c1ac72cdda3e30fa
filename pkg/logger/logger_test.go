package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"igfeedprobe/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config with info level",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level and json",
			cfg:     &config.LoggingConfig{Level: "debug", Format: "json"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "invalid"},
			wantErr: true,
		},
		{
			name:    "config with file output",
			cfg:     &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "probe.log")},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func newJSONLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: level, Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}
	return log, &buf
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newJSONLogger(t, "warn")

	log.Info("hidden message")
	log.Warn("visible message")

	output := buf.String()
	if strings.Contains(output, "hidden message") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(output, "visible message") {
		t.Error("Warn message not found in output")
	}
}

func TestWithFields(t *testing.T) {
	log, buf := newJSONLogger(t, "debug")

	log.WithFields(map[string]interface{}{
		"variant": "feed_view_mode",
		"pages":   3,
		"success": true,
	}).Info("variant finished")

	output := buf.String()
	if !strings.Contains(output, `"variant":"feed_view_mode"`) {
		t.Error("String field not found in output")
	}
	if !strings.Contains(output, `"pages":3`) {
		t.Error("Int field not found in output")
	}
	if !strings.Contains(output, `"success":true`) {
		t.Error("Bool field not found in output")
	}
	if !strings.Contains(output, `"app":"igfeedprobe"`) {
		t.Error("App field not found in output")
	}
}

func TestWithError(t *testing.T) {
	log, buf := newJSONLogger(t, "debug")

	if log.WithError(nil) != log {
		t.Error("WithError(nil) should return the same logger")
	}

	log.WithError(errors.New("page request failed")).Error("pagination stopped")

	output := buf.String()
	if !strings.Contains(output, "pagination stopped") || !strings.Contains(output, "page request failed") {
		t.Errorf("Error not rendered in output: %s", output)
	}
}

func TestFieldChainingDoesNotLeak(t *testing.T) {
	log, buf := newJSONLogger(t, "debug")

	child := log.WithField("field1", "value1")
	child.WithField("field2", "value2").Info("chained fields")
	child.Info("parent only")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"field2":"value2"`) {
		t.Error("Field2 not found in chained output")
	}
	if strings.Contains(lines[1], "field2") {
		t.Error("Child field leaked into parent logger")
	}
}

func TestFieldTypes(t *testing.T) {
	log, buf := newJSONLogger(t, "debug")

	log.InfoWithFields("all types", map[string]interface{}{
		"int64":    int64(456),
		"float":    3.14,
		"time":     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
		"ints":     []int{1, 2},
		"err":      errors.New("boom"),
		"custom":   struct{ Name string }{Name: "test"},
	})

	output := buf.String()
	if !strings.Contains(output, `"strings":["a","b"]`) {
		t.Errorf("Slice field not rendered: %s", output)
	}
	if !strings.Contains(output, `"err":"boom"`) {
		t.Errorf("Error field not rendered: %s", output)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.log")
	var console bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "info", File: path}, &console)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	log.Info("written to both sinks")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to both sinks") {
		t.Error("Message missing from log file")
	}
	if !strings.Contains(console.String(), "written to both sinks") {
		t.Error("Message missing from console output")
	}
}

func TestHelpers(t *testing.T) {
	log := NewTestLogger()

	LogRequest(log, "POST", "feed/timeline/", 200, 120*time.Millisecond)
	LogRequest(log, "POST", "feed/following/", 404, time.Millisecond)
	LogRequest(log, "POST", "feed/timeline/", 502, time.Millisecond)
	LogRateLimit(log, "feed/timeline/", time.Second)
	LogComponentStart(log, "runner", map[string]interface{}{"variants": 6})

	if len(log.GetMessagesByLevel("DEBUG")) != 2 {
		t.Errorf("Expected 2 debug messages, got %d", len(log.GetMessagesByLevel("DEBUG")))
	}
	if len(log.GetMessagesByLevel("WARN")) != 1 {
		t.Error("Expected client error to be logged as warning")
	}
	if !log.HasError() {
		t.Error("Expected server error to be logged as error")
	}
	if !log.HasMessage("Component started") {
		t.Error("Expected component start message")
	}
}

func TestTestLoggerScopes(t *testing.T) {
	log := NewTestLogger()

	log.WithField("variant", "combined").WithError(errors.New("boom")).Warn("scoped")
	log.Info("plain")

	messages := log.GetMessages()
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Fields["variant"] != "combined" || messages[0].Error == nil {
		t.Errorf("Scoped message lost context: %+v", messages[0])
	}
	if messages[1].Fields != nil {
		t.Errorf("Plain message should carry no fields: %+v", messages[1])
	}

	log.Clear()
	if len(log.GetMessages()) != 0 || log.String() != "" {
		t.Error("Clear should drop all messages")
	}
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	log.WithField("k", "v").WithError(errors.New("x")).Error("discarded")
	log.InfoWithFields("discarded", nil)
}
