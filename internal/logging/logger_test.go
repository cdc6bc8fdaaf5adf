package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   LogLevel
	}{
		{
			name:   "default config",
			config: Config{Level: LogLevelNormal, Format: "text"},
			want:   LogLevelNormal,
		},
		{
			name:   "verbose config",
			config: Config{Level: LogLevelVerbose, Format: "json"},
			want:   LogLevelVerbose,
		},
		{
			name:   "quiet config",
			config: Config{Level: LogLevelQuiet, Format: "text"},
			want:   LogLevelQuiet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf

			logger, err := NewLogger(tt.config)
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}

			if logger.GetLevel() != tt.want {
				t.Errorf("NewLogger() level = %v, want %v", logger.GetLevel(), tt.want)
			}
		})
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelVerbose, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.WithFields(map[string]interface{}{
		"dataset": "sales",
		"fields":  42,
	}).Info("test message")

	output := buf.String()
	if !strings.Contains(output, "dataset=sales") {
		t.Errorf("Expected output to contain dataset=sales, got: %s", output)
	}
	if !strings.Contains(output, "fields=42") {
		t.Errorf("Expected output to contain fields=42, got: %s", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelVerbose, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	ctx := CreateContextWithRunID(context.Background(), "run-123")
	logger.WithContext(ctx).Info("message with context")

	if !strings.Contains(buf.String(), "run_id=run-123") {
		t.Errorf("Expected output to contain run_id=run-123, got: %s", buf.String())
	}
	if GetRunIDFromContext(context.Background()) != "" {
		t.Error("Expected empty run id for bare context")
	}
}

func TestQuietLevelSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelQuiet, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("hidden")
	logger.Warn("hidden too")
	logger.Error("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("Expected info and warn to be suppressed, got: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("Expected error to be logged, got: %s", output)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.WithField("table", "sales.orders").Info("restored")

	output := buf.String()
	if !strings.Contains(output, `"table":"sales.orders"`) {
		t.Errorf("Expected json field, got: %s", output)
	}
	if !strings.Contains(output, `"msg":"restored"`) {
		t.Errorf("Expected json message, got: %s", output)
	}
}

func TestLogFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "run.log")

	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, LogFile: path})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("to both")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("Expected log file to contain message, got: %s", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("Expected output to contain message, got: %s", buf.String())
	}
}

func TestLogOperationStart(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelVerbose, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	done := logger.LogOperationStart("restore_all", map[string]interface{}{"store": "firestore"})
	done(nil)

	output := buf.String()
	if !strings.Contains(output, "Operation started") || !strings.Contains(output, "Operation completed") {
		t.Errorf("Expected start and completion messages, got: %s", output)
	}
	if !strings.Contains(output, "store=firestore") {
		t.Errorf("Expected custom field, got: %s", output)
	}

	buf.Reset()
	done = logger.LogOperationStart("backup_all", nil)
	done(errors.New("list datasets failed"))

	output = buf.String()
	if !strings.Contains(output, "Operation failed") || !strings.Contains(output, "list datasets failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"":        LogLevelNormal,
		"info":    LogLevelNormal,
		"warn":    LogLevelQuiet,
		"error":   LogLevelQuiet,
		"verbose": LogLevelVerbose,
		"debug":   LogLevelDebug,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Debug("not yet")
	logger.SetLevel(LogLevelVerbose)
	logger.Debug("now visible")

	if strings.Contains(buf.String(), "not yet") {
		t.Errorf("Expected debug to be hidden at normal level, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("Expected debug after SetLevel, got: %s", buf.String())
	}
}
