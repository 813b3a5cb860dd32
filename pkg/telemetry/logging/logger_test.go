package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid JSON config", config: Config{Level: "INFO", Format: "json"}},
		{name: "valid text config", config: Config{Level: "debug", Format: "text"}},
		{name: "empty config uses defaults", config: Config{}},
		{name: "invalid log level", config: Config{Level: "verbose"}, wantErr: true},
		{name: "warn is not a level name", config: Config{Level: "WARN"}, wantErr: true},
		{name: "invalid format", config: Config{Format: "console"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"CRITICAL", LevelCritical},
		{"error", slog.LevelError},
		{"Warning", slog.LevelWarn},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"notset", LevelNotset},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if err != nil {
				t.Fatalf("ParseLevel(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"TRACE", " INFO ", "debug\n"} {
		if _, err := ParseLevel(bad); err == nil {
			t.Errorf("ParseLevel(%q) expected error", bad)
		}
	}
}

func TestLevelName(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{LevelCritical, "CRITICAL"},
		{LevelCritical + 4, "CRITICAL"},
		{slog.LevelError, "ERROR"},
		{slog.LevelWarn, "WARNING"},
		{slog.LevelInfo, "INFO"},
		{slog.LevelDebug, "DEBUG"},
		{LevelNotset, "NOTSET"},
	}

	for _, tt := range tests {
		if got := LevelName(tt.level); got != tt.want {
			t.Errorf("LevelName(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		records = append(records, rec)
	}
	return records
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "WARNING", Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	Critical(ctx, logger, "critical message")

	records := decodeLines(t, buf)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3: %s", len(records), buf.String())
	}

	wantLevels := []string{"WARNING", "ERROR", "CRITICAL"}
	for i, want := range wantLevels {
		if got := records[i]["level"]; got != want {
			t.Errorf("record %d level = %v, want %s", i, got, want)
		}
	}
}

func TestLogger_NotsetEnablesEverything(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "NOTSET", Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Log(context.Background(), LevelNotset, "lowest")
	logger.Debug("debug")

	records := decodeLines(t, buf)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["level"] != "NOTSET" {
		t.Errorf("level = %v, want NOTSET", records[0]["level"])
	}
}

func TestLogger_TextFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "INFO", Format: "text", Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Warn("careful", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "level=WARNING") {
		t.Errorf("text output missing level=WARNING: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("text output missing attribute: %s", out)
	}
}

func TestLogger_RequestIDFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-123")
	logger.InfoContext(ctx, "with id")
	logger.With("component", "test").InfoContext(ctx, "derived logger")
	logger.Info("without id")

	records := decodeLines(t, buf)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0]["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", records[0]["request_id"])
	}
	if records[1]["request_id"] != "req-123" || records[1]["component"] != "test" {
		t.Errorf("derived logger record = %v", records[1])
	}
	if _, ok := records[2]["request_id"]; ok {
		t.Error("record without context should not carry request_id")
	}
}

func TestLogger_TraceFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "inside span")
	span.End()

	records := decodeLines(t, buf)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if got := records[0]["trace_id"]; got != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", got, span.SpanContext().TraceID())
	}
	if got := records[0]["span_id"]; got != span.SpanContext().SpanID().String() {
		t.Errorf("span_id = %v, want %s", got, span.SpanContext().SpanID())
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
