package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type sample struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Timeout int    `json:"timeout" yaml:"timeout" toml:"timeout"`
	Nested  struct {
		Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
	} `json:"nested" yaml:"nested" toml:"nested"`
}

func newSample() sample {
	s := sample{Name: "granite", Timeout: 30}
	s.Nested.Enabled = true
	return s
}

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}
	data := "test message"

	output, err := formatter.Format(data)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	expected := "test message\n"
	if string(output) != expected {
		t.Errorf("Format() = %q, want %q", string(output), expected)
	}

	buf := &bytes.Buffer{}
	if err := formatter.FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != expected {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), expected)
	}
}

func TestJSONFormatter(t *testing.T) {
	tests := []struct {
		name   string
		data   interface{}
		indent bool
	}{
		{name: "simple string", data: "test", indent: false},
		{name: "map with indent", data: map[string]string{"key": "value"}, indent: true},
		{name: "struct", data: newSample(), indent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &JSONFormatter{Indent: tt.indent}
			output, err := formatter.Format(tt.data)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			var result interface{}
			if err := json.Unmarshal(output, &result); err != nil {
				t.Errorf("Format() produced invalid JSON: %v", err)
			}
		})
	}
}

func TestYAMLFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&YAMLFormatter{}).FormatTo(buf, newSample()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	if !strings.Contains(buf.String(), "nested:\n  enabled: true") {
		t.Errorf("expected two-space nesting, got:\n%s", buf.String())
	}

	var got sample
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got != newSample() {
		t.Errorf("decoded = %+v, want %+v", got, newSample())
	}
}

func TestTOMLFormatter(t *testing.T) {
	output, err := (&TOMLFormatter{}).Format(newSample())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if !strings.Contains(string(output), "[nested]") {
		t.Errorf("expected [nested] table, got:\n%s", output)
	}

	var got sample
	if err := toml.Unmarshal(output, &got); err != nil {
		t.Fatalf("invalid TOML: %v", err)
	}
	if got != newSample() {
		t.Errorf("decoded = %+v, want %+v", got, newSample())
	}
}

func TestTOMLFormatter_TopLevelKinds(t *testing.T) {
	var nilSample *sample
	s := newSample()

	tests := []struct {
		name    string
		data    interface{}
		wantErr bool
	}{
		{"struct", newSample(), false},
		{"struct pointer", &s, false},
		{"map", map[string]int{"timeout": 30}, false},
		{"string", "just a string", true},
		{"int", 42, true},
		{"slice", []string{"a", "b"}, true},
		{"nil pointer", nilSample, true},
		{"nil", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&TOMLFormatter{}).Format(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("Format(%v) error = %v, wantErr %v", tt.data, err, tt.wantErr)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"toml", FormatTOML, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "*cli.TextFormatter"},
		{FormatJSON, "*cli.JSONFormatter"},
		{FormatYAML, "*cli.YAMLFormatter"},
		{FormatTOML, "*cli.TOMLFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			formatter, err := NewFormatter(tt.format)
			if err != nil {
				t.Fatalf("NewFormatter(%q) error = %v", tt.format, err)
			}
			if got := fmt.Sprintf("%T", formatter); got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}

	if _, err := NewFormatter("csv"); err == nil {
		t.Error("NewFormatter(csv) expected error")
	}
}
