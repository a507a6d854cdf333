package ctxlog

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "text", &buf)
	ctx := WithLogger(context.Background(), logger)

	FromContext(ctx).Debug("hello", "target", "lib.A")
	if !strings.Contains(buf.String(), "target=lib.A") {
		t.Errorf("log output %q does not contain attribute", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without logger returned nil")
	}
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantOut bool
		want    string
	}{
		{"debug", "text", true, "msg=hello"},
		{"info", "text", false, ""},
		{"warn", "json", false, ""},
		{"bogus", "json", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.level+"-"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			New(tt.level, tt.format, &buf).Debug("hello")
			if got := buf.Len() > 0; got != tt.wantOut {
				t.Fatalf("debug record written = %v, want %v", got, tt.wantOut)
			}
			if tt.want != "" && !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}
