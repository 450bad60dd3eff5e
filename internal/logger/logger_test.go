package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Init(Config{Level: "info", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	log.Debug().Msg("hidden")
	log.Info().Str("symbol", "600519").Msg("signal")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["symbol"] != "600519" || entry["message"] != "signal" {
		t.Errorf("entry = %v", entry)
	}
}

func TestInit_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"level", Config{Level: "loud"}},
		{"format", Config{Format: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Init(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
