package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_ConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "client.log")

	log, err := New(Config{Level: "debug", File: path, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("hello")
	log.Debug("details")
	log.Sync() //nolint:errcheck

	if !strings.Contains(console.String(), "hello") || !strings.Contains(console.String(), "details") {
		t.Errorf("console output: %q", console.String())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	first := strings.SplitN(strings.TrimSpace(string(raw)), "\n", 2)[0]
	var entry map[string]any
	if err := json.Unmarshal([]byte(first), &entry); err != nil {
		t.Fatalf("file log is not JSON: %q", first)
	}
	if entry["msg"] != "hello" || entry["logger"] != "echolink" {
		t.Errorf("file entry: %v", entry)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var console bytes.Buffer
	log, err := New(Config{Level: "warn", Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("quiet")
	log.Warn("loud")

	out := console.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Errorf("level filtering: %q", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
