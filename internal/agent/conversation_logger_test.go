package agent

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConversationLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	event := ConversationLogEvent{
		ExtensionUserID: "ext-1",
		SessionID:       "sess-1",
		Channel:         "chat_http",
		Direction:       "outbound",
		EventType:       "chat_user_message",
		ContentRaw:      "покажи  мои\n вакансии",
	}
	logger.Log(event)

	path := filepath.Join(dir, "ext-1", "sess-1.ndjson")
	line := waitForLogLine(t, path)
	var got ConversationLogEvent
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.ContentRaw != "покажи  мои\n вакансии" {
		t.Fatalf("unexpected ContentRaw: %q", got.ContentRaw)
	}
	if got.Content != "покажи мои вакансии" {
		t.Fatalf("expected cleaned content, got %q", got.Content)
	}
}

func TestCleanForReadabilityStripsANSI(t *testing.T) {
	t.Parallel()

	raw := "\x1b[31merror\x1b[0m plain"
	clean := cleanForReadability(raw)
	if strings.Contains(clean, "\x1b[31m") {
		t.Fatalf("expected ANSI sequence to be stripped: %q", clean)
	}
	if !strings.Contains(clean, "error plain") {
		t.Fatalf("expected readable text to remain: %q", clean)
	}
}

func TestConversationLoggerSanitizesPathParts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 4,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}

	logger.Log(ConversationLogEvent{
		ExtensionUserID: "../../etc",
		SessionID:       "a/b",
		ContentRaw:      "x",
	})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "_2e_2e_2f_2e_2e_2fetc", "a_2fb.ndjson")); err != nil {
		t.Fatalf("expected sanitized log path: %v", err)
	}
}

func TestSafePathPartKeepsIDsDistinct(t *testing.T) {
	t.Parallel()

	ids := []string{"a.b", "a_b", "a/b", "a-b", "ab", "", "_", "a_2eb"}
	seen := make(map[string]string, len(ids))
	for _, id := range ids {
		part := safePathPart(id)
		if strings.ContainsAny(part, "./\\") {
			t.Fatalf("safePathPart(%q) = %q still carries path characters", id, part)
		}
		if prev, ok := seen[part]; ok {
			t.Fatalf("ids %q and %q both encode to %q", prev, id, part)
		}
		seen[part] = id
	}

	if got := safePathPart("ext-1"); got != "ext-1" {
		t.Fatalf("expected plain ids to pass through, got %q", got)
	}
}

func TestConversationLoggerDisabledIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	logger.Log(ConversationLogEvent{SessionID: "s"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
