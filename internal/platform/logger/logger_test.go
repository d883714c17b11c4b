package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValueRedactsNotesAndHashesSubjects(t *testing.T) {
	if got := sanitizeValue("note", "chorou muito hoje"); got != "[REDACTED]" {
		t.Fatalf("note: want=[REDACTED] got=%v", got)
	}
	if got := sanitizeValue("jwt_token", "abc"); got != "[REDACTED]" {
		t.Fatalf("token: want=[REDACTED] got=%v", got)
	}
	got, ok := sanitizeValue("subject_id", "child-123").(string)
	if !ok || !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("subject_id: unexpected hash %v", got)
	}
	if again := sanitizeValue("subject_id", "child-123"); again != got {
		t.Fatalf("subject_id hash not stable: %v vs %v", again, got)
	}
	if got := sanitizeValue("status", "active"); got != "active" {
		t.Fatalf("status: want=active got=%v", got)
	}
}

func TestSanitizeValueNestedMap(t *testing.T) {
	out, ok := sanitizeValue("payload", map[string]interface{}{"note": "x", "answer": 2}).(map[string]interface{})
	if !ok {
		t.Fatalf("expected map")
	}
	if out["note"] != "[REDACTED]" || out["answer"] != 2 {
		t.Fatalf("nested sanitize: got=%v", out)
	}
}
