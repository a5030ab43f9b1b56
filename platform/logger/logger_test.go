package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithContextAddsTenantAndTaskIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), TenantIDKey, "tenant-1")
	ctx = context.WithValue(ctx, TaskIDKey, "task-9")
	log.WithContext(ctx).Info("refresh done")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", buf.String(), err)
	}
	if line["tenant_id"] != "tenant-1" {
		t.Fatalf("expected tenant_id tenant-1, got %v", line["tenant_id"])
	}
	if line["task_id"] != "task-9" {
		t.Fatalf("expected task_id task-9, got %v", line["task_id"])
	}
}

func TestWithContextWithoutValuesKeepsLogger(t *testing.T) {
	log := Nop()
	if got := log.WithContext(context.Background()); got != log {
		t.Fatalf("expected the same logger when the context carries no ids")
	}
}
