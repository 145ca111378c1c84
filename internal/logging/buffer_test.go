package logging

import (
	"fmt"
	"testing"
	"time"
)

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := range 5 {
		rb.Write(LogEntry{Message: fmt.Sprintf("m%d", i)})
	}

	if rb.Count() != 3 {
		t.Fatalf("expected 3 entries, got %d", rb.Count())
	}

	all := rb.ReadAll()
	want := []string{"m2", "m3", "m4"}
	for i, entry := range all {
		if entry.Message != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], entry.Message)
		}
	}
}

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(4)
	if rb.Tail(2) != nil {
		t.Error("empty buffer should return nil")
	}

	for i := range 6 {
		rb.Write(LogEntry{Message: fmt.Sprintf("m%d", i)})
	}

	tail := rb.Tail(2)
	if len(tail) != 2 || tail[0].Message != "m4" || tail[1].Message != "m5" {
		t.Errorf("unexpected tail %+v", tail)
	}
	if got := rb.Tail(10); len(got) != 4 || got[0].Message != "m2" {
		t.Errorf("oversized tail should return everything, got %+v", got)
	}
}

func TestFormatLogLine(t *testing.T) {
	entry := LogEntry{
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:      "warn",
		Module:     "supervisor",
		Message:    "Engine exited unexpectedly",
		Attributes: map[string]any{"pid": 42, "exit_code": 1},
	}

	want := "2026-01-02T03:04:05Z [WARN] [supervisor] Engine exited unexpectedly exit_code=1 pid=42"
	if got := FormatLogLine(entry); got != want {
		t.Errorf("FormatLogLine() =\n%q\nwant\n%q", got, want)
	}
}
