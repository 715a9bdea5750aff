package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"expensy/internal/core"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"", slog.LevelInfo, true},
		{"DEBUG", slog.LevelDebug, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ParseLevel(%q) = %v,%v", tc.in, got, err)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}).WithComponent(ComponentLedger)

	e := core.Expense{ID: "ID-1", Amount: core.Money{Cents: 4590}, Category: core.CategoryFood}
	l.Info("appended", NewFields().WithExpense(e).WithOperation(OpAppend).ToSlice()...)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentLedger || rec[FieldExpenseID] != "ID-1" || rec[FieldOperation] != OpAppend {
		t.Fatalf("record = %v", rec)
	}
	if rec[FieldAmountCents].(float64) != 4590 {
		t.Fatalf("amount = %v", rec[FieldAmountCents])
	}
}

func TestStructuredLoggerError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	sl.LogError(context.Background(), "persist failed", errors.New("disk full"), ComponentStorage, OpPersist, nil)
	out := buf.String()
	for _, want := range []string{"persist failed", "disk full", "component=storage", "operation=persist"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
