package store

import (
	"database/sql"
	"encoding/hex"
	"testing"
	"time"
)

func TestComputeDedupKeyFromID(t *testing.T) {
	body := []byte(`{"id":"evt_123","type":"x"}`)
	if got := computeDedupKey(body); got != "evt_123" {
		t.Fatalf("want evt_123, got %s", got)
	}
}

func TestComputeDedupKeyFromHash(t *testing.T) {
	body := []byte(`{"notId":"x"}`)
	got := computeDedupKey(body)
	// hex-encoded first 8 bytes -> 16 hex chars
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("invalid hex: %v", err)
	}
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	if again := computeDedupKey(body); again != got {
		t.Fatalf("hash key not stable: %s vs %s", got, again)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if v := nullIfEmpty(""); v != nil {
		t.Fatalf("empty -> nil expected")
	}
	if v := nullIfEmpty("x"); v != "x" {
		t.Fatalf("non-empty must pass through, got %v", v)
	}
}

func TestNullTimeRoundTrip(t *testing.T) {
	if v := nullTime(""); v != nil {
		t.Fatalf("empty string -> nil expected")
	}
	if v := nullTime("not a time"); v != nil {
		t.Fatalf("unparseable string -> nil expected")
	}
	v := nullTime("2024-05-01T12:30:00Z")
	tm, ok := v.(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %T", v)
	}
	if got := fmtTime(sql.NullTime{Time: tm, Valid: true}); got != "2024-05-01T12:30:00Z" {
		t.Fatalf("round trip mismatch: %s", got)
	}
	if got := fmtTime(sql.NullTime{}); got != "" {
		t.Fatalf("invalid time must format empty, got %q", got)
	}
}
