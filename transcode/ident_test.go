package transcode

import (
	"testing"
	"time"
)

func TestCorrelationIDFormat(t *testing.T) {
	at := time.Date(2026, 8, 25, 9, 30, 12, 987654321, time.UTC)
	if got := newCorrelationIDAt(at); got != "test-2026-08-25T09-30-12Z" {
		t.Fatalf("id = %q", got)
	}
}

func TestCorrelationIDNormalizesZone(t *testing.T) {
	zone := time.FixedZone("AEST", 10*60*60)
	at := time.Date(2026, 8, 25, 19, 30, 12, 0, zone)
	if got := newCorrelationIDAt(at); got != "test-2026-08-25T09-30-12Z" {
		t.Fatalf("id = %q, want UTC rendering", got)
	}
}

func TestCorrelationIDHasNoColons(t *testing.T) {
	for _, r := range NewCorrelationID() {
		if r == ':' {
			t.Fatal("correlation id contains a colon")
		}
	}
}
