package backoff_test

import (
	"testing"
	"time"

	"github.com/notifyrelay/pipeline/internal/backoff"
)

func TestDelay_Exponential(t *testing.T) {
	const base, cap = int64(1000), int64(60000)

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 1000 * time.Millisecond},
		{1, 2000 * time.Millisecond},
		{2, 4000 * time.Millisecond},
		{3, 8000 * time.Millisecond},
	}
	for _, tc := range tests {
		if got := backoff.Delay(tc.retryCount, base, cap); got != tc.want {
			t.Errorf("retryCount=%d: expected %v, got %v", tc.retryCount, tc.want, got)
		}
	}
}

func TestDelay_CappedAtCeiling(t *testing.T) {
	got := backoff.Delay(10, 1000, 60000)
	if got != 60000*time.Millisecond {
		t.Fatalf("expected delay capped at 60s, got %v", got)
	}
}

func TestDelay_NegativeRetryCountTreatedAsZero(t *testing.T) {
	got := backoff.Delay(-1, 1000, 60000)
	if got != 1000*time.Millisecond {
		t.Fatalf("expected base delay for negative retry count, got %v", got)
	}
}
