package infra

import (
	"testing"
	"time"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
	}

	tests := []struct {
		name       string
		retryCount int
		want       time.Duration
	}{
		{"negative clamps to base", -1, time.Second},
		{"first retry", 0, time.Second},
		{"second retry", 1, 2 * time.Second},
		{"third retry", 2, 4 * time.Second},
		{"capped", 10, 60 * time.Second},
		{"huge count capped", 100, 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Delay(tt.retryCount); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.retryCount, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_JitterBounds(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:  time.Second,
		MaxDelay:   60 * time.Second,
		JitterFrac: 0.5,
	}

	for i := 0; i < 100; i++ {
		d := p.Delay(1)
		if d < 2*time.Second || d >= 3*time.Second {
			t.Fatalf("jittered delay %v outside [2s, 3s)", d)
		}
	}
}
