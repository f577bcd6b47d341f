package utils

import (
	"context"
	"testing"
	"time"
)

func TestNextTick(t *testing.T) {
	tests := []struct {
		name     string
		now      string
		interval time.Duration
		want     string
	}{
		{"mid minute", "2024-03-01T12:00:30Z", time.Minute, "2024-03-01T12:01:00Z"},
		{"on the boundary", "2024-03-01T12:00:00Z", time.Minute, "2024-03-01T12:01:00Z"},
		{"five minute grid", "2024-03-01T12:03:10Z", 5 * time.Minute, "2024-03-01T12:05:00Z"},
		{"hourly grid", "2024-03-01T12:59:59Z", time.Hour, "2024-03-01T13:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now, _ := time.Parse(time.RFC3339, tt.now)
			want, _ := time.Parse(time.RFC3339, tt.want)
			if got := NextTick(now, tt.interval); !got.Equal(want) {
				t.Errorf("NextTick(%s, %s) = %s, want %s", tt.now, tt.interval, got, want)
			}
		})
	}
}

func TestSleepUntilNextTickHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := SleepUntilNextTick(ctx, time.Hour); err == nil {
		t.Error("err = nil, want context error after cancel")
	}
}
