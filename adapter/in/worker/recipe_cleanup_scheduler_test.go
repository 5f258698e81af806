package worker

import (
	"testing"
	"time"

	"recipe_server/core/service/cleanup"
	"recipe_server/internal/memstore"
)

func newScheduler(hour int) *CleanupScheduler {
	svc := cleanup.NewService(
		memstore.NewDishStore(),
		memstore.NewRecipeStore(),
		memstore.NewCommentStore(),
		memstore.NewProfileStore(),
		memstore.NewAssetStore(),
		7*24*time.Hour,
		0,
	)
	return NewCleanupScheduler(svc, hour)
}

func TestNextRun(t *testing.T) {
	s := newScheduler(2)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before the hour runs today",
			now:  time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC),
			want: time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the hour runs tomorrow",
			now:  time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "after the hour runs tomorrow",
			now:  time.Date(2026, 3, 10, 14, 45, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.nextRun(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("nextRun(%v) = %v, want %v", tt.now, got, tt.want)
			}
			if !got.After(tt.now) {
				t.Errorf("nextRun must be strictly after now, got %v for %v", got, tt.now)
			}
		})
	}
}

func TestNewCleanupSchedulerClampsHour(t *testing.T) {
	for _, bad := range []int{-1, 24, 99} {
		s := newScheduler(bad)
		if s.hour != 2 {
			t.Errorf("hour %d: expected fallback hour 2, got %d", bad, s.hour)
		}
	}
	s := newScheduler(0)
	if s.hour != 0 {
		t.Errorf("midnight is a valid hour, got %d", s.hour)
	}
}

func TestStartStop(t *testing.T) {
	s := newScheduler(2)
	s.runOnStart = false
	s.Start()
	s.Stop()

	select {
	case <-s.ctx.Done():
	case <-time.After(time.Second):
		t.Error("expected context cancelled after Stop")
	}
}
