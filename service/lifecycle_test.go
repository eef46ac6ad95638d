package service

import (
	"errors"
	"testing"
	"time"

	"survey-ledger/models"
)

func TestNewLifecycleDurationBounds(t *testing.T) {
	start := time.Unix(1700000000, 0)

	tests := []struct {
		name     string
		duration time.Duration
		wantErr  error
	}{
		{name: "minimum one hour", duration: time.Hour},
		{name: "one week", duration: 7 * 24 * time.Hour},
		{name: "maximum thirty days", duration: 720 * time.Hour},
		{name: "below minimum", duration: 59 * time.Minute, wantErr: models.ErrInvalidDuration},
		{name: "zero", duration: 0, wantErr: models.ErrInvalidDuration},
		{name: "negative", duration: -time.Hour, wantErr: models.ErrInvalidDuration},
		{name: "above maximum", duration: 721 * time.Hour, wantErr: models.ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lifecycle, err := NewLifecycle(start, tt.duration)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil {
				gotStart, gotEnd := lifecycle.Window()
				if !gotStart.Equal(start) || !gotEnd.Equal(start.Add(tt.duration)) {
					t.Errorf("Window (%v, %v) does not match configuration", gotStart, gotEnd)
				}
			}
		})
	}
}

func TestLifecycleStatus(t *testing.T) {
	start := time.Unix(1700000000, 0)
	lifecycle, err := NewLifecycle(start, 24*time.Hour)
	if err != nil {
		t.Fatalf("Failed to create lifecycle: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want models.VotingStatus
	}{
		{name: "before window", now: start.Add(-time.Minute), want: models.StatusNotStarted},
		{name: "at start", now: start, want: models.StatusActive},
		{name: "mid window", now: start.Add(12 * time.Hour), want: models.StatusActive},
		{name: "at end", now: start.Add(24 * time.Hour), want: models.StatusActive},
		{name: "after end", now: start.Add(24*time.Hour + time.Second), want: models.StatusEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lifecycle.Status(tt.now); got != tt.want {
				t.Errorf("Status(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestFinalizedStatusDominatesWindow(t *testing.T) {
	start := time.Unix(1700000000, 0)
	lifecycle := RestoreLifecycle(start, start.Add(24*time.Hour), true)

	// Even instants inside the original window report FINALIZED
	for _, now := range []time.Time{start.Add(-time.Hour), start.Add(time.Hour), start.Add(48 * time.Hour)} {
		if got := lifecycle.Status(now); got != models.StatusFinalized {
			t.Errorf("Status(%v) = %v, want %v", now, got, models.StatusFinalized)
		}
	}
}

func TestLifecycleExtend(t *testing.T) {
	start := time.Unix(1700000000, 0)

	t.Run("moves end strictly later", func(t *testing.T) {
		lifecycle, _ := NewLifecycle(start, 24*time.Hour)
		originalEnd := start.Add(24 * time.Hour)

		oldEnd, err := lifecycle.Extend(originalEnd.Add(time.Hour))
		if err != nil {
			t.Fatalf("Extend failed: %v", err)
		}
		if !oldEnd.Equal(originalEnd) {
			t.Errorf("Extend returned old end %v, want %v", oldEnd, originalEnd)
		}
		if _, end := lifecycle.Window(); !end.Equal(originalEnd.Add(time.Hour)) {
			t.Errorf("End not updated, got %v", end)
		}
	})

	t.Run("rejects non-later end", func(t *testing.T) {
		lifecycle, _ := NewLifecycle(start, 24*time.Hour)
		end := start.Add(24 * time.Hour)

		for _, newEnd := range []time.Time{end, end.Add(-time.Hour)} {
			if _, err := lifecycle.Extend(newEnd); !errors.Is(err, models.ErrInvalidDuration) {
				t.Errorf("Extend(%v): expected %v, got %v", newEnd, models.ErrInvalidDuration, err)
			}
		}
	})

	t.Run("may exceed the creation-time cap", func(t *testing.T) {
		lifecycle, _ := NewLifecycle(start, 720*time.Hour)

		if _, err := lifecycle.Extend(start.Add(1000 * time.Hour)); err != nil {
			t.Errorf("Extension past the creation cap should succeed, got %v", err)
		}
	})

	t.Run("rejected once finalized", func(t *testing.T) {
		lifecycle := RestoreLifecycle(start, start.Add(time.Hour), true)

		if _, err := lifecycle.Extend(start.Add(48 * time.Hour)); !errors.Is(err, models.ErrAlreadyFinalized) {
			t.Errorf("Expected %v, got %v", models.ErrAlreadyFinalized, err)
		}
	})
}

func TestLifecycleFinalize(t *testing.T) {
	start := time.Unix(1700000000, 0)
	end := start.Add(24 * time.Hour)

	t.Run("requires the window to have passed", func(t *testing.T) {
		lifecycle, _ := NewLifecycle(start, 24*time.Hour)

		for _, now := range []time.Time{start, start.Add(time.Hour), end} {
			if err := lifecycle.Finalize(now); !errors.Is(err, models.ErrVotingNotEnded) {
				t.Errorf("Finalize(%v): expected %v, got %v", now, models.ErrVotingNotEnded, err)
			}
		}

		if err := lifecycle.Finalize(end.Add(time.Second)); err != nil {
			t.Fatalf("Finalize after window failed: %v", err)
		}
		if !lifecycle.Finalized() {
			t.Error("Finalized flag not set")
		}
	})

	t.Run("idempotence is an error", func(t *testing.T) {
		lifecycle, _ := NewLifecycle(start, 24*time.Hour)
		if err := lifecycle.Finalize(end.Add(time.Second)); err != nil {
			t.Fatalf("Finalize failed: %v", err)
		}
		if err := lifecycle.Finalize(end.Add(time.Minute)); !errors.Is(err, models.ErrAlreadyFinalized) {
			t.Errorf("Expected %v, got %v", models.ErrAlreadyFinalized, err)
		}
	})
}

func TestLifecycleTimeRemaining(t *testing.T) {
	start := time.Unix(1700000000, 0)
	lifecycle, _ := NewLifecycle(start, 2*time.Hour)

	if got := lifecycle.TimeRemaining(start.Add(30 * time.Minute)); got != 90*time.Minute {
		t.Errorf("Expected 90m remaining, got %v", got)
	}
	if got := lifecycle.TimeRemaining(start.Add(3 * time.Hour)); got != 0 {
		t.Errorf("Expected 0 after the window, got %v", got)
	}
}
