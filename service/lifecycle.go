package service

import (
	"time"

	"survey-ledger/models"
)

// Lifecycle owns the survey's voting window and finalization flag. It
// is not safe for concurrent use on its own; SurveyService serializes
// access.
type Lifecycle struct {
	votingStart time.Time
	votingEnd   time.Time
	finalized   bool
}

// NewLifecycle opens a voting window starting at start. The duration
// bounds only apply at creation; extensions are not re-capped.
func NewLifecycle(start time.Time, duration time.Duration) (*Lifecycle, error) {
	if duration < models.MinDuration || duration > models.MaxDuration {
		return nil, models.ErrInvalidDuration
	}
	return &Lifecycle{
		votingStart: start,
		votingEnd:   start.Add(duration),
	}, nil
}

// RestoreLifecycle rebuilds a lifecycle from persisted state.
func RestoreLifecycle(start, end time.Time, finalized bool) *Lifecycle {
	return &Lifecycle{votingStart: start, votingEnd: end, finalized: finalized}
}

// Status is a pure function of (now, window, finalized). Finalization
// dominates the time window: a finalized survey reports FINALIZED even
// for instants inside the original voting period.
func (l *Lifecycle) Status(now time.Time) models.VotingStatus {
	if l.finalized {
		return models.StatusFinalized
	}
	if now.Before(l.votingStart) {
		return models.StatusNotStarted
	}
	if now.After(l.votingEnd) {
		return models.StatusEnded
	}
	return models.StatusActive
}

// Extend moves the voting end strictly later. The creation-time 30-day
// cap is deliberately not re-checked against the new window.
func (l *Lifecycle) Extend(newEnd time.Time) (time.Time, error) {
	if l.finalized {
		return time.Time{}, models.ErrAlreadyFinalized
	}
	if !newEnd.After(l.votingEnd) {
		return time.Time{}, models.ErrInvalidDuration
	}

	oldEnd := l.votingEnd
	l.votingEnd = newEnd
	return oldEnd, nil
}

// Finalize closes the survey permanently. Only allowed strictly after
// the voting window.
func (l *Lifecycle) Finalize(now time.Time) error {
	if l.finalized {
		return models.ErrAlreadyFinalized
	}
	if !now.After(l.votingEnd) {
		return models.ErrVotingNotEnded
	}
	l.finalized = true
	return nil
}

// TimeRemaining returns how long voting stays open, zero once closed.
func (l *Lifecycle) TimeRemaining(now time.Time) time.Duration {
	if now.After(l.votingEnd) {
		return 0
	}
	return l.votingEnd.Sub(now)
}

func (l *Lifecycle) Finalized() bool {
	return l.finalized
}

// Window returns the voting start and current end.
func (l *Lifecycle) Window() (time.Time, time.Time) {
	return l.votingStart, l.votingEnd
}
