package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Survey construction limits
const (
	MinOptions  = 2
	MaxOptions  = 32
	MinDuration = 1 * time.Hour
	MaxDuration = 30 * 24 * time.Hour
)

// VotingStatus describes where a survey is in its lifecycle.
type VotingStatus int

const (
	StatusNotStarted VotingStatus = iota
	StatusActive
	StatusEnded
	StatusFinalized
)

func (s VotingStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	case StatusFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// SurveyInfo is the public summary of a survey instance.
type SurveyInfo struct {
	Title        string `json:"title"`
	StartTime    int64  `json:"start_time"`
	EndTime      int64  `json:"end_time"`
	Finalized    bool   `json:"finalized"`
	OptionsCount int    `json:"options_count"`
	VoterCount   int    `json:"voter_count"`
}

// ViewerEntry tracks a single identity's decryption permissions.
// Queued may only be true before finalization; Granted may only become
// true once the survey is finalized.
type ViewerEntry struct {
	Queued  bool `json:"queued"`
	Granted bool `json:"granted"`
}

// IsZeroAddress reports whether id is the null identity.
func IsZeroAddress(id common.Address) bool {
	return id == (common.Address{})
}
