package models

import (
	"bytes"
	"encoding/binary"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EventKind names the lifecycle and access-control events a survey
// instance emits for external indexers.
type EventKind string

const (
	EventSurveyCreated  EventKind = "survey_created"
	EventVoteCast       EventKind = "vote_cast"
	EventVotingExtended EventKind = "voting_extended"
	EventViewerQueued   EventKind = "viewer_queued"
	EventViewerRemoved  EventKind = "viewer_removed"
	EventViewerGranted  EventKind = "viewer_granted"
	EventFinalized      EventKind = "finalized"
)

// Event is one entry of the append-only, hash-chained event log. Each
// event commits to its predecessor so an indexer can detect a rewritten
// history after reloading a snapshot.
type Event struct {
	Seq       uint64          `json:"seq"`
	ID        string          `json:"id"`
	Kind      EventKind       `json:"kind"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	PrevHash  []byte          `json:"prev_hash"`
	Hash      []byte          `json:"hash"`
}

// Event payloads, serialized into Event.Data.

type SurveyCreatedEvent struct {
	Title        string         `json:"title"`
	OptionsCount int            `json:"options_count"`
	StartTime    int64          `json:"start_time"`
	EndTime      int64          `json:"end_time"`
	Admin        common.Address `json:"admin"`
}

type VoteCastEvent struct {
	Voter     common.Address `json:"voter"`
	OptionID  int            `json:"option_id"`
	Timestamp int64          `json:"timestamp"`
}

type VotingExtendedEvent struct {
	OldEnd int64 `json:"old_end"`
	NewEnd int64 `json:"new_end"`
}

type ViewerEvent struct {
	Viewer common.Address `json:"viewer"`
}

type FinalizedEvent struct {
	Timestamp   int64 `json:"timestamp"`
	TotalVoters int   `json:"total_voters"`
}

// NewEvent builds an event linked to the previous log entry and seals
// it with its own hash.
func NewEvent(seq uint64, id string, kind EventKind, timestamp int64, data json.RawMessage, prevHash []byte) *Event {
	event := &Event{
		Seq:       seq,
		ID:        id,
		Kind:      kind,
		Timestamp: timestamp,
		Data:      data,
		PrevHash:  prevHash,
	}
	event.Hash = event.calculateHash()
	return event
}

func (e *Event) calculateHash() []byte {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, e.Seq)
	binary.Write(buffer, binary.BigEndian, e.Timestamp)
	buffer.WriteString(string(e.Kind))
	buffer.Write(e.Data)
	buffer.Write(e.PrevHash)

	return crypto.Keccak256(buffer.Bytes())
}

// Validate recomputes the event hash and checks it against the stored one.
func (e *Event) Validate() bool {
	return bytes.Equal(e.calculateHash(), e.Hash)
}

// ValidateEventLog checks hashes, sequence numbers and predecessor
// links across the whole log.
func ValidateEventLog(events []*Event) bool {
	for i, event := range events {
		if !event.Validate() {
			return false
		}
		if event.Seq != uint64(i) {
			return false
		}
		if i > 0 && !bytes.Equal(event.PrevHash, events[i-1].Hash) {
			return false
		}
	}
	return true
}
