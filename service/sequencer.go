package service

import (
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Sequencer serializes inbound vote submissions into the survey
// instance. The ledger's invariants hold under any interleaving; the
// sequencer fixes one order for submissions arriving over the wire and
// keeps the transport handlers from blocking on the ledger lock.
type Sequencer struct {
	survey       *SurveyService
	voteCh       chan *VoteRequest
	processingWg sync.WaitGroup
	shutdownCh   chan struct{}
}

// VoteRequest represents a queued vote submission.
type VoteRequest struct {
	Voter      common.Address
	OptionID   int
	Ciphertext []byte
	Proof      []byte
	ResultCh   chan<- *VoteResult
}

// VoteResult contains the outcome of a sequenced submission.
type VoteResult struct {
	Success      bool
	Err          error
	ErrorMessage string
	Timestamp    int64
}

// NewSequencer creates a sequencer with a bounded submission queue.
func NewSequencer(survey *SurveyService, queueSize int) *Sequencer {
	return &Sequencer{
		survey:     survey,
		voteCh:     make(chan *VoteRequest, queueSize),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins processing queued submissions.
func (sq *Sequencer) Start() {
	sq.processingWg.Add(1)
	go sq.voteWorker()
}

// Stop gracefully shuts down the sequencer.
func (sq *Sequencer) Stop() {
	close(sq.shutdownCh)
	sq.processingWg.Wait()
}

// SubmitVote queues a vote and returns a channel delivering its result.
// A full queue fails immediately rather than blocking the caller.
func (sq *Sequencer) SubmitVote(voter common.Address, optionID int, ciphertext, proof []byte) <-chan *VoteResult {
	resultCh := make(chan *VoteResult, 1)
	select {
	case sq.voteCh <- &VoteRequest{
		Voter:      voter,
		OptionID:   optionID,
		Ciphertext: ciphertext,
		Proof:      proof,
		ResultCh:   resultCh,
	}:
		return resultCh
	default:
		resultCh <- &VoteResult{
			Success:      false,
			ErrorMessage: "vote queue is full",
		}
		close(resultCh)
		return resultCh
	}
}

// voteWorker applies queued submissions one at a time.
func (sq *Sequencer) voteWorker() {
	defer sq.processingWg.Done()

	for {
		select {
		case <-sq.shutdownCh:
			return
		case req := <-sq.voteCh:
			sq.survey.metrics.RecordVoteStart()
			startTime := time.Now()

			err := sq.survey.CastVote(req.Voter, req.OptionID, req.Ciphertext, req.Proof)

			sq.survey.metrics.RecordVoteEnd(time.Since(startTime))

			result := &VoteResult{
				Success:   err == nil,
				Timestamp: time.Now().Unix(),
			}
			if err != nil {
				result.Err = err
				result.ErrorMessage = err.Error()
				log.Printf("Vote from %s rejected: %v", req.Voter.Hex(), err)
			}
			req.ResultCh <- result
			close(req.ResultCh)
		}
	}
}
