package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"survey-ledger/encryption"
	"survey-ledger/models"
	"survey-ledger/relayer"
	"survey-ledger/service"
)

type Server struct {
	survey        *service.SurveyService
	sequencer     *service.Sequencer
	relay         *relayer.Service
	cryptoService *encryption.CryptoService
	mux           *http.ServeMux
}

type CastVoteRequest struct {
	OptionID   int    `json:"option_id"`
	Ciphertext string `json:"ciphertext"`
	Proof      string `json:"proof"`
	Signature  string `json:"signature"`
}

type CastVoteResponse struct {
	Success   bool           `json:"success"`
	Voter     common.Address `json:"voter"`
	Timestamp int64          `json:"timestamp"`
}

type ExtendVotingRequest struct {
	NewEnd    int64  `json:"new_end"`
	Signature string `json:"signature"`
}

type FinalizeRequest struct {
	Signature string `json:"signature"`
}

type ViewersRequest struct {
	Viewers   []string `json:"viewers"`
	Signature string   `json:"signature"`
}

type RemoveViewerRequest struct {
	Viewer    string `json:"viewer"`
	Signature string `json:"signature"`
}

type TallyResponse struct {
	OptionID int    `json:"option_id"`
	Option   string `json:"option"`
	Handle   string `json:"handle"`
}

type TalliesResponse struct {
	Options []string `json:"options"`
	Handles []string `json:"handles"`
}

type StatusResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
}

// NewServer wires the HTTP surface around one survey instance. relay
// may be nil when no in-process decryption oracle is configured.
func NewServer(survey *service.SurveyService, sequencer *service.Sequencer, relay *relayer.Service) *Server {
	server := &Server{
		survey:        survey,
		sequencer:     sequencer,
		relay:         relay,
		cryptoService: encryption.NewCryptoService(),
		mux:           http.NewServeMux(),
	}

	server.mux.HandleFunc("/api/vote", server.handleCastVote)
	server.mux.HandleFunc("/api/extend", server.handleExtendVoting)
	server.mux.HandleFunc("/api/finalize", server.handleFinalize)
	server.mux.HandleFunc("/api/viewers/queue", server.handleQueueViewers)
	server.mux.HandleFunc("/api/viewers/remove", server.handleRemoveViewer)
	server.mux.HandleFunc("/api/viewers/grant", server.handleGrantViewers)

	server.mux.HandleFunc("/api/survey", server.handleGetSurveyInfo)
	server.mux.HandleFunc("/api/options", server.handleGetOptions)
	server.mux.HandleFunc("/api/status", server.handleGetStatus)
	server.mux.HandleFunc("/api/time-remaining", server.handleGetTimeRemaining)
	server.mux.HandleFunc("/api/has-voted", server.handleHasVoted)
	server.mux.HandleFunc("/api/can-view", server.handleCanView)
	server.mux.HandleFunc("/api/is-queued", server.handleIsQueued)
	server.mux.HandleFunc("/api/queued-viewers", server.handleQueuedViewers)
	server.mux.HandleFunc("/api/admin", server.handleGetAdmin)
	server.mux.HandleFunc("/api/events", server.handleGetEvents)
	server.mux.HandleFunc("/api/metrics", server.handleGetMetrics)

	server.mux.HandleFunc("/api/tally", server.handleGetTally)
	server.mux.HandleFunc("/api/tallies", server.handleGetAllTallies)

	if relay != nil {
		server.mux.HandleFunc("/api/results", server.handleGetResults)
	}

	return server
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves the API on the given port.
func (s *Server) Start(port int) error {
	log.Printf("Starting survey ledger API on port %d...", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.mux)
}

// httpStatus maps domain errors onto HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNotAdmin),
		errors.Is(err, models.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidOption),
		errors.Is(err, models.ErrInvalidProof),
		errors.Is(err, models.ErrInvalidViewer),
		errors.Is(err, models.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAlreadyVoted),
		errors.Is(err, models.ErrAlreadyFinalized),
		errors.Is(err, models.ErrNotFinalized),
		errors.Is(err, models.ErrVotingNotEnded),
		errors.Is(err, models.ErrVotingNotStarted),
		errors.Is(err, models.ErrVotingClosed),
		errors.Is(err, models.ErrResultsLocked),
		errors.Is(err, models.ErrNotQueued),
		errors.Is(err, models.ErrAlreadyAuthorized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ciphertext, err := hexutil.Decode(req.Ciphertext)
	if err != nil {
		http.Error(w, "Invalid ciphertext encoding", http.StatusBadRequest)
		return
	}
	proof, err := hexutil.Decode(req.Proof)
	if err != nil {
		http.Error(w, "Invalid proof encoding", http.StatusBadRequest)
		return
	}
	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		http.Error(w, "Invalid signature encoding", http.StatusBadRequest)
		return
	}

	// The caller identity comes from the transport signature, never
	// from the request body.
	digest := VoteDigest(s.survey.LedgerID(), req.OptionID, ciphertext, proof)
	voter, err := s.cryptoService.RecoverAddress(digest, signature)
	if err != nil {
		http.Error(w, "Failed to recover caller identity", http.StatusBadRequest)
		return
	}

	result := <-s.sequencer.SubmitVote(voter, req.OptionID, ciphertext, proof)
	if !result.Success {
		status := http.StatusServiceUnavailable
		if result.Err != nil {
			status = httpStatus(result.Err)
		}
		http.Error(w, result.ErrorMessage, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CastVoteResponse{
		Success:   true,
		Voter:     voter,
		Timestamp: result.Timestamp,
	})
}

func (s *Server) recoverCaller(w http.ResponseWriter, digest []byte, signatureHex string) (common.Address, bool) {
	signature, err := hexutil.Decode(signatureHex)
	if err != nil {
		http.Error(w, "Invalid signature encoding", http.StatusBadRequest)
		return common.Address{}, false
	}
	caller, err := s.cryptoService.RecoverAddress(digest, signature)
	if err != nil {
		http.Error(w, "Failed to recover caller identity", http.StatusBadRequest)
		return common.Address{}, false
	}
	return caller, true
}

func parseViewers(raw []string) ([]common.Address, error) {
	viewers := make([]common.Address, len(raw))
	for i, v := range raw {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("invalid viewer address: %s", v)
		}
		viewers[i] = common.HexToAddress(v)
	}
	return viewers, nil
}

func (s *Server) handleExtendVoting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ExtendVotingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, ok := s.recoverCaller(w, ExtendDigest(s.survey.LedgerID(), req.NewEnd), req.Signature)
	if !ok {
		return
	}

	start := time.Now()
	err := s.survey.ExtendVoting(caller, time.Unix(req.NewEnd, 0))
	s.survey.Metrics().RecordAdminOp(time.Since(start))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, ok := s.recoverCaller(w, FinalizeDigest(s.survey.LedgerID()), req.Signature)
	if !ok {
		return
	}

	start := time.Now()
	err := s.survey.Finalize(caller)
	s.survey.Metrics().RecordAdminOp(time.Since(start))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	info := s.survey.SurveyInfo()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":      true,
		"total_voters": info.VoterCount,
	})
}

func (s *Server) handleQueueViewers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ViewersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	viewers, err := parseViewers(req.Viewers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	caller, ok := s.recoverCaller(w, QueueViewersDigest(s.survey.LedgerID(), viewers), req.Signature)
	if !ok {
		return
	}

	start := time.Now()
	if len(viewers) == 1 {
		err = s.survey.QueueViewer(caller, viewers[0])
	} else {
		err = s.survey.QueueViewers(caller, viewers)
	}
	s.survey.Metrics().RecordAdminOp(time.Since(start))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleRemoveViewer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RemoveViewerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !common.IsHexAddress(req.Viewer) {
		http.Error(w, "Invalid viewer address", http.StatusBadRequest)
		return
	}
	viewer := common.HexToAddress(req.Viewer)

	caller, ok := s.recoverCaller(w, RemoveViewerDigest(s.survey.LedgerID(), viewer), req.Signature)
	if !ok {
		return
	}

	start := time.Now()
	err := s.survey.RemoveQueuedViewer(caller, viewer)
	s.survey.Metrics().RecordAdminOp(time.Since(start))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleGrantViewers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ViewersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	viewers, err := parseViewers(req.Viewers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	caller, ok := s.recoverCaller(w, GrantViewersDigest(s.survey.LedgerID(), viewers), req.Signature)
	if !ok {
		return
	}

	start := time.Now()
	if len(viewers) == 1 {
		err = s.survey.GrantView(caller, viewers[0])
	} else {
		err = s.survey.GrantViewMany(caller, viewers)
	}
	s.survey.Metrics().RecordAdminOp(time.Since(start))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleGetTally(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	optionID, err := strconv.Atoi(r.URL.Query().Get("option"))
	if err != nil {
		http.Error(w, "Invalid option id", http.StatusBadRequest)
		return
	}

	caller, ok := s.recoverCaller(w, TallyDigest(s.survey.LedgerID(), optionID), r.URL.Query().Get("signature"))
	if !ok {
		return
	}

	start := time.Now()
	handle, err := s.survey.GetTally(caller, optionID)
	s.survey.Metrics().RecordTallyRead(time.Since(start))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	options := s.survey.Options()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TallyResponse{
		OptionID: optionID,
		Option:   options[optionID],
		Handle:   handle.Hex(),
	})
}

func (s *Server) handleGetAllTallies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := s.recoverCaller(w, TalliesDigest(s.survey.LedgerID()), r.URL.Query().Get("signature"))
	if !ok {
		return
	}

	start := time.Now()
	handles, err := s.survey.GetAllTallies(caller)
	s.survey.Metrics().RecordTallyRead(time.Since(start))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	handlesHex := make([]string, len(handles))
	for i, handle := range handles {
		handlesHex[i] = handle.Hex()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TalliesResponse{
		Options: s.survey.Options(),
		Handles: handlesHex,
	})
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := s.recoverCaller(w, ResultsDigest(s.survey.LedgerID()), r.URL.Query().Get("signature"))
	if !ok {
		return
	}

	results, err := s.relay.DecryptAll(caller)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

func (s *Server) handleGetSurveyInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.survey.SurveyInfo())
}

func (s *Server) handleGetOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"options": s.survey.Options(),
		"count":   s.survey.OptionsCount(),
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := s.survey.VotingStatus()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StatusResponse{
		Status:     status.String(),
		StatusCode: int(status),
	})
}

func (s *Server) handleGetTimeRemaining(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{
		"seconds": int64(s.survey.TimeRemaining().Seconds()),
	})
}

func (s *Server) addressQuery(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := r.URL.Query().Get("address")
	if !common.IsHexAddress(raw) {
		http.Error(w, "Invalid address", http.StatusBadRequest)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address, ok := s.addressQuery(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"has_voted": s.survey.HasVoted(address)})
}

func (s *Server) handleCanView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address, ok := s.addressQuery(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"can_view": s.survey.CanViewResults(address)})
}

func (s *Server) handleIsQueued(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address, ok := s.addressQuery(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"is_queued": s.survey.IsQueued(address)})
}

func (s *Server) handleQueuedViewers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	queued := s.survey.QueuedViewers()
	viewers := make([]string, len(queued))
	for i, viewer := range queued {
		viewers[i] = viewer.Hex()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"queued_viewers": viewers})
}

func (s *Server) handleGetAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"admin": s.survey.Admin().Hex()})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events := s.survey.Events()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"events":   events,
		"is_valid": models.ValidateEventLog(events),
	})
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.survey.Metrics().Snapshot())
}
