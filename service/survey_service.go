package service

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"survey-ledger/encryption"
	"survey-ledger/models"
	"survey-ledger/storage"
)

// Config carries everything needed to construct a survey instance.
type Config struct {
	Title    string
	Options  []string
	Duration time.Duration
	Admin    common.Address
	Scheme   encryption.Scheme
	Store    *storage.LedgerStore // optional; nil disables persistence
	Now      func() time.Time     // optional; defaults to time.Now
}

// SurveyService owns the full state of one confidential survey: the
// lifecycle window, the encrypted accumulators, the participation
// registry and the viewer ACL. Every state-mutating operation runs
// under one lock and either commits completely or leaves no trace, so
// the instance behaves as a serialized transaction log regardless of
// how callers interleave.
type SurveyService struct {
	mu sync.RWMutex

	ledgerID string
	title    string
	options  []string
	admin    common.Address

	lifecycle   *Lifecycle
	registry    *ParticipationRegistry
	acl         *AccessControlList
	accumulator *encryption.Accumulator
	verifier    *encryption.BallotVerifier

	cryptoService *encryption.CryptoService
	scheme        encryption.Scheme
	store         *storage.LedgerStore
	metrics       *MetricsCollector

	events []*models.Event

	now func() time.Time
}

// NewSurveyService validates the configuration and creates a fresh
// survey with voting open immediately. The admin is granted view access
// at construction.
func NewSurveyService(cfg Config) (*SurveyService, error) {
	if len(cfg.Options) < models.MinOptions || len(cfg.Options) > models.MaxOptions {
		return nil, fmt.Errorf("%d options: %w", len(cfg.Options), models.ErrInvalidOptionsLength)
	}
	if models.IsZeroAddress(cfg.Admin) {
		return nil, fmt.Errorf("zero admin: %w", models.ErrInvalidViewer)
	}
	if cfg.Scheme == nil {
		return nil, fmt.Errorf("encryption scheme is required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	lifecycle, err := NewLifecycle(now(), cfg.Duration)
	if err != nil {
		return nil, fmt.Errorf("duration %s: %w", cfg.Duration, err)
	}

	accumulator, err := encryption.NewAccumulator(cfg.Scheme, len(cfg.Options))
	if err != nil {
		return nil, err
	}

	options := make([]string, len(cfg.Options))
	copy(options, cfg.Options)

	cryptoService := encryption.NewCryptoService()
	ledgerID := uuid.New().String()

	svc := &SurveyService{
		ledgerID:      ledgerID,
		title:         cfg.Title,
		options:       options,
		admin:         cfg.Admin,
		lifecycle:     lifecycle,
		registry:      NewParticipationRegistry(),
		acl:           NewAccessControlList(cfg.Admin),
		accumulator:   accumulator,
		verifier:      encryption.NewBallotVerifier(cryptoService, cfg.Scheme, len(options), ledgerID),
		cryptoService: cryptoService,
		scheme:        cfg.Scheme,
		store:         cfg.Store,
		metrics:       NewMetricsCollector(),
		now:           now,
	}

	start, end := lifecycle.Window()
	svc.appendEvent(models.EventSurveyCreated, models.SurveyCreatedEvent{
		Title:        svc.title,
		OptionsCount: len(svc.options),
		StartTime:    start.Unix(),
		EndTime:      end.Unix(),
		Admin:        svc.admin,
	})
	svc.persist()

	return svc, nil
}

// RestoreSurveyService rebuilds an instance from a persisted snapshot.
// The scheme must hold the key material the stored handles were
// produced under for further accumulation to be meaningful.
func RestoreSurveyService(snapshot *storage.Snapshot, scheme encryption.Scheme, store *storage.LedgerStore, now func() time.Time) (*SurveyService, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	if now == nil {
		now = time.Now
	}

	tallies := make([]encryption.Ciphertext, len(snapshot.Tallies))
	for i, hexHandle := range snapshot.Tallies {
		ct, err := encryption.CiphertextFromHex(hexHandle)
		if err != nil {
			return nil, fmt.Errorf("failed to decode tally %d: %w", i, err)
		}
		tallies[i] = ct
	}

	if !models.ValidateEventLog(snapshot.Events) {
		log.Printf("Warning: event log failed validation for ledger %s", snapshot.LedgerID)
	}

	cryptoService := encryption.NewCryptoService()

	return &SurveyService{
		ledgerID:      snapshot.LedgerID,
		title:         snapshot.Title,
		options:       snapshot.Options,
		admin:         snapshot.Admin,
		lifecycle:     RestoreLifecycle(time.Unix(0, snapshot.VotingStart), time.Unix(0, snapshot.VotingEnd), snapshot.Finalized),
		registry:      RestoreParticipationRegistry(snapshot.Voters),
		acl:           RestoreAccessControlList(snapshot.QueuedViewers, snapshot.GrantedViewers),
		accumulator:   encryption.RestoreAccumulator(scheme, tallies),
		verifier:      encryption.NewBallotVerifier(cryptoService, scheme, len(snapshot.Options), snapshot.LedgerID),
		cryptoService: cryptoService,
		scheme:        scheme,
		store:         store,
		metrics:       NewMetricsCollector(),
		events:        snapshot.Events,
		now:           now,
	}, nil
}

// CastVote accepts one encrypted ballot from the caller. The window check,
// dedupe, proof verification, homomorphic add and participation mark commit
// atomically or fail with no state change.
func (s *SurveyService) CastVote(caller common.Address, optionID int, ciphertext, proof []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	switch s.lifecycle.Status(now) {
	case models.StatusNotStarted:
		return models.ErrVotingNotStarted
	case models.StatusEnded, models.StatusFinalized:
		return models.ErrVotingClosed
	}

	if s.registry.HasVoted(caller) {
		return models.ErrAlreadyVoted
	}

	ballot, err := s.verifier.Verify(optionID, ciphertext, proof, caller)
	if err != nil {
		return err
	}

	if err := s.accumulator.AddOne(optionID, ballot); err != nil {
		return err
	}

	// Cannot fail here: HasVoted was checked under the same lock.
	if err := s.registry.MarkVoted(caller); err != nil {
		return err
	}

	s.appendEvent(models.EventVoteCast, models.VoteCastEvent{
		Voter:     caller,
		OptionID:  optionID,
		Timestamp: now.Unix(),
	})
	s.persist()

	return nil
}

// ExtendVoting moves the voting deadline strictly later. Admin only.
func (s *SurveyService) ExtendVoting(caller common.Address, newEnd time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return models.ErrNotAdmin
	}

	oldEnd, err := s.lifecycle.Extend(newEnd)
	if err != nil {
		return err
	}

	s.appendEvent(models.EventVotingExtended, models.VotingExtendedEvent{
		OldEnd: oldEnd.Unix(),
		NewEnd: newEnd.Unix(),
	})
	s.persist()

	return nil
}

// Finalize irreversibly closes the survey and promotes every viewer
// queued at this instant to granted. Admin only, and only strictly
// after the voting window.
func (s *SurveyService) Finalize(caller common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return models.ErrNotAdmin
	}

	now := s.now()
	if err := s.lifecycle.Finalize(now); err != nil {
		return err
	}

	for _, viewer := range s.acl.PromoteQueued() {
		s.appendEvent(models.EventViewerGranted, models.ViewerEvent{Viewer: viewer})
	}

	s.appendEvent(models.EventFinalized, models.FinalizedEvent{
		Timestamp:   now.Unix(),
		TotalVoters: s.registry.TotalVoters(),
	})
	s.persist()

	return nil
}

// QueueViewer marks an identity for automatic view access at
// finalization. Admin only; unavailable once finalized.
func (s *SurveyService) QueueViewer(caller, viewer common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.queueViewerLocked(caller, viewer); err != nil {
		return err
	}
	s.persist()
	return nil
}

// QueueViewers is the batch form of QueueViewer. The batch is validated
// up front and applied all-or-nothing.
func (s *SurveyService) QueueViewers(caller common.Address, viewers []common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return models.ErrNotAdmin
	}
	if s.lifecycle.Finalized() {
		return models.ErrAlreadyFinalized
	}
	for _, viewer := range viewers {
		if models.IsZeroAddress(viewer) {
			return models.ErrInvalidViewer
		}
		if s.acl.CanView(viewer) {
			return fmt.Errorf("%s: %w", viewer.Hex(), models.ErrAlreadyAuthorized)
		}
	}

	for _, viewer := range viewers {
		changed, err := s.acl.Queue(viewer)
		if err != nil {
			return err
		}
		if changed {
			s.appendEvent(models.EventViewerQueued, models.ViewerEvent{Viewer: viewer})
		}
	}
	s.persist()
	return nil
}

func (s *SurveyService) queueViewerLocked(caller, viewer common.Address) error {
	if caller != s.admin {
		return models.ErrNotAdmin
	}
	if s.lifecycle.Finalized() {
		return models.ErrAlreadyFinalized
	}

	changed, err := s.acl.Queue(viewer)
	if err != nil {
		return err
	}
	if changed {
		s.appendEvent(models.EventViewerQueued, models.ViewerEvent{Viewer: viewer})
	}
	return nil
}

// RemoveQueuedViewer clears a pending viewer. Admin only; unavailable
// once finalized.
func (s *SurveyService) RemoveQueuedViewer(caller, viewer common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return models.ErrNotAdmin
	}
	if s.lifecycle.Finalized() {
		return models.ErrAlreadyFinalized
	}

	if err := s.acl.RemoveQueued(viewer); err != nil {
		return err
	}

	s.appendEvent(models.EventViewerRemoved, models.ViewerEvent{Viewer: viewer})
	s.persist()
	return nil
}

// GrantView gives an identity view access directly. Admin only, and
// only after finalization.
func (s *SurveyService) GrantView(caller, viewer common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.grantViewLocked(caller, viewer); err != nil {
		return err
	}
	s.persist()
	return nil
}

// GrantViewMany is the batch form of GrantView, applied all-or-nothing.
func (s *SurveyService) GrantViewMany(caller common.Address, viewers []common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return models.ErrNotAdmin
	}
	if !s.lifecycle.Finalized() {
		return models.ErrNotFinalized
	}
	seen := make(map[common.Address]bool, len(viewers))
	for _, viewer := range viewers {
		if models.IsZeroAddress(viewer) {
			return models.ErrInvalidViewer
		}
		if seen[viewer] || s.acl.CanView(viewer) {
			return fmt.Errorf("%s: %w", viewer.Hex(), models.ErrAlreadyAuthorized)
		}
		seen[viewer] = true
	}

	for _, viewer := range viewers {
		if err := s.acl.Grant(viewer); err != nil {
			return err
		}
		s.appendEvent(models.EventViewerGranted, models.ViewerEvent{Viewer: viewer})
	}
	s.persist()
	return nil
}

func (s *SurveyService) grantViewLocked(caller, viewer common.Address) error {
	if caller != s.admin {
		return models.ErrNotAdmin
	}
	if !s.lifecycle.Finalized() {
		return models.ErrNotFinalized
	}

	if err := s.acl.Grant(viewer); err != nil {
		return err
	}

	s.appendEvent(models.EventViewerGranted, models.ViewerEvent{Viewer: viewer})
	return nil
}

// GetTally returns one option's opaque accumulator handle. Requires
// finalization and view permission; the two checks are independent and
// both mandatory.
func (s *SurveyService) GetTally(caller common.Address, optionID int) (encryption.Ciphertext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.lifecycle.Finalized() {
		return encryption.Ciphertext{}, models.ErrResultsLocked
	}
	if !s.acl.CanView(caller) {
		return encryption.Ciphertext{}, models.ErrNotAuthorized
	}

	return s.accumulator.Tally(optionID)
}

// GetAllTallies returns every option's handle in option order, under
// the same gating as GetTally.
func (s *SurveyService) GetAllTallies(caller common.Address) ([]encryption.Ciphertext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.lifecycle.Finalized() {
		return nil, models.ErrResultsLocked
	}
	if !s.acl.CanView(caller) {
		return nil, models.ErrNotAuthorized
	}

	return s.accumulator.Tallies(), nil
}

// Public read surface

func (s *SurveyService) SurveyInfo() models.SurveyInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end := s.lifecycle.Window()
	return models.SurveyInfo{
		Title:        s.title,
		StartTime:    start.Unix(),
		EndTime:      end.Unix(),
		Finalized:    s.lifecycle.Finalized(),
		OptionsCount: len(s.options),
		VoterCount:   s.registry.TotalVoters(),
	}
}

func (s *SurveyService) Options() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	options := make([]string, len(s.options))
	copy(options, s.options)
	return options
}

func (s *SurveyService) OptionsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.options)
}

func (s *SurveyService) HasVoted(identity common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.HasVoted(identity)
}

func (s *SurveyService) CanViewResults(identity common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acl.CanView(identity)
}

func (s *SurveyService) IsQueued(identity common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acl.IsQueued(identity)
}

func (s *SurveyService) QueuedViewers() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acl.QueuedViewers()
}

func (s *SurveyService) VotingStatus() models.VotingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifecycle.Status(s.now())
}

func (s *SurveyService) TimeRemaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifecycle.TimeRemaining(s.now())
}

func (s *SurveyService) TotalVoters() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.TotalVoters()
}

func (s *SurveyService) Admin() common.Address {
	return s.admin
}

func (s *SurveyService) LedgerID() string {
	return s.ledgerID
}

// BallotDigest is the digest a client's ballot proof must sign for this
// ledger instance.
func (s *SurveyService) BallotDigest(ciphertext []byte, submitter common.Address) []byte {
	return s.verifier.BallotDigest(ciphertext, submitter)
}

// Events returns the event log in emission order.
func (s *SurveyService) Events() []*models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*models.Event, len(s.events))
	copy(events, s.events)
	return events
}

// Metrics returns the instance's metrics collector.
func (s *SurveyService) Metrics() *MetricsCollector {
	return s.metrics
}

// appendEvent chains a new event onto the log. Callers hold the write lock.
func (s *SurveyService) appendEvent(kind models.EventKind, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", kind, err)
		return
	}

	var prevHash []byte
	if len(s.events) > 0 {
		prevHash = s.events[len(s.events)-1].Hash
	}

	event := models.NewEvent(uint64(len(s.events)), uuid.New().String(), kind, s.now().Unix(), data, prevHash)
	s.events = append(s.events, event)
}

// persist writes the committed state through the store. Persistence
// failures are logged, not surfaced: the in-memory transaction already
// committed. Callers hold the write lock.
func (s *SurveyService) persist() {
	if s.store == nil {
		return
	}

	start, end := s.lifecycle.Window()
	tallies := s.accumulator.Tallies()
	talliesHex := make([]string, len(tallies))
	for i, tally := range tallies {
		talliesHex[i] = tally.Hex()
	}

	snapshot := &storage.Snapshot{
		LedgerID:       s.ledgerID,
		Title:          s.title,
		Options:        s.options,
		Admin:          s.admin,
		VotingStart:    start.UnixNano(),
		VotingEnd:      end.UnixNano(),
		Finalized:      s.lifecycle.Finalized(),
		Voters:         s.registry.Voters(),
		QueuedViewers:  s.acl.QueuedViewers(),
		GrantedViewers: s.acl.GrantedViewers(),
		Tallies:        talliesHex,
		Events:         s.events,
		SavedAt:        s.now().Unix(),
	}

	if err := s.store.Save(snapshot); err != nil {
		log.Printf("Warning: failed to persist ledger snapshot: %v", err)
	}
}
