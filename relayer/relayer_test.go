package relayer

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"survey-ledger/encryption"
	"survey-ledger/models"
	"survey-ledger/service"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// finalizedSurvey builds a finalized two-option survey with votes
// [2, 1] and returns the relayer over it plus the admin identity.
func finalizedSurvey(t *testing.T) (*Service, *service.SurveyService, common.Address) {
	t.Helper()

	scheme := encryption.NewElGamalAdapter(256)
	if err := scheme.Initialize(); err != nil {
		t.Fatalf("Failed to initialize scheme: %v", err)
	}

	adminKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate admin key: %v", err)
	}
	admin := crypto.PubkeyToAddress(adminKey.PublicKey)
	clock := &testClock{t: time.Unix(1700000000, 0)}

	survey, err := service.NewSurveyService(service.Config{
		Title:    "Relayed Survey",
		Options:  []string{"Yes", "No"},
		Duration: time.Hour,
		Admin:    admin,
		Scheme:   scheme,
		Now:      clock.Now,
	})
	if err != nil {
		t.Fatalf("Failed to create survey: %v", err)
	}

	for _, optionID := range []int{0, 0, 1} {
		voterKey, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("Failed to generate voter key: %v", err)
		}
		voter := crypto.PubkeyToAddress(voterKey.PublicKey)

		ciphertext, err := scheme.Encrypt(big.NewInt(1))
		if err != nil {
			t.Fatalf("Failed to encrypt ballot: %v", err)
		}
		proof, err := crypto.Sign(survey.BallotDigest(ciphertext, voter), voterKey)
		if err != nil {
			t.Fatalf("Failed to sign ballot: %v", err)
		}
		if err := survey.CastVote(voter, optionID, ciphertext, proof); err != nil {
			t.Fatalf("Vote failed: %v", err)
		}
	}

	clock.Advance(2 * time.Hour)
	if err := survey.Finalize(admin); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	return New(scheme, survey), survey, admin
}

func TestDecryptAll(t *testing.T) {
	relay, _, admin := finalizedSurvey(t)

	results, err := relay.DecryptAll(admin)
	if err != nil {
		t.Fatalf("DecryptAll failed: %v", err)
	}

	if results.Title != "Relayed Survey" {
		t.Errorf("Unexpected title %q", results.Title)
	}
	if results.TotalVoters != 3 {
		t.Errorf("Expected 3 voters, got %d", results.TotalVoters)
	}
	if results.Counts["Yes"] != 2 || results.Counts["No"] != 1 {
		t.Errorf("Unexpected counts: %v", results.Counts)
	}

	if latest := relay.LatestResults(); latest == nil || latest.Counts["Yes"] != 2 {
		t.Error("LatestResults should cache the computed outcome")
	}
}

func TestDecryptTally(t *testing.T) {
	relay, _, admin := finalizedSurvey(t)

	count, err := relay.DecryptTally(admin, 0)
	if err != nil {
		t.Fatalf("DecryptTally failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2, got %d", count)
	}
}

func TestDecryptRespectsACL(t *testing.T) {
	relay, _, _ := finalizedSurvey(t)
	stranger := common.HexToAddress("0x9999999999999999999999999999999999999999")

	if _, err := relay.DecryptAll(stranger); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Expected %v, got %v", models.ErrNotAuthorized, err)
	}
	if _, err := relay.DecryptTally(stranger, 0); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Expected %v, got %v", models.ErrNotAuthorized, err)
	}
	if relay.LatestResults() != nil {
		t.Error("Failed decryption must not cache results")
	}
}

func TestDecryptBeforeFinalization(t *testing.T) {
	scheme := encryption.NewElGamalAdapter(256)
	if err := scheme.Initialize(); err != nil {
		t.Fatalf("Failed to initialize scheme: %v", err)
	}

	adminKey, _ := crypto.GenerateKey()
	admin := crypto.PubkeyToAddress(adminKey.PublicKey)

	survey, err := service.NewSurveyService(service.Config{
		Title:    "Open Survey",
		Options:  []string{"Yes", "No"},
		Duration: time.Hour,
		Admin:    admin,
		Scheme:   scheme,
	})
	if err != nil {
		t.Fatalf("Failed to create survey: %v", err)
	}

	relay := New(scheme, survey)
	if _, err := relay.DecryptAll(admin); !errors.Is(err, models.ErrResultsLocked) {
		t.Errorf("Expected %v, got %v", models.ErrResultsLocked, err)
	}
}
