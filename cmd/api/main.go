package main

import (
	"log"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"survey-ledger/api"
	"survey-ledger/encryption"
	"survey-ledger/relayer"
	"survey-ledger/service"
)

// Development entry point: an in-memory survey with a throwaway admin
// key and the decryption oracle enabled. Use the root binary for a
// persistent node.
func main() {
	scheme := encryption.NewPaillierAdapter(2048)
	if err := scheme.Initialize(); err != nil {
		log.Fatalf("Failed to initialize scheme: %v", err)
	}

	adminKey, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate admin key: %v", err)
	}
	admin := crypto.PubkeyToAddress(adminKey.PublicKey)
	log.Printf("Admin identity: %s", admin.Hex())

	survey, err := service.NewSurveyService(service.Config{
		Title:    "Dev Survey",
		Options:  []string{"Yes", "No"},
		Duration: 24 * time.Hour,
		Admin:    admin,
		Scheme:   scheme,
	})
	if err != nil {
		log.Fatalf("Failed to create survey: %v", err)
	}

	sequencer := service.NewSequencer(survey, 128)
	sequencer.Start()
	defer sequencer.Stop()

	server := api.NewServer(survey, sequencer, relayer.New(scheme, survey))

	log.Println("Starting survey ledger API on :8080...")
	if err := server.Start(8080); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
