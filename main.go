package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"survey-ledger/api"
	"survey-ledger/encryption"
	"survey-ledger/relayer"
	"survey-ledger/service"
	"survey-ledger/storage"
)

type Config struct {
	StorageDir  string
	Port        int
	Title       string
	Options     []string
	Duration    time.Duration
	Scheme      string
	KeySize     int
	QueueSize   int
	WithRelayer bool
}

type AdminCredentials struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

func parseFlags() Config {
	storageDir := flag.String("storage", "ledger_data", "Directory for ledger snapshots and credentials")
	port := flag.Int("port", 8080, "HTTP port")
	title := flag.String("title", "Confidential Survey", "Survey title")
	options := flag.String("options", "Yes,No,Abstain", "Comma-separated survey options")
	duration := flag.Duration("duration", 7*24*time.Hour, "Voting window duration")
	scheme := flag.String("scheme", "paillier", "Homomorphic scheme: paillier or elgamal")
	keySize := flag.Int("keysize", 2048, "Scheme key size in bits")
	queueSize := flag.Int("queue", 256, "Vote submission queue size")
	withRelayer := flag.Bool("relayer", false, "Run the in-process decryption oracle")
	flag.Parse()

	parsed := strings.Split(*options, ",")
	for i := range parsed {
		parsed[i] = strings.TrimSpace(parsed[i])
	}

	return Config{
		StorageDir:  *storageDir,
		Port:        *port,
		Title:       *title,
		Options:     parsed,
		Duration:    *duration,
		Scheme:      *scheme,
		KeySize:     *keySize,
		QueueSize:   *queueSize,
		WithRelayer: *withRelayer,
	}
}

func loadOrGenerateAdminKey(storagePath string) (*ecdsa.PrivateKey, error) {
	adminKeyPath := filepath.Join(storagePath, "admin_credentials.json")

	// Try to load existing admin credentials
	if data, err := os.ReadFile(adminKeyPath); err == nil {
		var creds AdminCredentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, fmt.Errorf("failed to parse admin credentials: %v", err)
		}

		privateKeyHex := strings.TrimPrefix(creds.PrivateKey, "0x")
		privateKey, err := crypto.HexToECDSA(privateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("failed to restore admin private key: %v", err)
		}

		return privateKey, nil
	}

	// Generate new admin key if none exists
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin key: %v", err)
	}

	creds := AdminCredentials{
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&privateKey.PublicKey)),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(privateKey)),
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal admin credentials: %v", err)
	}

	if err := os.WriteFile(adminKeyPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to save admin credentials: %v", err)
	}

	return privateKey, nil
}

func buildScheme(cfg Config) (encryption.Scheme, error) {
	switch cfg.Scheme {
	case "paillier":
		adapter := encryption.NewPaillierAdapter(cfg.KeySize)
		if err := adapter.Initialize(); err != nil {
			return nil, err
		}
		return adapter, nil
	case "elgamal":
		adapter := encryption.NewElGamalAdapter(cfg.KeySize)
		if err := adapter.Initialize(); err != nil {
			return nil, err
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("unknown scheme: %s", cfg.Scheme)
	}
}

func main() {
	cfg := parseFlags()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		log.Fatalf("Failed to setup storage: %v", err)
	}

	adminKey, err := loadOrGenerateAdminKey(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to setup admin key: %v", err)
	}
	admin := crypto.PubkeyToAddress(adminKey.PublicKey)
	log.Printf("Admin identity: %s", admin.Hex())

	scheme, err := buildScheme(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize encryption scheme: %v", err)
	}
	log.Printf("Encryption scheme: %s", scheme.Name())

	store, err := storage.NewLedgerStore(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to initialize ledger store: %v", err)
	}

	var survey *service.SurveyService
	snapshot, err := store.Load()
	if err != nil {
		log.Fatalf("Failed to load ledger snapshot: %v", err)
	}
	if snapshot != nil {
		// Restored handles stay opaque; decrypting them needs the key
		// material of the scheme they were produced under, which lives
		// with the external relayer.
		survey, err = service.RestoreSurveyService(snapshot, scheme, store, nil)
		if err != nil {
			log.Fatalf("Failed to restore survey: %v", err)
		}
		log.Printf("Restored survey %q (%d voters, finalized=%v)",
			snapshot.Title, len(snapshot.Voters), snapshot.Finalized)
	} else {
		survey, err = service.NewSurveyService(service.Config{
			Title:    cfg.Title,
			Options:  cfg.Options,
			Duration: cfg.Duration,
			Admin:    admin,
			Scheme:   scheme,
			Store:    store,
		})
		if err != nil {
			log.Fatalf("Failed to create survey: %v", err)
		}
		log.Printf("Created survey %q with %d options, voting open for %s",
			cfg.Title, len(cfg.Options), cfg.Duration)
	}

	sequencer := service.NewSequencer(survey, cfg.QueueSize)
	sequencer.Start()

	var relay *relayer.Service
	if cfg.WithRelayer {
		relay = relayer.New(scheme, survey)
		log.Println("In-process decryption oracle enabled")
	}

	server := api.NewServer(survey, sequencer, relay)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	serverChan := make(chan error, 1)
	go func() {
		serverChan <- server.Start(cfg.Port)
	}()

	select {
	case err := <-serverChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		sequencer.Stop()
		log.Println("Server shutdown completed")
	}
}
