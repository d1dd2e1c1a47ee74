package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"log"
	"os"

	"github.com/proofmeet/attendance-engine/internal/api"
	"github.com/proofmeet/attendance-engine/internal/attendance"
	"github.com/proofmeet/attendance-engine/internal/audit"
	"github.com/proofmeet/attendance-engine/internal/card"
	"github.com/proofmeet/attendance-engine/internal/config"
	"github.com/proofmeet/attendance-engine/internal/directory"
	"github.com/proofmeet/attendance-engine/internal/ledger"
	"github.com/proofmeet/attendance-engine/internal/notify"
	"github.com/proofmeet/attendance-engine/internal/scheduler"
	"github.com/proofmeet/attendance-engine/internal/store"
)

func main() {
	log.Println("Starting ProofMeet Attendance Engine...")

	dbUrl := config.RequireEnv("DATABASE_URL")

	dbConn, err := store.Connect(dbUrl)
	if err != nil {
		log.Printf("Warning: Failed to connect to PostgreSQL, continuing without persisting attendance data. Error: %v", err)
	} else {
		defer dbConn.Close()
		if err := dbConn.InitSchema(); err != nil {
			log.Printf("Warning: DB schema init failed: %v", err)
		}
	}

	wsHub := api.NewHub()
	go wsHub.Run()

	privateKey, err := loadOrGenerateSigningKey()
	if err != nil {
		log.Fatalf("FATAL: could not establish ledger signing key: %v", err)
	}
	chainLedger := ledger.New(privateKey)

	dir := directory.New()

	manager := attendance.NewManager(dbConn)

	baseURL := config.GetEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:5339/api/v1")
	accessLog := audit.NewLog()
	minter := card.NewMinter(dbConn, baseURL, accessLog)

	notifier := notify.NewLogNotifier(func(ev notify.Event) {
		payload := []byte(`{"type":"` + ev.Kind + `","recordId":"` + ev.RecordID + `"}`)
		wsHub.Broadcast(payload)
	})

	sched := scheduler.New(manager, dir, chainLedger, minter, notifier)
	reconciler := attendance.NewReconciler(manager, dir, dir, sched)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	r := api.SetupRouter(dbConn, wsHub, manager, reconciler, dir, minter, chainLedger)

	port := config.GetEnvOrDefault("PORT", "5339")

	log.Printf("Engine running on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadOrGenerateSigningKey reads an RSA private key from
// LEDGER_PRIVATE_KEY_PATH if configured, otherwise generates one for the
// lifetime of the process. A generated key means the hash chain verifies
// internally but cannot be checked against a previous deployment's
// signatures after a restart — acceptable for development, not for a
// production court-record deployment.
func loadOrGenerateSigningKey() (*rsa.PrivateKey, error) {
	path := os.Getenv("LEDGER_PRIVATE_KEY_PATH")
	if path == "" {
		log.Println("WARNING: LEDGER_PRIVATE_KEY_PATH not set, generating an ephemeral ledger signing key for this process")
		return ledger.GenerateKey()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, err
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, err
	}
	return key, nil
}
