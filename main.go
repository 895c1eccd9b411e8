package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirsamani13/househunt-hq-sub000/config"
	"github.com/amirsamani13/househunt-hq-sub000/httputil"
	"github.com/amirsamani13/househunt-hq-sub000/logging"
	"github.com/amirsamani13/househunt-hq-sub000/models"
	"github.com/amirsamani13/househunt-hq-sub000/notify"
	"github.com/amirsamani13/househunt-hq-sub000/scheduler"
	"github.com/amirsamani13/househunt-hq-sub000/scraper"
	"github.com/amirsamani13/househunt-hq-sub000/services"
	"github.com/amirsamani13/househunt-hq-sub000/storage"
	"github.com/amirsamani13/househunt-hq-sub000/workers"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run one scrape cycle and exit")
	notifyNow = flag.Bool("notify", false, "Run one notification sweep and exit")
	qaNow     = flag.Bool("qa", false, "Run one QA cycle and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting househunt-hq...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d source configs", len(cfg.Sources))
	for id, src := range cfg.Sources {
		log.Printf("  - %s (%s)", src.Name, id)
	}

	clients := httputil.NewClients(cfg.Scraper.RequestTimeout)

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	orchestrator, err := scraper.NewOrchestrator(cfg, clients, pgStore, sqliteStore)
	if err != nil {
		log.Fatalf("Failed to build orchestrator: %v", err)
	}

	var emailSender notify.EmailSender
	if sender, err := notify.NewSMTPSender(cfg.Notify); err != nil {
		log.Printf("Warning: email delivery disabled: %v", err)
	} else {
		emailSender = sender
	}

	var smsSender notify.SMSSender
	if sender, err := notify.NewGatewaySender(clients.API, cfg.Notify); err != nil {
		log.Printf("SMS delivery disabled: %v", err)
	} else {
		smsSender = sender
	}

	dispatcher := services.NewDispatcher(
		pgStore, clients.Liveness, emailSender, smsSender,
		time.Duration(cfg.Notify.LookbackHours)*time.Hour,
	)
	adminAlerts := services.NewAdminAlertService(pgStore, emailSender, cfg.Notify.AdminEmail)
	qaAgent := services.NewQAAgent(pgStore, adminAlerts, dispatcher.DispatchCycle, orchestrator.RepairSource, cfg.QA)

	log.Println("Services initialized")

	opLog := func(level models.LogLevel, source, message string) {
		if err := sqliteStore.Log(nil, level, message, source); err != nil {
			log.Printf("Warning: write operational log: %v", err)
		}
	}

	// One-shot modes
	switch {
	case *scrapeNow:
		log.Println("Running scrape cycle...")
		orchestrator.RunAll(ctx)
		log.Println("Scrape complete")
		return
	case *notifyNow:
		log.Println("Running notification sweep...")
		sent, err := dispatcher.DispatchCycle(ctx)
		if err != nil {
			log.Fatalf("Notification sweep failed: %v", err)
		}
		log.Printf("Notification sweep sent %d", sent)
		return
	case *qaNow:
		log.Println("Running QA cycle...")
		result, err := qaAgent.RunCycle(ctx)
		if err != nil {
			log.Fatalf("QA cycle failed: %v", err)
		}
		log.Printf("QA cycle: %s (%d issues)", result.Status, result.Issues)
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatchWorker := workers.NewDispatchWorker(dispatcher)
	dispatchWorker.SetLogger(opLog)
	go dispatchWorker.Run(ctx, cfg.Notify.Interval)
	log.Println("Dispatch worker started")

	qaWorker := workers.NewQAWorker(qaAgent)
	qaWorker.SetLogger(opLog)
	go qaWorker.Run(ctx, cfg.QA.Interval)
	log.Println("QA worker started")

	alertWorker := workers.NewAdminAlertWorker(adminAlerts)
	alertWorker.SetLogger(opLog)
	go alertWorker.Run(ctx, time.Minute)
	log.Println("Admin alert worker started")

	sched := scheduler.New(cfg, orchestrator, sqliteStore)
	sched.SetWorkers(dispatchWorker, qaWorker, alertWorker)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	cancel()
	log.Println("Goodbye!")
}

// maskConnectionString hides the password in a connection string before
// it reaches the logs.
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
