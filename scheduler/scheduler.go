package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amirsamani13/househunt-hq-sub000/config"
	"github.com/amirsamani13/househunt-hq-sub000/models"
	"github.com/amirsamani13/househunt-hq-sub000/scraper"
	"github.com/amirsamani13/househunt-hq-sub000/storage"
)

// Triggerable allows workers to be kicked outside their interval.
type Triggerable interface {
	Trigger()
}

// AlertDispatcher is the admin alert worker surface the command queue
// drives: a queue drain plus targeted delivery of one alert.
type AlertDispatcher interface {
	Triggerable
	DispatchOne(ctx context.Context, alertID string) error
}

// Scheduler owns the periodic scrape trigger (cron expression or plain
// interval) and the operational command queue polled from SQLite.
type Scheduler struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	ops          *storage.SQLiteStore
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}
	paused       atomic.Bool

	dispatchWorker Triggerable
	qaWorker       Triggerable
	alertWorker    AlertDispatcher
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator, ops *storage.SQLiteStore) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		ops:          ops,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering.
func (s *Scheduler) SetWorkers(dispatch, qa Triggerable, alerts AlertDispatcher) {
	s.dispatchWorker = dispatch
	s.qaWorker = qa
	s.alertWorker = alerts
}

// logRetention bounds the operational log table.
const logRetention = 14 * 24 * time.Hour

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)
	go s.pruneLogs(ctx)

	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runCycle(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runCycle(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if s.paused.Load() {
		log.Println("Scrape cycle skipped: scheduler paused")
		return
	}
	s.orchestrator.RunAll(ctx)
}

// TriggerNow runs a full scrape cycle immediately, bypassing the pause
// flag.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.orchestrator.RunAll(ctx)
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.ops.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for i := range cmds {
				cmd := &cmds[i]
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.ops.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) pruneLogs(ctx context.Context) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pruned, err := s.ops.PruneLogs(time.Now().Add(-logRetention))
			if err != nil {
				log.Printf("Error pruning logs: %v", err)
				continue
			}
			if pruned > 0 {
				log.Printf("Pruned %d old log rows", pruned)
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	params, err := s.ops.ParseCommandParams(cmd)
	if err != nil {
		return err
	}

	switch cmd.Command {
	case models.CmdScrapeNow:
		s.TriggerNow(ctx)
		return nil
	case models.CmdScrapeSource:
		if params.Source == "" {
			return fmt.Errorf("scrape_source requires a source")
		}
		return s.orchestrator.RunSource(ctx, params.Source)
	case models.CmdPause:
		s.paused.Store(true)
		log.Println("Scheduler paused")
		return nil
	case models.CmdResume:
		s.paused.Store(false)
		log.Println("Scheduler resumed")
		return nil
	case models.CmdNotifyNow:
		if s.dispatchWorker != nil {
			s.dispatchWorker.Trigger()
			log.Println("Dispatch worker triggered via command")
		}
		return nil
	case models.CmdQANow:
		if s.qaWorker != nil {
			s.qaWorker.Trigger()
			log.Println("QA worker triggered via command")
		}
		return nil
	case models.CmdRepairSource:
		if params.Source == "" {
			return fmt.Errorf("repair_source requires a source")
		}
		return s.orchestrator.RepairSource(ctx, params.Source)
	case models.CmdDispatchAlerts:
		if s.alertWorker == nil {
			return nil
		}
		if params.AlertID == "" {
			s.alertWorker.Trigger()
			log.Println("Admin alert worker triggered via command")
			return nil
		}
		return s.alertWorker.DispatchOne(ctx, params.AlertID)
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}
