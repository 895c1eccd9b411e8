package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/amirsamani13/househunt-hq-sub000/models"
	"github.com/amirsamani13/househunt-hq-sub000/services"
)

// QAWorker runs the continuous QA agent on an interval and on demand.
type QAWorker struct {
	agent     *services.QAAgent
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewQAWorker(agent *services.QAAgent) *QAWorker {
	return &QAWorker{
		agent:     agent,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *QAWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run immediately.
func (w *QAWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the QA loop.
func (w *QAWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("QA worker stopping")
			return
		case <-ticker.C:
			w.cycle(ctx)
		case <-w.triggerCh:
			log.Println("QA worker triggered manually")
			w.cycle(ctx)
		}
	}
}

func (w *QAWorker) cycle(ctx context.Context) {
	result, err := w.agent.RunCycle(ctx)
	if err != nil {
		log.Printf("QA cycle error: %v", err)
		w.logFunc(models.LogLevelError, "qa", fmt.Sprintf("cycle failed: %v", err))
		return
	}
	if result.Status == services.StatusCircuitBreakerActive {
		w.logFunc(models.LogLevelWarn, "qa", "cycle skipped: circuit breaker open")
		return
	}
	w.logFunc(models.LogLevelInfo, "qa", fmt.Sprintf("cycle %s with %d issues", result.Status, result.Issues))
}
