package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/amirsamani13/househunt-hq-sub000/models"
	"github.com/amirsamani13/househunt-hq-sub000/services"
)

// DispatchWorker runs the notification sweep on an interval and on
// demand.
type DispatchWorker struct {
	dispatcher *services.Dispatcher
	triggerCh  chan struct{}
	logFunc    LogFunc
}

func NewDispatchWorker(dispatcher *services.Dispatcher) *DispatchWorker {
	return &DispatchWorker{
		dispatcher: dispatcher,
		triggerCh:  make(chan struct{}, 1),
		logFunc:    NoOpLogger,
	}
}

func (w *DispatchWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run immediately.
func (w *DispatchWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the dispatch loop.
func (w *DispatchWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Dispatch worker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		case <-w.triggerCh:
			log.Println("Dispatch worker triggered manually")
			w.sweep(ctx)
		}
	}
}

func (w *DispatchWorker) sweep(ctx context.Context) {
	sent, err := w.dispatcher.DispatchCycle(ctx)
	if err != nil {
		log.Printf("Dispatch sweep error: %v", err)
		w.logFunc(models.LogLevelError, "dispatch", fmt.Sprintf("sweep failed: %v", err))
		return
	}
	if sent > 0 {
		log.Printf("Dispatch sweep sent %d notifications", sent)
		w.logFunc(models.LogLevelInfo, "dispatch", fmt.Sprintf("sent %d notifications", sent))
	}
}
