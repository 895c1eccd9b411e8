package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/amirsamani13/househunt-hq-sub000/models"
	"github.com/amirsamani13/househunt-hq-sub000/services"
)

// adminAlertBatch bounds alerts delivered per sweep.
const adminAlertBatch = 20

// AdminAlertWorker drains the durable admin alert queue to the operator
// mailbox.
type AdminAlertWorker struct {
	alerts    *services.AdminAlertService
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewAdminAlertWorker(alerts *services.AdminAlertService) *AdminAlertWorker {
	return &AdminAlertWorker{
		alerts:    alerts,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *AdminAlertWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run immediately.
func (w *AdminAlertWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// DispatchOne delivers a single alert by id; "latest" or an empty id
// means the most recently raised one.
func (w *AdminAlertWorker) DispatchOne(ctx context.Context, alertID string) error {
	if alertID == "" || alertID == "latest" {
		return w.alerts.DispatchLatest(ctx)
	}
	id, err := uuid.Parse(alertID)
	if err != nil {
		return fmt.Errorf("bad alert id %q: %w", alertID, err)
	}
	return w.alerts.DispatchByID(ctx, id)
}

// Run starts the delivery loop.
func (w *AdminAlertWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Admin alert worker stopping")
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-w.triggerCh:
			w.drain(ctx)
		}
	}
}

func (w *AdminAlertWorker) drain(ctx context.Context) {
	sent, err := w.alerts.DispatchPending(ctx, adminAlertBatch)
	if err != nil {
		log.Printf("Admin alert delivery error: %v", err)
		w.logFunc(models.LogLevelError, "admin_alert", fmt.Sprintf("delivery failed: %v", err))
		return
	}
	if sent > 0 {
		w.logFunc(models.LogLevelInfo, "admin_alert", fmt.Sprintf("delivered %d alerts", sent))
	}
}
