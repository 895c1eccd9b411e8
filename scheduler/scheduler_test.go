package scheduler

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/amirsamani13/househunt-hq-sub000/config"
	"github.com/amirsamani13/househunt-hq-sub000/models"
	"github.com/amirsamani13/househunt-hq-sub000/storage"
)

type fakeAlertWorker struct {
	triggered  int
	dispatched []string
}

func (f *fakeAlertWorker) Trigger() { f.triggered++ }

func (f *fakeAlertWorker) DispatchOne(ctx context.Context, alertID string) error {
	f.dispatched = append(f.dispatched, alertID)
	return nil
}

func TestDispatchAlertsCommand(t *testing.T) {
	ops, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer ops.Close()

	worker := &fakeAlertWorker{}
	s := New(&config.Config{}, nil, ops)
	s.SetWorkers(nil, nil, worker)

	cmd := &models.Command{Command: models.CmdDispatchAlerts}
	if err := s.handleCommand(context.Background(), cmd); err != nil {
		t.Fatalf("handleCommand: %v", err)
	}
	if worker.triggered != 1 {
		t.Fatalf("triggered = %d, want a queue drain for a bare command", worker.triggered)
	}

	params, _ := json.Marshal(models.CommandParams{AlertID: "latest"})
	cmd = &models.Command{Command: models.CmdDispatchAlerts, Params: params}
	if err := s.handleCommand(context.Background(), cmd); err != nil {
		t.Fatalf("handleCommand: %v", err)
	}
	if len(worker.dispatched) != 1 || worker.dispatched[0] != "latest" {
		t.Fatalf("dispatched = %v, want [latest]", worker.dispatched)
	}
}
