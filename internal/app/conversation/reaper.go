package conversation

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/PabloGalante/farum-engine/internal/observability"
)

// Reaper periodically ends sessions that have been idle for too long.
type Reaper struct {
	manager *Manager
	idleFor time.Duration
	cron    *cron.Cron
}

// NewReaper schedules a sweep using a cron spec such as "@every 5m".
func NewReaper(manager *Manager, idleFor time.Duration, schedule string) (*Reaper, error) {
	r := &Reaper{
		manager: manager,
		idleFor: idleFor,
		cron:    cron.New(),
	}

	if _, err := r.cron.AddFunc(schedule, func() { r.Sweep(context.Background()) }); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Reaper) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to return.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep ends every idle session and returns how many were ended.
func (r *Reaper) Sweep(ctx context.Context) int {
	ended := r.manager.EndIdle(ctx, r.idleFor)
	if len(ended) > 0 {
		observability.LoggerFromContext(ctx).Info("ended idle sessions",
			"count", len(ended), "idle_for", r.idleFor.String())
	}
	return len(ended)
}
