package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBatchSize = 50

// Worker is the in-process due-date trigger: it polls for PENDING rows
// whose time has arrived and runs them through the execution path.
// Claiming is idempotent, so several API instances can run the worker
// concurrently.
type Worker struct {
	svc      *Service
	interval time.Duration
	stopCh   chan struct{}
}

func NewWorker(svc *Service, interval time.Duration) *Worker {
	if interval == 0 {
		interval = time.Minute
	}
	return &Worker{
		svc:      svc,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins polling, call once at boot
func (w *Worker) Start() {
	log.Info().Dur("interval", w.interval).Msg("starting scheduled transfer worker")
	go w.loop()
}

// Stop ends the polling loop; in-flight executions finish
func (w *Worker) Stop() {
	log.Info().Msg("stopping scheduled transfer worker")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	if err := w.svc.ExecuteDue(ctx, defaultBatchSize); err != nil {
		log.Error().Err(err).Msg("executing due scheduled transfers failed")
	}
}
