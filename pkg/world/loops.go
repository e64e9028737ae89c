package world

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Start launches the recharge and snapshot loops. Calling Start on a
// running engine is a no-op.
func (e *Engine) Start() {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if e.stopCh != nil {
		return
	}
	e.stopCh = make(chan struct{})
	e.loopWg.Add(2)
	go e.rechargeLoop(e.stopCh)
	go e.snapshotLoop(e.stopCh)
	e.log.Info("world loops started",
		zap.Int("recharge_interval_ms", e.cfg.RechargeIntervalMs),
		zap.Int("snapshot_interval_ms", e.cfg.SnapshotIntervalMs))
}

// Close stops the background loops and waits for any in-flight sweep to
// finish. Safe to call more than once.
func (e *Engine) Close() {
	e.loopMu.Lock()
	stop := e.stopCh
	e.stopCh = nil
	e.loopMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	e.loopWg.Wait()
	e.log.Info("world loops stopped")
}

func (e *Engine) rechargeLoop(stop <-chan struct{}) {
	defer e.loopWg.Done()
	ticker := time.NewTicker(time.Duration(e.cfg.RechargeIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	decayEvery := time.Duration(e.cfg.ActivityDecayIntervalMs) * time.Millisecond
	lastDecay := time.Now()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Stop is only honored between sweeps, never mid-sweep.
			stats, err := e.RunRechargeTick(context.Background(), e.now())
			if err != nil {
				e.reportError(fmt.Errorf("recharge tick: %w", err))
				continue
			}
			e.log.Debug("recharge sweep",
				zap.Int("scanned", stats.Scanned),
				zap.Int("updated", stats.Updated),
				zap.Int("owners_credited", stats.OwnersCredited),
				zap.Float64("energy_granted", stats.EnergyGranted))

			if decayEvery > 0 && time.Since(lastDecay) >= decayEvery {
				lastDecay = time.Now()
				if _, dropped, err := e.DecayActivity(context.Background()); err != nil {
					e.reportError(fmt.Errorf("activity decay: %w", err))
				} else if dropped > 0 {
					e.log.Debug("chunk activity decayed", zap.Int("dropped", dropped))
				}
			}
		}
	}
}

func (e *Engine) snapshotLoop(stop <-chan struct{}) {
	defer e.loopWg.Done()
	ticker := time.NewTicker(time.Duration(e.cfg.SnapshotIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := e.FlushSnapshots(context.Background()); err != nil {
				e.reportError(fmt.Errorf("snapshot flush: %w", err))
			}
		}
	}
}
