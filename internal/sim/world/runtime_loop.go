package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingActions = append(pendingActions, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingActions)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick with the same ordering
// semantics as the server loop. For tests and deterministic replays.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(joins, leaves, actions)
	return tick, w.stateDigest()
}

func (w *World) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	started := time.Now()
	tick := w.tick.Load()

	entry := TickLogEntry{Tick: tick}

	for _, req := range joins {
		id := w.handleJoin(req)
		entry.Joins = append(entry.Joins, id)
	}
	for _, id := range leaves {
		w.handleLeave(id)
		entry.Leaves = append(entry.Leaves, id)
	}

	for _, env := range actions {
		res := w.applyAct(tick, env)
		if cs := w.clients[env.CasterID]; cs != nil {
			if b := marshalResult(res); b != nil {
				sendLatest(cs.Out, b)
			}
		}
	}
	entry.Acts = len(actions)

	dt := 1 / float64(w.cfg.TickRateHz)
	for _, m := range w.movers {
		w.stepMover(m, dt)
	}

	for id, cs := range w.clients {
		if b := w.buildObs(tick, id, cs); b != nil {
			sendLatest(cs.Out, b)
		}
	}

	w.maybeSnapshot(tick)

	if w.tickLogger != nil {
		entry.Digest = w.stateDigest()
		_ = w.tickLogger.WriteTick(entry)
	}

	w.metrics.stepMicros.Store(uint64(time.Since(started).Microseconds()))
	w.publishMetrics()
	w.tick.Store(tick + 1)
}
