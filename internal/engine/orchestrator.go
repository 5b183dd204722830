package engine

// orchestrator.go drives a whole batch: normalize, group, register each
// unit with the carrier, and merge the outcomes.
//
// Units are isolated: a carrier or transport failure becomes that unit's
// failure outcome and never aborts the siblings. Only pre-flight errors
// (schema, validation, configuration) are batch-fatal; they surface before
// any submission with no partial output.

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Config holds the engine's run-time knobs.
type Config struct {
	// Policy controls numeric coercion during normalization.
	Policy CoercePolicy
	// Workers bounds parallel unit registrations. Values below 2 run the
	// batch sequentially in unit order.
	Workers int
}

// Engine runs pickup batches against a Carrier.
type Engine struct {
	carrier Carrier
	cfg     Config
}

// New creates an Engine. The carrier must not be nil.
func New(carrier Carrier, cfg Config) *Engine {
	return &Engine{carrier: carrier, cfg: cfg}
}

// Run processes one batch: the raw table in, the merged result out.
//
// progress may be nil. With Workers > 1 units are registered concurrently
// under an errgroup limit; each unit writes only its own preassigned result
// slot, so no cross-unit synchronization is needed beyond the progress
// counter.
func (e *Engine) Run(ctx context.Context, t Table, progress ProgressFunc) (*BatchResult, error) {
	rows, err := Normalize(t, e.cfg.Policy)
	if err != nil {
		return nil, err
	}

	units := Group(rows)
	outcomes := make([]UnitOutcome, len(units))

	if e.cfg.Workers > 1 && len(units) > 1 {
		e.runParallel(ctx, units, outcomes, progress)
	} else {
		e.runSequential(ctx, units, outcomes, progress)
	}

	byRemito := make(map[int64]UnitOutcome, len(outcomes))
	for _, o := range outcomes {
		byRemito[o.Remito] = o
	}
	return Merge(t, rows, byRemito), nil
}

func (e *Engine) runSequential(ctx context.Context, units []Unit, outcomes []UnitOutcome, progress ProgressFunc) {
	for i, unit := range units {
		outcomes[i] = e.register(ctx, unit)
		notify(progress, unit.Remito, i+1, len(units))
	}
}

func (e *Engine) runParallel(ctx context.Context, units []Unit, outcomes []UnitOutcome, progress ProgressFunc) {
	var (
		g, gctx = errgroup.WithContext(ctx)
		mu      sync.Mutex
		done    int
	)
	g.SetLimit(e.cfg.Workers)

	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			outcomes[i] = e.register(gctx, unit)

			mu.Lock()
			done++
			current := done
			mu.Unlock()
			notify(progress, unit.Remito, current, len(units))
			return nil
		})
	}
	// Workers never return errors; failures live in the outcome slots.
	_ = g.Wait()
}

// register performs the single registration attempt for one unit and folds
// any error into the failure variant.
func (e *Engine) register(ctx context.Context, unit Unit) UnitOutcome {
	tracking, order, err := e.carrier.Register(ctx, unit)
	if err != nil {
		slog.Error("unit registration failed",
			"remito", unit.Remito,
			"rows", len(unit.Rows),
			"error", err,
		)
		return UnitOutcome{Remito: unit.Remito, Err: err}
	}

	slog.Info("unit registered",
		"remito", unit.Remito,
		"tracking_numbers", len(tracking),
		"pickup_order", order,
	)
	return UnitOutcome{Remito: unit.Remito, TrackingNumbers: tracking, PickupOrder: order}
}

func notify(progress ProgressFunc, remito int64, current, total int) {
	if progress != nil {
		progress(Progress{Remito: remito, Current: current, Total: total})
	}
}
