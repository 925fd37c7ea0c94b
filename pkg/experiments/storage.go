package experiments

import (
	"context"
	"errors"
	"fmt"

	"github.com/azybler/coop_router/pkg/engine"
	"github.com/azybler/coop_router/pkg/graph"
	"github.com/azybler/coop_router/pkg/ledger"
	"github.com/azybler/coop_router/pkg/potential"
)

// StoragePoint records how the ledger behaved under one live-bucket cap.
type StoragePoint struct {
	MaxLiveBuckets int
	Footprint      ledger.Footprint

	// Overflowed is set when even the coarsest granularity could not hold
	// the batch under this cap.
	Overflowed bool
}

// EvaluateStorage replays the same batch under a series of live-bucket caps
// and reports the resulting footprints. A cap of zero means unbounded and
// serves as the reference point.
func EvaluateStorage(ctx context.Context, cfg Config, prepared potential.Prepared, g *graph.Graph, reqs []engine.Request, caps []int) ([]StoragePoint, error) {
	points := make([]StoragePoint, 0, len(caps))
	for _, limit := range caps {
		led, err := ledger.New(g, ledger.Options{
			NumBuckets:     cfg.NumBuckets,
			Penalty:        ledger.BPRPenalty(cfg.Penalty.Alpha, cfg.Penalty.Beta),
			MaxLiveBuckets: limit,
		})
		if err != nil {
			return nil, err
		}

		point := StoragePoint{MaxLiveBuckets: limit}
		if _, err := engine.NewBatchRunner(prepared, led, cfg.Workers).Run(ctx, reqs); err != nil {
			if !errors.Is(err, ledger.ErrLedgerOverflow) {
				return nil, fmt.Errorf("cap %d: %w", limit, err)
			}
			point.Overflowed = true
		}
		point.Footprint = led.Footprint()
		points = append(points, point)
	}
	return points, nil
}
