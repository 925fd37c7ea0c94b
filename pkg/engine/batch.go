package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/azybler/coop_router/pkg/graph"
	"github.com/azybler/coop_router/pkg/ledger"
	"github.com/azybler/coop_router/pkg/potential"
)

// Request is one routing query in a batch.
type Request struct {
	Origin      graph.NodeID
	Destination graph.NodeID
	Departure   graph.Timestamp
}

// BatchRunner answers a stream of requests cooperatively: every found route
// is committed to the ledger, so later requests see the load of earlier
// ones.
//
// Searches run in waves of up to `workers` requests. Within a wave all
// searches read the same ledger state in parallel; the wave's commits are
// then applied strictly in submission order. Results are deterministic for a
// fixed worker count.
type BatchRunner struct {
	led     *ledger.Ledger
	workers int

	engines []*Engine
	pots    []potential.Potential
}

// NewBatchRunner sets up workers over the ledger's graph, each owning its
// search state and potential instance.
func NewBatchRunner(prepared potential.Prepared, led *ledger.Ledger, workers int) *BatchRunner {
	if workers < 1 {
		workers = 1
	}
	b := &BatchRunner{led: led, workers: workers}
	for i := 0; i < workers; i++ {
		b.engines = append(b.engines, New(led.Graph()))
		b.pots = append(b.pots, prepared.NewPotential())
	}
	return b
}

// Run answers all requests and returns one result per request, in request
// order. Infeasible requests yield an unfound result and never abort the
// batch; a failed commit does, since dropping it would silently break the
// causal ordering.
func (b *BatchRunner) Run(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))

	for off := 0; off < len(reqs); off += b.workers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wave := reqs[off:min(off+b.workers, len(reqs))]

		grp, _ := errgroup.WithContext(ctx)
		for i := range wave {
			i := i
			grp.Go(func() error {
				req := wave[i]
				results[off+i] = b.engines[i].Query(b.pots[i], b.led, req.Origin, req.Destination, req.Departure)
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return nil, err
		}

		for i := range wave {
			res := results[off+i]
			if !res.Found {
				continue
			}
			if err := b.led.Commit(res.Path, wave[i].Departure); err != nil {
				return nil, fmt.Errorf("commit request %d: %w", off+i, err)
			}
		}
	}

	return results, nil
}
