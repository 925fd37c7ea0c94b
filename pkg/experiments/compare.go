package experiments

import (
	"context"

	"github.com/azybler/coop_router/pkg/engine"
	"github.com/azybler/coop_router/pkg/graph"
	"github.com/azybler/coop_router/pkg/ledger"
	"github.com/azybler/coop_router/pkg/potential"
)

// Comparison holds both answers for one request.
type Comparison struct {
	Static      engine.Result
	Cooperative engine.Result
}

// Summary aggregates a comparison run.
type Summary struct {
	Queries  int
	Feasible int

	// Diverged counts feasible requests whose cooperative route differs
	// from the static one.
	Diverged int

	// MeanRelIncrease is the mean of cooperative/static cost over feasible
	// requests, 1.0 when nothing was displaced.
	MeanRelIncrease float64
	MaxRelIncrease  float64
}

// CompareStaticCooperative answers every request twice: once against a
// zero-load frozen view, once cooperatively where each found route is
// committed before later requests run. The ledger is reset first, so the
// cooperative pass starts from the same zero load as the static one.
func CompareStaticCooperative(ctx context.Context, prepared potential.Prepared, led *ledger.Ledger, reqs []engine.Request, workers int) ([]Comparison, error) {
	frozen := led.Frozen()
	eng := engine.New(led.Graph())
	pot := prepared.NewPotential()

	out := make([]Comparison, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i].Static = eng.Query(pot, frozen, req.Origin, req.Destination, req.Departure)
	}

	led.Reset()
	coop, err := engine.NewBatchRunner(prepared, led, workers).Run(ctx, reqs)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Cooperative = coop[i]
	}
	return out, nil
}

// Summarize reduces a comparison run to its headline numbers.
func Summarize(cmps []Comparison) Summary {
	s := Summary{Queries: len(cmps)}
	var relSum float64
	for _, c := range cmps {
		if !c.Static.Found || !c.Cooperative.Found {
			continue
		}
		s.Feasible++
		if !samePath(c.Static.Path, c.Cooperative.Path) {
			s.Diverged++
		}
		rel := 1.0
		if c.Static.Cost > 0 {
			rel = float64(c.Cooperative.Cost) / float64(c.Static.Cost)
		}
		relSum += rel
		if rel > s.MaxRelIncrease {
			s.MaxRelIncrease = rel
		}
	}
	if s.Feasible > 0 {
		s.MeanRelIncrease = relSum / float64(s.Feasible)
	}
	return s
}

func samePath(a, b []graph.EdgeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
