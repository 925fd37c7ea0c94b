package experiments

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/azybler/coop_router/pkg/engine"
	"github.com/azybler/coop_router/pkg/graph"
)

// ReadQueries parses a query CSV with columns origin,destination,departure
// (node IDs and ms since midnight). A header row is detected and skipped.
func ReadQueries(r io.Reader) ([]engine.Request, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.Comment = '#'

	var reqs []engine.Request
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return reqs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("queries line %d: %w", line, err)
		}

		origin, err0 := strconv.ParseUint(rec[0], 10, 32)
		dest, err1 := strconv.ParseUint(rec[1], 10, 32)
		dep, err2 := strconv.ParseUint(rec[2], 10, 32)
		if err0 != nil || err1 != nil || err2 != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("queries line %d: not a numeric triple: %v", line, rec)
		}
		reqs = append(reqs, engine.Request{
			Origin:      graph.NodeID(origin),
			Destination: graph.NodeID(dest),
			Departure:   graph.Timestamp(dep),
		})
	}
}

// WriteResults emits one CSV row per request with the cost and hop count the
// run produced. Infeasible requests report found=false with empty cost.
func WriteResults(w io.Writer, reqs []engine.Request, results []engine.Result) error {
	if len(reqs) != len(results) {
		return fmt.Errorf("got %d results for %d requests", len(results), len(reqs))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"origin", "destination", "departure", "found", "cost_ms", "hops"}); err != nil {
		return err
	}
	for i, req := range reqs {
		res := results[i]
		row := []string{
			strconv.FormatUint(uint64(req.Origin), 10),
			strconv.FormatUint(uint64(req.Destination), 10),
			strconv.FormatUint(uint64(req.Departure), 10),
			strconv.FormatBool(res.Found),
			"",
			"",
		}
		if res.Found {
			row[4] = strconv.FormatUint(uint64(res.Cost), 10)
			row[5] = strconv.Itoa(len(res.Path))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
