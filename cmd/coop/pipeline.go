package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/azybler/coop_router/pkg/cch"
	"github.com/azybler/coop_router/pkg/engine"
	"github.com/azybler/coop_router/pkg/experiments"
	"github.com/azybler/coop_router/pkg/graph"
	"github.com/azybler/coop_router/pkg/potential"
)

func loadGraph(path string) (*graph.Graph, error) {
	log.Printf("Loading graph from %s...", path)
	g, err := graph.ReadBinary(path)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	mode := "static"
	if g.TimeDependent() {
		mode = "time-dependent"
	}
	log.Printf("Graph: %d nodes, %d edges (%s)", g.NumNodes, g.NumEdges, mode)
	return g, nil
}

// loadOrder reads an elimination order file (one node ID per line), or
// computes one when no path is given.
func loadOrder(path string, g *graph.Graph) (cch.Order, error) {
	if path == "" {
		log.Println("Computing elimination order...")
		start := time.Now()
		order := cch.ComputeOrder(g)
		log.Printf("Order computed in %s", time.Since(start).Round(time.Millisecond))
		return order, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	defer f.Close()

	var order cch.Order
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		id, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("order line %d: %w", len(order)+1, err)
		}
		order = append(order, graph.NodeID(id))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if err := order.Validate(g.NumNodes); err != nil {
		return nil, err
	}
	return order, nil
}

func writeOrder(path string, order cch.Order) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write order: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, node := range order {
		fmt.Fprintln(w, node)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write order: %w", err)
	}
	return f.Close()
}

func loadQueries(path string) ([]engine.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load queries: %w", err)
	}
	defer f.Close()

	reqs, err := experiments.ReadQueries(f)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d queries from %s", len(reqs), path)
	return reqs, nil
}

// preparePotential customizes the hierarchy and builds the configured
// goal-direction provider.
func preparePotential(cfg experiments.Config, g *graph.Graph, orderPath string) (potential.Prepared, error) {
	order, err := loadOrder(orderPath, g)
	if err != nil {
		return nil, err
	}

	log.Println("Building hierarchy topology...")
	topo, err := cch.BuildTopology(g, order)
	if err != nil {
		return nil, err
	}
	log.Printf("Topology: %d arcs", topo.NumArcs())

	log.Printf("Preparing %s potential...", cfg.Potential.Kind)
	start := time.Now()
	prep, err := cfg.Prepare(topo, g)
	if err != nil {
		return nil, err
	}
	log.Printf("Potential ready in %s", time.Since(start).Round(time.Millisecond))
	return prep, nil
}
