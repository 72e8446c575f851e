// Package mincostflow implements minimum-cost maximum-flow over an
// explicit integer-indexed arc structure using successive shortest
// augmenting paths. Arc costs may be negative; the shortest-path step
// uses a label-correcting search (SPFA) rather than Dijkstra so negative
// costs need no potential bootstrapping.
package mincostflow

import (
	"errors"
	"math"
)

// ErrInvalidNode is returned when an arc or solve references a node
// outside the graph.
var ErrInvalidNode = errors.New("mincostflow: node index out of range")

// Graph is a directed flow network. Nodes are dense integer indices
// assigned by the caller; arcs are stored as forward/backward residual
// pairs so that arc id i and i^1 are mirrors of each other.
type Graph struct {
	adj      [][]int // node -> arc ids leaving it
	to       []int
	residual []int
	cost     []int
}

// New creates a graph with numNodes nodes and no arcs
func New(numNodes int) *Graph {
	return &Graph{adj: make([][]int, numNodes)}
}

// NumNodes returns the number of nodes in the graph
func (g *Graph) NumNodes() int { return len(g.adj) }

// AddArc adds a directed arc with the given capacity and per-unit cost
// and returns its id. The residual reverse arc is created automatically.
func (g *Graph) AddArc(from, to, capacity, cost int) (int, error) {
	if from < 0 || from >= len(g.adj) || to < 0 || to >= len(g.adj) {
		return 0, ErrInvalidNode
	}
	id := len(g.to)
	g.to = append(g.to, to, from)
	g.residual = append(g.residual, capacity, 0)
	g.cost = append(g.cost, cost, -cost)
	g.adj[from] = append(g.adj[from], id)
	g.adj[to] = append(g.adj[to], id+1)
	return id, nil
}

// Flow returns the flow currently carried by the arc with the given id
func (g *Graph) Flow(arcID int) int {
	return g.residual[arcID^1]
}

// Solve pushes the maximum flow of minimum total cost from source to
// sink. It returns the flow value and the total cost of the arcs used.
// The graph retains the resulting flow for inspection via Flow.
func (g *Graph) Solve(source, sink int) (maxFlow, totalCost int, err error) {
	if source < 0 || source >= len(g.adj) || sink < 0 || sink >= len(g.adj) {
		return 0, 0, ErrInvalidNode
	}

	n := len(g.adj)
	dist := make([]int, n)
	inQueue := make([]bool, n)
	prevArc := make([]int, n)

	for {
		// SPFA over residual arcs.
		for i := range dist {
			dist[i] = math.MaxInt
			prevArc[i] = -1
			inQueue[i] = false
		}
		dist[source] = 0
		queue := []int{source}
		inQueue[source] = true

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			inQueue[u] = false
			for _, id := range g.adj[u] {
				if g.residual[id] == 0 {
					continue
				}
				v := g.to[id]
				nd := dist[u] + g.cost[id]
				if nd < dist[v] {
					dist[v] = nd
					prevArc[v] = id
					if !inQueue[v] {
						queue = append(queue, v)
						inQueue[v] = true
					}
				}
			}
		}

		if prevArc[sink] == -1 {
			return maxFlow, totalCost, nil
		}

		// Bottleneck along the augmenting path.
		bottleneck := math.MaxInt
		for v := sink; v != source; v = g.to[prevArc[v]^1] {
			if r := g.residual[prevArc[v]]; r < bottleneck {
				bottleneck = r
			}
		}
		for v := sink; v != source; v = g.to[prevArc[v]^1] {
			g.residual[prevArc[v]] -= bottleneck
			g.residual[prevArc[v]^1] += bottleneck
		}
		maxFlow += bottleneck
		totalCost += bottleneck * dist[sink]
	}
}
