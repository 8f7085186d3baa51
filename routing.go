package qnetsim

// routing.go holds the probabilistic routing table that moves customers
// between stations.  The same table drives both simulation dispatch and
// the analytical traffic equations, so the two cannot diverge

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Exit is the destination sentinel for customers leaving the network
const Exit int = 0

// A Branch is one outgoing edge of a station: with probability Prob the
// departing customer is sent to Dest.  Dest 0 means the network exit
type Branch struct {
	Dest int     `json:"dest" yaml:"dest"`
	Prob float64 `json:"prob" yaml:"prob"`
}

// probTolerance bounds the rounding slack allowed when checking that a
// station's outgoing probabilities sum to one
const probTolerance = 1e-9

// A RoutingTable maps each origin station to the cumulative partition of
// [0,1) formed by its branches
type RoutingTable struct {
	branches map[int][]Branch
	origins  []int
}

// CreateRoutingTable validates the branch map and builds the table.
// Every origin must be a known station, every destination a known station
// or Exit, every probability in [0,1], every origin's probabilities must
// sum to one, and every station must have a path to the exit
func CreateRoutingTable(branches map[int][]Branch, stations []int) (*RoutingTable, error) {
	rt := new(RoutingTable)
	rt.branches = make(map[int][]Branch)
	rt.origins = make([]int, 0, len(branches))

	for origin, brList := range branches {
		if !slices.Contains(stations, origin) {
			return nil, fmt.Errorf("routing origin %d is not a station", origin)
		}
		total := 0.0
		for _, br := range brList {
			if br.Dest != Exit && !slices.Contains(stations, br.Dest) {
				return nil, fmt.Errorf("routing destination %d from station %d is not a station", br.Dest, origin)
			}
			if br.Prob < 0.0 || br.Prob > 1.0 {
				return nil, fmt.Errorf("routing probability %f from station %d to %d outside [0,1]", br.Prob, origin, br.Dest)
			}
			total += br.Prob
		}
		if math.Abs(total-1.0) > probTolerance {
			return nil, fmt.Errorf("routing probabilities from station %d sum to %f, need 1", origin, total)
		}
		kept := make([]Branch, len(brList))
		copy(kept, brList)
		rt.branches[origin] = kept
		rt.origins = append(rt.origins, origin)
	}
	slices.Sort(rt.origins)

	for _, id := range stations {
		_, present := rt.branches[id]
		if !present {
			return nil, fmt.Errorf("station %d has no routing entry", id)
		}
	}

	if err := rt.checkExitReachable(stations); err != nil {
		return nil, err
	}
	return rt, nil
}

// Route resolves the destination of a customer departing the origin
// station, using the uniform draw to pick the branch whose cumulative
// interval contains it.  The return is a station id or Exit
func (rt *RoutingTable) Route(origin int, draw float64) (int, error) {
	brList, present := rt.branches[origin]
	if !present {
		return Exit, fmt.Errorf("no routing entry for station %d", origin)
	}
	cum := 0.0
	for _, br := range brList {
		cum += br.Prob
		if draw < cum {
			return br.Dest, nil
		}
	}
	// rounding can leave draw marginally at or above the final cumulative
	// bound; the last branch owns the remainder of [0,1)
	return brList[len(brList)-1].Dest, nil
}

// Branches returns the outgoing branches of a station, in table order
func (rt *RoutingTable) Branches(origin int) []Branch {
	brList := make([]Branch, len(rt.branches[origin]))
	copy(brList, rt.branches[origin])
	return brList
}

// Origins returns the origin stations of the table in ascending order
func (rt *RoutingTable) Origins() []int {
	origins := make([]int, len(rt.origins))
	copy(origins, rt.origins)
	return origins
}

// checkExitReachable converts the positive-probability branches into a
// directed graph and verifies that every station has a path to the exit
// node.  A station that cannot reach the exit would trap customers
// forever, which the flow equations cannot describe
func (rt *RoutingTable) checkExitReachable(stations []int) error {
	connGraph := simple.NewWeightedDirectedGraph(0, math.Inf(1))

	gNodes := make(map[int]simple.Node)
	gNodes[Exit] = simple.Node(Exit)
	for _, id := range stations {
		gNodes[id] = simple.Node(id)
	}

	for origin, brList := range rt.branches {
		for _, br := range brList {
			if br.Prob == 0.0 || br.Dest == origin {
				continue
			}
			weightedEdge := simple.WeightedEdge{F: gNodes[origin], T: gNodes[br.Dest], W: 1.0}
			connGraph.SetWeightedEdge(weightedEdge)
		}
	}

	for _, id := range stations {
		spTree := path.DijkstraFrom(gNodes[id], connGraph)
		var nodeSeq []graph.Node
		nodeSeq, _ = spTree.To(int64(Exit))
		if len(nodeSeq) == 0 {
			return fmt.Errorf("station %d has no path to the exit", id)
		}
	}
	return nil
}
