package qnetsim

// analytic.go holds the analytical reference model: the traffic (flow
// balance) equations that yield each station's effective arrival rate,
// and the M/M/1 closed forms derived from them

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrUnstable is returned when some station's utilization is at or above
// one.  The closed-form M/M/1 formulas are undefined there, and a finite
// simulation run does not represent such a network either
var ErrUnstable = errors.New("network is unstable")

// StationMetrics holds the long-run performance measures of one station
type StationMetrics struct {
	Lambda     float64 // effective arrival rate
	Rho        float64 // utilization
	L          float64 // mean number at the station
	Lq         float64 // mean number waiting
	W          float64 // mean time at the station
	Wq         float64 // mean time waiting
	Throughput float64
}

// NetworkMetrics holds per-station measures plus the system-wide totals
type NetworkMetrics struct {
	Stations       map[int]StationMetrics
	TotalL         float64 // mean number in the whole network
	SystemResponse float64 // mean time from network entry to exit
}

// SolveFlowRates solves the traffic equations for the effective arrival
// rate of every station.  With ext the vector of external arrival rates
// and P the routing matrix, flow balance requires lambda = ext + P^T lambda,
// solved here as the linear system (I - P^T) lambda = ext
func SolveFlowRates(rt *RoutingTable, sourceStation int, sourceRate float64) (map[int]float64, error) {
	stations := rt.Origins()
	n := len(stations)
	index := make(map[int]int)
	for i, id := range stations {
		index[id] = i
	}

	coef := mat.NewDense(n, n, nil)
	ext := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		coef.Set(i, i, 1.0)
	}
	ext.SetVec(index[sourceStation], sourceRate)

	for _, origin := range stations {
		for _, br := range rt.Branches(origin) {
			if br.Dest == Exit {
				continue
			}
			row := index[br.Dest]
			col := index[origin]
			coef.Set(row, col, coef.At(row, col)-br.Prob)
		}
	}

	var rates mat.VecDense
	if err := rates.SolveVec(coef, ext); err != nil {
		return nil, fmt.Errorf("traffic equations are singular: %w", err)
	}

	flow := make(map[int]float64)
	for _, id := range stations {
		flow[id] = rates.AtVec(index[id])
	}
	return flow, nil
}

// SolveAnalytic derives the M/M/1 closed-form metrics of every station
// from the routing table and rates, plus the system totals given by the
// open-network decomposition and Little's Law.  It refuses to produce
// metrics for an unstable network
func SolveAnalytic(rt *RoutingTable, sourceStation int, sourceRate float64, serviceRates map[int]float64) (*NetworkMetrics, error) {
	flow, err := SolveFlowRates(rt, sourceStation, sourceRate)
	if err != nil {
		return nil, err
	}

	nm := new(NetworkMetrics)
	nm.Stations = make(map[int]StationMetrics)

	for _, id := range rt.Origins() {
		lambda := flow[id]
		mu := serviceRates[id]
		rho := lambda / mu
		if rho >= 1.0 {
			return nil, fmt.Errorf("station %d has utilization %f: %w", id, rho, ErrUnstable)
		}

		sm := StationMetrics{Lambda: lambda, Rho: rho, Throughput: lambda}
		sm.L = rho / (1.0 - rho)
		sm.Lq = sm.L - rho
		sm.W = 1.0 / (mu - lambda)
		sm.Wq = sm.W - 1.0/mu
		nm.Stations[id] = sm
		nm.TotalL += sm.L
	}

	nm.SystemResponse = nm.TotalL / sourceRate
	return nm, nil
}
