package qnetsim

// stats.go holds the time-weighted statistics collector.  Accumulators
// are integrals over simulation time of queue length, waiting count, and
// server occupancy, gathered only after the warm-up period has ended

import (
	"golang.org/x/exp/slices"
)

// StationCounters is the statistical record of one station
type StationCounters struct {
	// time integral of the number of customers at the station
	LAccum float64

	// time integral of the number waiting, excluding the one in service
	QAccum float64

	// accumulated time the server has been busy
	BusyAccum float64

	Arrivals   int64
	Departures int64
}

// StatsCollector accumulates per-station records.  While warming up it
// accumulates nothing but still advances its last-observed-time marker,
// so no pre-warm-up backlog leaks into the steady-state integrals
type StatsCollector struct {
	counters   map[int]*StationCounters
	order      []int
	lastUpdate float64
	warming    bool
}

// CreateStatsCollector is a constructor.  The collector starts warming
// when a warm-up period is configured, otherwise it collects immediately
func CreateStatsCollector(stations []int, warming bool) *StatsCollector {
	sc := new(StatsCollector)
	sc.counters = make(map[int]*StationCounters)
	sc.order = make([]int, 0, len(stations))
	for _, id := range stations {
		sc.counters[id] = &StationCounters{}
		sc.order = append(sc.order, id)
	}
	slices.Sort(sc.order)
	sc.warming = warming
	return sc
}

// Warming reports whether the collector is still inside the warm-up period
func (sc *StatsCollector) Warming() bool {
	return sc.warming
}

// LastUpdate reports the clock value through which the accumulators have
// been integrated
func (sc *StatsCollector) LastUpdate() float64 {
	return sc.lastUpdate
}

// Advance integrates all accumulators from the last observed time up to
// clock, using the network state as it stands now.  The caller must
// invoke it before mutating the state for the event at that clock value
func (sc *StatsCollector) Advance(ns *NetworkState, clock float64) {
	if sc.warming {
		sc.lastUpdate = clock
		return
	}

	delta := clock - sc.lastUpdate
	for _, id := range sc.order {
		ctrs := sc.counters[id]
		n := ns.QueueLength(id)
		ctrs.LAccum += float64(n) * delta

		if ns.Busy(id) {
			qlen := n - 1
			if qlen < 0 {
				qlen = 0
			}
			ctrs.QAccum += float64(qlen) * delta
			ctrs.BusyAccum += delta
		}
	}
	sc.lastUpdate = clock
}

// CountArrival increments a station's arrival counter
func (sc *StatsCollector) CountArrival(id int) {
	sc.counters[id].Arrivals += 1
}

// CountDeparture increments a station's departure counter
func (sc *StatsCollector) CountDeparture(id int) {
	sc.counters[id].Departures += 1
}

// Reset zeroes every accumulator and counter, re-anchors the integration
// marker to clock, and ends the warm-up period.  The engine calls it
// exactly once, when the warm-up customer threshold is first reached
func (sc *StatsCollector) Reset(clock float64) {
	for _, id := range sc.order {
		sc.counters[id] = &StationCounters{}
	}
	sc.lastUpdate = clock
	sc.warming = false
}

// Counters returns a copy of one station's statistical record
func (sc *StatsCollector) Counters(id int) StationCounters {
	return *sc.counters[id]
}
