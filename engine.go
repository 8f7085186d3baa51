package qnetsim

// engine.go holds the simulation engine.  The engine owns the network
// state, the future event list, the statistics collector, the variate
// generator, and the routing table, and advances the model one event at
// a time

import (
	"fmt"
)

// StepOutcome tags the result of a single step
type StepOutcome int

const (
	// StepAdvanced means an event was processed
	StepAdvanced StepOutcome = iota

	// StepScheduleExhausted means no pending events remain.  Before the
	// completion target this usually indicates a misconfigured model
	StepScheduleExhausted

	// StepTargetReached means the configured number of completed
	// customers has been collected
	StepTargetReached
)

// A StepResult reports what one call to Step did.  Event and Note are
// set only when the outcome is StepAdvanced
type StepResult struct {
	Outcome StepOutcome
	Event   *Event
	Note    string
}

// SimulationEngine drives one experiment.  All mutable simulation state
// lives inside the engine instance, so independent engines can coexist.
// An engine is not safe for concurrent use
type SimulationEngine struct {
	cfg    ExperimentConfig
	vg     VariateGenerator
	routes *RoutingTable
	trace  *TraceManager

	fel   *EventList
	net   *NetworkState
	stats *StatsCollector

	clock         float64
	nxtExternalID int
	completed     int
	totalResponse float64
	warmupCount   int
	steadyStart   float64
}

// CreateSimulationEngine validates the configuration and builds a ready
// engine with the first external arrival already scheduled.  A nil
// variate generator selects a stream seeded by the experiment name; a
// nil trace manager disables tracing
func CreateSimulationEngine(cfg ExperimentConfig, vg VariateGenerator, tm *TraceManager) (*SimulationEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment configuration: %w", err)
	}

	routes, err := CreateRoutingTable(cfg.Routing, cfg.StationIDs())
	if err != nil {
		return nil, err
	}

	if vg == nil {
		vg = CreateStreamVariates(cfg.Name)
	}
	if tm == nil {
		tm = CreateTraceManager(cfg.Name, false)
	}

	eng := new(SimulationEngine)
	eng.cfg = cfg
	eng.vg = vg
	eng.routes = routes
	eng.trace = tm
	eng.initRun()
	return eng, nil
}

// initRun builds the construction-time simulation state: empty stations,
// zeroed statistics, and the seed external arrival
func (eng *SimulationEngine) initRun() {
	stations := eng.cfg.StationIDs()
	eng.fel = CreateEventList()
	eng.net = CreateNetworkState(stations)
	eng.stats = CreateStatsCollector(stations, eng.cfg.WarmupCustomers > 0)

	eng.clock = 0.0
	eng.completed = 0
	eng.totalResponse = 0.0
	eng.warmupCount = 0
	eng.steadyStart = 0.0

	iat := eng.mustExp(eng.cfg.SourceRate)
	eng.nxtExternalID = 1
	first := &Customer{ID: eng.nxtExternalID, ArrivalTime: iat}
	eng.fel.Insert(&Event{Time: iat, Type: ArrivalEvent, Customer: first, Station: eng.cfg.SourceStation})
}

// Reset returns the engine to its construction-time state using the
// original configuration.  A Restartable variate generator is rewound,
// so the rebuilt run reproduces the original draw sequence
func (eng *SimulationEngine) Reset() {
	if r, ok := eng.vg.(Restartable); ok {
		r.Restart()
	}
	eng.initRun()
}

// mustExp draws an exponential sample.  All rates were validated at
// construction, so a sampling error here is a programming fault
func (eng *SimulationEngine) mustExp(rate float64) float64 {
	sample, err := eng.vg.Exponential(rate)
	if err != nil {
		panic(err)
	}
	return sample
}

// Step processes the earliest pending event: integrate the statistics
// over the elapsed interval using the pre-event state, advance the
// clock, and dispatch to the arrival or departure handler.  The result
// distinguishes a processed event from the two terminal conditions
func (eng *SimulationEngine) Step() StepResult {
	if eng.completed >= eng.cfg.TargetCompleted {
		return StepResult{Outcome: StepTargetReached}
	}

	evt, err := eng.fel.ExtractMin()
	if err != nil {
		return StepResult{Outcome: StepScheduleExhausted}
	}

	eng.stats.Advance(eng.net, evt.Time)
	eng.clock = evt.Time

	var note string
	switch evt.Type {
	case ArrivalEvent:
		note = eng.handleArrival(evt)

		// an arrival of the expected external customer at the source
		// station pulls the next one into the schedule
		if evt.Station == eng.cfg.SourceStation && evt.Customer.ID == eng.nxtExternalID {
			eng.nxtExternalID += 1
			iat := eng.mustExp(eng.cfg.SourceRate)
			nxt := &Customer{ID: eng.nxtExternalID, ArrivalTime: eng.clock + iat}
			eng.fel.Insert(&Event{Time: eng.clock + iat, Type: ArrivalEvent, Customer: nxt, Station: eng.cfg.SourceStation})
		}
	case DepartureEvent:
		note = eng.handleDeparture(evt)
	}

	if eng.trace.Active() {
		eng.trace.AddTrace(QueueTrace{
			Time:     eng.clock,
			Type:     evt.Type.String(),
			Customer: evt.Customer.ID,
			Station:  evt.Station,
			QueueLen: eng.net.QueueLength(evt.Station),
			Busy:     eng.net.Busy(evt.Station),
			Note:     note,
		})
	}

	return StepResult{Outcome: StepAdvanced, Event: evt, Note: note}
}

// Run steps until a terminal condition and reports it
func (eng *SimulationEngine) Run() StepResult {
	for {
		res := eng.Step()
		if res.Outcome != StepAdvanced {
			return res
		}
	}
}

// handleArrival places a customer at the tail of a station's fifo and,
// if the server was idle, starts service for it
func (eng *SimulationEngine) handleArrival(evt *Event) string {
	stn := evt.Station
	eng.net.Enqueue(stn, evt.Customer)
	eng.stats.CountArrival(stn)
	note := fmt.Sprintf("cust %d -> Q%d", evt.Customer.ID, stn)

	if !eng.net.Busy(stn) {
		eng.net.SetBusy(stn, true)
		eng.startService(stn)
	}
	return note
}

// startService draws a service time for the head customer of a station
// and schedules its departure.  The station's busy flag must already be
// set, which guarantees at most one outstanding departure per station
func (eng *SimulationEngine) startService(stn int) {
	svc := eng.mustExp(eng.cfg.ServiceRates[stn])
	head := eng.net.Head(stn)
	eng.fel.Insert(&Event{Time: eng.clock + svc, Type: DepartureEvent, Customer: head, Station: stn})
}

// handleDeparture removes the head customer from a station, routes it to
// its next destination or out of the network, and restarts service for
// the next waiting customer if there is one
func (eng *SimulationEngine) handleDeparture(evt *Event) string {
	stn := evt.Station
	c := eng.net.PopHead(stn)
	eng.stats.CountDeparture(stn)
	note := fmt.Sprintf("cust %d left Q%d", c.ID, stn)

	dest, err := eng.routes.Route(stn, eng.vg.Uniform01())
	if err != nil {
		panic(err)
	}

	if dest == Exit {
		if eng.stats.Warming() {
			eng.warmupCount += 1
			note += " -> exited (warm-up)"
			if eng.warmupCount >= eng.cfg.WarmupCustomers {
				eng.resetStats()
				note += " [warm-up done - stats reset]"
			}
		} else {
			eng.completed += 1
			eng.totalResponse += eng.clock - c.ArrivalTime
			note += " -> exited"
		}
	} else {
		// zero-delay transfer: the customer re-enters as an arrival at
		// the destination with the same clock and original arrival time
		eng.handleArrival(&Event{Time: eng.clock, Type: ArrivalEvent, Customer: c, Station: dest})
		note += fmt.Sprintf(" -> moved to Q%d", dest)
	}

	if eng.net.QueueLength(stn) > 0 {
		eng.net.SetBusy(stn, true)
		eng.startService(stn)
	} else {
		eng.net.SetBusy(stn, false)
	}
	return note
}

// resetStats discards everything gathered during warm-up.  Queue
// contents, busy flags, and in-flight events all survive; only the
// statistical record restarts, anchored at the current clock
func (eng *SimulationEngine) resetStats() {
	eng.stats.Reset(eng.clock)
	eng.completed = 0
	eng.totalResponse = 0.0
	eng.steadyStart = eng.clock
}

// Clock reports the current simulation time
func (eng *SimulationEngine) Clock() float64 {
	return eng.clock
}

// StationIDs returns the station identifiers in ascending order
func (eng *SimulationEngine) StationIDs() []int {
	return eng.net.StationIDs()
}

// QueueLength reports the number of customers at a station
func (eng *SimulationEngine) QueueLength(stn int) int {
	return eng.net.QueueLength(stn)
}

// QueueContents returns a copy of a station's fifo, head first
func (eng *SimulationEngine) QueueContents(stn int) []*Customer {
	return eng.net.QueueContents(stn)
}

// ServerBusy reports whether a station's server is occupied
func (eng *SimulationEngine) ServerBusy(stn int) bool {
	return eng.net.Busy(stn)
}

// Stats returns a copy of a station's statistical record
func (eng *SimulationEngine) Stats(stn int) StationCounters {
	return eng.stats.Counters(stn)
}

// PendingEvents returns a copy of the FEL in extraction order
func (eng *SimulationEngine) PendingEvents() []*Event {
	return eng.fel.Pending()
}

// CompletedCount reports the number of post-warm-up exits
func (eng *SimulationEngine) CompletedCount() int {
	return eng.completed
}

// TotalResponseTime reports the summed network response time of all
// completed customers
func (eng *SimulationEngine) TotalResponseTime() float64 {
	return eng.totalResponse
}

// WarmingUp reports whether the warm-up period is still in progress
func (eng *SimulationEngine) WarmingUp() bool {
	return eng.stats.Warming()
}

// WarmupCount reports the number of exits seen during warm-up
func (eng *SimulationEngine) WarmupCount() int {
	return eng.warmupCount
}

// SteadyStartTime reports the clock value at which warm-up ended.  It is
// zero while warm-up is still in progress
func (eng *SimulationEngine) SteadyStartTime() float64 {
	return eng.steadyStart
}

// SimulatedMetrics derives the long-run performance measures from the
// collected statistics.  Time averages divide by the steady-state
// duration; per-customer averages that need a throughput or completion
// count fall back to zero before any departure has been observed
func (eng *SimulationEngine) SimulatedMetrics() *NetworkMetrics {
	nm := new(NetworkMetrics)
	nm.Stations = make(map[int]StationMetrics)

	duration := eng.clock - eng.steadyStart
	for _, stn := range eng.net.StationIDs() {
		sm := StationMetrics{}
		ctrs := eng.stats.Counters(stn)
		if duration > 0.0 {
			sm.L = ctrs.LAccum / duration
			sm.Lq = ctrs.QAccum / duration
			sm.Rho = ctrs.BusyAccum / duration
			sm.Throughput = float64(ctrs.Departures) / duration
			sm.Lambda = float64(ctrs.Arrivals) / duration
			if sm.Throughput > 0.0 {
				sm.W = sm.L / sm.Throughput
				sm.Wq = sm.Lq / sm.Throughput
			}
		}
		nm.Stations[stn] = sm
		nm.TotalL += sm.L
	}

	if eng.completed > 0 {
		nm.SystemResponse = eng.totalResponse / float64(eng.completed)
	}
	return nm
}
