package qnetsim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVariates replays fixed values: one exponential sample per rate and
// a single routing draw, making the whole event trace hand-computable
type stubVariates struct {
	expByRate map[float64]float64
	draw      float64
}

func (sv *stubVariates) Exponential(rate float64) (float64, error) {
	sample, present := sv.expByRate[rate]
	if !present {
		panic("stub has no sample for rate")
	}
	return sample, nil
}

func (sv *stubVariates) Uniform01() float64 {
	return sv.draw
}

func (sv *stubVariates) Restart() {}

// fixedScenarioEngine builds the deterministic scenario: inter-arrivals
// of 1.0, service times of 0.5 everywhere, and routing draws of 0.2, so
// every customer passes Q1 -> Q2 -> Q4 -> exit
func fixedScenarioEngine(t *testing.T, tm *TraceManager) *SimulationEngine {
	t.Helper()
	cfg := DefaultExperimentConfig()
	cfg.WarmupCustomers = 0
	cfg.TargetCompleted = 5

	stub := &stubVariates{
		expByRate: map[float64]float64{4.0: 1.0, 5.0: 0.5, 3.0: 0.5},
		draw:      0.2,
	}
	eng, err := CreateSimulationEngine(cfg, stub, tm)
	require.NoError(t, err)
	return eng
}

func TestDeterministicEventTrace(t *testing.T) {
	eng := fixedScenarioEngine(t, nil)

	type expected struct {
		time    float64
		typ     EventType
		station int
		cust    int
	}
	want := []expected{
		{1.0, ArrivalEvent, 1, 1},
		{1.5, DepartureEvent, 1, 1},
		{2.0, ArrivalEvent, 1, 2},
		{2.0, DepartureEvent, 2, 1},
		{2.5, DepartureEvent, 1, 2},
		{2.5, DepartureEvent, 4, 1},
		{3.0, ArrivalEvent, 1, 3},
		{3.0, DepartureEvent, 2, 2},
		{3.5, DepartureEvent, 1, 3},
		{3.5, DepartureEvent, 4, 2},
		{4.0, ArrivalEvent, 1, 4},
		{4.0, DepartureEvent, 2, 3},
		{4.5, DepartureEvent, 1, 4},
		{4.5, DepartureEvent, 4, 3},
		{5.0, ArrivalEvent, 1, 5},
		{5.0, DepartureEvent, 2, 4},
		{5.5, DepartureEvent, 1, 5},
		{5.5, DepartureEvent, 4, 4},
		{6.0, ArrivalEvent, 1, 6},
		{6.0, DepartureEvent, 2, 5},
		{6.5, DepartureEvent, 1, 6},
		{6.5, DepartureEvent, 4, 5},
	}

	for i, w := range want {
		res := eng.Step()
		require.Equal(t, StepAdvanced, res.Outcome, "step %d", i)
		assert.InDelta(t, w.time, res.Event.Time, 1e-12, "step %d", i)
		assert.Equal(t, w.typ, res.Event.Type, "step %d", i)
		assert.Equal(t, w.station, res.Event.Station, "step %d", i)
		assert.Equal(t, w.cust, res.Event.Customer.ID, "step %d", i)
	}

	res := eng.Step()
	assert.Equal(t, StepTargetReached, res.Outcome)
	assert.Equal(t, 5, eng.CompletedCount())

	// each customer spends three service stages of 0.5 in the network,
	// with zero-delay transfers between stations
	assert.InDelta(t, 5*1.5, eng.TotalResponseTime(), 1e-12)
}

func TestRunReachesTarget(t *testing.T) {
	eng := fixedScenarioEngine(t, nil)
	res := eng.Run()
	assert.Equal(t, StepTargetReached, res.Outcome)
	assert.Equal(t, 5, eng.CompletedCount())
}

func TestClockMonotoneAndConservation(t *testing.T) {
	cfg := DefaultExperimentConfig()
	cfg.WarmupCustomers = 0
	cfg.TargetCompleted = 500
	eng, err := CreateSimulationEngine(cfg, nil, nil)
	require.NoError(t, err)

	prevClock := 0.0
	for {
		res := eng.Step()
		if res.Outcome != StepAdvanced {
			assert.Equal(t, StepTargetReached, res.Outcome)
			break
		}
		require.GreaterOrEqual(t, eng.Clock(), prevClock)
		prevClock = eng.Clock()

		for _, stn := range eng.StationIDs() {
			ctrs := eng.Stats(stn)
			require.Equal(t, int64(eng.QueueLength(stn)), ctrs.Arrivals-ctrs.Departures,
				"conservation at station %d", stn)
		}
	}
}

func TestWarmupIsolation(t *testing.T) {
	cfg := DefaultExperimentConfig()
	cfg.WarmupCustomers = 50
	cfg.TargetCompleted = 100
	eng, err := CreateSimulationEngine(cfg, nil, nil)
	require.NoError(t, err)

	require.True(t, eng.WarmingUp())
	for eng.WarmingUp() {
		for _, stn := range eng.StationIDs() {
			ctrs := eng.Stats(stn)
			require.Zero(t, ctrs.LAccum)
			require.Zero(t, ctrs.QAccum)
			require.Zero(t, ctrs.BusyAccum)
		}
		res := eng.Step()
		require.Equal(t, StepAdvanced, res.Outcome)
	}

	// the step that ended warm-up reset everything and anchored the
	// steady-state start at the current clock
	assert.Equal(t, 50, eng.WarmupCount())
	assert.Equal(t, eng.Clock(), eng.SteadyStartTime())
	assert.Zero(t, eng.CompletedCount())
	assert.Zero(t, eng.TotalResponseTime())
	for _, stn := range eng.StationIDs() {
		ctrs := eng.Stats(stn)
		assert.Zero(t, ctrs.LAccum)
		assert.Zero(t, ctrs.Arrivals)
	}

	res := eng.Run()
	assert.Equal(t, StepTargetReached, res.Outcome)
	assert.Equal(t, 100, eng.CompletedCount())
}

func TestWarmupZeroStartsSteady(t *testing.T) {
	cfg := DefaultExperimentConfig()
	cfg.WarmupCustomers = 0
	cfg.TargetCompleted = 10
	eng, err := CreateSimulationEngine(cfg, nil, nil)
	require.NoError(t, err)

	assert.False(t, eng.WarmingUp())
	eng.Run()
	assert.Equal(t, 10, eng.CompletedCount())
	assert.Zero(t, eng.SteadyStartTime())
}

func TestResetReproducesRun(t *testing.T) {
	cfg := DefaultExperimentConfig()
	cfg.WarmupCustomers = 0
	cfg.TargetCompleted = 200
	eng, err := CreateSimulationEngine(cfg, nil, nil)
	require.NoError(t, err)

	record := func() []Event {
		events := make([]Event, 0, 50)
		for i := 0; i < 50; i++ {
			res := eng.Step()
			require.Equal(t, StepAdvanced, res.Outcome)
			events = append(events, *res.Event)
		}
		return events
	}

	first := record()
	eng.Reset()
	assert.Zero(t, eng.Clock())
	assert.Zero(t, eng.CompletedCount())

	second := record()
	for i := range first {
		assert.Equal(t, first[i].Time, second[i].Time, "event %d", i)
		assert.Equal(t, first[i].Type, second[i].Type, "event %d", i)
		assert.Equal(t, first[i].Station, second[i].Station, "event %d", i)
		assert.Equal(t, first[i].Customer.ID, second[i].Customer.ID, "event %d", i)
	}
}

func TestEnginesAreIndependent(t *testing.T) {
	cfg := DefaultExperimentConfig()
	cfg.WarmupCustomers = 0
	cfg.TargetCompleted = 20

	a, err := CreateSimulationEngine(cfg, nil, nil)
	require.NoError(t, err)
	b, err := CreateSimulationEngine(cfg, nil, nil)
	require.NoError(t, err)

	a.Run()
	assert.Equal(t, 20, a.CompletedCount())
	assert.Zero(t, b.CompletedCount())
	assert.Zero(t, b.Clock())
}

func TestTraceCapture(t *testing.T) {
	tm := CreateTraceManager("trace-test", true)
	eng := fixedScenarioEngine(t, tm)
	eng.Run()

	require.Len(t, tm.Traces, 22)
	assert.Equal(t, "ARRIVAL", tm.Traces[0].Type)
	assert.Equal(t, 1, tm.Traces[0].Station)
	assert.Contains(t, tm.Traces[21].Note, "exited")

	filename := filepath.Join(t.TempDir(), "trace.yaml")
	require.True(t, tm.WriteToFile(filename))
	_, err := os.Stat(filename)
	require.NoError(t, err)
}

func TestSimulatedMetricsBeforeDepartures(t *testing.T) {
	cfg := DefaultExperimentConfig()
	eng, err := CreateSimulationEngine(cfg, nil, nil)
	require.NoError(t, err)

	// nothing has happened: every derived measure is the zero sentinel
	nm := eng.SimulatedMetrics()
	for _, stn := range eng.StationIDs() {
		assert.Zero(t, nm.Stations[stn].W)
		assert.Zero(t, nm.Stations[stn].Wq)
		assert.Zero(t, nm.Stations[stn].L)
	}
	assert.Zero(t, nm.SystemResponse)
}

func TestUtilizationConvergesToAnalytical(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running convergence check")
	}

	cfg := DefaultExperimentConfig()
	eng, err := CreateSimulationEngine(cfg, nil, nil)
	require.NoError(t, err)

	res := eng.Run()
	require.Equal(t, StepTargetReached, res.Outcome)
	require.Equal(t, cfg.TargetCompleted, eng.CompletedCount())

	rt := defaultTable(t)
	ana, err := SolveAnalytic(rt, cfg.SourceStation, cfg.SourceRate, cfg.ServiceRates)
	require.NoError(t, err)

	sim := eng.SimulatedMetrics()
	for _, stn := range eng.StationIDs() {
		relErr := (sim.Stations[stn].Rho - ana.Stations[stn].Rho) / ana.Stations[stn].Rho
		if relErr < 0.0 {
			relErr = -relErr
		}
		assert.Less(t, relErr, 0.10, "utilization at station %d", stn)
	}
}
