package qnetsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTable(t *testing.T) *RoutingTable {
	t.Helper()
	cfg := DefaultExperimentConfig()
	rt, err := CreateRoutingTable(cfg.Routing, cfg.StationIDs())
	require.NoError(t, err)
	return rt
}

func TestRouteCumulativeIntervals(t *testing.T) {
	rt := defaultTable(t)

	cases := []struct {
		origin int
		draw   float64
		dest   int
	}{
		{1, 0.0, 2},
		{1, 0.39, 2},
		{1, 0.4, 3},
		{1, 0.99, 3},
		{2, 0.5, 4},
		{3, 0.5, 4},
		{4, 0.0, Exit},
		{4, 0.89, Exit},
		{4, 0.9, 3},
		{4, 0.99, 3},
	}
	for _, tc := range cases {
		dest, err := rt.Route(tc.origin, tc.draw)
		require.NoError(t, err)
		assert.Equal(t, tc.dest, dest, "origin %d draw %f", tc.origin, tc.draw)
	}
}

func TestRouteUnknownOrigin(t *testing.T) {
	rt := defaultTable(t)
	_, err := rt.Route(9, 0.5)
	require.Error(t, err)
}

func TestRoutingTableValidation(t *testing.T) {
	stations := []int{1, 2}

	_, err := CreateRoutingTable(map[int][]Branch{
		1: {{Dest: 2, Prob: 0.7}},
		2: {{Dest: Exit, Prob: 1.0}},
	}, stations)
	require.Error(t, err, "probabilities must sum to one")

	_, err = CreateRoutingTable(map[int][]Branch{
		1: {{Dest: 2, Prob: 1.3}, {Dest: Exit, Prob: -0.3}},
		2: {{Dest: Exit, Prob: 1.0}},
	}, stations)
	require.Error(t, err, "probabilities must be in [0,1]")

	_, err = CreateRoutingTable(map[int][]Branch{
		1: {{Dest: 7, Prob: 1.0}},
		2: {{Dest: Exit, Prob: 1.0}},
	}, stations)
	require.Error(t, err, "destinations must be stations or the exit")

	_, err = CreateRoutingTable(map[int][]Branch{
		1: {{Dest: Exit, Prob: 1.0}},
	}, stations)
	require.Error(t, err, "every station needs a routing entry")
}

func TestRoutingExitMustBeReachable(t *testing.T) {
	// two stations bouncing customers between each other forever
	_, err := CreateRoutingTable(map[int][]Branch{
		1: {{Dest: 2, Prob: 1.0}},
		2: {{Dest: 1, Prob: 1.0}},
	}, []int{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no path to the exit")
}
