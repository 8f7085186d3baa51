package qnetsim

// network.go holds the physical configuration of the queueing network
// at an instant: one FIFO customer sequence and one server-busy flag
// per station

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// A Station is a single-server FIFO queueing node.  When the server is
// busy the head of the fifo is the customer in service
type Station struct {
	fifo []*Customer
	busy bool
}

// NetworkState is the collection of stations making up the network
type NetworkState struct {
	stations map[int]*Station
	order    []int
}

// CreateNetworkState builds an empty network holding the named stations
func CreateNetworkState(stationIDs []int) *NetworkState {
	ns := new(NetworkState)
	ns.stations = make(map[int]*Station)
	ns.order = make([]int, 0, len(stationIDs))
	for _, id := range stationIDs {
		ns.stations[id] = &Station{fifo: make([]*Customer, 0)}
		ns.order = append(ns.order, id)
	}
	slices.Sort(ns.order)
	return ns
}

// StationIDs returns the station identifiers in ascending order
func (ns *NetworkState) StationIDs() []int {
	ids := make([]int, len(ns.order))
	copy(ids, ns.order)
	return ids
}

// station looks up a station and panics if it does not exist.  A miss
// is a programming error, every station id is validated at construction
func (ns *NetworkState) station(id int) *Station {
	stn, present := ns.stations[id]
	if !present {
		panic(fmt.Sprintf("reference to unknown station %d", id))
	}
	return stn
}

// Enqueue appends a customer to the tail of a station's fifo
func (ns *NetworkState) Enqueue(id int, c *Customer) {
	stn := ns.station(id)
	stn.fifo = append(stn.fifo, c)
}

// Head returns the customer at the head of a station's fifo
func (ns *NetworkState) Head(id int) *Customer {
	stn := ns.station(id)
	if len(stn.fifo) == 0 {
		panic(fmt.Sprintf("head of empty station %d", id))
	}
	return stn.fifo[0]
}

// PopHead removes and returns the customer at the head of a station's
// fifo.  Calling it on an empty station indicates a scheduler defect
func (ns *NetworkState) PopHead(id int) *Customer {
	stn := ns.station(id)
	if len(stn.fifo) == 0 {
		panic(fmt.Sprintf("departure from empty station %d", id))
	}
	var c *Customer
	c, stn.fifo = stn.fifo[0], stn.fifo[1:]
	return c
}

// QueueLength reports the number of customers at a station, including
// the one in service
func (ns *NetworkState) QueueLength(id int) int {
	return len(ns.station(id).fifo)
}

// QueueContents returns a copy of a station's fifo, head first
func (ns *NetworkState) QueueContents(id int) []*Customer {
	stn := ns.station(id)
	contents := make([]*Customer, len(stn.fifo))
	copy(contents, stn.fifo)
	return contents
}

// Busy reports whether a station's server is occupied
func (ns *NetworkState) Busy(id int) bool {
	return ns.station(id).busy
}

// SetBusy marks a station's server busy or idle
func (ns *NetworkState) SetBusy(id int, busy bool) {
	ns.station(id).busy = busy
}
