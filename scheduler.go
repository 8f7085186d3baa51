package qnetsim

// scheduler.go holds the future event list (FEL), the time-ordered
// collection of pending simulation events.  The FEL is a binary min-heap
// keyed by event time, with a monotone sequence number breaking ties in
// insertion order

import (
	"container/heap"
	"errors"

	"golang.org/x/exp/slices"
)

// EventType distinguishes the two kinds of simulation events
type EventType int

const (
	ArrivalEvent EventType = iota
	DepartureEvent
)

var etToStr map[EventType]string = map[EventType]string{ArrivalEvent: "ARRIVAL", DepartureEvent: "DEPARTURE"}

func (et EventType) String() string {
	return etToStr[et]
}

// A Customer carries an identity assigned at network entry and the
// clock value at which it entered the network.  Both are fixed for
// the customer's whole passage through the network
type Customer struct {
	ID          int
	ArrivalTime float64
}

// An Event marks a customer arriving at or departing from a station
// at a point in simulation time
type Event struct {
	Time     float64
	Type     EventType
	Customer *Customer
	Station  int

	// seq orders events with equal times by insertion
	seq int64
}

// felHeap and its methods implement a min-priority heap on event time,
// with insertion order breaking ties
type felHeap []*Event

func (h felHeap) Len() int { return len(h) }
func (h felHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}
func (h felHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *felHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *felHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// ErrEmptySchedule is returned by ExtractMin when no events remain.
// Callers treat it as normal termination of a run, not a fault
var ErrEmptySchedule = errors.New("future event list is empty")

// EventList is the FEL.  Insert and ExtractMin are both logarithmic
type EventList struct {
	events felHeap
	nxtSeq int64
}

// CreateEventList is a constructor
func CreateEventList() *EventList {
	fel := new(EventList)
	fel.events = make(felHeap, 0)
	heap.Init(&fel.events)
	return fel
}

// Insert adds an event to the FEL
func (fel *EventList) Insert(evt *Event) {
	evt.seq = fel.nxtSeq
	fel.nxtSeq += 1
	heap.Push(&fel.events, evt)
}

// ExtractMin removes and returns the pending event with the smallest
// time, or ErrEmptySchedule when none remain
func (fel *EventList) ExtractMin() (*Event, error) {
	if len(fel.events) == 0 {
		return nil, ErrEmptySchedule
	}
	evt := heap.Pop(&fel.events).(*Event)
	return evt, nil
}

// Len reports the number of pending events
func (fel *EventList) Len() int {
	return len(fel.events)
}

// Pending returns a copy of the pending events in extraction order,
// for display by a presentation layer.  The FEL itself is unchanged
func (fel *EventList) Pending() []*Event {
	pending := make([]*Event, len(fel.events))
	copy(pending, fel.events)
	slices.SortFunc(pending, func(a, b *Event) int {
		if a.Time != b.Time {
			if a.Time < b.Time {
				return -1
			}
			return 1
		}
		return int(a.seq - b.seq)
	})
	return pending
}
