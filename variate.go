package qnetsim

// variate.go holds the random variate generation used by the simulation.
// The engine is given a VariateGenerator at construction so that tests
// can substitute deterministic draw sequences

import (
	"fmt"
	"math"

	"github.com/iti/rngstream"
)

// A VariateGenerator produces the random draws the simulation consumes:
// exponential samples for inter-arrival and service times, and U01
// draws for routing decisions
type VariateGenerator interface {
	// Exponential returns a sample of an exponentially distributed
	// random variable with the given rate.  The rate must be positive
	Exponential(rate float64) (float64, error)

	// Uniform01 returns a sample uniformly distributed on [0,1)
	Uniform01() float64
}

// A Restartable variate generator can rewind itself to its
// construction-time state, so that an engine Reset reproduces
// the original draw sequence
type Restartable interface {
	Restart()
}

// expRV transforms a U01 sample into an exponential sample by inverse CDF
func expRV(u01, rate float64) float64 {
	return -math.Log(1.0-u01) / rate
}

// StreamVariates is the default VariateGenerator, drawing from a named
// rngstream.  Stream creation order is deterministic under a fixed
// package seed, which gives run-to-run reproducibility
type StreamVariates struct {
	name    string
	rngstrm *rngstream.RngStream
}

// CreateStreamVariates is a constructor
func CreateStreamVariates(name string) *StreamVariates {
	sv := new(StreamVariates)
	sv.name = name
	sv.rngstrm = rngstream.New(name)
	return sv
}

// Exponential samples an exponential random variable with the given rate
func (sv *StreamVariates) Exponential(rate float64) (float64, error) {
	if rate <= 0.0 {
		return 0.0, fmt.Errorf("exponential variate requires positive rate, have %f", rate)
	}
	return expRV(sv.rngstrm.RandU01(), rate), nil
}

// Uniform01 samples uniformly on [0,1)
func (sv *StreamVariates) Uniform01() float64 {
	return sv.rngstrm.RandU01()
}

// Restart rewinds the stream to its starting state, so the draw
// sequence repeats from the beginning
func (sv *StreamVariates) Restart() {
	sv.rngstrm.ResetStartStream()
}
